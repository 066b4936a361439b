package timelog

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"plantobill/internal/access"
	"plantobill/internal/apperr"
	"plantobill/internal/auth"
	"plantobill/internal/logs"
	"plantobill/internal/models"
	"plantobill/internal/repo"
)

const (
	msgTaskNotFound = "Task not found"
	msgLogNotFound  = "Time log not found"
	msgNotOwner     = "You can only delete your own time logs"
	msgUserNotFound = "User not found"
)

type Service struct {
	entries *repo.TimeLogStore
	tasks   *repo.TaskStore
	users   *repo.UserStore
	guard   *access.Guard
	log     *logrus.Entry
}

func NewService(db *gorm.DB) *Service {
	return &Service{
		entries: repo.NewTimeLogStore(db),
		tasks:   repo.NewTaskStore(db),
		users:   repo.NewUserStore(db),
		guard:   access.NewGuard(db),
		log:     logs.Component("timelog"),
	}
}

// task возвращает задачу проекта, где актор участник; задача чужой компании не видна.
func (s *Service) task(ctx context.Context, actor *models.User, taskID uint) (*models.Task, error) {
	t, err := s.tasks.Get(ctx, taskID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, apperr.NotFound(msgTaskNotFound)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if _, _, err := s.guard.Member(ctx, actor, t.ProjectID); err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.NotFound(msgTaskNotFound)
		}
		return nil, err
	}
	return t, nil
}

func (s *Service) Log(ctx context.Context, id *auth.Identity, taskID uint, in LogRequest) (*models.TimeLog, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Hours <= 0 || in.Hours > 24 {
		return nil, apperr.Validation("hours must be greater than 0 and at most 24")
	}
	t, err := s.task(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	date, err := models.ParseDate(in.LogDate)
	if err != nil {
		return nil, err
	}
	l := &models.TimeLog{
		TaskID:      t.ID,
		UserID:      actor.ID,
		Hours:       in.Hours,
		Description: strings.TrimSpace(in.Description),
		LogDate:     date,
	}
	if err := s.entries.Create(ctx, l); err != nil {
		return nil, apperr.Internal(err)
	}
	s.log.WithFields(logrus.Fields{"task_id": t.ID, "user_id": actor.ID, "hours": l.Hours}).Info("time logged")
	return l, nil
}

func (s *Service) List(ctx context.Context, id *auth.Identity, taskID uint) ([]Entry, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	t, err := s.task(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	rows, err := s.entries.ListByTask(ctx, t.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	seen := map[uint]bool{}
	var userIDs []uint
	for _, l := range rows {
		if !seen[l.UserID] {
			seen[l.UserID] = true
			userIDs = append(userIDs, l.UserID)
		}
	}
	rates, err := s.entries.Rates(ctx, userIDs)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	out := make([]Entry, 0, len(rows))
	for _, l := range rows {
		rate := rates[l.UserID]
		out = append(out, Entry{
			TimeLog:        l,
			HourlyRate:     rate,
			BillableAmount: math.Round(l.Hours*rate*100) / 100,
		})
	}
	return out, nil
}

// Delete: автор записи или admin компании.
func (s *Service) Delete(ctx context.Context, id *auth.Identity, logID uint) error {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return err
	}
	l, err := s.entries.Get(ctx, logID)
	if errors.Is(err, repo.ErrNotFound) {
		return apperr.NotFound(msgLogNotFound)
	}
	if err != nil {
		return apperr.Internal(err)
	}
	owner, err := s.users.GetInCompany(ctx, actor.CompanyID, l.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return apperr.NotFound(msgLogNotFound)
	}
	if err != nil {
		return apperr.Internal(err)
	}
	if owner.ID != actor.ID && !actor.IsAdmin() {
		return apperr.Forbidden(msgNotOwner)
	}
	if err := s.entries.Delete(ctx, l.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.NotFound(msgLogNotFound)
		}
		return apperr.Internal(err)
	}
	return nil
}

// SetRate: admin задаёт ставку сотрудника своей компании.
func (s *Service) SetRate(ctx context.Context, id *auth.Identity, in RateRequest) (*models.BillingRate, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("Access denied. Insufficient permissions.")
	}
	if in.HourlyRate < 0 {
		return nil, apperr.Validation("hourly_rate must be 0 or greater")
	}
	u, err := s.users.GetInCompany(ctx, actor.CompanyID, in.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, apperr.NotFound(msgUserNotFound)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	r := &models.BillingRate{CompanyID: actor.CompanyID, UserID: u.ID, HourlyRate: in.HourlyRate}
	if err := s.entries.UpsertRate(ctx, r); err != nil {
		return nil, apperr.Internal(err)
	}
	s.log.WithFields(logrus.Fields{"user_id": u.ID, "hourly_rate": in.HourlyRate}).Info("billing rate set")
	return r, nil
}

func (s *Service) Rates(ctx context.Context, id *auth.Identity) ([]models.BillingRate, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	switch actor.RoleName() {
	case models.RoleAdmin, models.RoleProjectManager:
	default:
		return nil, apperr.Forbidden("Access denied. Insufficient permissions.")
	}
	out, err := s.entries.ListRates(ctx, actor.CompanyID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}
