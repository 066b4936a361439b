package project

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"plantobill/internal/access"
	"plantobill/internal/apperr"
	"plantobill/internal/auth"
	"plantobill/internal/logs"
	"plantobill/internal/models"
	"plantobill/internal/repo"
)

const (
	msgCannotManage     = "Only project owners or managers can modify this project"
	msgOwnerOnly        = "Only the project owner can delete this project"
	msgAlreadyMember    = "User is already a member of this project"
	msgNotProjectMember = "User is not a member of this project"
	msgCannotRemove     = "Cannot remove project owner"
	msgHasPaidInvoices  = "Cannot delete a project with paid invoices"
)

type Service struct {
	projects *repo.ProjectStore
	users    *repo.UserStore
	guard    *access.Guard
	log      *logrus.Entry

	Now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{
		projects: repo.NewProjectStore(db),
		users:    repo.NewUserStore(db),
		guard:    access.NewGuard(db),
		log:      logs.Component("project"),
		Now:      time.Now,
	}
}

// Create: создатель становится единственным owner-участником.
func (s *Service) Create(ctx context.Context, id *auth.Identity, in CreateProjectRequest) (*models.Project, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.RoleName() != models.RoleAdmin && actor.RoleName() != models.RoleProjectManager {
		return nil, apperr.Forbidden("Access denied. Insufficient permissions.")
	}
	start, end, err := dateRange(in.StartDate, in.EndDate, nil, nil)
	if err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = models.ProjectStatusPlanning
	}
	p := &models.Project{
		CompanyID:   actor.CompanyID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Status:      status,
		Budget:      in.Budget,
		StartDate:   start,
		EndDate:     end,
		CreatedBy:   actor.ID,
	}
	for _, t := range normalizeTags(in.Tags) {
		p.Tags = append(p.Tags, models.ProjectTag{Tag: t})
	}
	if err := s.projects.Create(ctx, p, actor.ID); err != nil {
		return nil, apperr.Internal(err)
	}
	s.log.WithFields(logrus.Fields{"project_id": p.ID, "by": actor.ID}).Info("project created")
	return s.projects.Get(ctx, p.ID)
}

// List: admin видит все проекты компании, остальные только свои.
func (s *Service) List(ctx context.Context, id *auth.Identity) ([]models.Project, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	var out []models.Project
	if actor.IsAdmin() {
		out, err = s.projects.ListForCompany(ctx, actor.CompanyID)
	} else {
		out, err = s.projects.ListForMember(ctx, actor.CompanyID, actor.ID)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id *auth.Identity, projectID uint) (*models.Project, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	p, _, err := s.guard.Member(ctx, actor, projectID)
	return p, err
}

func (s *Service) Update(ctx context.Context, id *auth.Identity, projectID uint, in UpdateProjectRequest) (*models.Project, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.guard.Manager(ctx, actor, projectID, msgCannotManage)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("name is required")
		}
		fields["name"] = name
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Status != nil {
		fields["status"] = *in.Status
	}
	if in.Budget != nil {
		fields["budget"] = *in.Budget
	}
	if in.StartDate != nil || in.EndDate != nil {
		start, end, err := dateRange(in.StartDate, in.EndDate, p.StartDate, p.EndDate)
		if err != nil {
			return nil, err
		}
		if in.StartDate != nil {
			fields["start_date"] = dateValue(start)
		}
		if in.EndDate != nil {
			fields["end_date"] = dateValue(end)
		}
	}
	var tags []string
	if in.Tags != nil {
		tags = normalizeTags(*in.Tags)
	}

	if err := s.projects.Update(ctx, p.ID, fields, tags); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.NotFound("Project not found")
		}
		return nil, apperr.Internal(err)
	}
	return s.projects.Get(ctx, p.ID)
}

// Delete: только owner проекта или admin компании.
func (s *Service) Delete(ctx context.Context, id *auth.Identity, projectID uint) error {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return err
	}
	p, m, err := s.guard.Member(ctx, actor, projectID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindAuthorization {
			return apperr.Forbidden(msgOwnerOnly)
		}
		return err
	}
	if !actor.IsAdmin() && (m == nil || m.Role != models.MemberRoleOwner) {
		return apperr.Forbidden(msgOwnerOnly)
	}
	if err := s.projects.Delete(ctx, p.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.NotFound("Project not found")
		}
		if errors.Is(err, repo.ErrStale) {
			return apperr.Conflict(msgHasPaidInvoices)
		}
		return apperr.Internal(err)
	}
	s.log.WithFields(logrus.Fields{"project_id": p.ID, "by": actor.ID}).Info("project deleted")
	return nil
}

func (s *Service) Members(ctx context.Context, id *auth.Identity, projectID uint) ([]models.ProjectMember, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.guard.Member(ctx, actor, projectID); err != nil {
		return nil, err
	}
	out, err := s.projects.ListMembers(ctx, projectID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// AddMember: пользователь той же компании; повторное добавление упирается в uniq_project_user.
func (s *Service) AddMember(ctx context.Context, id *auth.Identity, projectID uint, in AddMemberRequest) (*models.ProjectMember, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.guard.Manager(ctx, actor, projectID, msgCannotManage)
	if err != nil {
		return nil, err
	}
	target, err := s.users.GetInCompany(ctx, actor.CompanyID, in.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if target.PendingApproval {
		return nil, apperr.Validation("User account is pending approval")
	}

	role := in.Role
	if role == "" {
		role = models.MemberRoleMember
	}
	m := &models.ProjectMember{ProjectID: p.ID, UserID: target.ID, Role: role, JoinedAt: s.Now().UTC()}
	if err := s.projects.AddMember(ctx, m); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, apperr.Validation(msgAlreadyMember)
		}
		return nil, apperr.Internal(err)
	}
	m.User = target
	s.log.WithFields(logrus.Fields{"project_id": p.ID, "user_id": target.ID, "role": role}).Info("member added")
	return m, nil
}

// RemoveMember никогда не удаляет owner.
func (s *Service) RemoveMember(ctx context.Context, id *auth.Identity, projectID, userID uint) error {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return err
	}
	p, err := s.guard.Manager(ctx, actor, projectID, msgCannotManage)
	if err != nil {
		return err
	}
	m, err := s.guard.Membership(ctx, p.ID, userID)
	if err != nil {
		return err
	}
	if m == nil {
		return apperr.NotFound(msgNotProjectMember)
	}
	if m.Role == models.MemberRoleOwner {
		return apperr.Validation(msgCannotRemove)
	}
	if err := s.projects.RemoveMember(ctx, p.ID, userID); err != nil {
		if errors.Is(err, repo.ErrStale) {
			return apperr.Validation(msgCannotRemove)
		}
		return apperr.Internal(err)
	}
	return nil
}

func normalizeTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// dateRange разбирает даты; отсутствующая сторона берётся из текущих значений.
func dateRange(start, end *string, curStart, curEnd *datatypes.Date) (*datatypes.Date, *datatypes.Date, error) {
	s, err := models.ParseDate(start)
	if err != nil {
		return nil, nil, err
	}
	e, err := models.ParseDate(end)
	if err != nil {
		return nil, nil, err
	}
	checkS, checkE := s, e
	if start == nil {
		checkS = curStart
	}
	if end == nil {
		checkE = curEnd
	}
	if checkS != nil && checkE != nil && time.Time(*checkE).Before(time.Time(*checkS)) {
		return nil, nil, apperr.Validation("end_date must not be before start_date")
	}
	return s, e, nil
}

// dateValue: nil для очистки колонки, иначе значение.
func dateValue(d *datatypes.Date) any {
	if d == nil {
		return nil
	}
	return *d
}
