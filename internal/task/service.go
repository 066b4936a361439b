package task

import (
	"context"
	"errors"
	"strings"
	"time"

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
	msgTaskNotFound   = "Task not found"
	msgUserNotFound   = "User not found"
	msgAssigneeMember = "Assignee must be a member of the project"
	msgCannotDelete   = "Only the task creator, project managers or admins can delete this task"
)

type Service struct {
	db          *gorm.DB
	tasks       *repo.TaskStore
	users       *repo.UserStore
	delegations *repo.DelegationStore
	guard       *access.Guard
	log         *logrus.Entry

	Now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{
		db:          db,
		tasks:       repo.NewTaskStore(db),
		users:       repo.NewUserStore(db),
		delegations: repo.NewDelegationStore(db),
		guard:       access.NewGuard(db),
		log:         logs.Component("task"),
		Now:         time.Now,
	}
}

func (s *Service) Create(ctx context.Context, id *auth.Identity, projectID uint, in CreateTaskRequest) (*models.Task, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	p, _, err := s.guard.Member(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}
	due, err := models.ParseDate(in.DueDate)
	if err != nil {
		return nil, err
	}
	if in.AssignedTo != nil && *in.AssignedTo == 0 {
		in.AssignedTo = nil
	}
	if in.AssignedTo != nil {
		if err := s.requireMember(ctx, p.ID, *in.AssignedTo); err != nil {
			return nil, err
		}
	}

	t := &models.Task{
		ProjectID:      p.ID,
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		Status:         defaultStr(in.Status, models.TaskStatusTodo),
		Priority:       defaultStr(in.Priority, models.PriorityMedium),
		AssignedTo:     in.AssignedTo,
		CreatedBy:      actor.ID,
		DueDate:        due,
		EstimatedHours: in.EstimatedHours,
	}
	if err := s.tasks.Create(ctx, t); err != nil {
		return nil, apperr.Internal(err)
	}
	s.log.WithFields(logrus.Fields{"task_id": t.ID, "project_id": p.ID, "by": actor.ID}).Info("task created")
	return t, nil
}

func (s *Service) ListByProject(ctx context.Context, id *auth.Identity, projectID uint, status string) ([]models.Task, error) {
	if status != "" && !models.IsValidTaskStatus(status) {
		return nil, apperr.Validation("Invalid status. Must be one of: " + strings.Join(models.TaskStatuses, ", "))
	}
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.guard.Member(ctx, actor, projectID); err != nil {
		return nil, err
	}
	out, err := s.tasks.ListByProject(ctx, projectID, status)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id *auth.Identity, taskID uint) (*models.Task, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	t, _, err := s.visible(ctx, actor, taskID)
	return t, err
}

func (s *Service) Update(ctx context.Context, id *auth.Identity, taskID uint, in UpdateTaskRequest) (*models.Task, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	t, _, err := s.visible(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperr.Validation("title is required")
		}
		fields["title"] = title
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Status != nil {
		fields["status"] = *in.Status
	}
	if in.Priority != nil {
		fields["priority"] = *in.Priority
	}
	if in.AssignedTo != nil {
		if *in.AssignedTo == 0 {
			fields["assigned_to"] = nil
		} else {
			if err := s.requireMember(ctx, t.ProjectID, *in.AssignedTo); err != nil {
				return nil, err
			}
			fields["assigned_to"] = *in.AssignedTo
		}
	}
	if in.DueDate != nil {
		due, err := models.ParseDate(in.DueDate)
		if err != nil {
			return nil, err
		}
		if due == nil {
			fields["due_date"] = nil
		} else {
			fields["due_date"] = *due
		}
	}
	if in.EstimatedHours != nil {
		fields["estimated_hours"] = *in.EstimatedHours
	}
	if len(fields) == 0 {
		return t, nil
	}

	if err := s.tasks.Update(ctx, t.ID, fields); err != nil {
		return nil, s.storeErr(err)
	}
	return s.tasks.Get(ctx, t.ID)
}

// Delete: создатель задачи, owner/manager проекта или admin.
func (s *Service) Delete(ctx context.Context, id *auth.Identity, taskID uint) error {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return err
	}
	t, m, err := s.visible(ctx, actor, taskID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && t.CreatedBy != actor.ID && !m.CanManage() {
		return apperr.Forbidden(msgCannotDelete)
	}
	if err := s.tasks.Delete(ctx, t.ID); err != nil {
		return s.storeErr(err)
	}
	s.log.WithFields(logrus.Fields{"task_id": t.ID, "by": actor.ID}).Info("task deleted")
	return nil
}

// Mine: задачи, назначенные вызывающему.
func (s *Service) Mine(ctx context.Context, id *auth.Identity) ([]models.Task, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := s.tasks.ListAssigned(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

func (s *Service) AddComment(ctx context.Context, id *auth.Identity, taskID uint, in CommentRequest) (*models.TaskComment, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	t, _, err := s.visible(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, apperr.Validation("content is required")
	}
	c := &models.TaskComment{TaskID: t.ID, UserID: actor.ID, Content: content, CreatedAt: s.Now().UTC()}
	if err := s.tasks.AddComment(ctx, c); err != nil {
		return nil, apperr.Internal(err)
	}
	c.User = actor
	return c, nil
}

func (s *Service) Comments(ctx context.Context, id *auth.Identity, taskID uint) ([]models.TaskComment, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	t, _, err := s.visible(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	out, err := s.tasks.ListComments(ctx, t.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// visible: задача в проекте, к которому у актора есть доступ (участник или admin компании).
func (s *Service) visible(ctx context.Context, actor *models.User, taskID uint) (*models.Task, *models.ProjectMember, error) {
	t, err := s.findTask(ctx, actor, taskID)
	if err != nil {
		return nil, nil, err
	}
	_, m, err := s.guard.Member(ctx, actor, t.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return t, m, nil
}

// findTask: задача другой компании неотличима от отсутствующей.
func (s *Service) findTask(ctx context.Context, actor *models.User, taskID uint) (*models.Task, error) {
	t, err := s.tasks.Get(ctx, taskID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, apperr.NotFound(msgTaskNotFound)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if _, err := s.guard.Project(ctx, actor, t.ProjectID); err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.NotFound(msgTaskNotFound)
		}
		return nil, err
	}
	return t, nil
}

func (s *Service) requireMember(ctx context.Context, projectID, userID uint) error {
	m, err := s.guard.Membership(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if m == nil {
		return apperr.Validation(msgAssigneeMember)
	}
	return nil
}

func (s *Service) storeErr(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return apperr.NotFound(msgTaskNotFound)
	}
	return apperr.Internal(err)
}

func defaultStr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
