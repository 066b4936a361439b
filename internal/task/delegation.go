package task

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"plantobill/internal/apperr"
	"plantobill/internal/auth"
	"plantobill/internal/models"
	"plantobill/internal/repo"
)

const (
	MsgDelegateForbidden = "Only admins and project managers can delegate tasks"
	MsgAdminHierarchy    = "Admins can only delegate to project managers or team members"
	MsgPMHierarchy       = "Project managers can only delegate to team members (users with no role)"
	MsgTargetNotMember   = "User must be a member of the project"
)

// CheckHierarchy сравнивает роли буквально. nil значит роли нет, "" считается ролью.
//
//	admin           -> nil | project_manager
//	project_manager -> nil
func CheckHierarchy(actorRole string, target *string) error {
	switch actorRole {
	case models.RoleAdmin:
		if target == nil || *target == models.RoleProjectManager {
			return nil
		}
		return apperr.Validation(MsgAdminHierarchy)
	case models.RoleProjectManager:
		if target == nil {
			return nil
		}
		return apperr.Validation(MsgPMHierarchy)
	default:
		return apperr.Forbidden(MsgDelegateForbidden)
	}
}

// Delegate переназначает задачу и дописывает строку журнала одной транзакцией.
// Проверки идут строго по порядку: роль, задача, получатель, иерархия, членство.
func (s *Service) Delegate(ctx context.Context, id *auth.Identity, taskID uint, in DelegateRequest) (*models.Task, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.RoleName() != models.RoleAdmin && actor.RoleName() != models.RoleProjectManager {
		return nil, apperr.Forbidden(MsgDelegateForbidden)
	}
	t, err := s.findTask(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	target, err := s.users.GetInCompany(ctx, actor.CompanyID, in.DelegateToUserID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, apperr.NotFound(msgUserNotFound)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if err := CheckHierarchy(actor.RoleName(), target.Role); err != nil {
		return nil, err
	}
	m, err := s.guard.Membership(ctx, t.ProjectID, target.ID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperr.Validation(MsgTargetNotMember)
	}

	notes := trimNotes(in.Notes)
	now := s.Now().UTC()
	err = repo.Tx(ctx, s.db, func(tx *gorm.DB) error {
		if err := repo.NewTaskStore(tx).Update(ctx, t.ID, map[string]any{
			"assigned_to":      target.ID,
			"delegated_by":     actor.ID,
			"delegation_notes": notes,
			"is_delegated":     true,
			"delegation_date":  now,
		}); err != nil {
			return err
		}
		return repo.NewDelegationStore(tx).Append(ctx, &models.TaskDelegationHistory{
			TaskID:     t.ID,
			FromUserID: actor.ID,
			ToUserID:   target.ID,
			Notes:      notes,
			CreatedAt:  now,
		})
	})
	if err != nil {
		return nil, s.storeErr(err)
	}

	s.log.WithFields(logrus.Fields{"task_id": t.ID, "from": actor.ID, "to": target.ID}).Info("task delegated")
	return s.tasks.Get(ctx, t.ID)
}

// DelegatedToMe: назначенные вызывающему через делегирование.
func (s *Service) DelegatedToMe(ctx context.Context, id *auth.Identity) ([]models.Task, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := s.tasks.ListDelegatedTo(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

func (s *Service) DelegatedByMe(ctx context.Context, id *auth.Identity) ([]models.Task, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.RoleName() != models.RoleAdmin && actor.RoleName() != models.RoleProjectManager {
		return nil, apperr.Forbidden("Access denied. Insufficient permissions.")
	}
	out, err := s.tasks.ListDelegatedBy(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// History: журнал задачи от старых записей к новым.
func (s *Service) History(ctx context.Context, id *auth.Identity, taskID uint) ([]models.TaskDelegationHistory, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	t, _, err := s.visible(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	out, err := s.delegations.History(ctx, t.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

func trimNotes(n *string) *string {
	if n == nil {
		return nil
	}
	v := strings.TrimSpace(*n)
	if v == "" {
		return nil
	}
	return &v
}
