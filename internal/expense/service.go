package expense

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
	MsgAlreadyReviewed = "Expense has already been reviewed"
	msgNotFound        = "Expense not found"
	msgCannotReview    = "Only project managers of this project or admins can review expenses"
	msgOnlyPending     = "Only pending expenses can be modified"
	msgNotSubmitter    = "You can only modify your own expenses"
)

type Service struct {
	db       *gorm.DB
	expenses *repo.ExpenseStore
	guard    *access.Guard
	log      *logrus.Entry

	Now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{
		db:       db,
		expenses: repo.NewExpenseStore(db),
		guard:    access.NewGuard(db),
		log:      logs.Component("expense"),
		Now:      time.Now,
	}
}

// Create: расход по проекту, где актор участник (или admin компании).
func (s *Service) Create(ctx context.Context, id *auth.Identity, in CreateExpenseRequest) (*models.Expense, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	p, _, err := s.guard.Member(ctx, actor, in.ProjectID)
	if err != nil {
		return nil, err
	}
	date, err := models.ParseDate(in.ExpenseDate)
	if err != nil {
		return nil, err
	}
	e := &models.Expense{
		ProjectID:   p.ID,
		SubmittedBy: actor.ID,
		Amount:      in.Amount,
		Category:    strings.TrimSpace(in.Category),
		Description: in.Description,
		ExpenseDate: date,
		ReceiptURL:  in.ReceiptURL,
		Status:      models.ExpenseStatusPending,
	}
	if err := s.expenses.Create(ctx, e); err != nil {
		return nil, apperr.Internal(err)
	}
	s.log.WithFields(logrus.Fields{"expense_id": e.ID, "project_id": p.ID, "amount": e.Amount}).Info("expense submitted")
	return e, nil
}

// List: admin видит всю компанию, project_manager свои и из управляемых проектов, остальные только свои.
func (s *Service) List(ctx context.Context, id *auth.Identity, projectID uint, status string) ([]models.Expense, error) {
	if status != "" && status != models.ExpenseStatusPending &&
		status != models.ExpenseStatusApproved && status != models.ExpenseStatusRejected {
		return nil, apperr.Validation("Invalid status. Must be one of: pending, approved, rejected")
	}
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	f := repo.ExpenseFilter{CompanyID: actor.CompanyID, ProjectID: projectID, Status: status}
	switch actor.RoleName() {
	case models.RoleAdmin:
	case models.RoleProjectManager:
		f.SubmitterID, f.ManagerID = actor.ID, actor.ID
	default:
		f.SubmitterID = actor.ID
	}
	out, err := s.expenses.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id *auth.Identity, expenseID uint) (*models.Expense, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	e, err := s.load(ctx, actor, expenseID)
	if err != nil {
		return nil, err
	}
	if e.SubmittedBy == actor.ID {
		return e, nil
	}
	if _, err := s.guard.Manager(ctx, actor, e.ProjectID, "You do not have access to this expense"); err != nil {
		return nil, err
	}
	return e, nil
}

// Update: только автор и только пока pending.
func (s *Service) Update(ctx context.Context, id *auth.Identity, expenseID uint, in UpdateExpenseRequest) (*models.Expense, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	e, err := s.load(ctx, actor, expenseID)
	if err != nil {
		return nil, err
	}
	if e.SubmittedBy != actor.ID {
		return nil, apperr.Forbidden(msgNotSubmitter)
	}
	if e.Status != models.ExpenseStatusPending {
		return nil, apperr.Conflict(msgOnlyPending)
	}

	fields := map[string]any{}
	if in.Amount != nil {
		fields["amount"] = *in.Amount
	}
	if in.Category != nil {
		c := strings.TrimSpace(*in.Category)
		if c == "" {
			return nil, apperr.Validation("category is required")
		}
		fields["category"] = c
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.ExpenseDate != nil {
		d, err := models.ParseDate(in.ExpenseDate)
		if err != nil {
			return nil, err
		}
		if d == nil {
			fields["expense_date"] = nil
		} else {
			fields["expense_date"] = *d
		}
	}
	if in.ReceiptURL != nil {
		fields["receipt_url"] = *in.ReceiptURL
	}
	if len(fields) == 0 {
		return e, nil
	}
	if err := s.expenses.UpdatePending(ctx, e.ID, fields); err != nil {
		if errors.Is(err, repo.ErrStale) {
			return nil, apperr.Conflict(msgOnlyPending)
		}
		return nil, apperr.Internal(err)
	}
	return s.expenses.Get(ctx, e.ID)
}

// Delete: автор может удалить только pending, admin в любом статусе.
func (s *Service) Delete(ctx context.Context, id *auth.Identity, expenseID uint) error {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return err
	}
	e, err := s.load(ctx, actor, expenseID)
	if err != nil {
		return err
	}
	onlyPending := !actor.IsAdmin()
	if onlyPending {
		if e.SubmittedBy != actor.ID {
			return apperr.Forbidden(msgNotSubmitter)
		}
		if e.Status != models.ExpenseStatusPending {
			return apperr.Conflict(msgOnlyPending)
		}
	}
	if err := s.expenses.Delete(ctx, e.ID, onlyPending); err != nil {
		if errors.Is(err, repo.ErrStale) {
			return apperr.Conflict(msgOnlyPending)
		}
		return apperr.Internal(err)
	}
	return nil
}

// Review: единственный переход из pending. Одобрение увеличивает spent проекта в той же транзакции.
func (s *Service) Review(ctx context.Context, id *auth.Identity, expenseID uint, in ReviewRequest) (*models.Expense, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	e, err := s.load(ctx, actor, expenseID)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.Manager(ctx, actor, e.ProjectID, msgCannotReview); err != nil {
		return nil, err
	}
	if e.Status != models.ExpenseStatusPending {
		return nil, apperr.Conflict(MsgAlreadyReviewed)
	}

	notes := in.Notes
	if notes != nil && strings.TrimSpace(*notes) == "" {
		notes = nil
	}
	err = repo.Tx(ctx, s.db, func(tx *gorm.DB) error {
		if err := repo.NewExpenseStore(tx).Review(ctx, e.ID, in.Status, actor.ID, notes, s.Now().UTC()); err != nil {
			return err
		}
		if in.Status == models.ExpenseStatusApproved {
			return repo.NewProjectStore(tx).AddAmount(ctx, e.ProjectID, "spent", e.Amount)
		}
		return nil
	})
	if errors.Is(err, repo.ErrStale) {
		return nil, apperr.Conflict(MsgAlreadyReviewed)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	s.log.WithFields(logrus.Fields{"expense_id": e.ID, "status": in.Status, "by": actor.ID}).Info("expense reviewed")
	return s.expenses.Get(ctx, e.ID)
}

// load: расход компании актора; чужой неотличим от отсутствующего.
func (s *Service) load(ctx context.Context, actor *models.User, expenseID uint) (*models.Expense, error) {
	e, err := s.expenses.Get(ctx, expenseID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, apperr.NotFound(msgNotFound)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if _, err := s.guard.Project(ctx, actor, e.ProjectID); err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.NotFound(msgNotFound)
		}
		return nil, err
	}
	return e, nil
}
