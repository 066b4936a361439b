package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"plantobill/internal/models"
)

type ExpenseStore struct{ db *gorm.DB }

func NewExpenseStore(db *gorm.DB) *ExpenseStore { return &ExpenseStore{db: db} }

// ExpenseFilter: CompanyID обязателен; SubmitterID/ManagerID сужают видимость
// (оба заданы: свои ИЛИ из управляемых проектов).
type ExpenseFilter struct {
	CompanyID   uint
	ProjectID   uint
	Status      string
	SubmitterID uint
	ManagerID   uint
}

func (s *ExpenseStore) Create(ctx context.Context, e *models.Expense) error {
	return translate(s.db.WithContext(ctx).Create(e).Error)
}

func (s *ExpenseStore) Get(ctx context.Context, id uint) (*models.Expense, error) {
	var e models.Expense
	if err := s.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (s *ExpenseStore) List(ctx context.Context, f ExpenseFilter) ([]models.Expense, error) {
	q := s.db.WithContext(ctx).Where("project_id IN (?)", companyProjects(s.db, f.CompanyID))
	if f.ProjectID != 0 {
		q = q.Where("project_id = ?", f.ProjectID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	switch {
	case f.SubmitterID != 0 && f.ManagerID != 0:
		q = q.Where("(submitted_by = ? OR project_id IN (?))", f.SubmitterID,
			memberProjects(s.db, f.ManagerID, models.MemberRoleOwner, models.MemberRoleManager))
	case f.SubmitterID != 0:
		q = q.Where("submitted_by = ?", f.SubmitterID)
	}
	var out []models.Expense
	err := q.Order("created_at desc, id desc").Find(&out).Error
	return out, err
}

// UpdatePending меняет поля только пока расход в статусе pending.
func (s *ExpenseStore) UpdatePending(ctx context.Context, id uint, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&models.Expense{}).
		Where("id = ? AND status = ?", id, models.ExpenseStatusPending).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

// Review: единственный выход из pending; повторный вызов вернёт ErrStale.
func (s *ExpenseStore) Review(ctx context.Context, id uint, status string, reviewer uint, notes *string, at time.Time) error {
	return s.UpdatePending(ctx, id, map[string]any{
		"status":       status,
		"reviewed_by":  reviewer,
		"reviewed_at":  at,
		"review_notes": notes,
	})
}

// Delete; onlyPending: удалять только в статусе pending.
func (s *ExpenseStore) Delete(ctx context.Context, id uint, onlyPending bool) error {
	q := s.db.WithContext(ctx).Where("id = ?", id)
	if onlyPending {
		q = q.Where("status = ?", models.ExpenseStatusPending)
	}
	res := q.Delete(&models.Expense{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

func (s *ExpenseStore) CountPending(ctx context.Context, projectIDs *gorm.DB) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Expense{}).
		Where("status = ? AND project_id IN (?)", models.ExpenseStatusPending, projectIDs).
		Count(&n).Error
	return n, err
}
