package repo

import (
	"context"

	"gorm.io/gorm"

	"plantobill/internal/models"
)

type InvoiceStore struct{ db *gorm.DB }

func NewInvoiceStore(db *gorm.DB) *InvoiceStore { return &InvoiceStore{db: db} }

// InvoiceFilter: ManagerID != 0 оставляет только проекты, где пользователь owner/manager.
type InvoiceFilter struct {
	CompanyID uint
	ProjectID uint
	Status    string
	ManagerID uint
}

// Create сохраняет счёт вместе с позициями одной транзакцией.
func (s *InvoiceStore) Create(ctx context.Context, inv *models.Invoice) error {
	return Tx(ctx, s.db, func(tx *gorm.DB) error {
		return translate(tx.Create(inv).Error)
	})
}

func (s *InvoiceStore) Get(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		First(&inv, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &inv, nil
}

func (s *InvoiceStore) List(ctx context.Context, f InvoiceFilter) ([]models.Invoice, error) {
	q := s.db.WithContext(ctx).Where("project_id IN (?)", companyProjects(s.db, f.CompanyID))
	if f.ProjectID != 0 {
		q = q.Where("project_id = ?", f.ProjectID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ManagerID != 0 {
		q = q.Where("project_id IN (?)",
			memberProjects(s.db, f.ManagerID, models.MemberRoleOwner, models.MemberRoleManager))
	}
	var out []models.Invoice
	err := q.Order("created_at desc, id desc").Find(&out).Error
	return out, err
}

// UpdateWhere обновляет счёт, если его статус входит в from (пусто: любой).
func (s *InvoiceStore) UpdateWhere(ctx context.Context, id uint, from []string, fields map[string]any) error {
	q := s.db.WithContext(ctx).Model(&models.Invoice{}).Where("id = ?", id)
	if len(from) > 0 {
		q = q.Where("status IN ?", from)
	}
	res := q.Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

// AppendItem добавляет позицию; суммы пересчитывает вызывающий в той же транзакции.
func (s *InvoiceStore) AppendItem(ctx context.Context, item *models.InvoiceItem) error {
	return translate(s.db.WithContext(ctx).Create(item).Error)
}

// Delete удаляет неоплаченный счёт с позициями; оплаченный: ErrStale и откат.
func (s *InvoiceStore) Delete(ctx context.Context, id uint) error {
	return Tx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND status <> ?", id, models.InvoiceStatusPaid).Delete(&models.Invoice{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStale
		}
		return nil
	})
}

// UnpaidTotal: сумма и число draft+sent счетов среди видимых проектов.
func (s *InvoiceStore) UnpaidTotal(ctx context.Context, projectIDs *gorm.DB) (int64, float64, error) {
	var res struct {
		N     int64
		Total float64
	}
	err := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Select("COUNT(*) AS n, COALESCE(SUM(total), 0) AS total").
		Where("status IN ? AND project_id IN (?)",
			[]string{models.InvoiceStatusDraft, models.InvoiceStatusSent}, projectIDs).
		Scan(&res).Error
	return res.N, res.Total, err
}
