package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"plantobill/internal/models"
)

type ProjectStore struct{ db *gorm.DB }

func NewProjectStore(db *gorm.DB) *ProjectStore { return &ProjectStore{db: db} }

// Create сохраняет проект с тегами и единственным owner-участником.
func (s *ProjectStore) Create(ctx context.Context, p *models.Project, ownerID uint) error {
	return Tx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return translate(err)
		}
		owner := models.ProjectMember{
			ProjectID: p.ID,
			UserID:    ownerID,
			Role:      models.MemberRoleOwner,
			JoinedAt:  time.Now().UTC(),
		}
		return translate(tx.Create(&owner).Error)
	})
}

func (s *ProjectStore) Get(ctx context.Context, id uint) (*models.Project, error) {
	var p models.Project
	if err := s.db.WithContext(ctx).Preload("Tags").First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *ProjectStore) ListForCompany(ctx context.Context, companyID uint) ([]models.Project, error) {
	var out []models.Project
	err := s.db.WithContext(ctx).Preload("Tags").
		Where("company_id = ?", companyID).
		Order("created_at desc, id desc").
		Find(&out).Error
	return out, err
}

// ListForMember: проекты компании, где пользователь состоит участником.
func (s *ProjectStore) ListForMember(ctx context.Context, companyID, userID uint) ([]models.Project, error) {
	var out []models.Project
	err := s.db.WithContext(ctx).Preload("Tags").
		Where("company_id = ? AND id IN (?)", companyID, memberProjects(s.db, userID)).
		Order("created_at desc, id desc").
		Find(&out).Error
	return out, err
}

// Update меняет поля и, если tags != nil, полностью заменяет набор тегов.
func (s *ProjectStore) Update(ctx context.Context, id uint, fields map[string]any, tags []string) error {
	return Tx(ctx, s.db, func(tx *gorm.DB) error {
		if len(fields) > 0 {
			res := tx.Model(&models.Project{}).Where("id = ?", id).Updates(fields)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrNotFound
			}
		}
		if tags == nil {
			return nil
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.ProjectTag{}).Error; err != nil {
			return err
		}
		for _, t := range tags {
			if err := tx.Create(&models.ProjectTag{ProjectID: id, Tag: t}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete удаляет проект вместе с зависимыми строками. Журнал делегирования не трогаем.
// Проект с оплаченными счетами не удаляется: ErrStale.
func (s *ProjectStore) Delete(ctx context.Context, id uint) error {
	return Tx(ctx, s.db, func(tx *gorm.DB) error {
		var paid int64
		if err := tx.Model(&models.Invoice{}).
			Where("project_id = ? AND status = ?", id, models.InvoiceStatusPaid).
			Count(&paid).Error; err != nil {
			return err
		}
		if paid > 0 {
			return ErrStale
		}
		tasks := tx.Table("tasks").Select("id").Where("project_id = ?", id)
		invoices := tx.Table("invoices").Select("id").Where("project_id = ?", id)
		steps := []func() error{
			func() error { return tx.Where("task_id IN (?)", tasks).Delete(&models.TaskComment{}).Error },
			func() error { return tx.Where("task_id IN (?)", tasks).Delete(&models.TimeLog{}).Error },
			func() error { return tx.Where("project_id = ?", id).Delete(&models.Task{}).Error },
			func() error { return tx.Where("invoice_id IN (?)", invoices).Delete(&models.InvoiceItem{}).Error },
			func() error { return tx.Where("project_id = ?", id).Delete(&models.Invoice{}).Error },
			func() error { return tx.Where("project_id = ?", id).Delete(&models.Expense{}).Error },
			func() error { return tx.Where("project_id = ?", id).Delete(&models.ProjectTag{}).Error },
			func() error { return tx.Where("project_id = ?", id).Delete(&models.ProjectMember{}).Error },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
		res := tx.Delete(&models.Project{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// AddAmount атомарно увеличивает spent или revenue.
func (s *ProjectStore) AddAmount(ctx context.Context, id uint, column string, amount float64) error {
	if column != "spent" && column != "revenue" {
		panic("repo: AddAmount on unsupported column " + column)
	}
	return s.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", amount)).Error
}

// Membership: членство пользователя в проекте или ErrNotFound.
func (s *ProjectStore) Membership(ctx context.Context, projectID, userID uint) (*models.ProjectMember, error) {
	var m models.ProjectMember
	err := s.db.WithContext(ctx).Where("project_id = ? AND user_id = ?", projectID, userID).First(&m).Error
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *ProjectStore) ListMembers(ctx context.Context, projectID uint) ([]models.ProjectMember, error) {
	var out []models.ProjectMember
	err := s.db.WithContext(ctx).Preload("User").
		Where("project_id = ?", projectID).
		Order("joined_at asc, id asc").
		Find(&out).Error
	return out, err
}

func (s *ProjectStore) AddMember(ctx context.Context, m *models.ProjectMember) error {
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
	return translate(s.db.WithContext(ctx).Create(m).Error)
}

// RemoveMember никогда не удаляет owner: условие стоит прямо в DELETE.
func (s *ProjectStore) RemoveMember(ctx context.Context, projectID, userID uint) error {
	res := s.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ? AND role <> ?", projectID, userID, models.MemberRoleOwner).
		Delete(&models.ProjectMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}
