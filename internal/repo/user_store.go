package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"plantobill/internal/models"
)

type UserStore struct{ db *gorm.DB }

func NewUserStore(db *gorm.DB) *UserStore { return &UserStore{db: db} }

func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	u.Email = NormalizeEmail(u.Email)
	return translate(s.db.WithContext(ctx).Create(u).Error)
}

func (s *UserStore) Get(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// GetInCompany: пользователь другой компании считается отсутствующим.
func (s *UserStore) GetInCompany(ctx context.Context, companyID, id uint) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("id = ? AND company_id = ?", id, companyID).First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// Update: частичное обновление; map, чтобы писались и нулевые значения.
func (s *UserStore) Update(ctx context.Context, id uint, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePending удаляет только аккаунт, ожидающий одобрения.
func (s *UserStore) DeletePending(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Where("id = ? AND pending_approval = ?", id, true).Delete(&models.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

// ListPending: подтвердившие почту и ждущие назначения роли.
func (s *UserStore) ListPending(ctx context.Context, companyID uint) ([]models.User, error) {
	var out []models.User
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND pending_approval = ? AND is_verified = ?", companyID, true, true).
		Order("created_at asc, id asc").
		Find(&out).Error
	return out, err
}

func (s *UserStore) ListActive(ctx context.Context, companyID uint) ([]models.User, error) {
	var out []models.User
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND role_approved = ? AND pending_approval = ?", companyID, true, false).
		Order("first_name asc, last_name asc, id asc").
		Find(&out).Error
	return out, err
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
