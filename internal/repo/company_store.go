package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"plantobill/internal/models"
)

type CompanyStore struct{ db *gorm.DB }

func NewCompanyStore(db *gorm.DB) *CompanyStore { return &CompanyStore{db: db} }

// FindOrCreate ищет компанию по имени, создаёт при отсутствии.
func (s *CompanyStore) FindOrCreate(ctx context.Context, name string) (*models.Company, error) {
	name = strings.TrimSpace(name)
	var c models.Company
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&c).Error
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	c = models.Company{Name: name}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		// параллельная регистрация успела создать ту же компанию
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.FindOrCreate(ctx, name)
		}
		return nil, err
	}
	return &c, nil
}

func (s *CompanyStore) Get(ctx context.Context, id uint) (*models.Company, error) {
	var c models.Company
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}
