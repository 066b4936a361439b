package repo

import (
	"context"

	"gorm.io/gorm"

	"plantobill/internal/models"
)

// DelegationStore умеет только Append и чтение, журнал неизменяем.
type DelegationStore struct{ db *gorm.DB }

func NewDelegationStore(db *gorm.DB) *DelegationStore { return &DelegationStore{db: db} }

func (s *DelegationStore) Append(ctx context.Context, h *models.TaskDelegationHistory) error {
	return translate(s.db.WithContext(ctx).Create(h).Error)
}

// History: от старых к новым.
func (s *DelegationStore) History(ctx context.Context, taskID uint) ([]models.TaskDelegationHistory, error) {
	var out []models.TaskDelegationHistory
	err := s.db.WithContext(ctx).
		Preload("FromUser").Preload("ToUser").
		Where("task_id = ?", taskID).
		Order("created_at asc, id asc").
		Find(&out).Error
	return out, err
}

func (s *DelegationStore) Count(ctx context.Context, taskID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.TaskDelegationHistory{}).Where("task_id = ?", taskID).Count(&n).Error
	return n, err
}
