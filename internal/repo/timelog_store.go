package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"plantobill/internal/models"
)

type TimeLogStore struct{ db *gorm.DB }

func NewTimeLogStore(db *gorm.DB) *TimeLogStore { return &TimeLogStore{db: db} }

func (s *TimeLogStore) Create(ctx context.Context, l *models.TimeLog) error {
	return translate(s.db.WithContext(ctx).Create(l).Error)
}

func (s *TimeLogStore) Get(ctx context.Context, id uint) (*models.TimeLog, error) {
	var l models.TimeLog
	if err := s.db.WithContext(ctx).First(&l, id).Error; err != nil {
		return nil, translate(err)
	}
	return &l, nil
}

func (s *TimeLogStore) ListByTask(ctx context.Context, taskID uint) ([]models.TimeLog, error) {
	var out []models.TimeLog
	err := s.db.WithContext(ctx).Where("task_id = ?", taskID).
		Order("created_at asc, id asc").Find(&out).Error
	return out, err
}

func (s *TimeLogStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.TimeLog{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertRate: одна ставка на пользователя.
func (s *TimeLogStore) UpsertRate(ctx context.Context, r *models.BillingRate) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"hourly_rate", "company_id", "updated_at"}),
	}).Create(r).Error
}

func (s *TimeLogStore) ListRates(ctx context.Context, companyID uint) ([]models.BillingRate, error) {
	var out []models.BillingRate
	err := s.db.WithContext(ctx).Where("company_id = ?", companyID).Order("user_id asc").Find(&out).Error
	return out, err
}

// Rates: ставки по user_id; отсутствующая ставка не ошибка.
func (s *TimeLogStore) Rates(ctx context.Context, userIDs []uint) (map[uint]float64, error) {
	out := make(map[uint]float64, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []models.BillingRate
	err := s.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&rows).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	for _, r := range rows {
		out[r.UserID] = r.HourlyRate
	}
	return out, nil
}
