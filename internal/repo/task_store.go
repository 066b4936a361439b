package repo

import (
	"context"

	"gorm.io/gorm"

	"plantobill/internal/models"
)

type TaskStore struct{ db *gorm.DB }

func NewTaskStore(db *gorm.DB) *TaskStore { return &TaskStore{db: db} }

func (s *TaskStore) Create(ctx context.Context, t *models.Task) error {
	return translate(s.db.WithContext(ctx).Create(t).Error)
}

func (s *TaskStore) Get(ctx context.Context, id uint) (*models.Task, error) {
	var t models.Task
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *TaskStore) ListByProject(ctx context.Context, projectID uint, status string) ([]models.Task, error) {
	q := s.db.WithContext(ctx).Where("project_id = ?", projectID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.Task
	err := q.Order("created_at desc, id desc").Find(&out).Error
	return out, err
}

func (s *TaskStore) ListAssigned(ctx context.Context, userID uint) ([]models.Task, error) {
	var out []models.Task
	err := s.db.WithContext(ctx).Where("assigned_to = ?", userID).
		Order("updated_at desc, id desc").Find(&out).Error
	return out, err
}

// ListDelegatedTo: назначенные пользователю через делегирование.
func (s *TaskStore) ListDelegatedTo(ctx context.Context, userID uint) ([]models.Task, error) {
	var out []models.Task
	err := s.db.WithContext(ctx).Where("assigned_to = ? AND is_delegated = ?", userID, true).
		Order("delegation_date desc, id desc").Find(&out).Error
	return out, err
}

func (s *TaskStore) ListDelegatedBy(ctx context.Context, userID uint) ([]models.Task, error) {
	var out []models.Task
	err := s.db.WithContext(ctx).Where("delegated_by = ?", userID).
		Order("delegation_date desc, id desc").Find(&out).Error
	return out, err
}

func (s *TaskStore) Update(ctx context.Context, id uint, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&models.Task{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет задачу с комментариями и учётом времени; история делегирования остаётся.
func (s *TaskStore) Delete(ctx context.Context, id uint) error {
	return Tx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskComment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.TimeLog{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Task{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *TaskStore) AddComment(ctx context.Context, c *models.TaskComment) error {
	return translate(s.db.WithContext(ctx).Create(c).Error)
}

func (s *TaskStore) ListComments(ctx context.Context, taskID uint) ([]models.TaskComment, error) {
	var out []models.TaskComment
	err := s.db.WithContext(ctx).Preload("User").Where("task_id = ?", taskID).
		Order("created_at asc, id asc").Find(&out).Error
	return out, err
}

// CountByStatus: число задач по статусам среди видимых проектов.
func (s *TaskStore) CountByStatus(ctx context.Context, projectIDs *gorm.DB) (map[string]int64, error) {
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&models.Task{}).
		Select("status, COUNT(*) AS n").
		Where("project_id IN (?)", projectIDs).
		Group("status").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}
