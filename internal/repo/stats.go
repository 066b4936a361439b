package repo

import (
	"context"

	"gorm.io/gorm"

	"plantobill/internal/models"
)

// VisibleProjects: подзапрос id видимых проектов (вся компания или только где пользователь участник).
func VisibleProjects(db *gorm.DB, companyID, userID uint, wholeCompany bool) *gorm.DB {
	if wholeCompany {
		return companyProjects(db, companyID)
	}
	return db.Table("projects").Select("id").
		Where("company_id = ? AND id IN (?)", companyID, memberProjects(db, userID))
}

// ManagedProjects: проекты компании, где пользователь owner или manager.
func ManagedProjects(db *gorm.DB, companyID, userID uint) *gorm.DB {
	return db.Table("projects").Select("id").
		Where("company_id = ? AND id IN (?)", companyID,
			memberProjects(db, userID, models.MemberRoleOwner, models.MemberRoleManager))
}

func (s *ProjectStore) CountByStatus(ctx context.Context, projectIDs *gorm.DB) (map[string]int64, error) {
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&models.Project{}).
		Select("status, COUNT(*) AS n").
		Where("id IN (?)", projectIDs).
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

// CountAssigned: открытые (не done) задачи пользователя в видимых проектах.
func (s *TaskStore) CountAssigned(ctx context.Context, userID uint, projectIDs *gorm.DB) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("assigned_to = ? AND status <> ? AND project_id IN (?)", userID, models.TaskStatusDone, projectIDs).
		Count(&n).Error
	return n, err
}
