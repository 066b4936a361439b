package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	// ErrStale: условное обновление не затронуло строк (состояние уже сменилось).
	ErrStale = errors.New("record state changed")
)

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

// Tx выполняет fn в транзакции: commit при nil, rollback при любой ошибке или панике.
// Внутри fn обращаться к БД только через tx.
func Tx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}

// companyProjects: подзапрос id проектов компании.
func companyProjects(db *gorm.DB, companyID uint) *gorm.DB {
	return db.Table("projects").Select("id").Where("company_id = ?", companyID)
}

// memberProjects: подзапрос id проектов, где пользователь участник с одной из ролей (пусто значит любая).
func memberProjects(db *gorm.DB, userID uint, roles ...string) *gorm.DB {
	q := db.Table("project_members").Select("project_id").Where("user_id = ?", userID)
	if len(roles) > 0 {
		q = q.Where("role IN ?", roles)
	}
	return q
}
