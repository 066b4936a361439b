// Package testdb поднимает SQLite в памяти со схемой приложения и даёт фикстуры для тестов.
package testdb

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"plantobill/internal/db"
	"plantobill/internal/logs"
	"plantobill/internal/models"
)

// Password: пароль всех фикстурных пользователей.
const Password = "secret123"

var passwordHash = mustHash(Password)

func mustHash(pw string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}

// Open открывает отдельную БД на тест; одно соединение, иначе :memory: у каждого своя.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	logs.Logger.SetOutput(io.Discard)
	logs.Logger.SetLevel(logrus.PanicLevel)

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Discard,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return gdb
}

func Company(t *testing.T, gdb *gorm.DB, name string) *models.Company {
	t.Helper()
	c := &models.Company{Name: name}
	if err := gdb.Create(c).Error; err != nil {
		t.Fatalf("create company: %v", err)
	}
	return c
}

// User создаёт активного пользователя; role nil значит роль не назначена.
func User(t *testing.T, gdb *gorm.DB, companyID uint, email string, role *string) *models.User {
	t.Helper()
	now := time.Now()
	u := &models.User{
		CompanyID:       companyID,
		Email:           email,
		PasswordHash:    passwordHash,
		FirstName:       "Test",
		LastName:        email,
		Role:            role,
		IsVerified:      true,
		RoleApproved:    true,
		PendingApproval: false,
		ApprovedAt:      &now,
	}
	if err := gdb.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

// Project создаёт проект с owner-участником.
func Project(t *testing.T, gdb *gorm.DB, companyID, ownerID uint, name string) *models.Project {
	t.Helper()
	p := &models.Project{CompanyID: companyID, Name: name, Status: models.ProjectStatusActive, CreatedBy: ownerID}
	if err := gdb.Create(p).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}
	Member(t, gdb, p.ID, ownerID, models.MemberRoleOwner)
	return p
}

func Member(t *testing.T, gdb *gorm.DB, projectID, userID uint, role string) {
	t.Helper()
	m := &models.ProjectMember{ProjectID: projectID, UserID: userID, Role: role, JoinedAt: time.Now()}
	if err := gdb.Create(m).Error; err != nil {
		t.Fatalf("add member: %v", err)
	}
}

func Task(t *testing.T, gdb *gorm.DB, projectID, creatorID uint, title string) *models.Task {
	t.Helper()
	task := &models.Task{
		ProjectID: projectID,
		Title:     title,
		Status:    models.TaskStatusTodo,
		Priority:  models.PriorityMedium,
		CreatedBy: creatorID,
	}
	if err := gdb.Create(task).Error; err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}
