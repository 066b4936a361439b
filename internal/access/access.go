// Package access содержит общие проверки арендатора и членства в проекте.
package access

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"plantobill/internal/apperr"
	"plantobill/internal/auth"
	"plantobill/internal/models"
	"plantobill/internal/repo"
)

const MsgNotMember = "You are not a member of this project"

type Guard struct {
	users    *repo.UserStore
	projects *repo.ProjectStore
}

func NewGuard(db *gorm.DB) *Guard {
	return &Guard{users: repo.NewUserStore(db), projects: repo.NewProjectStore(db)}
}

// Actor: свежая запись пользователя из токена; компания и роль берутся отсюда.
func (g *Guard) Actor(ctx context.Context, id *auth.Identity) (*models.User, error) {
	if id == nil {
		return nil, apperr.Authentication("Access denied. No token provided.")
	}
	u, err := g.users.Get(ctx, id.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, apperr.Authentication("User not found")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return u, nil
}

// Project: проект компании актора; чужой арендатор неотличим от отсутствующего.
func (g *Guard) Project(ctx context.Context, actor *models.User, projectID uint) (*models.Project, error) {
	p, err := g.projects.Get(ctx, projectID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && p.CompanyID != actor.CompanyID) {
		return nil, apperr.NotFound("Project not found")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return p, nil
}

// Membership: nil без ошибки, если пользователь не участник.
func (g *Guard) Membership(ctx context.Context, projectID, userID uint) (*models.ProjectMember, error) {
	m, err := g.projects.Membership(ctx, projectID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return m, nil
}

// Member: admin компании проходит без членства (m == nil), остальным нужно членство.
func (g *Guard) Member(ctx context.Context, actor *models.User, projectID uint) (*models.Project, *models.ProjectMember, error) {
	p, err := g.Project(ctx, actor, projectID)
	if err != nil {
		return nil, nil, err
	}
	m, err := g.Membership(ctx, projectID, actor.ID)
	if err != nil {
		return nil, nil, err
	}
	if m == nil && !actor.IsAdmin() {
		return nil, nil, apperr.Forbidden(MsgNotMember)
	}
	return p, m, nil
}

// Manager: admin, либо project_manager с ролью owner/manager в проекте.
func (g *Guard) Manager(ctx context.Context, actor *models.User, projectID uint, denied string) (*models.Project, error) {
	p, err := g.Project(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return p, nil
	}
	if actor.RoleName() != models.RoleProjectManager {
		return nil, apperr.Forbidden(denied)
	}
	m, err := g.Membership(ctx, projectID, actor.ID)
	if err != nil {
		return nil, err
	}
	if !m.CanManage() {
		return nil, apperr.Forbidden(denied)
	}
	return p, nil
}
