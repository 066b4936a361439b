package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ProjectStatusPlanning  = "planning"
	ProjectStatusActive    = "active"
	ProjectStatusOnHold    = "on_hold"
	ProjectStatusCompleted = "completed"
	ProjectStatusCancelled = "cancelled"
)

// Роль внутри проекта; owner ровно один и не удаляется.
const (
	MemberRoleOwner   = "owner"
	MemberRoleManager = "manager"
	MemberRoleMember  = "member"
)

type Project struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CompanyID   uint            `gorm:"index;not null" json:"company_id"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Status      string          `gorm:"size:32;not null" json:"status"`
	Budget      float64         `gorm:"type:numeric(14,2);not null" json:"budget"`
	Spent       float64         `gorm:"type:numeric(14,2);not null" json:"spent"`
	Revenue     float64         `gorm:"type:numeric(14,2);not null" json:"revenue"`
	StartDate   *datatypes.Date `json:"start_date,omitempty"`
	EndDate     *datatypes.Date `json:"end_date,omitempty"`
	CreatedBy   uint            `gorm:"index;not null" json:"created_by"`
	Tags        []ProjectTag    `gorm:"foreignKey:ProjectID" json:"tags,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type ProjectTag struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	ProjectID uint   `gorm:"index;not null" json:"-"`
	Tag       string `gorm:"size:64;not null" json:"tag"`
}

type ProjectMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"not null;uniqueIndex:uniq_project_user,priority:1" json:"project_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:uniq_project_user,priority:2" json:"user_id"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// CanManage: owner и manager управляют проектом наравне.
func (m *ProjectMember) CanManage() bool {
	return m != nil && (m.Role == MemberRoleOwner || m.Role == MemberRoleManager)
}
