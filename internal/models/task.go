package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in-progress"
	TaskStatusReview     = "review"
	TaskStatusDone       = "done"
	TaskStatusBlocked    = "blocked"
)

var TaskStatuses = []string{TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusDone, TaskStatusBlocked}

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

type Task struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	ProjectID      uint            `gorm:"index;not null" json:"project_id"`
	Title          string          `gorm:"size:255;not null" json:"title"`
	Description    string          `gorm:"type:text" json:"description"`
	Status         string          `gorm:"size:32;not null;index" json:"status"`
	Priority       string          `gorm:"size:16;not null" json:"priority"`
	AssignedTo     *uint           `gorm:"index" json:"assigned_to"`
	CreatedBy      uint            `gorm:"not null" json:"created_by"`
	DueDate        *datatypes.Date `json:"due_date,omitempty"`
	EstimatedHours *float64        `gorm:"type:numeric(8,2)" json:"estimated_hours,omitempty"`

	// текущее состояние делегирования; полная история: в task_delegation_history
	DelegatedBy     *uint      `gorm:"index" json:"delegated_by"`
	DelegationNotes *string    `gorm:"type:text" json:"delegation_notes"`
	IsDelegated     bool       `gorm:"not null" json:"is_delegated"`
	DelegationDate  *time.Time `json:"delegation_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TaskComment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TaskID    uint      `gorm:"index;not null" json:"task_id"`
	UserID    uint      `gorm:"not null" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TaskDelegationHistory: append-only журнал, строки не меняются и не удаляются.
type TaskDelegationHistory struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TaskID     uint      `gorm:"index;not null" json:"task_id"`
	FromUserID uint      `gorm:"not null" json:"from_user_id"`
	ToUserID   uint      `gorm:"not null" json:"to_user_id"`
	Notes      *string   `gorm:"type:text" json:"notes"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	FromUser   *User     `gorm:"foreignKey:FromUserID" json:"from_user,omitempty"`
	ToUser     *User     `gorm:"foreignKey:ToUserID" json:"to_user,omitempty"`
}

func (TaskDelegationHistory) TableName() string { return "task_delegation_history" }

func IsValidTaskStatus(s string) bool {
	for _, v := range TaskStatuses {
		if v == s {
			return true
		}
	}
	return false
}
