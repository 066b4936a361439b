package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ExpenseStatusPending  = "pending"
	ExpenseStatusApproved = "approved"
	ExpenseStatusRejected = "rejected"
)

const (
	InvoiceStatusDraft = "draft"
	InvoiceStatusSent  = "sent"
	InvoiceStatusPaid  = "paid"
)

type Expense struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	ProjectID   uint            `gorm:"index;not null" json:"project_id"`
	SubmittedBy uint            `gorm:"index;not null" json:"submitted_by"`
	Amount      float64         `gorm:"type:numeric(12,2);not null" json:"amount"`
	Category    string          `gorm:"size:64;not null" json:"category"`
	Description string          `gorm:"type:text" json:"description"`
	ExpenseDate *datatypes.Date `json:"expense_date,omitempty"`
	ReceiptURL  *string         `gorm:"size:512" json:"receipt_url,omitempty"`
	Status      string          `gorm:"size:16;not null;index" json:"status"`
	ReviewedBy  *uint           `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time      `json:"reviewed_at,omitempty"`
	ReviewNotes *string         `gorm:"type:text" json:"review_notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type Invoice struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	InvoiceNumber string          `gorm:"size:32;uniqueIndex;not null" json:"invoice_number"`
	ProjectID     uint            `gorm:"index;not null" json:"project_id"`
	ClientName    string          `gorm:"size:255;not null" json:"client_name"`
	ClientEmail   string          `gorm:"size:255" json:"client_email"`
	IssueDate     *datatypes.Date `json:"issue_date,omitempty"`
	DueDate       *datatypes.Date `json:"due_date,omitempty"`
	Amount        float64         `gorm:"type:numeric(14,2);not null" json:"amount"`
	TaxRate       float64         `gorm:"type:numeric(5,2);not null" json:"tax_rate"`
	TaxAmount     float64         `gorm:"type:numeric(14,2);not null" json:"tax_amount"`
	Total         float64         `gorm:"type:numeric(14,2);not null" json:"total"`
	Notes         string          `gorm:"type:text" json:"notes"`
	Status        string          `gorm:"size:16;not null;index" json:"status"`
	SentAt        *time.Time      `json:"sent_at,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedBy     uint            `gorm:"not null" json:"created_by"`
	Items         []InvoiceItem   `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// InvoiceItem: позиции только добавляются.
type InvoiceItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	InvoiceID   uint      `gorm:"index;not null" json:"invoice_id"`
	Description string    `gorm:"size:512;not null" json:"description"`
	Quantity    float64   `gorm:"type:numeric(10,2);not null" json:"quantity"`
	UnitPrice   float64   `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Amount      float64   `gorm:"type:numeric(14,2);not null" json:"amount"`
	CreatedAt   time.Time `json:"created_at"`
}

type TimeLog struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	TaskID      uint            `gorm:"index;not null" json:"task_id"`
	UserID      uint            `gorm:"index;not null" json:"user_id"`
	Hours       float64         `gorm:"type:numeric(6,2);not null" json:"hours"`
	Description string          `gorm:"type:text" json:"description"`
	LogDate     *datatypes.Date `json:"log_date,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type BillingRate struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CompanyID  uint      `gorm:"index;not null" json:"company_id"`
	UserID     uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	HourlyRate float64   `gorm:"type:numeric(10,2);not null" json:"hourly_rate"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
