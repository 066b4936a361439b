package models

import (
	"strings"
	"time"
)

type Company struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	CompanyID    uint   `gorm:"index;not null" json:"company_id"`
	Email        string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	FirstName    string `gorm:"size:100" json:"first_name"`
	LastName     string `gorm:"size:100" json:"last_name"`

	// nil и "": разные значения, см. правило делегирования
	Role            *string    `gorm:"size:32" json:"role"`
	IsVerified      bool       `gorm:"not null" json:"is_verified"`
	RoleApproved    bool       `gorm:"not null" json:"role_approved"`
	PendingApproval bool       `gorm:"not null;index" json:"pending_approval"`
	ApprovedBy      *uint      `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`

	OTP                     *string    `gorm:"column:otp;size:6" json:"-"`
	OTPExpires              *time.Time `gorm:"column:otp_expires" json:"-"`
	ResetPasswordOTP        *string    `gorm:"column:reset_password_otp;size:6" json:"-"`
	ResetPasswordOTPExpires *time.Time `gorm:"column:reset_password_otp_expires" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanLogin: все четыре условия допуска проверяются при каждом входе.
func (u *User) CanLogin() bool {
	return u.IsVerified && u.RoleApproved && !u.PendingApproval && u.Role != nil
}

// RoleName: роль или "" если не назначена.
func (u *User) RoleName() string {
	if u.Role == nil {
		return ""
	}
	return *u.Role
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) IsAdmin() bool { return u.RoleName() == RoleAdmin }
