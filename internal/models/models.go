package models

// Глобальные роли аккаунта. NULL в users.role: роль ещё не назначена.
const (
	RoleAdmin          = "admin"
	RoleProjectManager = "project_manager"
	RoleTeamMember     = "team_member"
)

// Roles: замкнутый набор допустимых ролей.
var Roles = []string{RoleAdmin, RoleProjectManager, RoleTeamMember}

func IsValidRole(r string) bool {
	for _, v := range Roles {
		if v == r {
			return true
		}
	}
	return false
}

// All: все модели для AutoMigrate (порядок важен для внешних ключей).
func All() []any {
	return []any{
		&Company{},
		&User{},
		&Project{},
		&ProjectTag{},
		&ProjectMember{},
		&Task{},
		&TaskComment{},
		&TaskDelegationHistory{},
		&Expense{},
		&Invoice{},
		&InvoiceItem{},
		&TimeLog{},
		&BillingRate{},
	}
}

// StrPtr: хелпер для nullable-колонок.
func StrPtr(s string) *string { return &s }
