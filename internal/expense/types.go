package expense

type CreateExpenseRequest struct {
	ProjectID   uint    `json:"project_id" validate:"required"`
	Amount      float64 `json:"amount" validate:"gt=0"`
	Category    string  `json:"category" validate:"required,max=64"`
	Description string  `json:"description"`
	ExpenseDate *string `json:"expense_date" validate:"omitempty,datetime=2006-01-02"`
	ReceiptURL  *string `json:"receipt_url" validate:"omitempty,url,max=512"`
}

type UpdateExpenseRequest struct {
	Amount      *float64 `json:"amount" validate:"omitempty,gt=0"`
	Category    *string  `json:"category" validate:"omitempty,min=1,max=64"`
	Description *string  `json:"description"`
	ExpenseDate *string  `json:"expense_date" validate:"omitempty,datetime=2006-01-02"`
	ReceiptURL  *string  `json:"receipt_url" validate:"omitempty,url,max=512"`
}

type ReviewRequest struct {
	Status string  `json:"status" validate:"required,oneof=approved rejected"`
	Notes  *string `json:"notes" validate:"omitempty,max=2000"`
}
