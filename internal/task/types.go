package task

type CreateTaskRequest struct {
	Title          string   `json:"title" validate:"required,max=255"`
	Description    string   `json:"description"`
	Status         string   `json:"status" validate:"omitempty,oneof=todo in-progress review done blocked"`
	Priority       string   `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	AssignedTo     *uint    `json:"assigned_to"`
	DueDate        *string  `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	EstimatedHours *float64 `json:"estimated_hours" validate:"omitempty,gte=0"`
}

// UpdateTaskRequest: nil поле не меняется; assigned_to = 0 снимает исполнителя.
type UpdateTaskRequest struct {
	Title          *string  `json:"title" validate:"omitempty,min=1,max=255"`
	Description    *string  `json:"description"`
	Status         *string  `json:"status" validate:"omitempty,oneof=todo in-progress review done blocked"`
	Priority       *string  `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	AssignedTo     *uint    `json:"assigned_to"`
	DueDate        *string  `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	EstimatedHours *float64 `json:"estimated_hours" validate:"omitempty,gte=0"`
}

type CommentRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

type DelegateRequest struct {
	DelegateToUserID uint    `json:"delegate_to_user_id" validate:"required"`
	Notes            *string `json:"notes" validate:"omitempty,max=2000"`
}
