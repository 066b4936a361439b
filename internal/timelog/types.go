package timelog

import "plantobill/internal/models"

type LogRequest struct {
	Hours       float64 `json:"hours" validate:"gt=0,lte=24"`
	Description string  `json:"description" validate:"max=2000"`
	LogDate     *string `json:"log_date" validate:"omitempty,datetime=2006-01-02"`
}

type RateRequest struct {
	UserID     uint    `json:"user_id" validate:"required"`
	HourlyRate float64 `json:"hourly_rate" validate:"gte=0"`
}

// Entry: запись учёта с суммой к оплате по текущей ставке автора.
type Entry struct {
	models.TimeLog
	HourlyRate     float64 `json:"hourly_rate"`
	BillableAmount float64 `json:"billable_amount"`
}
