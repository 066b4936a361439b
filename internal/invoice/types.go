package invoice

type ItemRequest struct {
	Description string  `json:"description" validate:"required,max=512"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
}

type CreateInvoiceRequest struct {
	ProjectID   uint          `json:"project_id" validate:"required"`
	ClientName  string        `json:"client_name" validate:"required,max=255"`
	ClientEmail string        `json:"client_email" validate:"omitempty,email,max=255"`
	IssueDate   *string       `json:"issue_date" validate:"omitempty,datetime=2006-01-02"`
	DueDate     *string       `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	TaxRate     float64       `json:"tax_rate" validate:"gte=0,lte=100"`
	Notes       string        `json:"notes"`
	Items       []ItemRequest `json:"items" validate:"max=200,dive"`
}

type UpdateInvoiceRequest struct {
	ClientName  *string  `json:"client_name" validate:"omitempty,min=1,max=255"`
	ClientEmail *string  `json:"client_email" validate:"omitempty,email,max=255"`
	IssueDate   *string  `json:"issue_date" validate:"omitempty,datetime=2006-01-02"`
	DueDate     *string  `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	TaxRate     *float64 `json:"tax_rate" validate:"omitempty,gte=0,lte=100"`
	Notes       *string  `json:"notes"`
}
