package project

type CreateProjectRequest struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Description string   `json:"description"`
	Status      string   `json:"status" validate:"omitempty,oneof=planning active on_hold completed cancelled"`
	Budget      float64  `json:"budget" validate:"gte=0"`
	StartDate   *string  `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate     *string  `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Tags        []string `json:"tags" validate:"max=20,dive,max=64"`
}

// UpdateProjectRequest: nil поле не меняется; tags null не трогает теги, [] очищает.
type UpdateProjectRequest struct {
	Name        *string   `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string   `json:"description"`
	Status      *string   `json:"status" validate:"omitempty,oneof=planning active on_hold completed cancelled"`
	Budget      *float64  `json:"budget" validate:"omitempty,gte=0"`
	StartDate   *string   `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate     *string   `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Tags        *[]string `json:"tags" validate:"omitempty,max=20,dive,max=64"`
}

type AddMemberRequest struct {
	UserID uint   `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"omitempty,oneof=manager member"`
}
