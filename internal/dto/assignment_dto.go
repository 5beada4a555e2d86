package dto

type AssignDTO struct {
	UserID string `json:"userId" validate:"required,max=64"`
	Role   string `json:"role" validate:"omitempty,max=32"`
}
