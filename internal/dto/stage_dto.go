package dto

import (
	"github.com/aarondl/null/v8"

	"github.com/geniusappsio/tramita/pkg/types"
)

type CreateStageDTO struct {
	ProcessTypeID uint64      `json:"processTypeId" validate:"required"`
	Name          string      `json:"name" validate:"required,max=255"`
	Description   null.String `json:"description"`
	Color         null.String `json:"color" validate:"omitempty,hexcolor"`
	IsInitial     bool        `json:"isInitial"`
	IsFinal       bool        `json:"isFinal"`
	AllowedNext   []uint64    `json:"allowedNext"`
	SLAHours      null.Int    `json:"slaHours" validate:"omitempty,min=1"`
}

type UpdateStageDTO struct {
	Name        types.Field[string]      `json:"name" validate:"omitempty,max=255"`
	Description types.Field[null.String] `json:"description"`
	Color       types.Field[null.String] `json:"color" validate:"omitempty,hexcolor"`
	IsInitial   types.Field[bool]        `json:"isInitial"`
	IsFinal     types.Field[bool]        `json:"isFinal"`
	AllowedNext types.Field[[]uint64]    `json:"allowedNext"`
	SLAHours    types.Field[null.Int]    `json:"slaHours" validate:"omitempty,min=1"`
	IsActive    types.Field[bool]        `json:"isActive"`
}

// ReorderDTO lists every member of a scope in its new order.
type ReorderDTO struct {
	IDs []uint64 `json:"ids" validate:"required"`
}
