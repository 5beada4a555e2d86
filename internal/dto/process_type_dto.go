package dto

import (
	"github.com/aarondl/null/v8"

	"github.com/geniusappsio/tramita/pkg/types"
)

type CreateProcessTypeDTO struct {
	Name        string      `json:"name" validate:"required,max=255"`
	Prefix      string      `json:"prefix" validate:"required,protocol_prefix"`
	GroupID     string      `json:"groupId" validate:"required,max=64"`
	Description null.String `json:"description"`
	Color       null.String `json:"color" validate:"omitempty,hexcolor"`
	Icon        null.String `json:"icon" validate:"omitempty,max=64"`
	IsExternal  bool        `json:"isExternal"`
	CreatedBy   string      `json:"-"`
}

// UpdateProcessTypeDTO is a partial update: only keys present in the payload are applied.
type UpdateProcessTypeDTO struct {
	Name        types.Field[string]      `json:"name" validate:"omitempty,max=255"`
	Prefix      types.Field[string]      `json:"prefix" validate:"omitempty,protocol_prefix"`
	Description types.Field[null.String] `json:"description"`
	Color       types.Field[null.String] `json:"color" validate:"omitempty,hexcolor"`
	Icon        types.Field[null.String] `json:"icon" validate:"omitempty,max=64"`
	IsActive    types.Field[bool]        `json:"isActive"`
	IsExternal  types.Field[bool]        `json:"isExternal"`
	SortOrder   types.Field[int]         `json:"sortOrder" validate:"omitempty,min=0"`
}
