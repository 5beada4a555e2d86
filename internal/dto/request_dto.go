package dto

import (
	"github.com/aarondl/null/v8"

	"github.com/geniusappsio/tramita/pkg/types"
)

type CreateRequestDTO struct {
	ProcessTypeID  uint64                 `json:"processTypeId" validate:"required"`
	Title          string                 `json:"title" validate:"required,max=500"`
	Description    null.String            `json:"description"`
	Priority       int                    `json:"priority" validate:"omitempty,min=1,max=3"`
	DueDate        null.Time              `json:"dueDate"`
	RequesterID    string                 `json:"requesterId" validate:"omitempty,max=64"`
	RequesterName  null.String            `json:"requesterName" validate:"omitempty,max=255"`
	GroupID        string                 `json:"groupId" validate:"required,max=64"`
	Metadata       map[string]interface{} `json:"metadata"`
	IsConfidential bool                   `json:"isConfidential"`
}

// UpdateRequestDTO patches editable fields. Stage, status and protocol change only through moves.
type UpdateRequestDTO struct {
	Title          types.Field[string]                 `json:"title" validate:"omitempty,max=500"`
	Description    types.Field[null.String]            `json:"description"`
	Priority       types.Field[int]                    `json:"priority" validate:"omitempty,min=1,max=3"`
	DueDate        types.Field[null.Time]              `json:"dueDate"`
	RequesterName  types.Field[null.String]            `json:"requesterName" validate:"omitempty,max=255"`
	Metadata       types.Field[map[string]interface{}] `json:"metadata"`
	IsConfidential types.Field[bool]                   `json:"isConfidential"`
}

type MoveRequestDTO struct {
	ToStageID uint64      `json:"toStageId" validate:"required"`
	Comment   null.String `json:"comment" validate:"omitempty,max=2000"`
}

type AllocateProtocolDTO struct {
	ProcessTypeID uint64 `json:"processTypeId" validate:"required"`
	Prefix        string `json:"prefix" validate:"required,protocol_prefix"`
	GroupID       string `json:"groupId" validate:"required,max=64"`
}
