package dto

import (
	"github.com/aarondl/null/v8"

	"github.com/geniusappsio/tramita/pkg/types"
)

type CreateFormTemplateDTO struct {
	ProcessTypeID uint64      `json:"processTypeId" validate:"required"`
	StageID       null.Uint64 `json:"stageId"`
	Name          string      `json:"name" validate:"required,max=255"`
	Description   null.String `json:"description"`
	IsRequired    bool        `json:"isRequired"`
	CreatedBy     string      `json:"-"`
}

// UpdateFormTemplateDTO is a partial update. Sending "stageId": null detaches the template from its stage.
type UpdateFormTemplateDTO struct {
	Name        types.Field[string]      `json:"name" validate:"omitempty,max=255"`
	Description types.Field[null.String] `json:"description"`
	StageID     types.Field[null.Uint64] `json:"stageId"`
	IsActive    types.Field[bool]        `json:"isActive"`
	IsRequired  types.Field[bool]        `json:"isRequired"`
}

type CreateFormFieldDTO struct {
	Name         string                 `json:"name" validate:"required,max=100"`
	Label        string                 `json:"label" validate:"required,max=255"`
	FieldType    string                 `json:"fieldType" validate:"required,field_type"`
	Placeholder  null.String            `json:"placeholder" validate:"omitempty,max=255"`
	HelpText     null.String            `json:"helpText"`
	DefaultValue null.String            `json:"defaultValue"`
	IsRequired   bool                   `json:"isRequired"`
	IsReadonly   bool                   `json:"isReadonly"`
	IsHidden     bool                   `json:"isHidden"`
	Options      []interface{}          `json:"options"`
	Validation   map[string]interface{} `json:"validation"`
	Width        string                 `json:"width" validate:"omitempty,oneof=full half third"`
}

type UpdateFormFieldDTO struct {
	Label        types.Field[string]                 `json:"label" validate:"omitempty,max=255"`
	FieldType    types.Field[string]                 `json:"fieldType" validate:"omitempty,field_type"`
	Placeholder  types.Field[null.String]            `json:"placeholder" validate:"omitempty,max=255"`
	HelpText     types.Field[null.String]            `json:"helpText"`
	DefaultValue types.Field[null.String]            `json:"defaultValue"`
	IsRequired   types.Field[bool]                   `json:"isRequired"`
	IsReadonly   types.Field[bool]                   `json:"isReadonly"`
	IsHidden     types.Field[bool]                   `json:"isHidden"`
	Options      types.Field[[]interface{}]          `json:"options"`
	Validation   types.Field[map[string]interface{}] `json:"validation"`
	Width        types.Field[string]                 `json:"width" validate:"omitempty,oneof=full half third"`
}
