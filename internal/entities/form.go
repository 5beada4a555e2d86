package entities

import (
	"github.com/aarondl/null/v8"

	"github.com/geniusappsio/tramita/pkg/types"
)

type FormTemplate struct {
	ID            uint64      `json:"id"`
	ProcessTypeID uint64      `json:"processTypeId"`
	StageID       null.Uint64 `json:"stageId"`
	Name          string      `json:"name"`
	Description   null.String `json:"description"`
	Version       int         `json:"version"`
	IsActive      bool        `json:"isActive"`
	IsRequired    bool        `json:"isRequired"`
	CreatedBy     string      `json:"createdBy"`

	types.BaseEntity
	Deletion types.Deletion `json:"deletedAt"`
}

// FieldTypes lists the accepted form field kinds.
var FieldTypes = []string{
	"text", "number", "date", "select", "textarea", "file", "checkbox",
	"radio", "email", "cpf", "cnpj", "phone", "currency", "user_select",
}

type FormField struct {
	ID           uint64                 `json:"id"`
	TemplateID   uint64                 `json:"templateId"`
	Name         string                 `json:"name"`
	Label        string                 `json:"label"`
	FieldType    string                 `json:"fieldType"`
	Placeholder  null.String            `json:"placeholder"`
	HelpText     null.String            `json:"helpText"`
	DefaultValue null.String            `json:"defaultValue"`
	IsRequired   bool                   `json:"isRequired"`
	IsReadonly   bool                   `json:"isReadonly"`
	IsHidden     bool                   `json:"isHidden"`
	Options      []interface{}          `json:"options"`
	Validation   map[string]interface{} `json:"validation"`
	SortOrder    int                    `json:"sortOrder"`
	Width        string                 `json:"width"`

	types.BaseEntity
	Deletion types.Deletion `json:"deletedAt"`
}
