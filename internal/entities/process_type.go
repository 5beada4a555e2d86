package entities

import (
	"github.com/aarondl/null/v8"

	"github.com/geniusappsio/tramita/pkg/types"
)

// ProcessType is a workflow template. It owns its stages and the protocol prefix.
type ProcessType struct {
	ID          uint64      `json:"id"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Prefix      string      `json:"prefix"`
	Description null.String `json:"description"`
	Color       null.String `json:"color"`
	Icon        null.String `json:"icon"`
	GroupID     string      `json:"groupId"`
	IsActive    bool        `json:"isActive"`
	IsExternal  bool        `json:"isExternal"`
	SortOrder   int         `json:"sortOrder"`
	CreatedBy   string      `json:"createdBy"`

	types.BaseEntity
	Deletion types.Deletion `json:"deletedAt"`
}
