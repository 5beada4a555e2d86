package entities

import (
	"slices"

	"github.com/aarondl/null/v8"

	"github.com/geniusappsio/tramita/pkg/types"
)

// Stage is one column of a process type's board.
type Stage struct {
	ID            uint64      `json:"id"`
	ProcessTypeID uint64      `json:"processTypeId"`
	Name          string      `json:"name"`
	Slug          string      `json:"slug"`
	Description   null.String `json:"description"`
	Color         null.String `json:"color"`
	SortOrder     int         `json:"sortOrder"`
	IsInitial     bool        `json:"isInitial"`
	IsFinal       bool        `json:"isFinal"`
	AllowedNext   []uint64    `json:"allowedNext"`
	SLAHours      null.Int    `json:"slaHours"`
	IsActive      bool        `json:"isActive"`

	types.BaseEntity
	Deletion types.Deletion `json:"deletedAt"`
}

// AllowsTransitionTo reports whether allowedNext permits a move to stageID.
// An empty list places no restriction.
func (s *Stage) AllowsTransitionTo(stageID uint64) bool {
	return len(s.AllowedNext) == 0 || slices.Contains(s.AllowedNext, stageID)
}
