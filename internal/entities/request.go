package entities

import (
	"github.com/aarondl/null/v8"

	"github.com/geniusappsio/tramita/pkg/types"
)

type RequestStatus string

const (
	StatusOpen       RequestStatus = "open"
	StatusInProgress RequestStatus = "in_progress"
	StatusCompleted  RequestStatus = "completed"
)

type Priority int

const (
	PriorityUrgent Priority = 1
	PriorityNormal Priority = 2
	PriorityLow    Priority = 3
)

func (p Priority) Valid() bool {
	return p >= PriorityUrgent && p <= PriorityLow
}

// Request is a card on the board. Status and CompletedAt are derived from the current stage.
type Request struct {
	ID             uint64                 `json:"id"`
	ProtocolID     null.Uint64            `json:"protocolId"`
	ProtocolNumber null.String            `json:"protocolNumber"`
	ProcessTypeID  uint64                 `json:"processTypeId"`
	CurrentStageID uint64                 `json:"currentStageId"`
	Title          string                 `json:"title"`
	Description    null.String            `json:"description"`
	Priority       Priority               `json:"priority"`
	Status         RequestStatus          `json:"status"`
	DueDate        null.Time              `json:"dueDate"`
	CompletedAt    null.Time              `json:"completedAt"`
	RequesterID    string                 `json:"requesterId"`
	RequesterName  null.String            `json:"requesterName"`
	GroupID        string                 `json:"groupId"`
	SortOrder      int                    `json:"sortOrder"`
	Metadata       map[string]interface{} `json:"metadata"`
	IsConfidential bool                   `json:"isConfidential"`

	types.BaseEntity
	Deletion types.Deletion `json:"deletedAt"`
}

// RequestFilter narrows search results. Zero values are ignored.
type RequestFilter struct {
	Query         string
	ProcessTypeID uint64
	StageID       uint64
	Status        RequestStatus
	Priority      Priority
	RequesterID   string
}
