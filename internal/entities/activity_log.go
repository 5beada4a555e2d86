package entities

import (
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
)

type ActivityLog struct {
	ID            uint64      `json:"id"`
	UserID        string      `json:"userId"`
	Action        string      `json:"action"`
	EntityType    string      `json:"entityType"`
	EntityID      uint64      `json:"entityId"`
	RequestID     null.Uint64 `json:"requestId"`
	OldValue      interface{} `json:"oldValue"`
	NewValue      interface{} `json:"newValue"`
	Details       null.String `json:"details"`
	CorrelationID uuid.UUID   `json:"correlationId"`
	CreatedAt     time.Time   `json:"createdAt"`
}
