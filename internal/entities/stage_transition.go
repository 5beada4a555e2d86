package entities

import (
	"time"

	"github.com/aarondl/null/v8"
)

// StageTransition is an append-only history row. FromStageID is null for the creation entry.
type StageTransition struct {
	ID           uint64      `json:"id"`
	RequestID    uint64      `json:"requestId"`
	FromStageID  null.Uint64 `json:"fromStageId"`
	ToStageID    uint64      `json:"toStageId"`
	UserID       string      `json:"userId"`
	Comment      null.String `json:"comment"`
	DurationSecs null.Int64  `json:"durationSecs"`
	CreatedAt    time.Time   `json:"createdAt"`
}
