package services

import (
	"time"

	"github.com/aarondl/null/v8"

	"github.com/geniusappsio/tramita/internal/entities"
)

// ResolveStatus derives a request's status from the stage it occupies.
// A stage flagged both initial and final resolves as initial.
func ResolveStatus(stage *entities.Stage, now time.Time) (entities.RequestStatus, null.Time) {
	switch {
	case stage.IsInitial:
		return entities.StatusOpen, null.Time{}
	case stage.IsFinal:
		return entities.StatusCompleted, null.TimeFrom(now)
	default:
		return entities.StatusInProgress, null.Time{}
	}
}
