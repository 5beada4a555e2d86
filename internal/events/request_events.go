package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/geniusappsio/tramita/internal/entities"
)

const (
	RequestCreated = "request.created"
	RequestMoved   = "request.moved"
	RequestUpdated = "request.updated"
	RequestDeleted = "request.deleted"

	RequestAssigned   = "request.assigned"
	RequestUnassigned = "request.unassigned"
)

// Meta is shared by every request event. EventID doubles as the activity log correlation id.
type Meta struct {
	EventID    uuid.UUID
	ActorID    string
	OccurredAt time.Time
}

func NewMeta(actorID string, at time.Time) Meta {
	return Meta{EventID: uuid.New(), ActorID: actorID, OccurredAt: at}
}

type RequestCreatedEvent struct {
	Meta
	Request entities.Request
}

func (e RequestCreatedEvent) Name() string { return RequestCreated }

type RequestMovedEvent struct {
	Meta
	Request    entities.Request
	Transition entities.StageTransition
	FromStatus entities.RequestStatus
}

func (e RequestMovedEvent) Name() string { return RequestMoved }

type RequestUpdatedEvent struct {
	Meta
	Before entities.Request
	After  entities.Request
}

func (e RequestUpdatedEvent) Name() string { return RequestUpdated }

type RequestDeletedEvent struct {
	Meta
	Request entities.Request
}

func (e RequestDeletedEvent) Name() string { return RequestDeleted }

type RequestAssignedEvent struct {
	Meta
	Request    entities.Request
	Assignment entities.Assignment
}

func (e RequestAssignedEvent) Name() string { return RequestAssigned }

type RequestUnassignedEvent struct {
	Meta
	Request    entities.Request
	Assignment entities.Assignment
}

func (e RequestUnassignedEvent) Name() string { return RequestUnassigned }
