package listeners

import (
	"context"
	"fmt"

	"github.com/aarondl/null/v8"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/internal/entities"
	"github.com/geniusappsio/tramita/internal/events"
	"github.com/geniusappsio/tramita/internal/services"
	"github.com/geniusappsio/tramita/pkg/eventbus"
)

const requestEntity = "request"

// ActivityLogListener turns committed request events into activity log rows.
type ActivityLogListener struct {
	activity services.ActivityLogServiceInterface
	logger   *zap.Logger
}

func NewActivityLogListener(activity services.ActivityLogServiceInterface, logger *zap.Logger) *ActivityLogListener {
	return &ActivityLogListener{activity: activity, logger: logger}
}

func (l *ActivityLogListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.RequestCreated, l.handle)
	bus.Subscribe(events.RequestMoved, l.handle)
	bus.Subscribe(events.RequestUpdated, l.handle)
	bus.Subscribe(events.RequestDeleted, l.handle)
	bus.Subscribe(events.RequestAssigned, l.handle)
	bus.Subscribe(events.RequestUnassigned, l.handle)
	l.logger.Info("activity log listener subscribed to request events")
}

func (l *ActivityLogListener) handle(ctx context.Context, event eventbus.Event) error {
	entry, err := entryFor(event)
	if err != nil {
		return err
	}
	return l.activity.Record(ctx, entry)
}

func newEntry(meta events.Meta, action string, req *entities.Request) *entities.ActivityLog {
	return &entities.ActivityLog{
		UserID:        meta.ActorID,
		Action:        action,
		EntityType:    requestEntity,
		EntityID:      req.ID,
		RequestID:     null.Uint64From(req.ID),
		CorrelationID: meta.EventID,
		CreatedAt:     meta.OccurredAt,
	}
}

func entryFor(event eventbus.Event) (*entities.ActivityLog, error) {
	switch e := event.(type) {
	case events.RequestCreatedEvent:
		entry := newEntry(e.Meta, e.Name(), &e.Request)
		entry.NewValue = map[string]interface{}{
			"protocolNumber": e.Request.ProtocolNumber.String,
			"stageId":        e.Request.CurrentStageID,
			"status":         e.Request.Status,
		}
		return entry, nil

	case events.RequestMovedEvent:
		entry := newEntry(e.Meta, e.Name(), &e.Request)
		entry.OldValue = map[string]interface{}{"stageId": e.Transition.FromStageID.Uint64, "status": e.FromStatus}
		entry.NewValue = map[string]interface{}{"stageId": e.Transition.ToStageID, "status": e.Request.Status}
		entry.Details = e.Transition.Comment
		return entry, nil

	case events.RequestUpdatedEvent:
		entry := newEntry(e.Meta, e.Name(), &e.After)
		entry.OldValue, entry.NewValue = changedFields(&e.Before, &e.After)
		return entry, nil

	case events.RequestDeletedEvent:
		entry := newEntry(e.Meta, e.Name(), &e.Request)
		entry.OldValue = map[string]interface{}{"protocolNumber": e.Request.ProtocolNumber.String, "title": e.Request.Title}
		return entry, nil

	case events.RequestAssignedEvent:
		entry := newEntry(e.Meta, e.Name(), &e.Request)
		entry.NewValue = map[string]interface{}{"userId": e.Assignment.UserID, "role": e.Assignment.Role}
		return entry, nil

	case events.RequestUnassignedEvent:
		entry := newEntry(e.Meta, e.Name(), &e.Request)
		entry.OldValue = map[string]interface{}{"userId": e.Assignment.UserID, "role": e.Assignment.Role}
		return entry, nil
	}
	return nil, fmt.Errorf("unexpected event %T", event)
}

// changedFields lists the editable fields whose value differs.
func changedFields(before, after *entities.Request) (map[string]interface{}, map[string]interface{}) {
	oldValue := map[string]interface{}{}
	newValue := map[string]interface{}{}

	record := func(name string, from, to interface{}, changed bool) {
		if changed {
			oldValue[name] = from
			newValue[name] = to
		}
	}
	record("title", before.Title, after.Title, before.Title != after.Title)
	record("description", before.Description, after.Description, before.Description != after.Description)
	record("priority", before.Priority, after.Priority, before.Priority != after.Priority)
	record("dueDate", before.DueDate, after.DueDate, !before.DueDate.Time.Equal(after.DueDate.Time) || before.DueDate.Valid != after.DueDate.Valid)
	record("requesterName", before.RequesterName, after.RequesterName, before.RequesterName != after.RequesterName)
	record("isConfidential", before.IsConfidential, after.IsConfidential, before.IsConfidential != after.IsConfidential)
	record("metadata", before.Metadata, after.Metadata, fmt.Sprint(before.Metadata) != fmt.Sprint(after.Metadata))

	return oldValue, newValue
}
