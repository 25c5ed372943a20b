package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrEventNotFound is returned when the provider has no such event.
	ErrEventNotFound = errors.New("calendar event not found")
	// ErrUpstream wraps provider transport failures. Callers must propagate
	// it; treating it as "no busy time" would silently double-book.
	ErrUpstream = errors.New("calendar provider request failed")
)

// EventFields carries the writable fields for event insertion. Recurrence
// holds provider recurrence rules (RRULE lines); set it to create a
// recurring master instead of a single event.
type EventFields struct {
	Summary           string
	Description       string
	Start             time.Time
	End               time.Time
	Recurrence        []string
	PrivateProperties map[string]string
}

// Client is the boundary contract to the external calendar provider. One
// calendar belongs to one instructor; multi-tenant provider handling lives
// behind this interface, not in the core.
type Client interface {
	// GetEvent fetches a single event. Returns ErrEventNotFound when the
	// event does not exist or was deleted.
	GetEvent(ctx context.Context, calendarID, eventID string) (*Event, error)

	// ListEvents returns the concrete events in [timeMin, timeMax),
	// expanding recurring series into instances.
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error)

	// ListInstances returns the concrete occurrences of a recurring master
	// within [timeMin, timeMax).
	ListInstances(ctx context.Context, calendarID, masterEventID string, timeMin, timeMax time.Time) ([]Event, error)

	// InsertEvent writes a new event and returns it with its assigned ID.
	InsertEvent(ctx context.Context, calendarID string, fields EventFields) (*Event, error)

	// DeleteEvent removes an event. Deleting an already-deleted event is not
	// an error.
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}
