package domain

import (
	"time"

	"github.com/google/uuid"
)

// PrivatePropBookingID is the private-property key joining an external event
// back to the local booking it was created for.
const PrivatePropBookingID = "booking_id"

// Transparency is the "show as" flag of an external event.
type Transparency string

const (
	// TransparencyOpaque marks time as busy.
	TransparencyOpaque Transparency = "opaque"
	// TransparencyTransparent marks time as free; such events are candidates
	// for declared-free availability windows.
	TransparencyTransparent Transparency = "transparent"
)

// Event is the typed projection of an external calendar event. It is built by
// the provider infrastructure at the system boundary; the core never inspects
// raw provider payloads.
type Event struct {
	ID                string
	Summary           string
	Start             time.Time
	End               time.Time
	AllDay            bool
	Transparency      Transparency
	RecurrenceRule    string
	PrivateProperties map[string]string
}

// IsRecurringMaster reports whether the event defines a repeating series
// rather than being a concrete occurrence.
func (e Event) IsRecurringMaster() bool {
	return e.RecurrenceRule != ""
}

// IsFree reports whether the instructor marked this time as free.
func (e Event) IsFree() bool {
	return e.Transparency == TransparencyTransparent
}

// IsTimed reports whether the event has concrete start and end instants
// (not all-day, both timestamps parsed).
func (e Event) IsTimed() bool {
	return !e.AllDay && !e.Start.IsZero() && !e.End.IsZero()
}

// HasValidTiming reports whether the event carries usable timing. External
// data can be malformed; invalid timing must never corrupt local state.
func (e Event) HasValidTiming() bool {
	return e.IsTimed() && e.End.After(e.Start)
}

// BookingID extracts the local booking this event belongs to, if any.
func (e Event) BookingID() (uuid.UUID, bool) {
	raw, ok := e.PrivateProperties[PrivatePropBookingID]
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
