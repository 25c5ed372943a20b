package domain

import (
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/lektora/lektora/internal/shared/domain"
)

// Event routing keys for the scheduling context.
const (
	RoutingKeyBookingScheduled       = "scheduling.booking.scheduled"
	RoutingKeyBookingTimingCorrected = "scheduling.booking.timing_corrected"
	RoutingKeyBookingCancelled       = "scheduling.booking.cancelled"
)

// BookingScheduled is emitted when a booking is created.
type BookingScheduled struct {
	sharedDomain.BaseEvent
	InstructorID uuid.UUID
	Start        time.Time
	End          time.Time
	Online       bool
}

// NewBookingScheduled creates a BookingScheduled event.
func NewBookingScheduled(b *Booking) BookingScheduled {
	return BookingScheduled{
		BaseEvent:    sharedDomain.NewBaseEvent(b.ID(), "Booking", RoutingKeyBookingScheduled),
		InstructorID: b.InstructorID(),
		Start:        b.Start(),
		End:          b.End(),
		Online:       b.IsOnline(),
	}
}

// BookingTimingCorrected is emitted when reconciliation pulls new timing from
// the external calendar into the local record.
type BookingTimingCorrected struct {
	sharedDomain.BaseEvent
	InstructorID    uuid.UUID
	Start           time.Time
	End             time.Time
	ExternalEventID string
}

// NewBookingTimingCorrected creates a BookingTimingCorrected event.
func NewBookingTimingCorrected(b *Booking) BookingTimingCorrected {
	return BookingTimingCorrected{
		BaseEvent:       sharedDomain.NewBaseEvent(b.ID(), "Booking", RoutingKeyBookingTimingCorrected),
		InstructorID:    b.InstructorID(),
		Start:           b.Start(),
		End:             b.End(),
		ExternalEventID: b.ExternalEventID(),
	}
}

// BookingCancelled is emitted when a booking reaches its terminal state.
type BookingCancelled struct {
	sharedDomain.BaseEvent
	InstructorID uuid.UUID
}

// NewBookingCancelled creates a BookingCancelled event.
func NewBookingCancelled(b *Booking) BookingCancelled {
	return BookingCancelled{
		BaseEvent:    sharedDomain.NewBaseEvent(b.ID(), "Booking", RoutingKeyBookingCancelled),
		InstructorID: b.InstructorID(),
	}
}
