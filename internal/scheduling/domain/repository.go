package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BookingRepository persists bookings.
type BookingRepository interface {
	Save(ctx context.Context, booking *Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	// FindScheduledInRange returns scheduled (not cancelled) bookings for an
	// instructor whose span overlaps [from, to).
	FindScheduledInRange(ctx context.Context, instructorID uuid.UUID, from, to time.Time) ([]*Booking, error)
}

// InstructorRepository persists instructors.
type InstructorRepository interface {
	Save(ctx context.Context, instructor *Instructor) error
	FindByID(ctx context.Context, id uuid.UUID) (*Instructor, error)
	// FindWithCalendar returns every instructor with a connected external
	// calendar; the reconciliation sweep iterates this set.
	FindWithCalendar(ctx context.Context) ([]*Instructor, error)
}
