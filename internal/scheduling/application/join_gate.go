package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lektora/lektora/internal/scheduling/domain"
)

// JoinGrace is how far outside the lesson span joining is still allowed, on
// both sides.
const JoinGrace = 10 * time.Minute

// JoinState tells the caller which side of the join window "now" falls on.
type JoinState string

const (
	JoinNotYetOpen JoinState = "not_yet_open"
	JoinOpen       JoinState = "open"
	JoinClosed     JoinState = "closed"
)

// JoinVerdict is the gate decision plus the reconciled timing it was made
// against. OpensAt is set only for JoinNotYetOpen.
type JoinVerdict struct {
	State   JoinState
	Start   time.Time
	End     time.Time
	OpensAt time.Time
}

// TimingResolver pulls the external calendar's current timing into a booking
// before the gate evaluates. NotFound leaves the booking untouched.
type TimingResolver interface {
	ReconcileBooking(ctx context.Context, booking *domain.Booking) error
}

// JoinGate decides whether a lesson is joinable right now. The booking's
// timing is reconciled first so a dragged event does not lock the student
// out of a lesson that actually moved.
type JoinGate struct {
	bookings domain.BookingRepository
	resolver TimingResolver
	logger   *slog.Logger
	now      func() time.Time
}

// NewJoinGate creates a join gate. The resolver is optional; nil gates on
// stored timing only.
func NewJoinGate(bookings domain.BookingRepository, resolver TimingResolver, logger *slog.Logger) *JoinGate {
	if logger == nil {
		logger = slog.Default()
	}
	return &JoinGate{
		bookings: bookings,
		resolver: resolver,
		logger:   logger,
		now:      time.Now,
	}
}

// Evaluate reconciles the booking and gates on the resulting timing. A failed
// reconciliation is logged and the gate falls back to last-known timing; the
// student must still get a verdict.
func (g *JoinGate) Evaluate(ctx context.Context, bookingID uuid.UUID) (JoinVerdict, error) {
	booking, err := g.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return JoinVerdict{}, fmt.Errorf("load booking: %w", err)
	}
	if booking.IsCancelled() {
		return JoinVerdict{}, domain.ErrBookingCancelled
	}

	if g.resolver != nil {
		if err := g.resolver.ReconcileBooking(ctx, booking); err != nil {
			g.logger.Warn("pre-join reconciliation failed, gating on stored timing",
				"booking_id", booking.ID(),
				"error", err,
			)
		}
	}

	now := g.now()
	opensAt := booking.Start().Add(-JoinGrace)
	closesAt := booking.End().Add(JoinGrace)

	verdict := JoinVerdict{Start: booking.Start(), End: booking.End()}
	switch {
	case now.Before(opensAt):
		verdict.State = JoinNotYetOpen
		verdict.OpensAt = opensAt
	case now.After(closesAt):
		verdict.State = JoinClosed
	default:
		verdict.State = JoinOpen
	}
	return verdict, nil
}
