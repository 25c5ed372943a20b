package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lektora/lektora/internal/scheduling/domain"
)

type fakeResolver struct {
	newStart time.Time
	newEnd   time.Time
	eventID  string
	err      error
	calls    int
}

func (r *fakeResolver) ReconcileBooking(ctx context.Context, booking *domain.Booking) error {
	r.calls++
	if r.err != nil {
		return r.err
	}
	if !r.newStart.IsZero() {
		booking.ApplyReconciledTiming(r.newStart, r.newEnd, r.eventID)
	}
	return nil
}

func newGateBooking(t *testing.T) (*memBookingRepo, *domain.Booking) {
	t.Helper()
	repo := newMemBookingRepo()
	booking, err := domain.NewBooking(uuid.New(), domain.StudentInfo{Name: "Mara"}, at(10, 0), at(11, 0), true)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), booking))
	return repo, booking
}

func TestJoinGate_Window(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want JoinState
	}{
		{"well before", at(9, 0), JoinNotYetOpen},
		{"just before grace", at(9, 49), JoinNotYetOpen},
		{"grace opens", at(9, 50), JoinOpen},
		{"mid lesson", at(10, 30), JoinOpen},
		{"grace closes", at(11, 10), JoinOpen},
		{"after grace", at(11, 11), JoinClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, booking := newGateBooking(t)
			gate := NewJoinGate(repo, nil, nil)
			gate.now = func() time.Time { return tt.now }

			verdict, err := gate.Evaluate(context.Background(), booking.ID())
			require.NoError(t, err)
			assert.Equal(t, tt.want, verdict.State)
			if tt.want == JoinNotYetOpen {
				assert.Equal(t, at(9, 50), verdict.OpensAt)
			}
		})
	}
}

func TestJoinGate_ReconcilesFirst(t *testing.T) {
	repo, booking := newGateBooking(t)
	// The instructor dragged the lesson an hour later; the gate must see the
	// moved timing, not the stale local copy.
	resolver := &fakeResolver{newStart: at(11, 0), newEnd: at(12, 0), eventID: "evt-moved"}
	gate := NewJoinGate(repo, resolver, nil)
	gate.now = func() time.Time { return at(10, 30) }

	verdict, err := gate.Evaluate(context.Background(), booking.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, resolver.calls)
	assert.Equal(t, JoinNotYetOpen, verdict.State, "old slot time is no longer joinable")
	assert.Equal(t, at(11, 0), verdict.Start)
}

func TestJoinGate_ResolverFailureFallsBackToStoredTiming(t *testing.T) {
	repo, booking := newGateBooking(t)
	resolver := &fakeResolver{err: errors.New("provider down")}
	gate := NewJoinGate(repo, resolver, nil)
	gate.now = func() time.Time { return at(10, 30) }

	verdict, err := gate.Evaluate(context.Background(), booking.ID())
	require.NoError(t, err)
	assert.Equal(t, JoinOpen, verdict.State)
}

func TestJoinGate_CancelledBooking(t *testing.T) {
	repo, booking := newGateBooking(t)
	require.NoError(t, booking.Cancel())

	gate := NewJoinGate(repo, nil, nil)
	_, err := gate.Evaluate(context.Background(), booking.ID())
	assert.ErrorIs(t, err, domain.ErrBookingCancelled)
}
