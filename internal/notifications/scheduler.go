// Package notifications schedules lesson reminders relative to booking start
// times. Reminders are kept in a delayed queue; the worker drains due entries
// and hands them to the delivery channel.
package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	// Lead is how long before the lesson start a reminder fires.
	Lead = time.Hour
	// RescheduleTolerance is the largest drift between the scheduled send
	// time and the desired one that does not trigger a reschedule.
	RescheduleTolerance = 2 * time.Minute
	// GraceFloor is the minimum delay applied when the desired send time has
	// already passed, so a late reschedule still fires instead of being
	// silently dropped.
	GraceFloor = 2 * time.Minute
)

// DesiredSendAt returns when the reminder for a lesson starting at start
// should fire.
func DesiredSendAt(start time.Time) time.Time {
	return start.Add(-Lead)
}

// ClampSendAt floors the desired send time to now plus the grace period when
// it has already passed.
func ClampSendAt(desired, now time.Time) time.Time {
	if desired.Before(now) {
		return now.Add(GraceFloor)
	}
	return desired
}

// NeedsReschedule reports whether a scheduled reminder must move to match the
// desired send time. A nil scheduled time always needs scheduling.
func NeedsReschedule(scheduled *time.Time, desired time.Time) bool {
	if scheduled == nil {
		return true
	}
	drift := desired.Sub(*scheduled)
	if drift < 0 {
		drift = -drift
	}
	return drift > RescheduleTolerance
}

// Scheduler manages the delayed reminder queue. Scheduling an already-queued
// booking replaces its send time.
type Scheduler interface {
	Schedule(ctx context.Context, bookingID uuid.UUID, sendAt time.Time) error
	Cancel(ctx context.Context, bookingID uuid.UUID) error
}
