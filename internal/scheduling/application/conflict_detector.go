package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	calendarDomain "github.com/lektora/lektora/internal/calendar/domain"
	"github.com/lektora/lektora/internal/scheduling/domain"
)

// InPersonBuffer is the travel padding required around in-person lessons.
// Online lessons need none; the asymmetry is policy, not an oversight.
const InPersonBuffer = 30 * time.Minute

// ConflictDetector validates a proposed slot against an instructor's current
// busy time. The check is advisory-then-authoritative: it runs when slots are
// offered and again right before the booking write, but it is not atomic
// against the external calendar.
type ConflictDetector struct {
	calendar calendarDomain.Client
	logger   *slog.Logger
}

// NewConflictDetector creates a conflict detector.
func NewConflictDetector(calendar calendarDomain.Client, logger *slog.Logger) *ConflictDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConflictDetector{calendar: calendar, logger: logger}
}

// Check returns nil when the proposed slot is bookable, a *ConflictError when
// busy time collides with it, and a plain error when the instructor has no
// calendar or the provider could not be reached. An upstream failure is never
// downgraded to "no busy time".
func (d *ConflictDetector) Check(ctx context.Context, instructor *domain.Instructor, proposed domain.Interval, online bool) error {
	if !instructor.HasCalendar() {
		return domain.ErrCalendarNotConfigured
	}
	if !proposed.IsValid() {
		return domain.ErrBookingInvalidTiming
	}

	buffer := time.Duration(0)
	if !online {
		buffer = InPersonBuffer
	}
	effective := domain.NewInterval(proposed.Start.Add(-buffer), proposed.End.Add(buffer))

	events, err := d.calendar.ListEvents(ctx, instructor.CalendarID(), effective.Start, effective.End)
	if err != nil {
		return fmt.Errorf("fetch busy events: %w", err)
	}

	busy := domain.MergeBusy(BusyIntervals(events, d.logger))
	for _, iv := range busy {
		if effective.Overlaps(iv) {
			return &ConflictError{Conflicting: iv}
		}
	}
	return nil
}

// BusyIntervals projects calendar events onto busy intervals. Events marked
// free are skipped; events without usable timing (all-day, unparsable or
// inverted timestamps) are dropped and logged, never fatal.
func BusyIntervals(events []calendarDomain.Event, logger *slog.Logger) []domain.Interval {
	if logger == nil {
		logger = slog.Default()
	}
	busy := make([]domain.Interval, 0, len(events))
	for _, event := range events {
		if event.IsFree() {
			continue
		}
		if !event.HasValidTiming() {
			logger.Debug("skipping event without usable timing", "event_id", event.ID)
			continue
		}
		iv := domain.NewInterval(event.Start, event.End)
		iv.Source = event.ID
		busy = append(busy, iv)
	}
	return busy
}
