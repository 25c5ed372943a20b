package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lektora/lektora/internal/calendar/domain"
	"github.com/lektora/lektora/internal/notifications"
	schedulingDomain "github.com/lektora/lektora/internal/scheduling/domain"
	"github.com/lektora/lektora/internal/shared/infrastructure/eventbus"
)

// ResolutionWindow bounds the calendar search around now when resolving a
// booking's external event.
type ResolutionWindow struct {
	Behind time.Duration
	Ahead  time.Duration
}

// SweepWindow is the wide bound the periodic sweep searches: slightly into
// the past and two weeks ahead, catching silent drift before anyone looks.
// JoinWindow is the narrow bound for synchronous pre-join resolution, where
// latency matters and only imminent lessons are relevant.
var (
	SweepWindow = ResolutionWindow{Behind: 24 * time.Hour, Ahead: 14 * 24 * time.Hour}
	JoinWindow  = ResolutionWindow{Behind: 2 * time.Hour, Ahead: 24 * time.Hour}
)

// ResolutionState names the path that located the external event.
type ResolutionState string

const (
	ResolvedDirect      ResolutionState = "direct"
	ResolvedViaInstance ResolutionState = "via_instance"
	ResolvedViaScan     ResolutionState = "via_scan"
	ResolutionNotFound  ResolutionState = "not_found"
)

// Resolution is the outcome of resolving one booking against the external
// calendar. Timing fields are set only when State is a resolved state.
type Resolution struct {
	State   ResolutionState
	Start   time.Time
	End     time.Time
	EventID string
}

// Resolved reports whether an event was located with usable timing.
func (r Resolution) Resolved() bool {
	return r.State != ResolutionNotFound
}

// Reconciler pulls the external calendar's current truth back into local
// bookings. The external copy always wins: resolved timing overwrites the
// stored timing, and a booking that cannot be resolved keeps its last-known
// timing untouched.
type Reconciler struct {
	calendar    domain.Client
	bookings    schedulingDomain.BookingRepository
	instructors schedulingDomain.InstructorRepository
	reminders   notifications.Scheduler
	publisher   eventbus.Publisher
	logger      *slog.Logger
	window      ResolutionWindow
	now         func() time.Time
}

// NewReconciler creates a reconciler. Reminders and publisher are optional.
func NewReconciler(
	calendar domain.Client,
	bookings schedulingDomain.BookingRepository,
	instructors schedulingDomain.InstructorRepository,
	reminders notifications.Scheduler,
	publisher eventbus.Publisher,
	logger *slog.Logger,
) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		calendar:    calendar,
		bookings:    bookings,
		instructors: instructors,
		reminders:   reminders,
		publisher:   publisher,
		logger:      logger,
		window:      SweepWindow,
		now:         time.Now,
	}
}

// WithWindow returns a copy of the reconciler bounded to the given resolution
// window. The join gate uses this to resolve against the narrow window while
// the sweep keeps the wide one.
func (r *Reconciler) WithWindow(window ResolutionWindow) *Reconciler {
	clone := *r
	clone.window = window
	return &clone
}

// ReconcileBooking resolves one booking and applies the result: overwrite
// timing on drift, move the dependent reminder when the new start pulls it
// outside tolerance, persist and publish only when something changed. A
// NotFound resolution is not an error; the booking is left as it was.
func (r *Reconciler) ReconcileBooking(ctx context.Context, booking *schedulingDomain.Booking) error {
	if booking.IsCancelled() {
		return nil
	}

	instructor, err := r.instructors.FindByID(ctx, booking.InstructorID())
	if err != nil {
		return fmt.Errorf("load instructor: %w", err)
	}
	if !instructor.HasCalendar() {
		return schedulingDomain.ErrCalendarNotConfigured
	}

	resolution, err := r.Resolve(ctx, instructor.CalendarID(), booking)
	if err != nil {
		return err
	}
	if !resolution.Resolved() {
		r.logger.Debug("booking not found on external calendar, keeping stored timing",
			"booking_id", booking.ID(),
		)
		return nil
	}

	changed := booking.ApplyReconciledTiming(resolution.Start, resolution.End, resolution.EventID)
	moved := r.rescheduleReminder(ctx, booking, resolution.Start)
	if !changed && !moved {
		return nil
	}

	if err := r.bookings.Save(ctx, booking); err != nil {
		return fmt.Errorf("save reconciled booking: %w", err)
	}
	if r.publisher != nil {
		if err := eventbus.PublishDomainEvents(ctx, r.publisher, booking.DomainEvents()); err != nil {
			r.logger.Warn("event publish failed", "booking_id", booking.ID(), "error", err)
		} else {
			booking.ClearDomainEvents()
		}
	}

	r.logger.Info("booking reconciled",
		"booking_id", booking.ID(),
		"state", string(resolution.State),
		"start", resolution.Start,
		"timing_changed", changed,
		"reminder_moved", moved,
	)
	return nil
}

// Resolve locates the external event backing a booking. Stages, in order:
// the stored event ID directly; the matching instance when that ID names a
// recurring master; a linear scan of the calendar window. Failures in the
// first two stages fall through to the scan rather than aborting.
func (r *Reconciler) Resolve(ctx context.Context, calendarID string, booking *schedulingDomain.Booking) (Resolution, error) {
	now := r.now()
	windowStart := now.Add(-r.window.Behind)
	windowEnd := now.Add(r.window.Ahead)

	if booking.ExternalEventID() != "" {
		resolution, ok := r.resolveDirect(ctx, calendarID, booking, windowStart, windowEnd)
		if ok {
			return resolution, nil
		}
	}
	return r.resolveByScan(ctx, calendarID, booking, windowStart, windowEnd)
}

func (r *Reconciler) resolveDirect(ctx context.Context, calendarID string, booking *schedulingDomain.Booking, windowStart, windowEnd time.Time) (Resolution, bool) {
	event, err := r.calendar.GetEvent(ctx, calendarID, booking.ExternalEventID())
	if err != nil {
		if !errors.Is(err, domain.ErrEventNotFound) {
			r.logger.Warn("direct event fetch failed, falling back to scan",
				"booking_id", booking.ID(),
				"event_id", booking.ExternalEventID(),
				"error", err,
			)
		}
		return Resolution{}, false
	}

	if !event.IsRecurringMaster() {
		return r.fromEvent(booking, *event, ResolvedDirect), true
	}

	instances, err := r.calendar.ListInstances(ctx, calendarID, event.ID, windowStart, windowEnd)
	if err != nil {
		r.logger.Warn("instance listing failed, falling back to scan",
			"booking_id", booking.ID(),
			"master_id", event.ID,
			"error", err,
		)
		return Resolution{}, false
	}
	for _, instance := range instances {
		if id, ok := instance.BookingID(); ok && id == booking.ID() {
			return r.fromEvent(booking, instance, ResolvedViaInstance), true
		}
	}
	return Resolution{}, false
}

func (r *Reconciler) resolveByScan(ctx context.Context, calendarID string, booking *schedulingDomain.Booking, windowStart, windowEnd time.Time) (Resolution, error) {
	events, err := r.calendar.ListEvents(ctx, calendarID, windowStart, windowEnd)
	if err != nil {
		return Resolution{}, fmt.Errorf("scan calendar window: %w", err)
	}
	for _, event := range events {
		if id, ok := event.BookingID(); ok && id == booking.ID() {
			return r.fromEvent(booking, event, ResolvedViaScan), nil
		}
	}
	return Resolution{State: ResolutionNotFound}, nil
}

// fromEvent extracts timing from a located event. Unusable timing degrades
// the resolution to NotFound for this run; bad external data must not
// corrupt local state.
func (r *Reconciler) fromEvent(booking *schedulingDomain.Booking, event domain.Event, state ResolutionState) Resolution {
	if !event.HasValidTiming() {
		r.logger.Warn("resolved event has unusable timing, keeping stored timing",
			"booking_id", booking.ID(),
			"event_id", event.ID,
		)
		return Resolution{State: ResolutionNotFound}
	}
	return Resolution{
		State:   state,
		Start:   event.Start,
		End:     event.End,
		EventID: event.ID,
	}
}

// rescheduleReminder moves the pending reminder when the reconciled start
// pulls the desired send time outside tolerance. Already-sent reminders and
// bookings without a scheduled reminder are left alone.
func (r *Reconciler) rescheduleReminder(ctx context.Context, booking *schedulingDomain.Booking, newStart time.Time) bool {
	if r.reminders == nil || booking.ReminderSentAt() != nil || booking.ReminderScheduledAt() == nil {
		return false
	}

	desired := notifications.DesiredSendAt(newStart)
	if !notifications.NeedsReschedule(booking.ReminderScheduledAt(), desired) {
		return false
	}

	sendAt := notifications.ClampSendAt(desired, r.now())
	if err := r.reminders.Cancel(ctx, booking.ID()); err != nil {
		r.logger.Warn("stale reminder cancellation failed", "booking_id", booking.ID(), "error", err)
	}
	if err := r.reminders.Schedule(ctx, booking.ID(), sendAt); err != nil {
		r.logger.Warn("reminder reschedule failed", "booking_id", booking.ID(), "error", err)
		return false
	}
	booking.ScheduleReminder(sendAt)
	return true
}

// ReconcileInstructor reconciles every scheduled booking of one instructor in
// the sweep window. Per-booking failures are logged and counted, not fatal.
func (r *Reconciler) ReconcileInstructor(ctx context.Context, instructor *schedulingDomain.Instructor) (int, error) {
	now := r.now()
	bookings, err := r.bookings.FindScheduledInRange(ctx, instructor.ID(), now.Add(-r.window.Behind), now.Add(r.window.Ahead))
	if err != nil {
		return 0, fmt.Errorf("load bookings: %w", err)
	}

	reconciled := 0
	for _, booking := range bookings {
		if err := r.ReconcileBooking(ctx, booking); err != nil {
			r.logger.Warn("booking reconciliation failed",
				"booking_id", booking.ID(),
				"instructor_id", instructor.ID(),
				"error", err,
			)
			continue
		}
		reconciled++
	}
	return reconciled, nil
}

// ReconcileAll sweeps every instructor with a connected calendar. Instructors
// are independent; one failing does not stop the sweep.
func (r *Reconciler) ReconcileAll(ctx context.Context) error {
	instructors, err := r.instructors.FindWithCalendar(ctx)
	if err != nil {
		return fmt.Errorf("list instructors: %w", err)
	}

	for _, instructor := range instructors {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := r.ReconcileInstructor(ctx, instructor); err != nil {
			r.logger.Warn("instructor sweep failed",
				"instructor_id", instructor.ID(),
				"error", err,
			)
		}
	}
	return nil
}
