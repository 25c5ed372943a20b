package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	calendarDomain "github.com/lektora/lektora/internal/calendar/domain"
	"github.com/lektora/lektora/internal/notifications"
	"github.com/lektora/lektora/internal/scheduling/domain"
	"github.com/lektora/lektora/internal/shared/infrastructure/eventbus"
)

const bookingLockTTL = 10 * time.Second

// Locker serializes the conflict-check-plus-write sequence per instructor.
// The external calendar exposes no compare-and-swap, so without this two
// near-simultaneous requests for the same slot can both pass the check.
type Locker interface {
	// Acquire takes the named lock for at most ttl and returns a release
	// function. It fails when another holder has the lock.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context), error)
}

// CreateBookingCommand carries one booking request.
type CreateBookingCommand struct {
	InstructorID uuid.UUID
	Student      domain.StudentInfo
	Start        time.Time
	End          time.Time
	Online       bool
	Frequency    domain.Frequency
	Duration     domain.DurationChoice
}

// BookingService owns the booking write path: lock, re-check the slot, expand
// recurrence into calendar writes, persist, publish, bust the availability
// cache.
type BookingService struct {
	bookings     domain.BookingRepository
	instructors  domain.InstructorRepository
	calendar     calendarDomain.Client
	detector     *ConflictDetector
	locker       Locker
	publisher    eventbus.Publisher
	reminders    notifications.Scheduler
	availability *AvailabilityService
	logger       *slog.Logger
	now          func() time.Time
}

// NewBookingService creates a booking service. Locker, publisher, reminders
// and availability are optional; nil disables the corresponding step.
func NewBookingService(
	bookings domain.BookingRepository,
	instructors domain.InstructorRepository,
	calendar calendarDomain.Client,
	detector *ConflictDetector,
	locker Locker,
	publisher eventbus.Publisher,
	reminders notifications.Scheduler,
	availability *AvailabilityService,
	logger *slog.Logger,
) *BookingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookingService{
		bookings:     bookings,
		instructors:  instructors,
		calendar:     calendar,
		detector:     detector,
		locker:       locker,
		publisher:    publisher,
		reminders:    reminders,
		availability: availability,
		logger:       logger,
		now:          time.Now,
	}
}

// CreateBooking books a lesson. The conflict check re-runs under the
// per-instructor lock immediately before any write.
func (s *BookingService) CreateBooking(ctx context.Context, cmd CreateBookingCommand) (*domain.Booking, error) {
	instructor, err := s.instructors.FindByID(ctx, cmd.InstructorID)
	if err != nil {
		return nil, fmt.Errorf("load instructor: %w", err)
	}
	if !instructor.HasCalendar() {
		return nil, domain.ErrCalendarNotConfigured
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, "booking:"+cmd.InstructorID.String(), bookingLockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire booking lock: %w", err)
		}
		defer release(ctx)
	}

	proposed := domain.NewInterval(cmd.Start, cmd.End)
	if err := s.detector.Check(ctx, instructor, proposed, cmd.Online); err != nil {
		return nil, err
	}

	booking, err := domain.NewBooking(cmd.InstructorID, cmd.Student, cmd.Start, cmd.End, cmd.Online)
	if err != nil {
		return nil, err
	}

	plan := domain.PlanRecurrence(cmd.Frequency, cmd.Duration)
	inserted, err := s.writeCalendarEvents(ctx, instructor, booking, plan)
	if err != nil {
		return nil, err
	}

	s.scheduleReminder(ctx, booking)

	if err := s.bookings.Save(ctx, booking); err != nil {
		s.deleteInsertedEvents(ctx, instructor.CalendarID(), inserted)
		if s.reminders != nil {
			if cerr := s.reminders.Cancel(ctx, booking.ID()); cerr != nil {
				s.logger.Warn("orphaned reminder cleanup failed", "booking_id", booking.ID(), "error", cerr)
			}
		}
		return nil, fmt.Errorf("save booking: %w", err)
	}

	s.publish(ctx, booking)
	if s.availability != nil {
		s.availability.InvalidateCache(ctx, instructor.CalendarID())
	}

	s.logger.Info("booking created",
		"booking_id", booking.ID(),
		"instructor_id", instructor.ID(),
		"start", booking.Start(),
		"online", booking.IsOnline(),
	)
	return booking, nil
}

// CancelBooking moves a booking to its terminal state, removes its calendar
// event and pending reminder, and busts the availability cache.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID uuid.UUID) error {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("load booking: %w", err)
	}
	if err := booking.Cancel(); err != nil {
		return err
	}

	instructor, err := s.instructors.FindByID(ctx, booking.InstructorID())
	if err != nil {
		return fmt.Errorf("load instructor: %w", err)
	}
	if instructor.HasCalendar() && booking.ExternalEventID() != "" {
		if err := s.calendar.DeleteEvent(ctx, instructor.CalendarID(), booking.ExternalEventID()); err != nil {
			return fmt.Errorf("delete calendar event: %w", err)
		}
	}

	if s.reminders != nil {
		if err := s.reminders.Cancel(ctx, booking.ID()); err != nil {
			s.logger.Warn("reminder cancellation failed", "booking_id", booking.ID(), "error", err)
		}
	}

	if err := s.bookings.Save(ctx, booking); err != nil {
		return fmt.Errorf("save booking: %w", err)
	}

	s.publish(ctx, booking)
	if s.availability != nil {
		s.availability.InvalidateCache(ctx, instructor.CalendarID())
	}
	return nil
}

// writeCalendarEvents expands the recurrence plan into calendar writes. A
// bounded plan issues one insert per instance at weekly or biweekly offsets;
// an indefinite plan issues a single recurring master. Every event carries
// the booking ID as a private property, the join key reconciliation uses.
// Returns the inserted event IDs so a later failure can undo the writes.
func (s *BookingService) writeCalendarEvents(ctx context.Context, instructor *domain.Instructor, booking *domain.Booking, plan domain.RecurrencePlan) ([]string, error) {
	props := map[string]string{
		calendarDomain.PrivatePropBookingID: booking.ID().String(),
	}
	summary := fmt.Sprintf("Lesson: %s", booking.Student().Name)

	if plan.Indefinite {
		fields := calendarDomain.EventFields{
			Summary:           summary,
			Start:             booking.Start(),
			End:               booking.End(),
			Recurrence:        []string{fmt.Sprintf("RRULE:FREQ=WEEKLY;INTERVAL=%d", plan.IntervalWeeks)},
			PrivateProperties: props,
		}
		event, err := s.calendar.InsertEvent(ctx, instructor.CalendarID(), fields)
		if err != nil {
			return nil, fmt.Errorf("insert recurring event: %w", err)
		}
		booking.SetExternalEventID(event.ID)
		return []string{event.ID}, nil
	}

	var inserted []string
	step := time.Duration(plan.IntervalWeeks) * 7 * 24 * time.Hour
	for i := 0; i < plan.InstanceCount; i++ {
		offset := time.Duration(i) * step
		fields := calendarDomain.EventFields{
			Summary:           summary,
			Start:             booking.Start().Add(offset),
			End:               booking.End().Add(offset),
			PrivateProperties: props,
		}
		event, err := s.calendar.InsertEvent(ctx, instructor.CalendarID(), fields)
		if err != nil {
			s.deleteInsertedEvents(ctx, instructor.CalendarID(), inserted)
			return nil, fmt.Errorf("insert event %d of %d: %w", i+1, plan.InstanceCount, err)
		}
		inserted = append(inserted, event.ID)
		if i == 0 {
			booking.SetExternalEventID(event.ID)
		}
	}
	return inserted, nil
}

// deleteInsertedEvents is the best-effort undo for calendar writes that a
// later step stranded. Failures are logged and left for the sweep.
func (s *BookingService) deleteInsertedEvents(ctx context.Context, calendarID string, eventIDs []string) {
	for _, id := range eventIDs {
		if err := s.calendar.DeleteEvent(ctx, calendarID, id); err != nil {
			s.logger.Warn("orphaned calendar event cleanup failed",
				"calendar_id", calendarID,
				"event_id", id,
				"error", err,
			)
		}
	}
}

func (s *BookingService) scheduleReminder(ctx context.Context, booking *domain.Booking) {
	if s.reminders == nil {
		return
	}
	sendAt := notifications.ClampSendAt(notifications.DesiredSendAt(booking.Start()), s.now())
	if err := s.reminders.Schedule(ctx, booking.ID(), sendAt); err != nil {
		s.logger.Warn("reminder scheduling failed", "booking_id", booking.ID(), "error", err)
		return
	}
	booking.ScheduleReminder(sendAt)
}

func (s *BookingService) publish(ctx context.Context, booking *domain.Booking) {
	if s.publisher == nil {
		return
	}
	if err := eventbus.PublishDomainEvents(ctx, s.publisher, booking.DomainEvents()); err != nil {
		s.logger.Warn("event publish failed", "booking_id", booking.ID(), "error", err)
		return
	}
	booking.ClearDomainEvents()
}
