package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/lektora/lektora/internal/shared/domain"
)

var (
	ErrBookingInvalidTiming = errors.New("booking end must be after start")
	ErrBookingEmptyStudent  = errors.New("booking student name cannot be empty")
	ErrBookingCancelled     = errors.New("booking is cancelled")
)

// BookingStatus is the lifecycle state of a booking. Cancelled is terminal;
// bookings are never deleted.
type BookingStatus string

const (
	BookingStatusScheduled BookingStatus = "scheduled"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// StudentInfo identifies the student attached to a booking.
type StudentInfo struct {
	Name  string
	Email string
}

// Booking is the durable record of one scheduled lesson. The external
// calendar remains the source of truth for timing: the start and end stored
// here are a cache, corrected only through ApplyReconciledTiming.
type Booking struct {
	sharedDomain.BaseAggregateRoot
	instructorID        uuid.UUID
	student             StudentInfo
	start               time.Time
	end                 time.Time
	status              BookingStatus
	online              bool
	lengthMinutes       int
	externalEventID     string
	reminderToken       string
	reminderScheduledAt *time.Time
	reminderSentAt      *time.Time
}

// NewBooking creates a scheduled booking.
func NewBooking(instructorID uuid.UUID, student StudentInfo, start, end time.Time, online bool) (*Booking, error) {
	if strings.TrimSpace(student.Name) == "" {
		return nil, ErrBookingEmptyStudent
	}
	if !end.After(start) {
		return nil, ErrBookingInvalidTiming
	}

	b := &Booking{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		instructorID:      instructorID,
		student:           student,
		start:             start,
		end:               end,
		status:            BookingStatusScheduled,
		online:            online,
		lengthMinutes:     int(end.Sub(start) / time.Minute),
		reminderToken:     uuid.NewString(),
	}
	b.AddDomainEvent(NewBookingScheduled(b))
	return b, nil
}

// RehydrateBooking recreates a booking from persisted state.
func RehydrateBooking(
	entity sharedDomain.BaseEntity,
	instructorID uuid.UUID,
	student StudentInfo,
	start, end time.Time,
	status BookingStatus,
	online bool,
	lengthMinutes int,
	externalEventID string,
	reminderToken string,
	reminderScheduledAt, reminderSentAt *time.Time,
) *Booking {
	return &Booking{
		BaseAggregateRoot:   sharedDomain.RehydrateBaseAggregateRoot(entity),
		instructorID:        instructorID,
		student:             student,
		start:               start,
		end:                 end,
		status:              status,
		online:              online,
		lengthMinutes:       lengthMinutes,
		externalEventID:     externalEventID,
		reminderToken:       reminderToken,
		reminderScheduledAt: reminderScheduledAt,
		reminderSentAt:      reminderSentAt,
	}
}

// Getters
func (b *Booking) InstructorID() uuid.UUID          { return b.instructorID }
func (b *Booking) Student() StudentInfo             { return b.student }
func (b *Booking) Start() time.Time                 { return b.start }
func (b *Booking) End() time.Time                   { return b.end }
func (b *Booking) Status() BookingStatus            { return b.status }
func (b *Booking) IsOnline() bool                   { return b.online }
func (b *Booking) LengthMinutes() int               { return b.lengthMinutes }
func (b *Booking) ExternalEventID() string          { return b.externalEventID }
func (b *Booking) ReminderToken() string            { return b.reminderToken }
func (b *Booking) ReminderScheduledAt() *time.Time  { return b.reminderScheduledAt }
func (b *Booking) ReminderSentAt() *time.Time       { return b.reminderSentAt }

// IsCancelled reports whether the booking reached its terminal state.
func (b *Booking) IsCancelled() bool {
	return b.status == BookingStatusCancelled
}

// Interval returns the booking's span tagged with its delivery mode.
func (b *Booking) Interval() Interval {
	kind := LessonKindInPerson
	if b.online {
		kind = LessonKindOnline
	}
	return Interval{
		Start:           b.start,
		End:             b.end,
		Kind:            kind,
		DurationMinutes: b.lengthMinutes,
		Source:          "booking",
	}
}

// SetExternalEventID records the calendar event backing this booking.
func (b *Booking) SetExternalEventID(eventID string) {
	b.externalEventID = eventID
	b.Touch()
}

// ApplyReconciledTiming overwrites the cached timing with the timing resolved
// from the external calendar. This is the only mutation path for start and
// end after creation; the external copy always wins, it is never merged.
// Returns true when anything actually changed.
func (b *Booking) ApplyReconciledTiming(start, end time.Time, eventID string) bool {
	if !end.After(start) {
		return false
	}

	changed := false
	if !b.start.Equal(start) || !b.end.Equal(end) {
		b.start = start
		b.end = end
		b.lengthMinutes = int(end.Sub(start) / time.Minute)
		changed = true
	}
	if eventID != "" && eventID != b.externalEventID {
		b.externalEventID = eventID
		changed = true
	}
	if changed {
		b.Touch()
		b.AddDomainEvent(NewBookingTimingCorrected(b))
	}
	return changed
}

// ScheduleReminder records when the reminder for this booking will be sent.
func (b *Booking) ScheduleReminder(at time.Time) {
	t := at
	b.reminderScheduledAt = &t
	b.Touch()
}

// MarkReminderSent records the reminder delivery time.
func (b *Booking) MarkReminderSent(at time.Time) {
	t := at
	b.reminderSentAt = &t
	b.Touch()
}

// Cancel moves the booking to its terminal state.
func (b *Booking) Cancel() error {
	if b.status == BookingStatusCancelled {
		return ErrBookingCancelled
	}
	b.status = BookingStatusCancelled
	b.Touch()
	b.AddDomainEvent(NewBookingCancelled(b))
	return nil
}
