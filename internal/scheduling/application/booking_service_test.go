package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	calendarDomain "github.com/lektora/lektora/internal/calendar/domain"
	"github.com/lektora/lektora/internal/notifications"
	"github.com/lektora/lektora/internal/scheduling/domain"
)

type bookingFixture struct {
	service    *BookingService
	calendar   *fakeCalendar
	bookings   *memBookingRepo
	instructor *domain.Instructor
	locker     *fakeLocker
	publisher  *recordingPublisher
	reminders  *fakeScheduler
	cache      *fakeAvailabilityCache
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	instructor := testInstructor(domain.StrategyWorkingHours)
	f := &bookingFixture{
		calendar:   &fakeCalendar{},
		bookings:   newMemBookingRepo(),
		instructor: instructor,
		locker:     &fakeLocker{},
		publisher:  &recordingPublisher{},
		reminders:  newFakeScheduler(),
		cache:      &fakeAvailabilityCache{},
	}
	instructors := newMemInstructorRepo(instructor)
	detector := NewConflictDetector(f.calendar, nil)
	availability := NewAvailabilityService(instructors, f.bookings, f.calendar, f.cache, nil)
	f.service = NewBookingService(
		f.bookings,
		instructors,
		f.calendar,
		detector,
		f.locker,
		f.publisher,
		f.reminders,
		availability,
		nil,
	)
	f.service.now = func() time.Time { return at(8, 0) }
	return f
}

func (f *bookingFixture) command() CreateBookingCommand {
	return CreateBookingCommand{
		InstructorID: f.instructor.ID(),
		Student:      domain.StudentInfo{Name: "Mara Ibel", Email: "mara@example.com"},
		Start:        at(10, 0),
		End:          at(11, 0),
		Online:       true,
		Frequency:    domain.FrequencyNone,
	}
}

func TestCreateBooking_SingleLesson(t *testing.T) {
	f := newBookingFixture(t)

	booking, err := f.service.CreateBooking(context.Background(), f.command())
	require.NoError(t, err)

	require.Len(t, f.calendar.inserted, 1)
	assert.Equal(t, booking.ID().String(), f.calendar.inserted[0].PrivateProperties[calendarDomain.PrivatePropBookingID])
	assert.Equal(t, "evt-1", booking.ExternalEventID())

	stored, err := f.bookings.FindByID(context.Background(), booking.ID())
	require.NoError(t, err)
	assert.Equal(t, at(10, 0), stored.Start())

	assert.Equal(t, 1, f.locker.acquired)
	assert.Equal(t, 1, f.locker.released)
	assert.Contains(t, f.publisher.routingKeys, domain.RoutingKeyBookingScheduled)
}

func TestCreateBooking_RecurringExpansion(t *testing.T) {
	f := newBookingFixture(t)
	cmd := f.command()
	cmd.Frequency = domain.FrequencyBiweekly
	cmd.Duration = domain.DurationThreeMonths

	booking, err := f.service.CreateBooking(context.Background(), cmd)
	require.NoError(t, err)

	require.Len(t, f.calendar.inserted, 6, "biweekly three months writes six events")
	assert.Equal(t, at(10, 0), f.calendar.inserted[0].Start)
	assert.Equal(t, at(10, 0).AddDate(0, 0, 14), f.calendar.inserted[1].Start)
	assert.Equal(t, "evt-1", booking.ExternalEventID(), "first event backs the booking")
}

func TestCreateBooking_IndefiniteWritesRecurringMaster(t *testing.T) {
	f := newBookingFixture(t)
	cmd := f.command()
	cmd.Frequency = domain.FrequencyWeekly
	cmd.Duration = domain.DurationIndefinite

	_, err := f.service.CreateBooking(context.Background(), cmd)
	require.NoError(t, err)

	require.Len(t, f.calendar.inserted, 1)
	require.Len(t, f.calendar.inserted[0].Recurrence, 1)
	assert.Equal(t, "RRULE:FREQ=WEEKLY;INTERVAL=1", f.calendar.inserted[0].Recurrence[0])
}

func TestCreateBooking_SchedulesReminder(t *testing.T) {
	f := newBookingFixture(t)

	booking, err := f.service.CreateBooking(context.Background(), f.command())
	require.NoError(t, err)

	sendAt, ok := f.reminders.scheduled[booking.ID()]
	require.True(t, ok)
	assert.Equal(t, at(9, 0), sendAt, "reminder fires one hour before start")
	require.NotNil(t, booking.ReminderScheduledAt())
	assert.Equal(t, at(9, 0), *booking.ReminderScheduledAt())
}

func TestCreateBooking_ImminentLessonGetsGraceFloor(t *testing.T) {
	f := newBookingFixture(t)
	f.service.now = func() time.Time { return at(9, 45) }

	booking, err := f.service.CreateBooking(context.Background(), f.command())
	require.NoError(t, err)

	sendAt := f.reminders.scheduled[booking.ID()]
	assert.Equal(t, at(9, 45).Add(notifications.GraceFloor), sendAt)
}

func TestCreateBooking_ConflictRejected(t *testing.T) {
	f := newBookingFixture(t)
	f.calendar.events = []calendarDomain.Event{
		busyEvent("evt-existing", at(10, 0), at(11, 0)),
	}

	_, err := f.service.CreateBooking(context.Background(), f.command())
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Empty(t, f.calendar.inserted, "no write on conflict")
	assert.Equal(t, 1, f.locker.released, "lock released on failure")
}

func TestCreateBooking_LockContention(t *testing.T) {
	f := newBookingFixture(t)
	f.locker.busy = true

	_, err := f.service.CreateBooking(context.Background(), f.command())
	require.Error(t, err)
	assert.Empty(t, f.calendar.inserted)
}

func TestCreateBooking_InsertFailureAborts(t *testing.T) {
	f := newBookingFixture(t)
	f.calendar.insertErr = calendarDomain.ErrUpstream

	_, err := f.service.CreateBooking(context.Background(), f.command())
	require.ErrorIs(t, err, calendarDomain.ErrUpstream)
	assert.Empty(t, f.bookings.items, "booking not persisted when the calendar write fails")
}

func TestCreateBooking_SaveFailureCleansUpCalendarEvents(t *testing.T) {
	f := newBookingFixture(t)
	f.bookings.saveErr = errors.New("write failed")
	cmd := f.command()
	cmd.Frequency = domain.FrequencyWeekly
	cmd.Duration = domain.DurationOneMonth

	_, err := f.service.CreateBooking(context.Background(), cmd)
	require.Error(t, err)

	require.Len(t, f.calendar.inserted, 4)
	assert.Len(t, f.calendar.deleted, 4, "every inserted event is deleted when the booking cannot be saved")
	assert.Empty(t, f.bookings.items)
}

func TestCreateBooking_PartialInsertCleansUpEarlierEvents(t *testing.T) {
	f := newBookingFixture(t)
	f.calendar.insertErrAfter = 2
	cmd := f.command()
	cmd.Frequency = domain.FrequencyWeekly
	cmd.Duration = domain.DurationThreeMonths

	_, err := f.service.CreateBooking(context.Background(), cmd)
	require.ErrorIs(t, err, calendarDomain.ErrUpstream)

	assert.Equal(t, []string{"evt-1", "evt-2"}, f.calendar.deleted)
	assert.Empty(t, f.bookings.items)
}

func TestCancelBooking(t *testing.T) {
	f := newBookingFixture(t)
	booking, err := f.service.CreateBooking(context.Background(), f.command())
	require.NoError(t, err)

	require.NoError(t, f.service.CancelBooking(context.Background(), booking.ID()))

	stored, err := f.bookings.FindByID(context.Background(), booking.ID())
	require.NoError(t, err)
	assert.True(t, stored.IsCancelled())
	assert.Equal(t, []string{"evt-1"}, f.calendar.deleted)
	assert.Equal(t, []uuid.UUID{booking.ID()}, f.reminders.cancelled)
	assert.Contains(t, f.publisher.routingKeys, domain.RoutingKeyBookingCancelled)

	assert.ErrorIs(t, f.service.CancelBooking(context.Background(), booking.ID()), domain.ErrBookingCancelled)
}

func TestCreateBooking_BustsAvailabilityCache(t *testing.T) {
	f := newBookingFixture(t)

	_, err := f.service.CreateBooking(context.Background(), f.command())
	require.NoError(t, err)

	assert.Equal(t, []string{f.instructor.CalendarID()}, f.cache.invalidated)
}

func TestCancelBooking_BustsAvailabilityCache(t *testing.T) {
	f := newBookingFixture(t)
	booking, err := f.service.CreateBooking(context.Background(), f.command())
	require.NoError(t, err)
	f.cache.invalidated = nil

	require.NoError(t, f.service.CancelBooking(context.Background(), booking.ID()))

	assert.Equal(t, []string{f.instructor.CalendarID()}, f.cache.invalidated)
}
