package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	calendarDomain "github.com/lektora/lektora/internal/calendar/domain"
	"github.com/lektora/lektora/internal/scheduling/domain"
)

type fakeCalendar struct {
	events         []calendarDomain.Event
	listErr        error
	insertErr      error
	insertErrAfter int // fail once this many inserts have succeeded
	inserted       []calendarDomain.EventFields
	deleted        []string
	nextID         int
}

func (f *fakeCalendar) GetEvent(ctx context.Context, calendarID, eventID string) (*calendarDomain.Event, error) {
	for _, e := range f.events {
		if e.ID == eventID {
			return &e, nil
		}
	}
	return nil, calendarDomain.ErrEventNotFound
}

func (f *fakeCalendar) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]calendarDomain.Event, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.events, nil
}

func (f *fakeCalendar) ListInstances(ctx context.Context, calendarID, masterEventID string, timeMin, timeMax time.Time) ([]calendarDomain.Event, error) {
	return nil, nil
}

func (f *fakeCalendar) InsertEvent(ctx context.Context, calendarID string, fields calendarDomain.EventFields) (*calendarDomain.Event, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	if f.insertErrAfter > 0 && len(f.inserted) >= f.insertErrAfter {
		return nil, calendarDomain.ErrUpstream
	}
	f.inserted = append(f.inserted, fields)
	f.nextID++
	return &calendarDomain.Event{
		ID:                fmt.Sprintf("evt-%d", f.nextID),
		Start:             fields.Start,
		End:               fields.End,
		PrivateProperties: fields.PrivateProperties,
	}, nil
}

func (f *fakeCalendar) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	f.deleted = append(f.deleted, eventID)
	return nil
}

type memBookingRepo struct {
	mu      sync.Mutex
	items   map[uuid.UUID]*domain.Booking
	saveErr error
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{items: make(map[uuid.UUID]*domain.Booking)}
}

func (r *memBookingRepo) Save(ctx context.Context, booking *domain.Booking) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[booking.ID()] = booking
	return nil
}

func (r *memBookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.items[id]
	if !ok {
		return nil, errors.New("booking not found")
	}
	return b, nil
}

func (r *memBookingRepo) FindScheduledInRange(ctx context.Context, instructorID uuid.UUID, from, to time.Time) ([]*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Booking
	for _, b := range r.items {
		if b.InstructorID() != instructorID || b.IsCancelled() {
			continue
		}
		if b.Start().Before(to) && from.Before(b.End()) {
			out = append(out, b)
		}
	}
	return out, nil
}

type memInstructorRepo struct {
	items map[uuid.UUID]*domain.Instructor
}

func newMemInstructorRepo(instructors ...*domain.Instructor) *memInstructorRepo {
	r := &memInstructorRepo{items: make(map[uuid.UUID]*domain.Instructor)}
	for _, i := range instructors {
		r.items[i.ID()] = i
	}
	return r
}

func (r *memInstructorRepo) Save(ctx context.Context, instructor *domain.Instructor) error {
	r.items[instructor.ID()] = instructor
	return nil
}

func (r *memInstructorRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Instructor, error) {
	i, ok := r.items[id]
	if !ok {
		return nil, errors.New("instructor not found")
	}
	return i, nil
}

func (r *memInstructorRepo) FindWithCalendar(ctx context.Context) ([]*domain.Instructor, error) {
	var out []*domain.Instructor
	for _, i := range r.items {
		if i.HasCalendar() {
			out = append(out, i)
		}
	}
	return out, nil
}

type fakeScheduler struct {
	scheduled map[uuid.UUID]time.Time
	cancelled []uuid.UUID
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{scheduled: make(map[uuid.UUID]time.Time)}
}

func (s *fakeScheduler) Schedule(ctx context.Context, bookingID uuid.UUID, sendAt time.Time) error {
	s.scheduled[bookingID] = sendAt
	return nil
}

func (s *fakeScheduler) Cancel(ctx context.Context, bookingID uuid.UUID) error {
	s.cancelled = append(s.cancelled, bookingID)
	delete(s.scheduled, bookingID)
	return nil
}

type fakeLocker struct {
	acquired int
	released int
	busy     bool
}

func (l *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context), error) {
	if l.busy {
		return nil, errors.New("lock held")
	}
	l.acquired++
	return func(context.Context) { l.released++ }, nil
}

type recordingPublisher struct {
	routingKeys []string
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	p.routingKeys = append(p.routingKeys, routingKey)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type fakeAvailabilityCache struct {
	invalidated []string
}

func (c *fakeAvailabilityCache) GetSlots(ctx context.Context, key string) ([]domain.Slot, bool) {
	return nil, false
}

func (c *fakeAvailabilityCache) SetSlots(ctx context.Context, key string, slots []domain.Slot) {}

func (c *fakeAvailabilityCache) Invalidate(ctx context.Context, calendarID string) error {
	c.invalidated = append(c.invalidated, calendarID)
	return nil
}

func testInstructor(strategy domain.AvailabilityStrategy) *domain.Instructor {
	hours := domain.WorkingHours{
		Weekdays:    []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		StartMinute: 9 * 60,
		EndMinute:   17 * 60,
	}
	instructor, err := domain.NewInstructor("Dana Voss", "primary", strategy, hours, "UTC")
	if err != nil {
		panic(err)
	}
	return instructor
}
