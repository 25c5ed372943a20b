package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	calendarDomain "github.com/lektora/lektora/internal/calendar/domain"
	"github.com/lektora/lektora/internal/scheduling/domain"
)

// AvailabilityCache holds computed slot lists for a short while. Lookups are
// best-effort: a cache failure is a miss, never an error.
type AvailabilityCache interface {
	GetSlots(ctx context.Context, key string) ([]domain.Slot, bool)
	SetSlots(ctx context.Context, key string, slots []domain.Slot)
	// Invalidate drops every cached window for a calendar; called after any
	// write that changes its busy time.
	Invalidate(ctx context.Context, calendarID string) error
}

// AvailabilityService derives an instructor's bookable slots. Windows come
// from the instructor's configured strategy, busy time from per-event
// calendar intervals plus buffer-expanded local in-person bookings.
type AvailabilityService struct {
	instructors domain.InstructorRepository
	bookings    domain.BookingRepository
	calendar    calendarDomain.Client
	cache       AvailabilityCache
	logger      *slog.Logger
}

// NewAvailabilityService creates an availability service. The cache is
// optional; pass nil to compute every request.
func NewAvailabilityService(
	instructors domain.InstructorRepository,
	bookings domain.BookingRepository,
	calendar calendarDomain.Client,
	cache AvailabilityCache,
	logger *slog.Logger,
) *AvailabilityService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AvailabilityService{
		instructors: instructors,
		bookings:    bookings,
		calendar:    calendar,
		cache:       cache,
		logger:      logger,
	}
}

// GetSlots returns the bookable slots for an instructor in [from, to).
func (s *AvailabilityService) GetSlots(ctx context.Context, instructorID uuid.UUID, from, to time.Time, slotMinutes int) ([]domain.Slot, error) {
	instructor, err := s.instructors.FindByID(ctx, instructorID)
	if err != nil {
		return nil, fmt.Errorf("load instructor: %w", err)
	}
	if !instructor.HasCalendar() {
		return nil, domain.ErrCalendarNotConfigured
	}

	key := cacheKey(instructor.CalendarID(), from, to, slotMinutes)
	if s.cache != nil {
		if slots, ok := s.cache.GetSlots(ctx, key); ok {
			return slots, nil
		}
	}

	free, err := s.FreeWindows(ctx, instructor, from, to)
	if err != nil {
		return nil, err
	}
	slots := domain.BuildSlots(free, slotMinutes)

	if s.cache != nil {
		s.cache.SetSlots(ctx, key, slots)
	}
	return slots, nil
}

// FreeWindows computes the instructor's free windows in [from, to): candidate
// windows from the configured strategy minus merged busy time.
func (s *AvailabilityService) FreeWindows(ctx context.Context, instructor *domain.Instructor, from, to time.Time) ([]domain.Interval, error) {
	if !instructor.HasCalendar() {
		return nil, domain.ErrCalendarNotConfigured
	}
	if !to.After(from) {
		return nil, nil
	}

	// The query window widens by the in-person buffer so busy time just
	// outside the range still shadows slots near the edges.
	events, err := s.calendar.ListEvents(ctx, instructor.CalendarID(), from.Add(-InPersonBuffer), to.Add(InPersonBuffer))
	if err != nil {
		return nil, fmt.Errorf("fetch calendar events: %w", err)
	}

	var windows []domain.Interval
	switch instructor.Strategy() {
	case domain.StrategyWorkingHours:
		windows = workingHourWindows(instructor, from, to)
	case domain.StrategyFreeEvents:
		windows = freeEventWindows(events, from, to)
	default:
		return nil, domain.ErrInvalidStrategy
	}

	busy := BusyIntervals(events, s.logger)

	bookings, err := s.bookings.FindScheduledInRange(ctx, instructor.ID(), from.Add(-InPersonBuffer), to.Add(InPersonBuffer))
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	for _, b := range bookings {
		iv := b.Interval()
		if !b.IsOnline() {
			iv.Start = iv.Start.Add(-InPersonBuffer)
			iv.End = iv.End.Add(InPersonBuffer)
		}
		busy = append(busy, iv)
	}

	return domain.Subtract(windows, domain.MergeBusy(busy)), nil
}

// InvalidateCache busts every cached availability window for a calendar.
func (s *AvailabilityService) InvalidateCache(ctx context.Context, calendarID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, calendarID); err != nil {
		s.logger.Warn("availability cache invalidation failed",
			"calendar_id", calendarID,
			"error", err,
		)
	}
}

// workingHourWindows emits one window per working day in [from, to), spanning
// the configured span in the instructor's local civil time and clipped to the
// requested range.
func workingHourWindows(instructor *domain.Instructor, from, to time.Time) []domain.Interval {
	loc := instructor.Location()
	hours := instructor.WorkingHours()

	var windows []domain.Interval
	local := from.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	for ; day.Before(to); day = day.AddDate(0, 0, 1) {
		if !hours.AppliesOn(day.Weekday()) {
			continue
		}
		// Civil wall-clock bounds, not offsets from midnight: on DST
		// transition days the two differ by the shifted hour.
		start := time.Date(day.Year(), day.Month(), day.Day(), 0, hours.StartMinute, 0, 0, loc)
		end := time.Date(day.Year(), day.Month(), day.Day(), 0, hours.EndMinute, 0, 0, loc)
		if start.Before(from) {
			start = from
		}
		if end.After(to) {
			end = to
		}
		if end.After(start) {
			windows = append(windows, domain.NewInterval(start, end))
		}
	}
	return windows
}

// freeEventWindows derives windows from events the instructor marked as free.
// Only timed free events count; survivors merge with touching windows joined
// so adjacent free blocks widen instead of fragmenting.
func freeEventWindows(events []calendarDomain.Event, from, to time.Time) []domain.Interval {
	var declared []domain.Interval
	for _, event := range events {
		if !event.IsFree() || !event.HasValidTiming() {
			continue
		}
		start := event.Start
		end := event.End
		if start.Before(from) {
			start = from
		}
		if end.After(to) {
			end = to
		}
		if end.After(start) {
			declared = append(declared, domain.NewInterval(start, end))
		}
	}
	return domain.MergeFree(declared)
}

func cacheKey(calendarID string, from, to time.Time, slotMinutes int) string {
	return fmt.Sprintf("%s|%s|%s|%d", calendarID, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339), slotMinutes)
}
