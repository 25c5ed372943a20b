package domain

import (
	"errors"
	"strings"
	"time"

	sharedDomain "github.com/lektora/lektora/internal/shared/domain"
)

var (
	ErrInstructorEmptyName    = errors.New("instructor name cannot be empty")
	ErrInstructorInvalidHours = errors.New("working hours end must be after start")
	ErrInstructorInvalidZone  = errors.New("unknown instructor time zone")
	ErrInvalidStrategy        = errors.New("invalid availability strategy")
	// ErrCalendarNotConfigured is returned when an operation requires an
	// external calendar and the instructor has none connected. Callers must
	// not fall back to guessed availability.
	ErrCalendarNotConfigured = errors.New("instructor has no calendar configured")
)

// AvailabilityStrategy selects how an instructor's bookable windows are
// derived before busy time is subtracted.
type AvailabilityStrategy string

const (
	// StrategyWorkingHours derives windows from fixed weekday working hours.
	StrategyWorkingHours AvailabilityStrategy = "working_hours"
	// StrategyFreeEvents derives windows from calendar events the instructor
	// marked as free.
	StrategyFreeEvents AvailabilityStrategy = "free_events"
)

// IsValid checks whether the strategy is supported.
func (s AvailabilityStrategy) IsValid() bool {
	return s == StrategyWorkingHours || s == StrategyFreeEvents
}

// WorkingHours holds an instructor's fixed daily span in local civil time,
// expressed as minutes from midnight.
type WorkingHours struct {
	Weekdays    []time.Weekday
	StartMinute int
	EndMinute   int
}

// AppliesOn reports whether the given weekday is a working day.
func (wh WorkingHours) AppliesOn(day time.Weekday) bool {
	for _, wd := range wh.Weekdays {
		if wd == day {
			return true
		}
	}
	return false
}

// Instructor is an aggregate holding the scheduling configuration for one
// teacher: the external calendar they own and how their availability is
// derived from it.
type Instructor struct {
	sharedDomain.BaseAggregateRoot
	displayName  string
	calendarID   string
	strategy     AvailabilityStrategy
	workingHours WorkingHours
	timeZone     string
}

// NewInstructor creates a new instructor.
func NewInstructor(displayName, calendarID string, strategy AvailabilityStrategy, hours WorkingHours, timeZone string) (*Instructor, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, ErrInstructorEmptyName
	}
	if !strategy.IsValid() {
		return nil, ErrInvalidStrategy
	}
	if strategy == StrategyWorkingHours && hours.EndMinute <= hours.StartMinute {
		return nil, ErrInstructorInvalidHours
	}
	if timeZone == "" {
		timeZone = "UTC"
	}
	if _, err := time.LoadLocation(timeZone); err != nil {
		return nil, ErrInstructorInvalidZone
	}

	return &Instructor{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		displayName:       displayName,
		calendarID:        calendarID,
		strategy:          strategy,
		workingHours:      hours,
		timeZone:          timeZone,
	}, nil
}

// RehydrateInstructor recreates an instructor from persisted state.
func RehydrateInstructor(entity sharedDomain.BaseEntity, displayName, calendarID string, strategy AvailabilityStrategy, hours WorkingHours, timeZone string) *Instructor {
	return &Instructor{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(entity),
		displayName:       displayName,
		calendarID:        calendarID,
		strategy:          strategy,
		workingHours:      hours,
		timeZone:          timeZone,
	}
}

// Getters
func (i *Instructor) DisplayName() string            { return i.displayName }
func (i *Instructor) CalendarID() string             { return i.calendarID }
func (i *Instructor) Strategy() AvailabilityStrategy { return i.strategy }
func (i *Instructor) WorkingHours() WorkingHours     { return i.workingHours }
func (i *Instructor) TimeZone() string               { return i.timeZone }

// HasCalendar reports whether an external calendar is connected.
func (i *Instructor) HasCalendar() bool {
	return i.calendarID != ""
}

// Location resolves the instructor's time zone. The zone was validated at
// construction, so failures only occur for rehydrated rows with stale names;
// UTC is the documented fallback there.
func (i *Instructor) Location() *time.Location {
	loc, err := time.LoadLocation(i.timeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ConnectCalendar attaches an external calendar to the instructor.
func (i *Instructor) ConnectCalendar(calendarID string) {
	i.calendarID = calendarID
	i.Touch()
}
