package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEvent_IsRecurringMaster(t *testing.T) {
	assert.True(t, Event{RecurrenceRule: "RRULE:FREQ=WEEKLY"}.IsRecurringMaster())
	assert.False(t, Event{}.IsRecurringMaster())
}

func TestEvent_IsFree(t *testing.T) {
	assert.True(t, Event{Transparency: TransparencyTransparent}.IsFree())
	assert.False(t, Event{Transparency: TransparencyOpaque}.IsFree())
	assert.False(t, Event{}.IsFree())
}

func TestEvent_HasValidTiming(t *testing.T) {
	start := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		event Event
		want  bool
	}{
		{"timed event", Event{Start: start, End: start.Add(time.Hour)}, true},
		{"all-day event", Event{Start: start, End: start.Add(time.Hour), AllDay: true}, false},
		{"missing start", Event{End: start}, false},
		{"inverted", Event{Start: start.Add(time.Hour), End: start}, false},
		{"zero-length", Event{Start: start, End: start}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.HasValidTiming())
		})
	}
}

func TestEvent_BookingID(t *testing.T) {
	id := uuid.New()

	got, ok := Event{PrivateProperties: map[string]string{PrivatePropBookingID: id.String()}}.BookingID()
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = Event{PrivateProperties: map[string]string{PrivatePropBookingID: "not-a-uuid"}}.BookingID()
	assert.False(t, ok)

	_, ok = Event{}.BookingID()
	assert.False(t, ok)
}
