package domain

import "time"

// MinSlotMinutes is the smallest slot size the builder accepts. Smaller
// configured values are clamped so a zero or negative setting cannot produce a
// degenerate walk.
const MinSlotMinutes = 10

// Slot is a fixed-length bookable interval aligned to the start of its free
// window.
type Slot struct {
	Start time.Time
	End   time.Time
}

// Interval returns the slot as an untagged interval.
func (s Slot) Interval() Interval {
	return NewInterval(s.Start, s.End)
}

// BuildSlots walks each free window from its start and emits consecutive
// slots of slotMinutes length. A trailing remainder shorter than one slot is
// never emitted.
func BuildSlots(freeWindows []Interval, slotMinutes int) []Slot {
	if slotMinutes < MinSlotMinutes {
		slotMinutes = MinSlotMinutes
	}
	size := time.Duration(slotMinutes) * time.Minute

	var slots []Slot
	for _, w := range freeWindows {
		if !w.IsValid() {
			continue
		}
		for cur := w.Start; !cur.Add(size).After(w.End); cur = cur.Add(size) {
			slots = append(slots, Slot{Start: cur, End: cur.Add(size)})
		}
	}
	return slots
}
