package domain

import (
	"sort"
	"time"
)

// LessonKind tags an interval with the delivery mode of the lesson it came from.
type LessonKind string

const (
	// LessonKindUnknown means the kind could not be determined unambiguously.
	LessonKindUnknown LessonKind = ""
	// LessonKindOnline is a remote lesson.
	LessonKindOnline LessonKind = "online"
	// LessonKindInPerson is an on-site lesson.
	LessonKindInPerson LessonKind = "in_person"
)

// Interval is a half-open time span [Start, End). The optional tag fields
// describe the interval's origin; they survive merges only when both sides
// agree, otherwise they reset to their zero value.
type Interval struct {
	Start           time.Time
	End             time.Time
	Kind            LessonKind
	DurationMinutes int
	Source          string
}

// NewInterval creates an untagged interval.
func NewInterval(start, end time.Time) Interval {
	return Interval{Start: start, End: end}
}

// IsValid reports whether the interval has positive length. Malformed
// intervals show up in external calendar data and are dropped, never rejected
// with an error.
func (iv Interval) IsValid() bool {
	return iv.End.After(iv.Start)
}

// Duration returns the interval length.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Overlaps reports whether two intervals share any instant. Half-open
// semantics: intervals that merely touch do not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Contains reports whether t falls within the interval.
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// sortedValid returns the valid intervals sorted by start ascending, ties
// broken by end ascending. Input is not modified.
func sortedValid(intervals []Interval) []Interval {
	out := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.IsValid() {
			out = append(out, iv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].End.Before(out[j].End)
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

// MergeBusy merges overlapping busy intervals into an ordered, non-overlapping
// set. The comparison is strict: intervals that only touch stay separate, so
// back-to-back lessons remain distinguishable. Tags are kept when both sides
// agree and reset when they conflict.
//
// This is deliberately a different function from MergeFree; the two have
// different touch semantics and must not be unified.
func MergeBusy(intervals []Interval) []Interval {
	sorted := sortedValid(intervals)
	if len(sorted) == 0 {
		return nil
	}

	merged := make([]Interval, 0, len(sorted))
	cur := sorted[0]
	for _, next := range sorted[1:] {
		if next.Start.Before(cur.End) {
			cur = coalesce(cur, next)
			continue
		}
		merged = append(merged, cur)
		cur = next
	}
	return append(merged, cur)
}

// MergeFree merges declared-free windows, treating touching windows as
// contiguous so adjacent free blocks widen instead of fragmenting. The result
// carries no tags.
func MergeFree(intervals []Interval) []Interval {
	sorted := sortedValid(intervals)
	if len(sorted) == 0 {
		return nil
	}

	merged := make([]Interval, 0, len(sorted))
	cur := NewInterval(sorted[0].Start, sorted[0].End)
	for _, next := range sorted[1:] {
		if next.Start.After(cur.End) {
			merged = append(merged, cur)
			cur = NewInterval(next.Start, next.End)
			continue
		}
		if next.End.After(cur.End) {
			cur.End = next.End
		}
	}
	return append(merged, cur)
}

// coalesce extends a to cover b and reconciles tags. A tag survives when the
// two sides agree or only one side carries it; a disagreement resets it to
// unknown rather than guessing.
func coalesce(a, b Interval) Interval {
	if b.End.After(a.End) {
		a.End = b.End
	}
	a.Kind = mergeKind(a.Kind, b.Kind)
	a.DurationMinutes = mergeMinutes(a.DurationMinutes, b.DurationMinutes)
	a.Source = mergeSource(a.Source, b.Source)
	return a
}

func mergeKind(a, b LessonKind) LessonKind {
	switch {
	case a == b:
		return a
	case a == LessonKindUnknown:
		return b
	case b == LessonKindUnknown:
		return a
	default:
		return LessonKindUnknown
	}
}

func mergeMinutes(a, b int) int {
	switch {
	case a == b:
		return a
	case a == 0:
		return b
	case b == 0:
		return a
	default:
		return 0
	}
}

func mergeSource(a, b string) string {
	switch {
	case a == b:
		return a
	case a == "":
		return b
	case b == "":
		return a
	default:
		return ""
	}
}

// Subtract removes the busy set from each window, splitting windows around
// busy intervals that overlap them. Zero-length fragments are dropped, so
// every returned sub-window satisfies End > Start and lies within its source
// window.
func Subtract(windows, busy []Interval) []Interval {
	busySorted := sortedValid(busy)

	var out []Interval
	for _, w := range windows {
		if !w.IsValid() {
			continue
		}
		segments := []Interval{NewInterval(w.Start, w.End)}
		for _, b := range busySorted {
			var remaining []Interval
			for _, seg := range segments {
				if !seg.Overlaps(b) {
					remaining = append(remaining, seg)
					continue
				}
				if b.Start.After(seg.Start) {
					remaining = append(remaining, NewInterval(seg.Start, b.Start))
				}
				if b.End.Before(seg.End) {
					remaining = append(remaining, NewInterval(b.End, seg.End))
				}
			}
			segments = remaining
		}
		out = append(out, segments...)
	}
	return out
}
