package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

func at(hour, min int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
}

func span(startH, startM, endH, endM int) Interval {
	return NewInterval(at(startH, startM), at(endH, endM))
}

func TestInterval_Overlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"disjoint", span(9, 0, 10, 0), span(11, 0, 12, 0), false},
		{"touching is not overlap", span(9, 0, 10, 0), span(10, 0, 11, 0), false},
		{"partial overlap", span(9, 0, 10, 30), span(10, 0, 11, 0), true},
		{"contained", span(9, 0, 12, 0), span(10, 0, 11, 0), true},
		{"identical", span(9, 0, 10, 0), span(9, 0, 10, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}

func TestMergeBusy_TouchingStaysSeparate(t *testing.T) {
	merged := MergeBusy([]Interval{span(0, 0, 0, 30), span(0, 30, 1, 0)})

	require.Len(t, merged, 2)
	assert.Equal(t, at(0, 30), merged[0].End)
	assert.Equal(t, at(0, 30), merged[1].Start)
}

func TestMergeBusy_OverlappingMerges(t *testing.T) {
	merged := MergeBusy([]Interval{span(0, 0, 0, 30), span(0, 29, 1, 0)})

	require.Len(t, merged, 1)
	assert.Equal(t, at(0, 0), merged[0].Start)
	assert.Equal(t, at(1, 0), merged[0].End)
}

func TestMergeBusy_Idempotent(t *testing.T) {
	input := []Interval{
		span(9, 0, 10, 0),
		span(9, 30, 11, 0),
		span(11, 0, 12, 0),
		span(14, 0, 15, 0),
	}

	once := MergeBusy(input)
	twice := MergeBusy(once)

	assert.Equal(t, once, twice)
}

func TestMergeBusy_DropsMalformed(t *testing.T) {
	merged := MergeBusy([]Interval{
		span(10, 0, 9, 0), // inverted
		{Start: at(11, 0), End: at(11, 0)}, // zero-length
		span(12, 0, 13, 0),
	})

	require.Len(t, merged, 1)
	assert.Equal(t, at(12, 0), merged[0].Start)
}

func TestMergeBusy_TagReconciliation(t *testing.T) {
	tests := []struct {
		name       string
		a, b       Interval
		wantKind   LessonKind
		wantSource string
	}{
		{
			name:       "agreeing tags survive",
			a:          Interval{Start: at(9, 0), End: at(10, 0), Kind: LessonKindInPerson, Source: "calendar"},
			b:          Interval{Start: at(9, 30), End: at(10, 30), Kind: LessonKindInPerson, Source: "calendar"},
			wantKind:   LessonKindInPerson,
			wantSource: "calendar",
		},
		{
			name:       "disagreeing tags reset to unknown",
			a:          Interval{Start: at(9, 0), End: at(10, 0), Kind: LessonKindInPerson, Source: "calendar"},
			b:          Interval{Start: at(9, 30), End: at(10, 30), Kind: LessonKindOnline, Source: "booking"},
			wantKind:   LessonKindUnknown,
			wantSource: "",
		},
		{
			name:       "one-sided tag survives",
			a:          Interval{Start: at(9, 0), End: at(10, 0)},
			b:          Interval{Start: at(9, 30), End: at(10, 30), Kind: LessonKindOnline, Source: "booking"},
			wantKind:   LessonKindOnline,
			wantSource: "booking",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged := MergeBusy([]Interval{tt.a, tt.b})
			require.Len(t, merged, 1)
			assert.Equal(t, tt.wantKind, merged[0].Kind)
			assert.Equal(t, tt.wantSource, merged[0].Source)
		})
	}
}

func TestMergeFree_TouchingMerges(t *testing.T) {
	merged := MergeFree([]Interval{span(9, 0, 11, 0), span(11, 0, 13, 0)})

	require.Len(t, merged, 1)
	assert.Equal(t, at(9, 0), merged[0].Start)
	assert.Equal(t, at(13, 0), merged[0].End)
}

func TestMergeFree_GapStaysSeparate(t *testing.T) {
	merged := MergeFree([]Interval{span(9, 0, 11, 0), span(11, 30, 13, 0)})

	require.Len(t, merged, 2)
}

func TestSubtract(t *testing.T) {
	tests := []struct {
		name    string
		windows []Interval
		busy    []Interval
		want    []Interval
	}{
		{
			name:    "busy in the middle splits the window",
			windows: []Interval{span(9, 0, 13, 0)},
			busy:    []Interval{span(10, 0, 11, 0)},
			want:    []Interval{span(9, 0, 10, 0), span(11, 0, 13, 0)},
		},
		{
			name:    "busy covering the window removes it",
			windows: []Interval{span(9, 0, 10, 0)},
			busy:    []Interval{span(8, 0, 11, 0)},
			want:    nil,
		},
		{
			name:    "busy aligned to window edge leaves no zero-length fragment",
			windows: []Interval{span(9, 0, 12, 0)},
			busy:    []Interval{span(9, 0, 10, 0)},
			want:    []Interval{span(10, 0, 12, 0)},
		},
		{
			name:    "disjoint busy leaves window untouched",
			windows: []Interval{span(9, 0, 12, 0)},
			busy:    []Interval{span(13, 0, 14, 0)},
			want:    []Interval{span(9, 0, 12, 0)},
		},
		{
			name:    "multiple busy carve multiple fragments",
			windows: []Interval{span(9, 0, 17, 0)},
			busy:    []Interval{span(10, 0, 11, 0), span(12, 0, 13, 30), span(16, 0, 18, 0)},
			want:    []Interval{span(9, 0, 10, 0), span(11, 0, 12, 0), span(13, 30, 16, 0)},
		},
		{
			name:    "malformed busy is ignored",
			windows: []Interval{span(9, 0, 12, 0)},
			busy:    []Interval{span(11, 0, 10, 0)},
			want:    []Interval{span(9, 0, 12, 0)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Subtract(tt.windows, tt.busy)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSubtract_ResultStaysWithinWindows(t *testing.T) {
	windows := []Interval{span(8, 0, 12, 0), span(13, 0, 18, 0)}
	busy := []Interval{span(7, 0, 9, 0), span(11, 30, 14, 0), span(16, 0, 16, 15)}

	got := Subtract(windows, busy)

	for _, sub := range got {
		assert.True(t, sub.IsValid(), "sub-window %v must have positive length", sub)
		contained := false
		for _, w := range windows {
			if !sub.Start.Before(w.Start) && !sub.End.After(w.End) {
				contained = true
			}
		}
		assert.True(t, contained, "sub-window %v must lie within a source window", sub)
	}
}
