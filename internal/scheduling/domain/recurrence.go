package domain

// Frequency describes how often a recurring booking repeats.
type Frequency string

const (
	FrequencyNone     Frequency = "none"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
)

// DurationChoice is the student-facing length of a recurring commitment.
type DurationChoice string

const (
	DurationOneMonth    DurationChoice = "1_month"
	DurationThreeMonths DurationChoice = "3_months"
	DurationIndefinite  DurationChoice = "indefinite"
)

// RecurrencePlan describes how many forward calendar writes a recurring
// booking request produces. When Indefinite is set, InstanceCount carries no
// meaning and no count limit applies.
type RecurrencePlan struct {
	IntervalWeeks int
	InstanceCount int
	Indefinite    bool
}

// Single reports whether the plan describes a one-off, non-recurring booking.
func (p RecurrencePlan) Single() bool {
	return !p.Indefinite && p.InstanceCount == 1
}

// PlanRecurrence maps a frequency and duration choice onto a recurrence plan.
// This table is the single source of truth for recurring expansion; it is pure
// and performs no I/O. Unrecognized duration choices fall back to the
// weekly / one-month row.
func PlanRecurrence(frequency Frequency, choice DurationChoice) RecurrencePlan {
	if frequency == FrequencyNone {
		return RecurrencePlan{InstanceCount: 1}
	}

	weeks := 1
	if frequency == FrequencyBiweekly {
		weeks = 2
	}

	switch choice {
	case DurationOneMonth:
		return RecurrencePlan{IntervalWeeks: weeks, InstanceCount: 4 / weeks}
	case DurationThreeMonths:
		return RecurrencePlan{IntervalWeeks: weeks, InstanceCount: 12 / weeks}
	case DurationIndefinite:
		return RecurrencePlan{IntervalWeeks: weeks, Indefinite: true}
	default:
		return RecurrencePlan{IntervalWeeks: 1, InstanceCount: 4}
	}
}
