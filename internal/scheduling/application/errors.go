package application

import (
	"fmt"

	"github.com/lektora/lektora/internal/scheduling/domain"
)

// ConflictError rejects a booking because the proposed slot collides with
// busy time. It carries the first colliding interval so callers can show the
// user what got in the way.
type ConflictError struct {
	Conflicting domain.Interval
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot conflicts with busy interval [%s, %s)",
		e.Conflicting.Start.Format("2006-01-02T15:04"),
		e.Conflicting.End.Format("2006-01-02T15:04"),
	)
}
