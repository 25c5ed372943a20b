package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lektora/lektora/internal/scheduling/application"
	"github.com/lektora/lektora/internal/scheduling/domain"
)

var (
	bookInstructor string
	bookStudent    string
	bookEmail      string
	bookStart      string
	bookMinutes    int
	bookInPerson   bool
	bookFrequency  string
	bookDuration   string
)

var bookCmd = &cobra.Command{
	Use:   "book",
	Short: "Book a lesson with an instructor",
	Long: `Book a lesson. The slot is re-checked against the instructor's
calendar under a lock, the lesson is written to the calendar, and a
reminder is scheduled.

Recurring commitments expand into multiple calendar events; an
indefinite weekly or biweekly commitment writes a single recurring
calendar event instead.

Examples:
  lektora book --instructor 6f1c... --student "Mara Ibel" --start 2026-03-09T10:00:00Z --minutes 60
  lektora book --instructor 6f1c... --student "Mara Ibel" --start 2026-03-09T10:00:00Z \
    --frequency weekly --duration 3_months
  lektora book --instructor 6f1c... --student "Mara Ibel" --start 2026-03-09T10:00:00Z --in-person`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.BookingService == nil {
			fmt.Println("Booking requires a configured database and calendar.")
			return nil
		}

		instructorID, err := uuid.Parse(bookInstructor)
		if err != nil {
			return fmt.Errorf("invalid instructor id: %w", err)
		}
		start, err := time.Parse(time.RFC3339, bookStart)
		if err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
		if bookMinutes <= 0 {
			return fmt.Errorf("--minutes must be positive")
		}

		booking, err := app.BookingService.CreateBooking(cmd.Context(), application.CreateBookingCommand{
			InstructorID: instructorID,
			Student:      domain.StudentInfo{Name: bookStudent, Email: bookEmail},
			Start:        start,
			End:          start.Add(time.Duration(bookMinutes) * time.Minute),
			Online:       !bookInPerson,
			Frequency:    domain.Frequency(bookFrequency),
			Duration:     domain.DurationChoice(bookDuration),
		})
		if err != nil {
			var conflict *application.ConflictError
			if errors.As(err, &conflict) {
				fmt.Println("That slot is no longer free:")
				fmt.Printf("  conflicts with %s - %s\n",
					conflict.Conflicting.Start.Format(time.RFC3339),
					conflict.Conflicting.End.Format(time.RFC3339),
				)
				return nil
			}
			return fmt.Errorf("failed to book lesson: %w", err)
		}

		fmt.Println("Lesson booked!")
		fmt.Printf("  ID: %s\n", booking.ID())
		fmt.Printf("  Student: %s\n", booking.Student().Name)
		fmt.Printf("  When: %s - %s\n",
			booking.Start().Format("Mon, Jan 2 15:04"),
			booking.End().Format("15:04 MST"),
		)
		if bookInPerson {
			fmt.Println("  Mode: in person")
		} else {
			fmt.Println("  Mode: online")
		}
		return nil
	},
}

func init() {
	bookCmd.Flags().StringVar(&bookInstructor, "instructor", "", "instructor id (required)")
	bookCmd.Flags().StringVar(&bookStudent, "student", "", "student name (required)")
	bookCmd.Flags().StringVar(&bookEmail, "email", "", "student email")
	bookCmd.Flags().StringVar(&bookStart, "start", "", "lesson start, RFC 3339 (required)")
	bookCmd.Flags().IntVar(&bookMinutes, "minutes", 60, "lesson length in minutes")
	bookCmd.Flags().BoolVar(&bookInPerson, "in-person", false, "in-person lesson (adds travel buffer)")
	bookCmd.Flags().StringVar(&bookFrequency, "frequency", "none", "none, weekly, or biweekly")
	bookCmd.Flags().StringVar(&bookDuration, "duration", "", "1_month, 3_months, or indefinite")
	_ = bookCmd.MarkFlagRequired("instructor")
	_ = bookCmd.MarkFlagRequired("student")
	_ = bookCmd.MarkFlagRequired("start")
	rootCmd.AddCommand(bookCmd)
}
