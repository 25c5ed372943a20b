package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	slotsInstructor string
	slotsFrom       string
	slotsTo         string
	slotsMinutes    int
)

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "List bookable slots for an instructor",
	Long: `List the bookable slots for an instructor over a date range.

Slots are derived from the instructor's availability strategy and the
busy time on their connected calendar.

Examples:
  lektora slots --instructor 6f1c... --from 2026-03-09 --to 2026-03-13
  lektora slots --instructor 6f1c... --from 2026-03-09 --to 2026-03-10 --minutes 45`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.AvailabilityService == nil {
			fmt.Println("Slot listing requires a configured database and calendar.")
			return nil
		}

		instructorID, err := uuid.Parse(slotsInstructor)
		if err != nil {
			return fmt.Errorf("invalid instructor id: %w", err)
		}
		from, to, err := parseDateRange(slotsFrom, slotsTo)
		if err != nil {
			return err
		}

		slots, err := app.AvailabilityService.GetSlots(cmd.Context(), instructorID, from, to, slotsMinutes)
		if err != nil {
			return fmt.Errorf("failed to compute slots: %w", err)
		}

		if len(slots) == 0 {
			fmt.Println("No bookable slots in range.")
			return nil
		}

		fmt.Printf("%d bookable slots:\n", len(slots))
		for _, slot := range slots {
			fmt.Printf("  %s - %s\n",
				slot.Start.Format("Mon, Jan 2 15:04"),
				slot.End.Format("15:04 MST"),
			)
		}
		return nil
	},
}

// parseDateRange interprets --from/--to as dates or RFC 3339 instants. A bare
// date means midnight UTC, and an omitted --to defaults to one week after from.
func parseDateRange(fromStr, toStr string) (time.Time, time.Time, error) {
	from, err := parseInstant(fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --from: %w", err)
	}
	if toStr == "" {
		return from, from.AddDate(0, 0, 7), nil
	}
	to, err := parseInstant(toStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --to: %w", err)
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to must be after --from")
	}
	return from, to, nil
}

func parseInstant(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func init() {
	slotsCmd.Flags().StringVar(&slotsInstructor, "instructor", "", "instructor id (required)")
	slotsCmd.Flags().StringVar(&slotsFrom, "from", "", "range start, YYYY-MM-DD or RFC 3339 (required)")
	slotsCmd.Flags().StringVar(&slotsTo, "to", "", "range end, defaults to one week after --from")
	slotsCmd.Flags().IntVar(&slotsMinutes, "minutes", 30, "slot length in minutes")
	_ = slotsCmd.MarkFlagRequired("instructor")
	_ = slotsCmd.MarkFlagRequired("from")
	rootCmd.AddCommand(slotsCmd)
}
