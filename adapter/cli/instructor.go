package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lektora/lektora/internal/scheduling/domain"
)

var (
	instructorName     string
	instructorCalendar string
	instructorStrategy string
	instructorDays     string
	instructorStart    string
	instructorEnd      string
	instructorZone     string
)

var instructorCmd = &cobra.Command{
	Use:   "instructor",
	Short: "Manage instructors",
}

var instructorAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register an instructor",
	Long: `Register an instructor with an availability strategy.

The working_hours strategy derives free windows from weekly hours in
the instructor's time zone; the free_events strategy reads windows from
transparent events on their calendar.

Examples:
  lektora instructor add --name "Dana Voss" --calendar primary \
    --days mon,tue,wed,thu,fri --start 09:00 --end 17:00 --zone Europe/Berlin
  lektora instructor add --name "Dana Voss" --calendar primary --strategy free_events`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Instructors == nil {
			fmt.Println("Instructor management requires a configured database.")
			return nil
		}

		hours, err := parseWorkingHours(instructorDays, instructorStart, instructorEnd)
		if err != nil {
			return err
		}

		instructor, err := domain.NewInstructor(
			instructorName,
			instructorCalendar,
			domain.AvailabilityStrategy(instructorStrategy),
			hours,
			instructorZone,
		)
		if err != nil {
			return fmt.Errorf("failed to create instructor: %w", err)
		}

		if err := app.Instructors.Save(cmd.Context(), instructor); err != nil {
			return fmt.Errorf("failed to save instructor: %w", err)
		}

		fmt.Println("Instructor registered!")
		fmt.Printf("  ID: %s\n", instructor.ID())
		fmt.Printf("  Name: %s\n", instructor.DisplayName())
		fmt.Printf("  Strategy: %s\n", instructor.Strategy())
		if instructor.HasCalendar() {
			fmt.Printf("  Calendar: %s\n", instructor.CalendarID())
		} else {
			fmt.Println("  Calendar: not connected (bookings disabled until connected)")
		}
		return nil
	},
}

var instructorConnectCmd = &cobra.Command{
	Use:   "connect <instructor-id> <calendar-id>",
	Short: "Connect an instructor's calendar",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Instructors == nil {
			fmt.Println("Instructor management requires a configured database.")
			return nil
		}

		instructorID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid instructor id: %w", err)
		}

		instructor, err := app.Instructors.FindByID(cmd.Context(), instructorID)
		if err != nil {
			return fmt.Errorf("failed to load instructor: %w", err)
		}

		instructor.ConnectCalendar(args[1])
		if err := app.Instructors.Save(cmd.Context(), instructor); err != nil {
			return fmt.Errorf("failed to save instructor: %w", err)
		}

		fmt.Printf("Calendar %s connected for %s.\n", args[1], instructor.DisplayName())
		return nil
	},
}

var instructorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List instructors with a connected calendar",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Instructors == nil {
			fmt.Println("Instructor management requires a configured database.")
			return nil
		}

		instructors, err := app.Instructors.FindWithCalendar(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list instructors: %w", err)
		}

		if len(instructors) == 0 {
			fmt.Println("No instructors with a connected calendar.")
			return nil
		}

		for _, instructor := range instructors {
			fmt.Printf("%s  %s (%s, %s)\n",
				instructor.ID(),
				instructor.DisplayName(),
				instructor.Strategy(),
				instructor.TimeZone(),
			)
		}
		return nil
	},
}

func parseWorkingHours(days, start, end string) (domain.WorkingHours, error) {
	startMin, err := parseClock(start)
	if err != nil {
		return domain.WorkingHours{}, fmt.Errorf("invalid --start: %w", err)
	}
	endMin, err := parseClock(end)
	if err != nil {
		return domain.WorkingHours{}, fmt.Errorf("invalid --end: %w", err)
	}

	names := map[string]time.Weekday{
		"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
		"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday,
		"sat": time.Saturday,
	}
	var weekdays []time.Weekday
	for _, part := range strings.Split(days, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		day, ok := names[part]
		if !ok {
			return domain.WorkingHours{}, fmt.Errorf("unknown weekday %q", part)
		}
		weekdays = append(weekdays, day)
	}

	return domain.WorkingHours{
		Weekdays:    weekdays,
		StartMinute: startMin,
		EndMinute:   endMin,
	}, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func init() {
	instructorAddCmd.Flags().StringVar(&instructorName, "name", "", "display name (required)")
	instructorAddCmd.Flags().StringVar(&instructorCalendar, "calendar", "", "external calendar id")
	instructorAddCmd.Flags().StringVar(&instructorStrategy, "strategy", string(domain.StrategyWorkingHours), "working_hours or free_events")
	instructorAddCmd.Flags().StringVar(&instructorDays, "days", "mon,tue,wed,thu,fri", "comma-separated weekdays")
	instructorAddCmd.Flags().StringVar(&instructorStart, "start", "09:00", "working hours start, HH:MM")
	instructorAddCmd.Flags().StringVar(&instructorEnd, "end", "17:00", "working hours end, HH:MM")
	instructorAddCmd.Flags().StringVar(&instructorZone, "zone", "UTC", "IANA time zone")
	_ = instructorAddCmd.MarkFlagRequired("name")

	instructorCmd.AddCommand(instructorAddCmd)
	instructorCmd.AddCommand(instructorConnectCmd)
	instructorCmd.AddCommand(instructorListCmd)
	rootCmd.AddCommand(instructorCmd)
}
