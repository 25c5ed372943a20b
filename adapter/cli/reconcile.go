package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <booking-id>",
	Short: "Reconcile one booking against the calendar",
	Long: `Re-resolve a booking's timing from the instructor's calendar and
correct the stored copy if the two disagree. A lesson whose calendar
event has vanished keeps its stored timing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Reconciler == nil || app.Bookings == nil {
			fmt.Println("Reconciliation requires a configured database and calendar.")
			return nil
		}

		bookingID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid booking id: %w", err)
		}

		booking, err := app.Bookings.FindByID(cmd.Context(), bookingID)
		if err != nil {
			return fmt.Errorf("failed to load booking: %w", err)
		}

		if err := app.Reconciler.ReconcileBooking(cmd.Context(), booking); err != nil {
			return fmt.Errorf("failed to reconcile booking: %w", err)
		}

		fmt.Printf("Booking %s reconciled.\n", bookingID)
		fmt.Printf("  When: %s - %s\n",
			booking.Start().Format("Mon, Jan 2 15:04"),
			booking.End().Format("15:04 MST"),
		)
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Reconcile every instructor's upcoming bookings",
	Long: `Run one reconciliation sweep: every instructor with a connected
calendar has their recent and upcoming bookings re-resolved against
the calendar. One instructor's failure never aborts the sweep.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Reconciler == nil {
			fmt.Println("Sweeps require a configured database and calendar.")
			return nil
		}

		if err := app.Reconciler.ReconcileAll(cmd.Context()); err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}

		fmt.Println("Sweep completed.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(sweepCmd)
}
