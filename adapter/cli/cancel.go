package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <booking-id>",
	Short: "Cancel a booking",
	Long: `Cancel a booking. The lesson's calendar event is deleted and the
pending reminder is dropped. Cancellation is terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.BookingService == nil {
			fmt.Println("Cancellation requires a configured database and calendar.")
			return nil
		}

		bookingID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid booking id: %w", err)
		}

		if err := app.BookingService.CancelBooking(cmd.Context(), bookingID); err != nil {
			return fmt.Errorf("failed to cancel booking: %w", err)
		}

		fmt.Printf("Booking %s cancelled.\n", bookingID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}
