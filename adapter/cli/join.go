package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lektora/lektora/internal/scheduling/application"
)

var joinCmd = &cobra.Command{
	Use:   "join <booking-id>",
	Short: "Check whether a lesson's join window is open",
	Long: `Check the join window for a booking. The booking's timing is
reconciled against the calendar first, so a lesson moved minutes ago
gates on its new time.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.JoinGate == nil {
			fmt.Println("Join checks require a configured database and calendar.")
			return nil
		}

		bookingID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid booking id: %w", err)
		}

		verdict, err := app.JoinGate.Evaluate(cmd.Context(), bookingID)
		if err != nil {
			return fmt.Errorf("failed to evaluate join window: %w", err)
		}

		switch verdict.State {
		case application.JoinOpen:
			fmt.Printf("Open. Lesson runs %s - %s.\n",
				verdict.Start.Format("15:04"),
				verdict.End.Format("15:04 MST"),
			)
		case application.JoinNotYetOpen:
			fmt.Printf("Not yet open. The window opens at %s.\n",
				verdict.OpensAt.Format("Mon, Jan 2 15:04 MST"),
			)
		case application.JoinClosed:
			fmt.Printf("Closed. The lesson ended at %s.\n",
				verdict.End.Format("Mon, Jan 2 15:04 MST"),
			)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(joinCmd)
}
