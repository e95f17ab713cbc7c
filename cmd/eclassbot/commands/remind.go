package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(remindCmd)
}

var remindCmd = &cobra.Command{
	Use:       "remind <30m|daily>",
	Short:     "Sends the upcoming class reminders or today's timetable digest once.",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"30m", "daily"},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		var sent int
		switch args[0] {
		case "30m":
			sent, err = a.reminders.RunClassReminders(cmd.Context(), a.time.Now())
		case "daily":
			sent, err = a.reminders.RunDailyDigest(cmd.Context(), a.time.Now())
		}
		if err != nil {
			return err
		}
		fmt.Println("sent", sent)
		return nil
	},
}
