package commands

import (
	"fmt"
	"log/slog"

	"actassist-backend/lib/portal"

	"github.com/spf13/cobra"
)

var submitActivity *string

func init() {
	submitActivity = submitCmd.Flags().String("activity", "", "The activity value or name to submit the code for.")
	submitCmd.MarkFlagRequired("activity")
	rootCmd.AddCommand(submitCmd)
}

var submitCmd = &cobra.Command{
	Use:   "submit <code> --activity <value|name>",
	Short: "Submits a scanned 25 character code for an activity.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		code := args[0]
		_, err := portal.SplitCode(code)
		if err != nil {
			fail(err.Error())
		}

		cfg := loadConfig()
		client := newClient(cfg)
		cred := cfg.credential()

		listed := client.ListActivities(cmd.Context(), cred)
		if !listed.Success {
			fail(listed.Message)
		}
		activity, ok := portal.FindActivity(listed.Activities, *submitActivity)
		if !ok {
			fail(fmt.Sprintf("no activity matches %q, see the activities command", *submitActivity))
		}
		slog.Info("submitting code", "activity", activity.Label, "value", activity.Identifier)

		result := client.Submit(cmd.Context(), cred, code, activity.Identifier)
		if !result.Success {
			fail(result.Message)
		}
		fmt.Println(result.Message)
	},
}
