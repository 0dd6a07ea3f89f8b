package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(activitiesCmd)
}

var activitiesCmd = &cobra.Command{
	Use:   "activities",
	Short: "Lists the activities codes can currently be submitted for.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		result := newClient(cfg).ListActivities(cmd.Context(), cfg.credential())
		if !result.Success {
			fail(result.Message)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Value", "Activity"})
		for _, option := range result.Activities {
			t.AppendRow(table.Row{option.Identifier, option.Label})
		}
		t.Render()
	},
}
