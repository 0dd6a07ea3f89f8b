package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"actassist-backend/lib/history"
	"actassist-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyJSON *bool

func init() {
	historyJSON = historyCmd.Flags().Bool("json", false, "Print the records as json.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--json]",
	Short: "Prints the compulsory and supplementary activities attended.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		result := newClient(cfg).History(cmd.Context(), cfg.credential())
		if !result.Success {
			fail(result.Message)
		}
		printHistory(result.Compulsory, result.Supplementary, *historyJSON)
	},
}

func printHistory(compulsory, supplementary []history.Record, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		err := enc.Encode(map[string][]history.Record{
			"compulsory_activities":    compulsory,
			"supplementary_activities": supplementary,
		})
		if err != nil {
			serviceutil.Fatal("failed to encode records", err)
		}
		return
	}

	for _, group := range []struct {
		title   string
		records []history.Record
	}{
		{title: "Compulsory", records: compulsory},
		{title: "Supplementary", records: supplementary},
	} {
		t := newTable()
		t.SetTitle(fmt.Sprintf("%s (%d)", group.title, len(group.records)))
		t.AppendHeader(table.Row{"Activity", "Type", "Code", "Location", "Date"})
		for _, r := range group.records {
			t.AppendRow(table.Row{r.Name, r.Type, r.Code, r.Location, r.Date})
		}
		t.Render()
	}
}
