package commands

import (
	"os"

	"actassist-backend/lib/history"
	"actassist-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

var parseJSON *bool

func init() {
	parseJSON = parseCmd.Flags().Bool("json", false, "Print the records as json.")
	rootCmd.AddCommand(parseCmd)
}

var parseCmd = &cobra.Command{
	Use:   "parse <file> [--json]",
	Short: "Parses saved history page text without touching the portal.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		text, err := os.ReadFile(args[0])
		if err != nil {
			serviceutil.Fatal("failed to read history text", err)
		}
		compulsory, supplementary := history.Partition(history.Parse(string(text)))
		printHistory(compulsory, supplementary, *parseJSON)
	},
}
