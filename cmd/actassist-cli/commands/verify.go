package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Logs in with the configured credentials.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		result := newClient(cfg).Verify(cmd.Context(), cfg.credential())
		if !result.OK {
			fail(fmt.Sprintf("%s (%s)", result.Message, result.Reason))
		}
		fmt.Println("logged in as", cfg.Username)
	},
}
