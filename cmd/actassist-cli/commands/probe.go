package commands

import (
	"fmt"
	"time"

	"actassist-backend/lib/configutil"
	"actassist-backend/lib/portal"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(probeCmd)
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Checks that the portal login page answers, without a browser.",
	Run: func(cmd *cobra.Command, args []string) {
		loginURL := portal.DefaultLoginURL
		cfg, err := configutil.ReadConfig[Config](*configPath)
		if err == nil && cfg.Portal.LoginURL != "" {
			loginURL = cfg.Portal.LoginURL
		}

		probe := portal.NewProbe(loginURL)
		start := time.Now()
		err = probe.Check(cmd.Context())
		if err != nil {
			fail(err.Error())
		}
		fmt.Printf("%s is up (%s)\n", probe.URL(), time.Since(start).Round(time.Millisecond))
	},
}
