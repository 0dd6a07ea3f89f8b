package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"actassist-backend/lib/browser"
	"actassist-backend/lib/configutil"
	"actassist-backend/lib/portal"
	"actassist-backend/lib/serviceutil"
	"actassist-backend/lib/telemetry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type Config struct {
	Username string         `json:"username"`
	Password string         `json:"password"`
	Portal   portal.Config  `json:"portal"`
	Browser  browser.Config `json:"browser"`
}

var configPath *string
var verbose *bool

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "config.json5", "Path to the config with the portal credentials.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging.")
}

var rootCmd = &cobra.Command{
	Use:   "actassist-cli",
	Short: "actassist-cli runs the alumni activity portal automation from a terminal.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() Config {
	cfg, err := configutil.ReadConfig[Config](*configPath)
	if errors.Is(err, os.ErrNotExist) {
		serviceutil.Fatal(fmt.Sprintf("create %s with your username and password", *configPath), err)
	}
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	return cfg
}

func (c Config) credential() portal.Credential {
	return portal.Credential{Username: c.Username, Password: c.Password}
}

// newClient creates a portal client that shares one login across the
// commands of a single run.
func newClient(cfg Config) *portal.Client {
	provider, err := browser.NewProvider(cfg.Browser)
	if err != nil {
		serviceutil.Fatal("failed to find a browser", err)
	}
	cfg.Portal.ReuseSessions = true
	return portal.NewClient(portal.FromProvider(provider), portal.WithConfig(cfg.Portal))
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func fail(message string) {
	fmt.Fprintln(os.Stderr, message)
	os.Exit(1)
}
