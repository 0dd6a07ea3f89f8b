package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"actassist-backend/lib/browser"
	"actassist-backend/lib/chrono"
	"actassist-backend/lib/configutil"
	"actassist-backend/lib/portal"
	"actassist-backend/lib/serviceutil"
	"actassist-backend/services/actassist"
	"actassist-backend/services/actassist/db"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	configPath := flag.String("config", "config.json5", "Path to the server config.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	InitTelemetry(ctx, *verbose)

	cfg, err := configutil.ReadConfig[Config](*configPath)
	if errors.Is(err, os.ErrNotExist) {
		slog.WarnContext(ctx, "config not found, using defaults", "path", *configPath)
	} else if err != nil {
		serviceutil.Fatal("read config", err)
	}
	cfg, err = configutil.WithDefaults(cfg, defaultConfig)
	if err != nil {
		serviceutil.Fatal("apply config defaults", err)
	}

	provider, err := browser.NewProvider(cfg.Browser)
	if errors.Is(err, browser.ErrBrowserNotFound) {
		serviceutil.Fatal("no chrome or chromium installation found, set browser.exec_path or browser.remote_url", err)
	}
	if err != nil {
		serviceutil.Fatal("init browser", err)
	}

	client := portal.NewClient(portal.FromProvider(provider), portal.WithConfig(cfg.Portal))
	probe := portal.NewProbe(cfg.Portal.LoginURL)
	var options []actassist.ServiceOption
	if !cfg.Database.IsZero() {
		database, err := cfg.Database.OpenDB(db.Schema)
		if err != nil {
			serviceutil.Fatal("open submission journal", err)
		}
		defer database.Close()
		options = append(options, actassist.WithJournal(db.New(database)))
	}
	service := actassist.NewService(client, probe, cfg.Server.Config, options...)

	scheduler := chrono.NewStandardCron(nil)
	defer scheduler.Stop()
	retention := time.Duration(cfg.Server.JournalRetentionDays) * 24 * time.Hour
	err = service.ScheduleJournalPrune(scheduler, retention)
	if err != nil {
		serviceutil.Fatal("schedule journal pruning", err)
	}

	slog.InfoContext(
		ctx, "portal automation ready",
		"portal", cfg.Portal.LoginURL,
		"browser", provider.ExecPath(),
		"reuse_sessions", cfg.Portal.ReuseSessions,
		"max_browsers", cfg.Portal.MaxBrowsers,
		"journal", !cfg.Database.IsZero(),
	)

	err = serviceutil.StartHttpServer(ctx, cfg.Server.Port, service.Handler(), 30*time.Second)
	if err != nil {
		serviceutil.Fatal("serve http", err)
	}
}
