package main

import (
	"actassist-backend/lib/browser"
	configlibsql "actassist-backend/lib/configutil/libsql"
	"actassist-backend/lib/portal"
	"actassist-backend/services/actassist"
)

type ServerConfig struct {
	Port int `json:"port"`
	// JournalRetentionDays prunes older submissions daily, a negative
	// value keeps them forever.
	JournalRetentionDays int `json:"journal_retention_days"`
	actassist.Config
}

type Config struct {
	Portal  portal.Config  `json:"portal"`
	Browser browser.Config `json:"browser"`
	Server  ServerConfig   `json:"server"`

	// Database holds the submission journal, leave it empty to run
	// without one.
	Database configlibsql.Struct `json:"database"`
}

var defaultConfig = Config{
	Portal: portal.Config{
		LoginURL:           portal.DefaultLoginURL,
		ActivityURL:        portal.DefaultActivityURL,
		HistoryURL:         portal.DefaultHistoryURL,
		WaitTimeoutSeconds: 10,
		SettleDelaySeconds: 5,
		SessionTTLMinutes:  30,
		MaxBrowsers:        4,
	},
	Server: ServerConfig{
		Port:                 8000,
		JournalRetentionDays: 90,
		Config: actassist.Config{
			SessionTTLMinutes: 8 * 60,
		},
	},
}
