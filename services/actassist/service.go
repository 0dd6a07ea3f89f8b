// Package actassist serves the portal automation as a small JSON API for the
// scanning frontend. Logged in users are identified by a random session
// token, their credentials never leave the process.
package actassist

import (
	"context"
	"net/http"
	"time"

	"actassist-backend/lib/portal"
	"actassist-backend/lib/telemetry"
	"actassist-backend/services/actassist/db"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("actassist.services.actassist")

const (
	report_login         = "login"
	report_logout        = "logout"
	report_session       = "session.create"
	report_bad_request   = "bad-request"
	report_write         = "write-response"
	report_probe         = "probe"
	report_session_size  = "session.count"
	report_journal       = "journal"
	report_journal_prune = "journal.prune"
)

const SessionCookie = "actassist_session"

// Automation is what the service needs from the portal, *portal.Client
// implements it.
//
// note: fault injection point
type Automation interface {
	Verify(ctx context.Context, cred portal.Credential) portal.AuthResult
	ListActivities(ctx context.Context, cred portal.Credential) portal.Result
	Submit(ctx context.Context, cred portal.Credential, code, activityID string) portal.Result
	History(ctx context.Context, cred portal.Credential) portal.HistoryResult
}

type Checker interface {
	Check(ctx context.Context) error
}

type Config struct {
	SessionTTLMinutes int  `json:"session_ttl_minutes"`
	MaxSessions       int  `json:"max_sessions"`
	SecureCookie      bool `json:"secure_cookie"`
}

func (c Config) sessionTTL() time.Duration {
	if c.SessionTTLMinutes <= 0 {
		return 8 * time.Hour
	}
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

func (c Config) maxSessions() int {
	if c.MaxSessions <= 0 {
		return 1024
	}
	return c.MaxSessions
}

type Service struct {
	automation Automation
	probe      Checker
	sessions   *credentialStore
	journal    *db.Queries
	cfg        Config
	tel        telemetry.API
}

type serviceConfig struct {
	tel     telemetry.API
	journal *db.Queries
}

type ServiceOption func(cfg *serviceConfig)

func WithCustomTelemetryAPI(tel telemetry.API) ServiceOption {
	return func(cfg *serviceConfig) {
		cfg.tel = tel
	}
}

// WithJournal records every submission, without it /submissions is
// always empty.
func WithJournal(journal *db.Queries) ServiceOption {
	return func(cfg *serviceConfig) {
		cfg.journal = journal
	}
}

// NewService creates a Service, probe may be nil in which case /healthz
// only reports that the process is up.
func NewService(automation Automation, probe Checker, cfg Config, options ...ServiceOption) *Service {
	opts := serviceConfig{}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.tel == nil {
		opts.tel = telemetry.SlogAPI{}
	}

	return &Service{
		automation: automation,
		probe:      probe,
		sessions:   newCredentialStore(cfg.maxSessions(), cfg.sessionTTL()),
		journal:    opts.journal,
		cfg:        cfg,
		tel:        telemetry.NewScopedAPI("service", opts.tel),
	}
}

// Handler routes every endpoint of the service.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("GET /activities", s.handleActivities)
	mux.HandleFunc("POST /submit", s.handleSubmit)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("GET /submissions", s.handleSubmissions)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}
