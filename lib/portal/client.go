package portal

import (
	"context"
	"errors"
	"strings"
	"time"

	"actassist-backend/lib/browser"
	"actassist-backend/lib/history"
	"actassist-backend/lib/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

const (
	report_browser_acquire = "browser.acquire"
	report_browser_close   = "browser.close"
	report_login           = "login"
	report_session_store   = "session.store"
	report_session_stale   = "session.stale"
	report_list_activities = "list-activities"
	report_submit          = "submit"
	report_history         = "history"
)

const (
	msgUnknownActivity = "ไม่พบกิจกรรมที่เลือกในระบบ"
	msgNoConfirmation  = "ระบบไม่ยืนยันการบันทึกโค้ด"
)

// how long a restored session gets to show the logout link
const sessionCheckTimeout = 3 * time.Second

const sessionCacheSize = 256

type Config struct {
	LoginURL    string `json:"login_url"`
	ActivityURL string `json:"activity_url"`
	HistoryURL  string `json:"history_url"`

	WaitTimeoutSeconds int `json:"wait_timeout_seconds"`
	SettleDelaySeconds int `json:"settle_delay_seconds"`
	// SubmitSignal is a css selector of an element the portal shows after a
	// successful submission. Without one the settle delay is used.
	SubmitSignal string `json:"submit_signal"`
	// SubmitHeadless hides the browser while submitting, the portal has
	// historically been driven with a visible one there.
	SubmitHeadless bool `json:"submit_headless"`
	// ShowBrowser makes every other operation visible too.
	ShowBrowser bool `json:"show_browser"`

	ReuseSessions     bool `json:"reuse_sessions"`
	SessionTTLMinutes int  `json:"session_ttl_minutes"`
	MaxBrowsers       int  `json:"max_browsers"`
}

func (c Config) loginURL() string {
	if c.LoginURL == "" {
		return DefaultLoginURL
	}
	return c.LoginURL
}

func (c Config) activityURL() string {
	if c.ActivityURL == "" {
		return DefaultActivityURL
	}
	return c.ActivityURL
}

func (c Config) historyURL() string {
	if c.HistoryURL == "" {
		return DefaultHistoryURL
	}
	return c.HistoryURL
}

func (c Config) waitTimeout() time.Duration {
	if c.WaitTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.WaitTimeoutSeconds) * time.Second
}

func (c Config) settleDelay() time.Duration {
	if c.SettleDelaySeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.SettleDelaySeconds) * time.Second
}

func (c Config) sessionTTL() time.Duration {
	if c.SessionTTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

func (c Config) maxBrowsers() int64 {
	if c.MaxBrowsers <= 0 {
		return 4
	}
	return int64(c.MaxBrowsers)
}

// AcquireFunc opens a fresh page, the client closes it when the operation
// is done.
type AcquireFunc func(ctx context.Context, headless bool) (Page, error)

// FromProvider adapts a browser provider to an AcquireFunc.
func FromProvider(provider *browser.Provider) AcquireFunc {
	return func(ctx context.Context, headless bool) (Page, error) {
		handle, err := provider.Acquire(ctx, headless)
		if err != nil {
			return nil, err
		}
		return handle, nil
	}
}

// AuthError is returned by operations that could not log in.
type AuthError struct {
	Result AuthResult
}

func (e *AuthError) Error() string {
	if e.Result.Err != nil {
		return string(e.Result.Reason) + ": " + e.Result.Err.Error()
	}
	return string(e.Result.Reason)
}

// Client runs the portal operations, each on its own browser. All methods
// are safe for concurrent use and report failures in their result rather
// than as errors.
type Client struct {
	acquire  AcquireFunc
	cfg      Config
	timing   submitTiming
	sessions *SessionCache
	browsers *semaphore.Weighted
	tel      telemetry.API
}

type clientConfig struct {
	cfg Config
	tel telemetry.API
}

type ClientOption func(cfg *clientConfig)

func WithConfig(cfg Config) ClientOption {
	return func(c *clientConfig) {
		c.cfg = cfg
	}
}

func WithCustomTelemetryAPI(tel telemetry.API) ClientOption {
	return func(c *clientConfig) {
		c.tel = tel
	}
}

func NewClient(acquire AcquireFunc, options ...ClientOption) *Client {
	opts := clientConfig{}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.tel == nil {
		opts.tel = telemetry.SlogAPI{}
	}

	c := &Client{
		acquire: acquire,
		cfg:     opts.cfg,
		timing: submitTiming{
			waitTimeout: opts.cfg.waitTimeout(),
			settleDelay: opts.cfg.settleDelay(),
		},
		browsers: semaphore.NewWeighted(opts.cfg.maxBrowsers()),
		tel:      telemetry.NewScopedAPI("portal", opts.tel),
	}
	if opts.cfg.SubmitSignal != "" {
		c.timing.signal = browser.CSS(opts.cfg.SubmitSignal)
	}
	if opts.cfg.ReuseSessions {
		c.sessions = NewSessionCache(sessionCacheSize, opts.cfg.sessionTTL())
	}
	return c
}

// Sessions is the session cache, nil when sessions are not reused.
func (c *Client) Sessions() *SessionCache {
	return c.sessions
}

func (c *Client) withPage(ctx context.Context, headless bool, fn func(context.Context, Page) error) error {
	err := c.browsers.Acquire(ctx, 1)
	if err != nil {
		return err
	}
	defer c.browsers.Release(1)

	page, err := c.acquire(ctx, headless)
	if err != nil {
		c.tel.ReportBroken(report_browser_acquire, err)
		return err
	}
	defer func() {
		err := page.Close()
		if err != nil {
			c.tel.ReportWarning(report_browser_close, err)
		}
	}()

	return fn(ctx, page)
}

// withSession runs fn on a logged in page. targetURL is the page fn works
// on, a restored session is checked there.
func (c *Client) withSession(ctx context.Context, headless bool, cred Credential, targetURL string, fn func(context.Context, Page) error) error {
	return c.withPage(ctx, headless, func(ctx context.Context, page Page) error {
		auth := c.ensureSession(ctx, page, cred, targetURL)
		if !auth.OK {
			return &AuthError{Result: auth}
		}
		return fn(ctx, page)
	})
}

func (c *Client) login(ctx context.Context, page Page, cred Credential) AuthResult {
	result := Authenticate(ctx, page, c.cfg.loginURL(), cred, c.timing.waitTimeout)
	if !result.OK {
		if c.sessions != nil {
			c.sessions.Forget(cred)
		}
		c.tel.ReportWarning(report_login, string(result.Reason), result.Err)
		return result
	}
	if c.sessions == nil {
		return result
	}

	cookies, err := page.Cookies(ctx)
	if err != nil {
		c.tel.ReportWarning(report_session_store, err)
		return result
	}
	c.sessions.Put(cred, cookies)
	return result
}

// ensureSession restores cached cookies when there are any and falls back
// to the login form when the portal does not accept them.
func (c *Client) ensureSession(ctx context.Context, page Page, cred Credential, targetURL string) AuthResult {
	if c.sessions != nil {
		if session, ok := c.sessions.Get(cred); ok {
			if c.restore(ctx, page, session, targetURL) {
				return AuthResult{OK: true, Reason: ReasonOK}
			}
			c.sessions.Forget(cred)
			c.tel.ReportDebug(report_session_stale)
		}
	}
	return c.login(ctx, page, cred)
}

func (c *Client) restore(ctx context.Context, page Page, session Session, targetURL string) bool {
	err := page.SetCookies(ctx, session.Cookies)
	if err != nil {
		return false
	}
	err = page.Navigate(ctx, targetURL)
	if err != nil {
		return false
	}
	return page.WaitPresent(ctx, logoutLink, sessionCheckTimeout) == nil
}

// failureMessage turns an operation error into the message shown to users.
func (c *Client) failureMessage(span trace.Span, id, prefix string, err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		span.SetStatus(codes.Error, string(authErr.Result.Reason))
		return authErr.Result.Message
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.tel.ReportWarning(id, err)

	switch {
	case errors.Is(err, ErrUnknownActivity):
		return msgUnknownActivity
	case errors.Is(err, ErrNoConfirmation):
		return msgNoConfirmation
	}
	return prefix + err.Error()
}

// Verify logs in with a fresh browser.
func (c *Client) Verify(ctx context.Context, cred Credential) AuthResult {
	ctx, span := tracer.Start(ctx, "portal:Verify")
	defer span.End()

	if cred.empty() {
		return authFailure(ReasonInvalidCredentials, msgInvalidCredentials, nil)
	}

	var result AuthResult
	err := c.withPage(ctx, !c.cfg.ShowBrowser, func(ctx context.Context, page Page) error {
		result = c.login(ctx, page, cred)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "browser unavailable")
		return authFailure(ReasonBrowser, msgBrowserError+err.Error(), err)
	}
	span.SetAttributes(attribute.String("reason", string(result.Reason)))
	return result
}

func (c *Client) ListActivities(ctx context.Context, cred Credential) Result {
	ctx, span := tracer.Start(ctx, "portal:ListActivities")
	defer span.End()

	if cred.empty() {
		return failure(MessageNotLoggedIn)
	}

	var options []ActivityOption
	err := c.withSession(ctx, !c.cfg.ShowBrowser, cred, c.cfg.activityURL(), func(ctx context.Context, page Page) error {
		var err error
		options, err = ListActivities(ctx, page, c.cfg.activityURL(), c.timing.waitTimeout)
		return err
	})
	if err != nil {
		return failure(c.failureMessage(span, report_list_activities, msgBrowserError, err))
	}
	span.SetAttributes(attribute.Int("activities", len(options)))
	return Result{Success: true, Activities: options}
}

// Submit enters code for activityID. The input is validated before any
// browser is started.
func (c *Client) Submit(ctx context.Context, cred Credential, code, activityID string) Result {
	ctx, span := tracer.Start(ctx, "portal:Submit")
	defer span.End()

	if cred.empty() {
		return failure(MessageNotLoggedIn)
	}
	if code == "" || activityID == "" {
		return failure(msgMissingInput)
	}
	segments, err := SplitCode(code)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return failure(msgIncompleteCode)
	}

	var dialog string
	err = c.withSession(ctx, c.cfg.SubmitHeadless, cred, c.cfg.activityURL(), func(ctx context.Context, page Page) error {
		var err error
		dialog, err = SubmitCode(ctx, page, c.cfg.activityURL(), activityID, segments, c.timing)
		return err
	})
	if err != nil {
		return failure(c.failureMessage(span, report_submit, msgBrowserError, err))
	}

	message := msgSubmitted
	if dialog = strings.TrimSpace(dialog); dialog != "" {
		message += " (" + dialog + ")"
	}
	return Result{Success: true, Message: message}
}

func (c *Client) History(ctx context.Context, cred Credential) HistoryResult {
	ctx, span := tracer.Start(ctx, "portal:History")
	defer span.End()

	if cred.empty() {
		return historyFailure(MessageNotLoggedIn)
	}

	var text string
	err := c.withSession(ctx, !c.cfg.ShowBrowser, cred, c.cfg.historyURL(), func(ctx context.Context, page Page) error {
		var err error
		text, err = FetchHistoryText(ctx, page, c.cfg.historyURL(), c.timing.waitTimeout)
		return err
	})
	if err != nil {
		return historyFailure(c.failureMessage(span, report_history, msgHistoryError, err))
	}

	records := history.Parse(text)
	compulsory, supplementary := history.Partition(records)
	span.SetAttributes(
		attribute.Int("compulsory", len(compulsory)),
		attribute.Int("supplementary", len(supplementary)),
	)
	return HistoryResult{
		Success:       true,
		Compulsory:    compulsory,
		Supplementary: supplementary,
	}
}

func historyFailure(message string) HistoryResult {
	return HistoryResult{
		Success:       false,
		Message:       message,
		Compulsory:    []history.Record{},
		Supplementary: []history.Record{},
	}
}
