package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("actassist.lib.browser")

var (
	ErrNavigation      = errors.New("navigation failed")
	ErrWaitTimeout     = errors.New("timed out waiting for element")
	ErrElementNotFound = errors.New("element not found")
	ErrNoSuchOption    = errors.New("no such option")
)

// Provider launches browser instances, one per Acquire call. The executable
// is resolved once when the provider is created.
type Provider struct {
	cfg      Config
	execPath string
}

func NewProvider(cfg Config) (*Provider, error) {
	p := &Provider{cfg: cfg}
	if cfg.RemoteURL != "" {
		return p, nil
	}
	execPath, err := ResolveExecPath(cfg.ExecPath)
	if err != nil {
		return nil, err
	}
	p.execPath = execPath
	slog.Debug("resolved browser executable", "path", execPath)
	return p, nil
}

// ExecPath is the resolved executable, empty for remote providers.
func (p *Provider) ExecPath() string {
	return p.execPath
}

// contextOptions gives every remote handle its own browser context, so tabs
// of concurrent or consecutive calls never share cookies. A launched browser
// is already private to its handle.
func (p *Provider) contextOptions() []chromedp.ContextOption {
	if p.cfg.RemoteURL == "" {
		return nil
	}
	return []chromedp.ContextOption{chromedp.WithNewBrowserContext()}
}

// Acquire starts a fresh browser. The caller must Close the handle on every
// exit path. headless has no effect on remote browsers.
func (p *Provider) Acquire(ctx context.Context, headless bool) (*Handle, error) {
	ctx, span := tracer.Start(ctx, "browser:Acquire")
	defer span.End()
	span.SetAttributes(attribute.Bool("headless", headless))

	var allocCtx context.Context
	var cancelAlloc context.CancelFunc
	if p.cfg.RemoteURL != "" {
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(context.WithoutCancel(ctx), p.cfg.RemoteURL)
	} else {
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(
			context.WithoutCancel(ctx),
			p.cfg.allocatorOptions(p.execPath, headless)...,
		)
	}
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, p.contextOptions()...)

	h := &Handle{
		ctx:               browserCtx,
		navigationTimeout: p.cfg.navigationTimeout(),
		actionTimeout:     p.cfg.actionTimeout(),
		dialogs:           make(chan string, 8),
		cancel: func() {
			cancelBrowser()
			cancelAlloc()
		},
	}
	chromedp.ListenTarget(browserCtx, h.onTargetEvent)

	// the first Run starts the browser process and ties it to the context it
	// is given, so it must not run under a derived timeout
	stop := context.AfterFunc(ctx, h.cancel)
	err := chromedp.Run(browserCtx)
	stopped := stop()
	if err == nil && !stopped {
		err = ctx.Err()
	}
	if err != nil {
		h.cancel()
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to start browser")
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return h, nil
}

// Handle is a single running browser with one tab.
type Handle struct {
	ctx               context.Context
	cancel            func()
	navigationTimeout time.Duration
	actionTimeout     time.Duration
	dialogs           chan string
}

func (h *Handle) onTargetEvent(ev any) {
	e, ok := ev.(*page.EventJavascriptDialogOpening)
	if !ok {
		return
	}
	select {
	case h.dialogs <- e.Message:
	default:
	}
	// the dialog blocks the page until it is handled, and the handler must
	// not run on the event goroutine
	go func() {
		err := chromedp.Run(h.ctx, page.HandleJavaScriptDialog(true))
		if err != nil && h.ctx.Err() == nil {
			slog.Debug("failed to accept dialog", "err", err)
		}
	}()
}

// run executes actions in the browser, bounded by timeout (if > 0) and by
// the caller's ctx.
func (h *Handle) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx := h.ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(runCtx)
	}
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func isDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

func (h *Handle) Navigate(ctx context.Context, url string) error {
	err := h.run(ctx, h.navigationTimeout, chromedp.Navigate(url))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNavigation, url, err)
	}
	return nil
}

// WaitPresent blocks until the element exists in the DOM or timeout elapses.
func (h *Handle) WaitPresent(ctx context.Context, loc Locator, timeout time.Duration) error {
	err := h.run(ctx, timeout, chromedp.WaitReady(loc.query, loc.queryOption()))
	if isDeadline(err) {
		return fmt.Errorf("%w: %s (%s)", ErrWaitTimeout, loc, timeout)
	}
	return err
}

func (h *Handle) elementAction(ctx context.Context, loc Locator, action chromedp.Action) error {
	err := h.run(ctx, h.actionTimeout, action)
	if isDeadline(err) {
		return fmt.Errorf("%w: %s", ErrElementNotFound, loc)
	}
	return err
}

func (h *Handle) SendKeys(ctx context.Context, loc Locator, text string) error {
	return h.elementAction(ctx, loc, chromedp.SendKeys(loc.query, text, loc.queryOption()))
}

func (h *Handle) Click(ctx context.Context, loc Locator) error {
	return h.elementAction(ctx, loc, chromedp.Click(loc.query, loc.queryOption(), chromedp.NodeVisible))
}

const selectValueJS = `(function(el, value) {
	if (!el) return false;
	el.value = value;
	if (el.value !== value) return false;
	el.dispatchEvent(new Event("input", {bubbles: true}));
	el.dispatchEvent(new Event("change", {bubbles: true}));
	return true;
})(%s, %s)`

func selectValueScript(loc Locator, value string) string {
	literal, _ := json.Marshal(value)
	return fmt.Sprintf(selectValueJS, loc.jsElement(), literal)
}

// SelectValue selects the option with the given value of a <select> and
// fires its change event, like a user picking it.
func (h *Handle) SelectValue(ctx context.Context, loc Locator, value string) error {
	var selected bool
	err := h.elementAction(ctx, loc, chromedp.Tasks{
		chromedp.WaitReady(loc.query, loc.queryOption()),
		chromedp.Evaluate(selectValueScript(loc, value), &selected),
	})
	if err != nil {
		return err
	}
	if !selected {
		return fmt.Errorf("%w: %q in %s", ErrNoSuchOption, value, loc)
	}
	return nil
}

func (h *Handle) OuterHTML(ctx context.Context, loc Locator) (string, error) {
	var html string
	err := h.elementAction(ctx, loc, chromedp.OuterHTML(loc.query, &html, loc.queryOption()))
	return html, err
}

// Text returns the rendered text (innerText) of the element.
func (h *Handle) Text(ctx context.Context, loc Locator) (string, error) {
	var text string
	err := h.elementAction(ctx, loc, chromedp.Text(loc.query, &text, loc.queryOption()))
	return text, err
}

func (h *Handle) Cookies(ctx context.Context) ([]*network.Cookie, error) {
	var cookies []*network.Cookie
	err := h.run(ctx, h.actionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	return cookies, err
}

func (h *Handle) SetCookies(ctx context.Context, cookies []*network.CookieParam) error {
	if len(cookies) == 0 {
		return nil
	}
	return h.run(ctx, h.actionTimeout, network.SetCookies(cookies))
}

// Dialogs receives the messages of javascript dialogs raised by the page.
// Dialogs are accepted automatically.
func (h *Handle) Dialogs() <-chan string {
	return h.dialogs
}

// Close shuts the browser down, it is safe to call more than once.
func (h *Handle) Close() error {
	if h.cancel == nil {
		return nil
	}
	err := chromedp.Cancel(h.ctx)
	h.cancel()
	h.cancel = nil
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// CookieParams converts cookies read from a browser into parameters that
// can be set on another browser.
func CookieParams(cookies []*network.Cookie) []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		param := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: c.SameSite,
		}
		if !c.Session && c.Expires > 0 {
			expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			param.Expires = &expires
		}
		params = append(params, param)
	}
	return params
}
