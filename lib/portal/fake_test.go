package portal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"actassist-backend/lib/browser"

	"github.com/chromedp/cdproto/network"
)

const (
	testLoginURL    = "http://portal.test/activity/index.php"
	testActivityURL = "http://portal.test/activity/std_card.php"
	testHistoryURL  = "http://portal.test/activity/std_history.php"
)

var testCredential = Credential{Username: "6401234567", Password: "s3cret"}

const testActivitySelect = `<select id="act_id" name="act_id">
	<option value="">-- เลือกกิจกรรม --</option>
	<option value="101">ปฐมนิเทศนักศึกษาใหม่</option>
	<option value="102">  บริจาคโลหิต  </option>
	<option value="  ">ว่าง</option>
	<option value="103"></option>
	<option>Sports Day</option>
</select>`

type submission struct {
	activity string
	serials  [CodeSegments]string
}

// fakePortal is the server side of the fake: accounts, sessions and what was
// submitted. Every acquired page shares it.
type fakePortal struct {
	lock sync.Mutex

	cred         Credential
	sessionValue string
	selectHTML   string
	historyText  string

	// failure switches
	navigateErr   error
	missingForm   bool
	loginDialog   string
	submitDialog  string
	showSignal    bool
	hangOnLogin   bool
	acquireErr    error
	revokeSession bool

	acquired    int
	pages       []*fakePage
	logins      int
	submissions []submission
}

func newFakePortal() *fakePortal {
	return &fakePortal{
		cred:         testCredential,
		sessionValue: "session-1",
		selectHTML:   testActivitySelect,
	}
}

func (p *fakePortal) acquire(ctx context.Context, headless bool) (Page, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	p.acquired++
	page := &fakePage{portal: p, headless: headless, typed: map[string]string{}, dialogs: make(chan string, 8)}
	p.pages = append(p.pages, page)
	return page, nil
}

func (p *fakePortal) testConfig() Config {
	return Config{
		LoginURL:    testLoginURL,
		ActivityURL: testActivityURL,
		HistoryURL:  testHistoryURL,
		// keeps the settle delay out of the tests
		SettleDelaySeconds: 1,
	}
}

func (p *fakePortal) acquireCount() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.acquired
}

func (p *fakePortal) loginCount() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.logins
}

func (p *fakePortal) allClosed() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	for _, page := range p.pages {
		if !page.closed {
			return false
		}
	}
	return true
}

// fakePage is a single tab. Element presence is derived from the current url
// and whether the tab is logged in.
type fakePage struct {
	portal   *fakePortal
	headless bool

	url         string
	navigations []string
	loggedIn    bool
	typed       map[string]string
	selected    string
	signal      bool
	closed      bool
	dialogs     chan string
}

var errFakeMissing = errors.New("fake: element missing")

func (f *fakePage) present(loc browser.Locator) bool {
	p := f.portal
	switch loc {
	case accountField, passwordField, loginButton:
		return f.url == testLoginURL && !f.loggedIn && !p.missingForm
	case logoutLink:
		return f.loggedIn && f.url != ""
	case activitySelect, submitButton, serialFields[0], serialFields[1], serialFields[2], serialFields[3], serialFields[4]:
		return f.loggedIn && f.url == testActivityURL
	case historyTable:
		return f.loggedIn && f.url == testHistoryURL
	}
	return f.signal && !loc.IsZero()
}

func (f *fakePage) Navigate(ctx context.Context, url string) error {
	f.portal.lock.Lock()
	defer f.portal.lock.Unlock()
	if f.portal.navigateErr != nil {
		return fmt.Errorf("%w: %s: %w", browser.ErrNavigation, url, f.portal.navigateErr)
	}
	f.url = url
	f.navigations = append(f.navigations, url)
	return nil
}

func (f *fakePage) WaitPresent(ctx context.Context, loc browser.Locator, timeout time.Duration) error {
	f.portal.lock.Lock()
	defer f.portal.lock.Unlock()
	if !f.present(loc) {
		return fmt.Errorf("%w: %s (%s)", browser.ErrWaitTimeout, loc, timeout)
	}
	return nil
}

func (f *fakePage) SendKeys(ctx context.Context, loc browser.Locator, text string) error {
	f.portal.lock.Lock()
	defer f.portal.lock.Unlock()
	if !f.present(loc) {
		return fmt.Errorf("%w: %s", browser.ErrElementNotFound, loc)
	}
	f.typed[loc.String()] += text
	return nil
}

func (f *fakePage) Click(ctx context.Context, loc browser.Locator) error {
	p := f.portal
	p.lock.Lock()
	defer p.lock.Unlock()
	if !f.present(loc) {
		return fmt.Errorf("%w: %s", browser.ErrElementNotFound, loc)
	}

	switch loc {
	case loginButton:
		p.logins++
		if p.hangOnLogin {
			// the form is gone but the portal never answers
			f.url = testLoginURL + "?pending"
			return nil
		}
		if f.typed[accountField.String()] == p.cred.Username && f.typed[passwordField.String()] == p.cred.Password {
			f.loggedIn = true
			return nil
		}
		if p.loginDialog != "" {
			f.dialogs <- p.loginDialog
		}
	case submitButton:
		var s submission
		s.activity = f.selected
		for i, field := range serialFields {
			s.serials[i] = f.typed[field.String()]
		}
		p.submissions = append(p.submissions, s)
		if p.submitDialog != "" {
			f.dialogs <- p.submitDialog
		}
		f.signal = p.showSignal
	}
	return nil
}

func (f *fakePage) SelectValue(ctx context.Context, loc browser.Locator, value string) error {
	f.portal.lock.Lock()
	defer f.portal.lock.Unlock()
	if !f.present(loc) {
		return fmt.Errorf("%w: %s", browser.ErrElementNotFound, loc)
	}
	f.selected = value
	return nil
}

func (f *fakePage) OuterHTML(ctx context.Context, loc browser.Locator) (string, error) {
	f.portal.lock.Lock()
	defer f.portal.lock.Unlock()
	if loc != activitySelect || !f.present(loc) {
		return "", errFakeMissing
	}
	return f.portal.selectHTML, nil
}

func (f *fakePage) Text(ctx context.Context, loc browser.Locator) (string, error) {
	f.portal.lock.Lock()
	defer f.portal.lock.Unlock()
	if loc != historyTable || !f.present(loc) {
		return "", errFakeMissing
	}
	return f.portal.historyText, nil
}

func (f *fakePage) Cookies(ctx context.Context) ([]*network.Cookie, error) {
	f.portal.lock.Lock()
	defer f.portal.lock.Unlock()
	if !f.loggedIn {
		return nil, nil
	}
	return []*network.Cookie{{
		Name:    "PHPSESSID",
		Value:   f.portal.sessionValue,
		Domain:  "portal.test",
		Path:    "/",
		Session: true,
	}}, nil
}

func (f *fakePage) SetCookies(ctx context.Context, cookies []*network.CookieParam) error {
	f.portal.lock.Lock()
	defer f.portal.lock.Unlock()
	for _, c := range cookies {
		if c.Name == "PHPSESSID" && c.Value == f.portal.sessionValue && !f.portal.revokeSession {
			f.loggedIn = true
		}
	}
	return nil
}

func (f *fakePage) Dialogs() <-chan string {
	return f.dialogs
}

func (f *fakePage) Close() error {
	f.portal.lock.Lock()
	defer f.portal.lock.Unlock()
	f.closed = true
	return nil
}
