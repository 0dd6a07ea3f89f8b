// Package portal drives the alumni activity portal through a browser: logging
// in, listing activities, submitting scanned codes and reading the history
// page.
//
// The portal has no API, everything here depends on the DOM of three pages
// (login, activity card and history). If the portal changes its markup the
// locators below are what needs to be re-derived.
package portal

import (
	"context"
	"time"

	"actassist-backend/lib/browser"
	"actassist-backend/lib/history"

	"github.com/chromedp/cdproto/network"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("actassist.lib.portal")

const (
	DefaultLoginURL    = "http://alumni.npru.ac.th/activity/index.php"
	DefaultActivityURL = "http://alumni.npru.ac.th/activity/std_card.php"
	DefaultHistoryURL  = "http://alumni.npru.ac.th/activity/std_history.php"
)

var (
	accountField   = browser.ID("account")
	passwordField  = browser.ID("password")
	loginButton    = browser.ID("Login")
	logoutLink     = browser.LinkText("ออกจากระบบ")
	activitySelect = browser.ID("act_id")
	submitButton   = browser.ID("button")
	historyTable   = browser.XPath("//table")
	serialFields   = [CodeSegments]browser.Locator{
		browser.ID("serial1"),
		browser.ID("serial2"),
		browser.ID("serial3"),
		browser.ID("serial4"),
		browser.ID("serial5"),
	}
)

// MessageNotLoggedIn is the failure message of operations run without a
// credential.
const MessageNotLoggedIn = "ไม่ได้ล็อกอิน"

// messages shown to portal users
const (
	msgMissingInput       = "ไม่พบโค้ดหรือไม่ได้เลือกกิจกรรม"
	msgIncompleteCode     = "โค้ดที่สแกนได้ไม่ครบ 25 ตัว"
	msgSubmitted          = "กรอกโค้ดสำเร็จแล้ว!"
	msgBrowserError       = "เกิดข้อผิดพลาดกับเบราว์เซอร์: "
	msgHistoryError       = "เกิดข้อผิดพลาดในการดึงข้อมูลประวัติ: "
	msgInvalidCredentials = "รหัสผ่านหรือชื่อผู้ใช้ไม่ถูกต้อง"
	msgUnreachable        = "ไม่สามารถเชื่อมต่อระบบกิจกรรมได้: "
	msgLoginTimeout       = "หมดเวลารอการเข้าสู่ระบบ"
)

type Credential struct {
	Username string
	Password string
}

func (c Credential) empty() bool {
	return c.Username == "" || c.Password == ""
}

type ActivityOption struct {
	Label      string `json:"text"`
	Identifier string `json:"value"`
}

// Result is the envelope every automation operation returns, failures
// included.
type Result struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message,omitempty"`
	Activities []ActivityOption `json:"activities,omitempty"`
}

func failure(message string) Result {
	return Result{Success: false, Message: message}
}

type HistoryResult struct {
	Success       bool             `json:"success"`
	Message       string           `json:"message,omitempty"`
	Compulsory    []history.Record `json:"compulsory_activities"`
	Supplementary []history.Record `json:"supplementary_activities"`
}

// Page is a single browser tab, *browser.Handle implements it.
//
// note: fault injection point
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitPresent(ctx context.Context, loc browser.Locator, timeout time.Duration) error
	SendKeys(ctx context.Context, loc browser.Locator, text string) error
	Click(ctx context.Context, loc browser.Locator) error
	SelectValue(ctx context.Context, loc browser.Locator, value string) error
	OuterHTML(ctx context.Context, loc browser.Locator) (string, error)
	Text(ctx context.Context, loc browser.Locator) (string, error)
	Cookies(ctx context.Context) ([]*network.Cookie, error)
	SetCookies(ctx context.Context, cookies []*network.CookieParam) error
	Dialogs() <-chan string
	Close() error
}

// drainDialogs discards dialogs that are already pending and returns the
// last one.
func drainDialogs(page Page) string {
	last := ""
	for {
		select {
		case msg := <-page.Dialogs():
			last = msg
		default:
			return last
		}
	}
}
