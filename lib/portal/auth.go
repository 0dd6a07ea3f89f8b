package portal

import (
	"context"
	"errors"
	"time"

	"actassist-backend/lib/browser"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type AuthReason string

const (
	ReasonOK                 AuthReason = "ok"
	ReasonInvalidCredentials AuthReason = "invalid_credentials"
	ReasonUnreachable        AuthReason = "unreachable"
	ReasonTimeout            AuthReason = "timeout"
	ReasonPageStructure      AuthReason = "page_structure"

	// the browser itself could not be started
	ReasonBrowser AuthReason = "browser"
)

// AuthResult is the outcome of a login attempt. OK is true only when the
// post-login marker appeared, Reason tells callers why it did not.
type AuthResult struct {
	OK      bool       `json:"success"`
	Reason  AuthReason `json:"reason"`
	Message string     `json:"message,omitempty"`
	Err     error      `json:"-"`
}

// how long to look for the login form after the marker wait expired
const loginFormRecheck = time.Second

func authFailure(reason AuthReason, message string, err error) AuthResult {
	return AuthResult{OK: false, Reason: reason, Message: message, Err: err}
}

// Authenticate logs in on the login page and waits up to timeout for the
// logout link that only logged in users see. It never returns an error,
// every failure is described by the result.
func Authenticate(ctx context.Context, page Page, loginURL string, cred Credential, timeout time.Duration) AuthResult {
	ctx, span := tracer.Start(ctx, "portal:Authenticate")
	defer span.End()

	result := authenticate(ctx, page, loginURL, cred, timeout)
	span.SetAttributes(attribute.String("reason", string(result.Reason)))
	if !result.OK {
		if result.Err != nil {
			span.RecordError(result.Err)
		}
		span.SetStatus(codes.Error, string(result.Reason))
	}
	return result
}

func authenticate(ctx context.Context, page Page, loginURL string, cred Credential, timeout time.Duration) AuthResult {
	if cred.empty() {
		return authFailure(ReasonInvalidCredentials, msgInvalidCredentials, nil)
	}

	err := page.Navigate(ctx, loginURL)
	if err != nil {
		return authFailure(ReasonUnreachable, msgUnreachable+err.Error(), err)
	}

	err = page.SendKeys(ctx, accountField, cred.Username)
	if err == nil {
		err = page.SendKeys(ctx, passwordField, cred.Password)
	}
	if err == nil {
		err = page.Click(ctx, loginButton)
	}
	if err != nil {
		return authFailure(ReasonPageStructure, msgBrowserError+err.Error(), err)
	}

	err = page.WaitPresent(ctx, logoutLink, timeout)
	if err == nil {
		return AuthResult{OK: true, Reason: ReasonOK}
	}

	// the portal reports a bad password with an alert
	dialog := drainDialogs(page)
	if dialog != "" {
		return authFailure(ReasonInvalidCredentials, msgInvalidCredentials, errors.New(dialog))
	}
	if !errors.Is(err, browser.ErrWaitTimeout) {
		return authFailure(ReasonUnreachable, msgUnreachable+err.Error(), err)
	}
	if page.WaitPresent(ctx, accountField, loginFormRecheck) == nil {
		return authFailure(ReasonInvalidCredentials, msgInvalidCredentials, err)
	}
	return authFailure(ReasonTimeout, msgLoginTimeout, err)
}
