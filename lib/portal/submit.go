package portal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"actassist-backend/lib/browser"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	CodeLength   = 25
	CodeSegments = 5
	segmentWidth = CodeLength / CodeSegments
)

var (
	ErrIncompleteCode  = errors.New("code must have exactly 25 characters")
	ErrUnknownActivity = errors.New("activity is not offered by the portal")
	ErrNoConfirmation  = errors.New("portal did not confirm the submission")
)

// SplitCode cuts a scanned code into the portal's five serial fields. The
// code is counted in characters, not bytes.
func SplitCode(code string) ([CodeSegments]string, error) {
	var segments [CodeSegments]string
	runes := []rune(code)
	if len(runes) != CodeLength {
		return segments, fmt.Errorf("%w, got %d", ErrIncompleteCode, len(runes))
	}
	for i := range segments {
		segments[i] = string(runes[i*segmentWidth : (i+1)*segmentWidth])
	}
	return segments, nil
}

type submitTiming struct {
	waitTimeout time.Duration
	settleDelay time.Duration
	// zero when the portal has no observable confirmation element
	signal browser.Locator
}

// SubmitCode fills the serial fields of a logged in activity page, picks the
// activity and presses submit. The returned string is the text of the dialog
// the portal raised after submitting, if any.
func SubmitCode(ctx context.Context, page Page, activityURL, activityID string, segments [CodeSegments]string, timing submitTiming) (string, error) {
	ctx, span := tracer.Start(ctx, "portal:SubmitCode")
	defer span.End()
	span.SetAttributes(attribute.String("activity", activityID))

	dialog, err := submitCode(ctx, page, activityURL, activityID, segments, timing)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit failed")
		return "", err
	}
	return dialog, nil
}

func submitCode(ctx context.Context, page Page, activityURL, activityID string, segments [CodeSegments]string, timing submitTiming) (string, error) {
	options, err := openActivityPage(ctx, page, activityURL, timing.waitTimeout)
	if err != nil {
		return "", err
	}
	if !hasActivity(options, activityID) {
		return "", fmt.Errorf("%w: %q", ErrUnknownActivity, activityID)
	}

	err = page.SelectValue(ctx, activitySelect, activityID)
	if err != nil {
		return "", err
	}
	for i, segment := range segments {
		err = page.SendKeys(ctx, serialFields[i], segment)
		if err != nil {
			return "", err
		}
	}

	drainDialogs(page)
	err = page.Click(ctx, submitButton)
	if err != nil {
		return "", err
	}
	return awaitSubmission(ctx, page, timing)
}

// awaitSubmission waits for the portal to react to the submit button. A
// dialog always counts. With a configured signal element the wait fails if
// it never shows up, without one the settle delay is all there is.
func awaitSubmission(ctx context.Context, page Page, timing submitTiming) (string, error) {
	if timing.signal.IsZero() {
		timer := time.NewTimer(timing.settleDelay)
		defer timer.Stop()
		select {
		case dialog := <-page.Dialogs():
			return dialog, nil
		case <-timer.C:
			return "", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	signalErr := make(chan error, 1)
	go func() {
		signalErr <- page.WaitPresent(waitCtx, timing.signal, timing.settleDelay)
	}()

	select {
	case dialog := <-page.Dialogs():
		return dialog, nil
	case err := <-signalErr:
		if err == nil {
			return "", nil
		}
		if errors.Is(err, browser.ErrWaitTimeout) {
			return "", ErrNoConfirmation
		}
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
