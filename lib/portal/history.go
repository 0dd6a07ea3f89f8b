package portal

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
)

// FetchHistoryText returns the rendered text of the first table on the
// history page.
func FetchHistoryText(ctx context.Context, page Page, historyURL string, timeout time.Duration) (string, error) {
	ctx, span := tracer.Start(ctx, "portal:FetchHistoryText")
	defer span.End()

	text, err := fetchHistoryText(ctx, page, historyURL, timeout)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read history table")
		return "", err
	}
	return text, nil
}

func fetchHistoryText(ctx context.Context, page Page, historyURL string, timeout time.Duration) (string, error) {
	err := page.Navigate(ctx, historyURL)
	if err != nil {
		return "", err
	}
	err = page.WaitPresent(ctx, historyTable, timeout)
	if err != nil {
		return "", err
	}
	return page.Text(ctx, historyTable)
}
