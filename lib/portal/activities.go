package portal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"actassist-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel/codes"
)

// ListActivities reads the options of the activity dropdown, the page must
// already be logged in.
func ListActivities(ctx context.Context, page Page, activityURL string, timeout time.Duration) ([]ActivityOption, error) {
	ctx, span := tracer.Start(ctx, "portal:ListActivities")
	defer span.End()

	options, err := openActivityPage(ctx, page, activityURL, timeout)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read activity dropdown")
		return nil, err
	}
	return options, nil
}

func openActivityPage(ctx context.Context, page Page, activityURL string, timeout time.Duration) ([]ActivityOption, error) {
	err := page.Navigate(ctx, activityURL)
	if err != nil {
		return nil, err
	}
	err = page.WaitPresent(ctx, activitySelect, timeout)
	if err != nil {
		return nil, err
	}
	html, err := page.OuterHTML(ctx, activitySelect)
	if err != nil {
		return nil, err
	}
	return parseOptions(html)
}

// parseOptions extracts the options of a <select>, skipping options with an
// empty label or value. An option without a value attribute uses its label,
// like the DOM does.
func parseOptions(html string) ([]ActivityOption, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse activity dropdown: %w", err)
	}

	options := []ActivityOption{}
	doc.Find("option").Each(func(_ int, s *goquery.Selection) {
		label := textutil.CollapseSpace(s.Text())
		value, hasValue := s.Attr("value")
		if !hasValue {
			value = label
		}
		value = strings.TrimSpace(value)
		if label == "" || value == "" {
			return
		}
		options = append(options, ActivityOption{Label: label, Identifier: value})
	})
	return options, nil
}

func hasActivity(options []ActivityOption, identifier string) bool {
	for _, o := range options {
		if o.Identifier == identifier {
			return true
		}
	}
	return false
}

const minActivitySimilarity = 0.85

// FindActivity resolves query to an option by exact identifier, then by
// label ignoring case and spacing, then by the most similar label.
func FindActivity(options []ActivityOption, query string) (ActivityOption, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return ActivityOption{}, false
	}
	for _, o := range options {
		if o.Identifier == query {
			return o, true
		}
	}

	normalized := textutil.NormalizeName(query)
	for _, o := range options {
		if textutil.NormalizeName(o.Label) == normalized {
			return o, true
		}
	}

	var best ActivityOption
	var bestSimilarity float64
	for _, o := range options {
		similarity := matchr.JaroWinkler(textutil.NormalizeName(o.Label), normalized, false)
		if similarity > bestSimilarity {
			best = o
			bestSimilarity = similarity
		}
	}
	if bestSimilarity < minActivitySimilarity {
		return ActivityOption{}, false
	}
	return best, true
}
