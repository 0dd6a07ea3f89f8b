package portal

import (
	"context"
	"fmt"
	"time"

	"actassist-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
)

// Probe checks that the portal answers at all, without a browser. It lets
// operators tell an unreachable portal apart from rejected credentials.
type Probe struct {
	client *resty.Client
	url    string
}

func NewProbe(loginURL string) *Probe {
	if loginURL == "" {
		loginURL = DefaultLoginURL
	}
	client := resty.New().
		SetTimeout(10*time.Second).
		SetHeader("user-agent", "actassist-probe/1")
	telemetry.InstrumentResty(client, "actassist/portal/probe")
	return &Probe{client: client, url: loginURL}
}

func (p *Probe) URL() string {
	return p.url
}

func (p *Probe) Check(ctx context.Context) error {
	res, err := p.client.R().
		SetContext(ctx).
		Get(p.url)
	if err != nil {
		return fmt.Errorf("portal unreachable: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("portal returned %s", res.Status())
	}
	return nil
}
