// Package chrono schedules recurring maintenance in the portal's local
// time.
package chrono

import (
	"fmt"
	"time"

	"actassist-backend/lib/telemetry"

	"github.com/robfig/cron/v3"
)

// Bangkok is the portal's local time, Thailand observes no daylight saving.
var Bangkok = time.FixedZone("ICT", 7*60*60)

// CronAPI is what anything that needs to run on a schedule should depend on.
type CronAPI interface {
	Cron(spec string, callback func()) error
}

// StandardCron implements CronAPI with robfig/cron.
type StandardCron struct {
	cron *cron.Cron
}

// NewStandardCron starts a scheduler, Stop it to wait for running jobs.
func NewStandardCron(tel telemetry.API) StandardCron {
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	cronner := cron.New(
		cron.WithLogger(cronLogger{tel: tel}),
		cron.WithLocation(Bangkok),
	)
	cronner.Start()

	return StandardCron{cron: cronner}
}

func (s StandardCron) Cron(spec string, callback func()) error {
	_, err := s.cron.AddFunc(spec, callback)
	return err
}

func (s StandardCron) Stop() {
	<-s.cron.Stop().Done()
}

type cronLogger struct {
	tel telemetry.API
}

func (l cronLogger) formatParams(keysAndValues []any) []any {
	params := []any{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		params = append(params, fmt.Sprintf("%v: %v", keysAndValues[i], keysAndValues[i+1]))
	}
	return params
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.tel.ReportDebug("cron", append([]any{msg}, l.formatParams(keysAndValues)...)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.tel.ReportBroken(
		"cron",
		append([]any{fmt.Errorf("%s: %w", msg, err)}, l.formatParams(keysAndValues)...)...,
	)
}
