package chrono

import (
	"errors"
	"testing"
	"time"

	"actassist-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func TestCronRuns(t *testing.T) {
	scheduler := NewStandardCron(&telemetry.RecorderAPI{})
	defer scheduler.Stop()

	ran := make(chan struct{}, 1)
	err := scheduler.Cron("@every 1s", func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestCronInvalidSpec(t *testing.T) {
	scheduler := NewStandardCron(nil)
	defer scheduler.Stop()
	require.Error(t, scheduler.Cron("every now and then", func() {}))
}

func TestCronLogger(t *testing.T) {
	tel := &telemetry.RecorderAPI{}
	logger := cronLogger{tel: tel}

	logger.Info("schedule", "entry", 1, "dangling")
	logger.Error(errors.New("boom"), "run")

	events := tel.Events()
	require.Len(t, events, 2)
	require.Equal(t, telemetry.EventDebug, events[0].Kind)
	require.Equal(t, []any{"schedule", "entry: 1"}, events[0].Params)
	require.Equal(t, telemetry.EventBroken, events[1].Kind)
	require.EqualError(t, events[1].Params[0].(error), "run: boom")
}

func TestBangkok(t *testing.T) {
	noonUTC := time.Date(2024, 6, 1, 5, 0, 0, 0, time.UTC)
	require.Equal(t, 12, noonUTC.In(Bangkok).Hour())
}
