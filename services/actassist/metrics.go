package actassist

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	operationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "actassist",
		Subsystem: "automation",
		Name:      "operations_total",
		Help:      "Number of portal operations by outcome.",
	}, []string{"operation", "outcome"})

	operationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "actassist",
		Subsystem: "automation",
		Name:      "duration_seconds",
		Help:      "Time spent running a portal operation, browser start included.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
	}, []string{"operation"})

	activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "actassist",
		Subsystem: "service",
		Name:      "sessions",
		Help:      "Number of logged in sessions held in memory.",
	})
)

func init() {
	prometheus.MustRegister(operationsTotal, operationDuration, activeSessions)
}

const (
	opVerify     = "verify"
	opActivities = "activities"
	opSubmit     = "submit"
	opHistory    = "history"
)

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// recordOperation updates the operation counters, start is when the
// operation was handed to the portal client.
func recordOperation(operation string, start time.Time, success bool) {
	operationsTotal.WithLabelValues(operation, outcome(success)).Inc()
	operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
