package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ControlLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finwatch",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of control API endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	ControlErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finwatch",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by control API endpoint",
		},
		[]string{"endpoint"},
	)

	ControlOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finwatch",
			Subsystem: "api",
			Name:      "outcomes_total",
			Help:      "Start/stop outcomes reported to callers",
		},
		[]string{"outcome"},
	)

	Exports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finwatch",
			Subsystem: "api",
			Name:      "exports_total",
			Help:      "Exports by format and result",
		},
		[]string{"format", "result"},
	)
)

// Register adds the API collectors to the default registerer once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(ControlLatency, ControlErrors, ControlOutcomes, Exports)
	})
}

// ObserveSince records the latency of endpoint since start.
func ObserveSince(endpoint string, start time.Time) {
	ControlLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
