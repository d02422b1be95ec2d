package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements the pipeline metrics using Prometheus.
type Recorder struct {
	polls          *prometheus.CounterVec
	fetchLatency   *prometheus.HistogramVec
	analysisTime   *prometheus.HistogramVec
	analysisErrors *prometheus.CounterVec
	renderErrors   *prometheus.CounterVec
	lastPrice      *prometheus.GaugeVec
	queueDepth     *prometheus.GaugeVec
	activeSessions prometheus.Gauge
}

// New creates a recorder registered on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		polls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finwatch_polls_total",
				Help: "Polls per symbol by outcome (accepted, suppressed, no_data, error)",
			},
			[]string{"symbol", "outcome"},
		),
		fetchLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finwatch_fetch_duration_seconds",
				Help:    "Duration of data source fetches",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"symbol"},
		),
		analysisTime: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finwatch_analysis_duration_seconds",
				Help:    "Duration of batch analysis",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"symbol"},
		),
		analysisErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finwatch_analysis_errors_total",
				Help: "Batches that failed analysis",
			},
			[]string{"symbol"},
		),
		renderErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finwatch_render_errors_total",
				Help: "Results the view failed to render",
			},
			[]string{"symbol"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "finwatch_last_price",
				Help: "Last close price seen for a symbol",
			},
			[]string{"symbol"},
		),
		queueDepth: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "finwatch_queue_depth",
				Help: "Entries waiting in a session queue",
			},
			[]string{"symbol"},
		),
		activeSessions: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "finwatch_active_sessions",
				Help: "Number of running monitoring sessions",
			},
		),
	}
}

func (r *Recorder) RecordPoll(symbol, outcome string) {
	r.polls.WithLabelValues(symbol, outcome).Inc()
}

func (r *Recorder) RecordFetchLatency(symbol string, d time.Duration) {
	r.fetchLatency.WithLabelValues(symbol).Observe(d.Seconds())
}

// RecordAnalysis observes the duration and counts a failure when err is set.
func (r *Recorder) RecordAnalysis(symbol string, d time.Duration, err error) {
	r.analysisTime.WithLabelValues(symbol).Observe(d.Seconds())
	if err != nil {
		r.analysisErrors.WithLabelValues(symbol).Inc()
	}
}

func (r *Recorder) RecordRenderError(symbol string) {
	r.renderErrors.WithLabelValues(symbol).Inc()
}

func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

func (r *Recorder) SetQueueDepth(symbol string, depth int) {
	r.queueDepth.WithLabelValues(symbol).Set(float64(depth))
}

func (r *Recorder) SetActiveSessions(n int) {
	r.activeSessions.Set(float64(n))
}
