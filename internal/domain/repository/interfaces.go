package repository

import (
	"context"
	"time"

	"FinWatch/internal/domain/models"
)

// PriceSource fetches close prices for a symbol. A nil batch with a nil
// error means the source had no data.
type PriceSource interface {
	Fetch(ctx context.Context, symbol, period, interval string) (models.Batch, error)
	Name() string
}

// View is the presentation endpoint of one monitored symbol.
type View interface {
	Render(ctx context.Context, result *models.Result) error
	IsAlive() bool
	Close() error
}

// ViewFactory creates one view per started session.
type ViewFactory interface {
	NewView(symbol string, cfg models.PollConfig) (View, error)
}

// Notifier surfaces user-visible messages.
type Notifier interface {
	Info(symbol, msg string)
	Warn(symbol, msg string)
	Error(symbol, msg string)
}

// ResultPublisher forwards analysis results downstream.
type ResultPublisher interface {
	Publish(ctx context.Context, result *models.Result) error
}

// ResultStore keeps the most recent result per symbol.
type ResultStore interface {
	Put(ctx context.Context, result *models.Result) error
	Get(ctx context.Context, symbol string) (*models.Result, bool, error)
	Delete(ctx context.Context, symbol string) error
}

// Exporter writes a result to a durable target and returns where it went.
type Exporter interface {
	Export(ctx context.Context, result *models.Result) (string, error)
	Format() string
}

// Metrics is the instrumentation used by the pipeline.
type Metrics interface {
	RecordPoll(symbol, outcome string)
	RecordFetchLatency(symbol string, d time.Duration)
	RecordAnalysis(symbol string, d time.Duration, err error)
	RecordRenderError(symbol string)
	RecordLastPrice(symbol string, price float64)
	SetQueueDepth(symbol string, depth int)
	SetActiveSessions(n int)
}

// Poll outcomes reported to Metrics.RecordPoll.
const (
	PollAccepted   = "accepted"
	PollNoData     = "no_data"
	PollSuppressed = "suppressed"
	PollError      = "error"
)

// NopMetrics discards all measurements.
type NopMetrics struct{}

func (NopMetrics) RecordPoll(string, string)                   {}
func (NopMetrics) RecordFetchLatency(string, time.Duration)    {}
func (NopMetrics) RecordAnalysis(string, time.Duration, error) {}
func (NopMetrics) RecordRenderError(string)                    {}
func (NopMetrics) RecordLastPrice(string, float64)             {}
func (NopMetrics) SetQueueDepth(string, int)                   {}
func (NopMetrics) SetActiveSessions(int)                       {}
