package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"FinWatch/internal/domain/models"
	drepo "FinWatch/internal/domain/repository"
	"FinWatch/internal/services/analysis"
	"FinWatch/pkg/logger"
)

// ErrEmptySymbol is returned when starting a session without a symbol.
var ErrEmptySymbol = errors.New("symbol is required")

// Outcome reports the result of a control operation. Expected races are
// outcomes, not errors.
type Outcome int

const (
	OutcomeStarted Outcome = iota
	OutcomeAlreadyRunning
	OutcomeStopped
	OutcomeNotRunning
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStarted:
		return "started"
	case OutcomeAlreadyRunning:
		return "already_running"
	case OutcomeStopped:
		return "stopped"
	case OutcomeNotRunning:
		return "not_running"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

type monitor struct {
	session  *Session
	queue    *SampleQueue
	consumer *Consumer
	view     drepo.View
	cancel   context.CancelFunc
}

// Registry owns the active monitoring sessions, one per symbol.
type Registry struct {
	mu       sync.Mutex
	monitors map[string]*monitor

	source   drepo.PriceSource
	views    drepo.ViewFactory
	notifier drepo.Notifier
	store    drepo.ResultStore
	pub      drepo.ResultPublisher
	metrics  drepo.Metrics
	log      *logger.Logger
	features analysis.Features

	sessionOpts  []SessionOption
	consumerOpts []ConsumerOption
}

type RegistryOption func(*Registry)

// WithAnalysisFeatures sets the feature set every consumer runs.
func WithAnalysisFeatures(f analysis.Features) RegistryOption {
	return func(r *Registry) { r.features = f }
}

// WithLatestStore sets where consumers keep the latest result per symbol.
func WithLatestStore(s drepo.ResultStore) RegistryOption {
	return func(r *Registry) { r.store = s }
}

// WithPublisher sets the downstream publisher for results.
func WithPublisher(p drepo.ResultPublisher) RegistryOption {
	return func(r *Registry) { r.pub = p }
}

// WithRegistryMetrics sets the metrics sink shared by all sessions.
func WithRegistryMetrics(m drepo.Metrics) RegistryOption {
	return func(r *Registry) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithRegistryLogger sets the logger.
func WithRegistryLogger(l *logger.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithSessionOptions appends options applied to every new session.
func WithSessionOptions(opts ...SessionOption) RegistryOption {
	return func(r *Registry) { r.sessionOpts = append(r.sessionOpts, opts...) }
}

// WithConsumerOptions appends options applied to every new consumer.
func WithConsumerOptions(opts ...ConsumerOption) RegistryOption {
	return func(r *Registry) { r.consumerOpts = append(r.consumerOpts, opts...) }
}

// NewRegistry creates an empty registry.
func NewRegistry(source drepo.PriceSource, views drepo.ViewFactory, notifier drepo.Notifier, opts ...RegistryOption) *Registry {
	r := &Registry{
		monitors: make(map[string]*monitor),
		source:   source,
		views:    views,
		notifier: notifier,
		metrics:  drepo.NopMetrics{},
		log:      logger.Nop(),
		features: analysis.DefaultFeatures(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StartMonitoring creates and starts a session for symbol. An invalid config
// or feature set aborts creation with an error.
func (r *Registry) StartMonitoring(symbol string, cfg models.PollConfig) (Outcome, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return 0, ErrEmptySymbol
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.monitors[symbol]; ok {
		r.notifier.Warn(symbol, AlreadyRunningMessage(symbol))
		return OutcomeAlreadyRunning, nil
	}
	if err := cfg.Validate(); err != nil {
		return 0, fmt.Errorf("start %s: %w", symbol, err)
	}
	if err := r.features.Validate(); err != nil {
		return 0, fmt.Errorf("start %s: %w", symbol, err)
	}

	view, err := r.views.NewView(symbol, cfg)
	if err != nil {
		return 0, fmt.Errorf("start %s: create view: %w", symbol, err)
	}

	log := r.log.With(logger.String("symbol", symbol))
	queue := NewSampleQueue()

	sessionOpts := append([]SessionOption{
		WithSessionMetrics(r.metrics),
		WithSessionLogger(r.log),
	}, r.sessionOpts...)
	session := NewSession(symbol, cfg, r.source, queue, sessionOpts...)

	consumerOpts := append([]ConsumerOption{
		WithFeatures(r.features),
		WithResultStore(r.store),
		WithResultPublisher(r.pub),
		WithConsumerMetrics(r.metrics),
		WithConsumerLogger(r.log),
	}, r.consumerOpts...)
	consumer := NewConsumer(symbol, queue, view, r.notifier, consumerOpts...)

	ctx, cancel := context.WithCancel(context.Background())
	r.monitors[symbol] = &monitor{
		session:  session,
		queue:    queue,
		consumer: consumer,
		view:     view,
		cancel:   cancel,
	}
	session.Start()
	consumer.Start(ctx)
	r.metrics.SetActiveSessions(len(r.monitors))

	log.Info("monitoring started", logger.String("config", cfg.String()))
	r.notifier.Info(symbol, StartedMessage(symbol))
	return OutcomeStarted, nil
}

// StopMonitoring stops and removes the session for symbol.
func (r *Registry) StopMonitoring(symbol string) Outcome {
	symbol = strings.TrimSpace(symbol)

	r.mu.Lock()
	m, ok := r.monitors[symbol]
	if !ok {
		r.mu.Unlock()
		r.notifier.Warn(symbol, NotRunningMessage(symbol))
		return OutcomeNotRunning
	}
	delete(r.monitors, symbol)
	r.metrics.SetActiveSessions(len(r.monitors))
	r.mu.Unlock()

	r.release(symbol, m)
	r.log.Info("monitoring stopped", logger.String("symbol", symbol))
	r.notifier.Info(symbol, StoppedMessage(symbol))
	return OutcomeStopped
}

// release tears a monitor down without waiting for its goroutines. A late
// push from the polling goroutine lands in the closed queue and is dropped.
func (r *Registry) release(symbol string, m *monitor) {
	if err := m.view.Close(); err != nil {
		r.log.Warn("close view failed", logger.String("symbol", symbol), logger.Error(err))
	}
	m.session.Stop()
	m.queue.Close()
	m.cancel()
}

// Sweep removes every monitor whose view is no longer alive and returns the
// affected symbols. A monitor stopped concurrently is left alone.
func (r *Registry) Sweep() []string {
	r.mu.Lock()
	candidates := make(map[string]*monitor, len(r.monitors))
	for sym, m := range r.monitors {
		candidates[sym] = m
	}
	r.mu.Unlock()

	var dead []string
	for sym, m := range candidates {
		if m.view.IsAlive() {
			continue
		}

		r.mu.Lock()
		if r.monitors[sym] != m {
			r.mu.Unlock()
			continue
		}
		delete(r.monitors, sym)
		r.metrics.SetActiveSessions(len(r.monitors))
		r.mu.Unlock()

		r.release(sym, m)
		dead = append(dead, sym)
		r.log.Warn("view no longer alive, monitoring stopped", logger.String("symbol", sym))
		r.notifier.Warn(sym, StoppedMessage(sym))
	}
	sort.Strings(dead)
	return dead
}

// RunSweeper sweeps every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep()
		}
	}
}

// List returns the state of every active session ordered by symbol.
func (r *Registry) List() []models.SessionState {
	r.mu.Lock()
	out := make([]models.SessionState, 0, len(r.monitors))
	for _, m := range r.monitors {
		out = append(out, m.session.Snapshot())
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Get returns the state of the session for symbol.
func (r *Registry) Get(symbol string) (models.SessionState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.monitors[symbol]
	if !ok {
		return models.SessionState{}, false
	}
	return m.session.Snapshot(), true
}

// Latest returns the most recent result for symbol, falling back to the
// result store once the session is gone.
func (r *Registry) Latest(ctx context.Context, symbol string) (*models.Result, bool) {
	r.mu.Lock()
	m, ok := r.monitors[symbol]
	r.mu.Unlock()
	if ok {
		if res, ok := m.consumer.Latest(); ok {
			return res, true
		}
	}
	if r.store == nil {
		return nil, false
	}
	res, ok, err := r.store.Get(ctx, symbol)
	if err != nil {
		r.log.Warn("load latest result failed", logger.String("symbol", symbol), logger.Error(err))
		return nil, false
	}
	return res, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.monitors)
}

// StopAll stops every session. Used on shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	all := r.monitors
	r.monitors = make(map[string]*monitor)
	r.metrics.SetActiveSessions(0)
	r.mu.Unlock()

	for sym, m := range all {
		r.release(sym, m)
	}
	if len(all) > 0 {
		r.log.Info("all monitoring stopped", logger.Int("count", len(all)))
	}
}
