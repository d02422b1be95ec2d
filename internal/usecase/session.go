package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"FinWatch/internal/domain/models"
	drepo "FinWatch/internal/domain/repository"
	"FinWatch/pkg/logger"
)

// DedupeWindow is how much newer than the last accepted batch a fetched
// batch must be before it is enqueued. It does not follow the poll interval.
const DedupeWindow = 60 * time.Second

const defaultPollTick = 15 * time.Second

// Session polls one symbol and pushes what it fetches into its queue.
//
// Stop only clears a flag that the polling goroutine checks at the top of
// each iteration. An in-flight fetch or tick sleep is not interrupted, so
// shutdown takes up to one tick plus one fetch. A fetch that never returns
// keeps the goroutine alive indefinitely; set WithFetchTimeout to bound it.
type Session struct {
	symbol  string
	cfg     models.PollConfig
	source  drepo.PriceSource
	queue   *SampleQueue
	metrics drepo.Metrics
	log     *logger.Logger

	tick         time.Duration
	fetchTimeout time.Duration
	now          func() time.Time

	running atomic.Bool
	gen     atomic.Uint64
	runID   string

	mu        sync.Mutex
	lastSeen  *time.Time
	startedAt time.Time
}

type SessionOption func(*Session)

// WithPollTick sets the sleep between polls.
func WithPollTick(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithFetchTimeout bounds each fetch. Zero leaves fetches unbounded.
func WithFetchTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d >= 0 {
			s.fetchTimeout = d
		}
	}
}

// WithSessionMetrics sets the metrics sink.
func WithSessionMetrics(m drepo.Metrics) SessionOption {
	return func(s *Session) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithSessionLogger sets the logger.
func WithSessionLogger(l *logger.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// NewSession creates a stopped session for symbol.
func NewSession(symbol string, cfg models.PollConfig, source drepo.PriceSource, queue *SampleQueue, opts ...SessionOption) *Session {
	s := &Session{
		symbol:  symbol,
		cfg:     cfg,
		source:  source,
		queue:   queue,
		metrics: drepo.NopMetrics{},
		log:     logger.Nop(),
		tick:    defaultPollTick,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the polling goroutine. It returns false if the session is
// already running.
func (s *Session) Start() bool {
	if !s.running.CompareAndSwap(false, true) {
		return false
	}
	s.mu.Lock()
	s.runID = uuid.NewString()
	s.startedAt = s.now().UTC()
	log := s.log.With(logger.String("symbol", s.symbol), logger.String("run_id", s.runID))
	s.mu.Unlock()

	log.Info("session started", logger.String("period", s.cfg.Period), logger.String("interval", s.cfg.Interval))
	go s.loop(s.gen.Add(1), log)
	return true
}

// Stop requests the polling goroutine to exit at its next iteration.
func (s *Session) Stop() {
	s.running.Store(false)
}

func (s *Session) Running() bool { return s.running.Load() }

func (s *Session) Symbol() string { return s.symbol }

// Snapshot returns the current session state.
func (s *Session) Snapshot() models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := models.SessionState{
		Symbol:    s.symbol,
		RunID:     s.runID,
		Config:    s.cfg,
		Running:   s.running.Load(),
		StartedAt: s.startedAt,
	}
	if s.lastSeen != nil {
		t := *s.lastSeen
		st.LastSeen = &t
	}
	return st
}

// loop exits once stopped, or once a later Start has taken over.
func (s *Session) loop(gen uint64, log *logger.Logger) {
	for s.running.Load() && s.gen.Load() == gen {
		s.poll(log)
		time.Sleep(s.tick)
	}
	log.Info("session exited")
}

// poll runs one fetch and enqueues according to the dedupe rule.
func (s *Session) poll(log *logger.Logger) {
	ctx := context.Background()
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	start := time.Now()
	batch, err := s.source.Fetch(ctx, s.symbol, s.cfg.Period, s.cfg.Interval)
	s.metrics.RecordFetchLatency(s.symbol, time.Since(start))
	if err != nil {
		log.Error("fetch failed", logger.String("source", s.source.Name()), logger.Error(err))
		s.metrics.RecordPoll(s.symbol, drepo.PollError)
		return
	}

	freshest, ok := batch.Freshest()
	if !ok {
		log.Debug("no data")
		s.metrics.RecordPoll(s.symbol, drepo.PollNoData)
		s.queue.Push(NoDataEntry())
		return
	}
	freshest = freshest.UTC()

	s.mu.Lock()
	last := s.lastSeen
	if last != nil && !freshest.After(last.Add(DedupeWindow)) {
		s.mu.Unlock()
		log.Debug("batch suppressed", logger.Time("freshest", freshest), logger.Time("last_seen", *last))
		s.metrics.RecordPoll(s.symbol, drepo.PollSuppressed)
		return
	}
	s.lastSeen = &freshest
	s.mu.Unlock()

	s.queue.Push(BatchEntry(batch.UTC()))
	s.metrics.RecordPoll(s.symbol, drepo.PollAccepted)
	s.metrics.SetQueueDepth(s.symbol, s.queue.Len())
	log.Debug("batch enqueued", logger.Int("samples", len(batch)), logger.Time("freshest", freshest))
}
