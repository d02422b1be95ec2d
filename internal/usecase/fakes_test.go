package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"FinWatch/internal/domain/models"
	drepo "FinWatch/internal/domain/repository"
)

var t0 = time.Date(2024, 5, 6, 13, 30, 0, 0, time.UTC)

var errUpstream = errors.New("upstream unavailable")

func batchAt(end time.Time, closes ...float64) models.Batch {
	b := make(models.Batch, len(closes))
	for i, c := range closes {
		b[i] = models.PricePoint{
			Time:  end.Add(-time.Duration(len(closes)-1-i) * time.Minute),
			Close: c,
		}
	}
	return b
}

type fetchResult struct {
	batch models.Batch
	err   error
}

// scriptedSource replays results in order and then repeats the last one.
type scriptedSource struct {
	mu     sync.Mutex
	script []fetchResult
	calls  int
}

func (s *scriptedSource) Name() string { return "scripted" }

func (s *scriptedSource) Fetch(_ context.Context, _, _, _ string) (models.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.script) == 0 {
		return nil, nil
	}
	i := s.calls
	if i >= len(s.script) {
		i = len(s.script) - 1
	}
	s.calls++
	r := s.script[i]
	return r.batch, r.err
}

func (s *scriptedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// blockingSource never returns until ctx is done.
type blockingSource struct{}

func (blockingSource) Name() string { return "blocking" }

func (blockingSource) Fetch(ctx context.Context, _, _, _ string) (models.Batch, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type fakeView struct {
	alive    atomic.Bool
	closed   atomic.Bool
	mu       sync.Mutex
	rendered []*models.Result
	onRender func(*models.Result) error
}

func newFakeView() *fakeView {
	v := &fakeView{}
	v.alive.Store(true)
	return v
}

func (v *fakeView) Render(_ context.Context, r *models.Result) error {
	v.mu.Lock()
	v.rendered = append(v.rendered, r)
	hook := v.onRender
	v.mu.Unlock()
	if hook != nil {
		return hook(r)
	}
	return nil
}

func (v *fakeView) IsAlive() bool { return v.alive.Load() && !v.closed.Load() }

func (v *fakeView) Close() error {
	v.closed.Store(true)
	return nil
}

func (v *fakeView) Rendered() []*models.Result {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]*models.Result(nil), v.rendered...)
}

type fakeViewFactory struct {
	mu    sync.Mutex
	views map[string][]*fakeView
	err   error
}

func newFakeViewFactory() *fakeViewFactory {
	return &fakeViewFactory{views: make(map[string][]*fakeView)}
}

func (f *fakeViewFactory) NewView(symbol string, _ models.PollConfig) (drepo.View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	v := newFakeView()
	f.views[symbol] = append(f.views[symbol], v)
	return v, nil
}

func (f *fakeViewFactory) Created(symbol string) []*fakeView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeView(nil), f.views[symbol]...)
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []models.Notice
}

func (n *fakeNotifier) add(level models.NoticeLevel, symbol, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, models.Notice{Level: level, Symbol: symbol, Message: msg})
}

func (n *fakeNotifier) Info(symbol, msg string)  { n.add(models.NoticeInfo, symbol, msg) }
func (n *fakeNotifier) Warn(symbol, msg string)  { n.add(models.NoticeWarning, symbol, msg) }
func (n *fakeNotifier) Error(symbol, msg string) { n.add(models.NoticeError, symbol, msg) }

func (n *fakeNotifier) Messages(level models.NoticeLevel) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, x := range n.notices {
		if x.Level == level {
			out = append(out, x.Message)
		}
	}
	return out
}

type countingMetrics struct {
	drepo.NopMetrics
	mu     sync.Mutex
	polls  map[string]int
	depths []int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{polls: make(map[string]int)}
}

func (m *countingMetrics) RecordPoll(_, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls[outcome]++
}

func (m *countingMetrics) SetQueueDepth(_ string, depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.depths = append(m.depths, depth)
}

func (m *countingMetrics) Depths() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.depths...)
}

func (m *countingMetrics) Polls(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.polls[outcome]
}

type memoryStore struct {
	mu sync.Mutex
	m  map[string]*models.Result
}

func newMemoryStore() *memoryStore { return &memoryStore{m: make(map[string]*models.Result)} }

func (s *memoryStore) Put(_ context.Context, r *models.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[r.Symbol] = r
	return nil
}

func (s *memoryStore) Get(_ context.Context, symbol string) (*models.Result, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.m[symbol]
	return r, ok, nil
}

func (s *memoryStore) Delete(_ context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, symbol)
	return nil
}
