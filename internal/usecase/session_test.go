package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinWatch/internal/domain/models"
	"FinWatch/pkg/logger"
)

var dailyCfg = models.PollConfig{Period: "1d", Interval: "1m"}

func newTestSession(src *scriptedSource, opts ...SessionOption) (*Session, *SampleQueue) {
	q := NewSampleQueue()
	opts = append([]SessionOption{WithSessionLogger(logger.Nop())}, opts...)
	return NewSession("MSFT", dailyCfg, src, q, opts...), q
}

func TestSessionDedupe(t *testing.T) {
	src := &scriptedSource{script: []fetchResult{
		{batch: batchAt(t0, 1, 2)},
		{batch: batchAt(t0.Add(30*time.Second), 3)},
		{batch: batchAt(t0.Add(60*time.Second), 4)},
		{batch: batchAt(t0.Add(61*time.Second), 5)},
	}}
	s, q := newTestSession(src)
	log := logger.Nop()

	s.poll(log)
	require.Equal(t, 1, q.Len(), "first batch is always accepted")
	require.NotNil(t, s.Snapshot().LastSeen)
	assert.Equal(t, t0, *s.Snapshot().LastSeen)

	s.poll(log)
	s.poll(log)
	assert.Equal(t, 1, q.Len(), "batches within 60s of last seen are suppressed")
	assert.Equal(t, t0, *s.Snapshot().LastSeen)

	s.poll(log)
	entries := q.Drain()
	require.Len(t, entries, 2)
	assert.Equal(t, EntryBatch, entries[1].Kind)
	assert.Equal(t, 5.0, entries[1].Batch[0].Close)
	assert.Equal(t, t0.Add(61*time.Second), *s.Snapshot().LastSeen)
}

func TestSessionNoDataAndError(t *testing.T) {
	metrics := newCountingMetrics()
	src := &scriptedSource{script: []fetchResult{
		{batch: nil},
		{batch: models.Batch{}},
		{err: errUpstream},
	}}
	s, q := newTestSession(src, WithSessionMetrics(metrics))
	log := logger.Nop()

	s.poll(log)
	s.poll(log)
	s.poll(log)

	entries := q.Drain()
	require.Len(t, entries, 2, "the error tick enqueues nothing")
	assert.Equal(t, EntryNoData, entries[0].Kind)
	assert.Equal(t, EntryNoData, entries[1].Kind)
	assert.Equal(t, 2, metrics.Polls("no_data"))
	assert.Equal(t, 1, metrics.Polls("error"))
	assert.Nil(t, s.Snapshot().LastSeen)
}

func TestSessionNormalizesToUTC(t *testing.T) {
	ny := time.FixedZone("EST", -5*3600)
	src := &scriptedSource{script: []fetchResult{
		{batch: batchAt(t0.In(ny), 1, 2)},
	}}
	s, q := newTestSession(src)
	s.poll(logger.Nop())

	last := s.Snapshot().LastSeen
	require.NotNil(t, last)
	assert.Equal(t, time.UTC, last.Location())
	entries := q.Drain()
	require.Len(t, entries, 1)
	for _, p := range entries[0].Batch {
		assert.Equal(t, time.UTC, p.Time.Location())
	}
}

func TestSessionStartIsIdempotent(t *testing.T) {
	src := &scriptedSource{script: []fetchResult{{batch: batchAt(t0, 1)}}}
	s, q := newTestSession(src, WithPollTick(10*time.Millisecond))

	require.True(t, s.Start())
	assert.False(t, s.Start(), "second start reports already running")
	assert.True(t, s.Running())
	assert.NotEmpty(t, s.Snapshot().RunID)

	require.Eventually(t, func() bool { return src.Calls() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()
	assert.False(t, s.Running())

	// the loop observes the flag at its next iteration
	time.Sleep(50 * time.Millisecond)
	calls := src.Calls()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, src.Calls())
	assert.Equal(t, 1, q.Len(), "repeated identical batches are suppressed")
}

func TestSessionFetchTimeout(t *testing.T) {
	metrics := newCountingMetrics()
	q := NewSampleQueue()
	s := NewSession("MSFT", dailyCfg, blockingSource{}, q,
		WithFetchTimeout(20*time.Millisecond),
		WithSessionMetrics(metrics),
	)

	done := make(chan struct{})
	go func() {
		s.poll(logger.Nop())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fetch was not bounded by the timeout")
	}
	assert.Equal(t, 1, metrics.Polls("error"))
	assert.Zero(t, q.Len())
}
