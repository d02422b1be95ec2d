package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinWatch/internal/domain/models"
)

func newTestConsumer(q *SampleQueue, v *fakeView, n *fakeNotifier, opts ...ConsumerOption) *Consumer {
	opts = append([]ConsumerOption{WithConsumerTick(5 * time.Millisecond)}, opts...)
	return NewConsumer("MSFT", q, v, n, opts...)
}

func TestConsumerRendersBatches(t *testing.T) {
	q := NewSampleQueue()
	v := newFakeView()
	n := &fakeNotifier{}
	store := newMemoryStore()
	c := newTestConsumer(q, v, n, WithResultStore(store))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	q.Push(BatchEntry(batchAt(t0, 1, 3, 2, 5, 4)))
	require.Eventually(t, func() bool { return len(v.Rendered()) == 1 }, time.Second, 5*time.Millisecond)

	r := v.Rendered()[0]
	assert.Equal(t, "MSFT", r.Symbol)
	assert.True(t, r.HasMovingAverage())
	assert.True(t, r.HasMedian())
	assert.Len(t, r.Maxima, 2)
	assert.Len(t, r.Minima, 1)

	latest, ok := c.Latest()
	require.True(t, ok)
	assert.Same(t, r, latest)

	stored, ok, err := store.Get(ctx, "MSFT")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, r, stored)
}

func TestConsumerReportsBacklogAfterDrain(t *testing.T) {
	q := NewSampleQueue()
	v := newFakeView()
	var once sync.Once
	v.onRender = func(*models.Result) error {
		once.Do(func() { q.Push(NoDataEntry()) })
		return nil
	}
	m := newCountingMetrics()
	c := newTestConsumer(q, v, &fakeNotifier{}, WithConsumerMetrics(m))

	q.Push(BatchEntry(batchAt(t0, 1, 3, 2, 5, 4)))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	require.Eventually(t, func() bool { return len(m.Depths()) >= 2 }, time.Second, 5*time.Millisecond)
	depths := m.Depths()
	assert.Equal(t, 1, depths[0], "entry pushed during analysis is still queued")
	assert.Equal(t, 0, depths[1])
}

func TestConsumerNoDataWarns(t *testing.T) {
	q := NewSampleQueue()
	v := newFakeView()
	n := &fakeNotifier{}
	c := newTestConsumer(q, v, n)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	q.Push(NoDataEntry())
	require.Eventually(t, func() bool { return len(n.Messages(models.NoticeWarning)) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"No data for MSFT."}, n.Messages(models.NoticeWarning))
	assert.Empty(t, v.Rendered())
}

func TestConsumerSurvivesAnalysisFailure(t *testing.T) {
	q := NewSampleQueue()
	v := newFakeView()
	n := &fakeNotifier{}
	c := newTestConsumer(q, v, n)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	unordered := models.Batch{{Time: t0, Close: 1}, {Time: t0, Close: 2}}
	q.Push(BatchEntry(unordered))
	q.Push(BatchEntry(batchAt(t0, 1, 2, 3)))

	require.Eventually(t, func() bool { return len(v.Rendered()) == 1 }, time.Second, 5*time.Millisecond)
	errs := n.Messages(models.NoticeError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Error processing data for MSFT:")
}

func TestConsumerRecoversFromPanic(t *testing.T) {
	q := NewSampleQueue()
	v := newFakeView()
	calls := 0
	v.onRender = func(*models.Result) error {
		calls++
		if calls == 1 {
			panic("boom")
		}
		return nil
	}
	n := &fakeNotifier{}
	c := newTestConsumer(q, v, n)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	q.Push(BatchEntry(batchAt(t0, 1, 2, 3)))
	q.Push(BatchEntry(batchAt(t0.Add(5*time.Minute), 4, 5, 6)))

	require.Eventually(t, func() bool { return len(v.Rendered()) == 2 }, time.Second, 5*time.Millisecond)
	errs := n.Messages(models.NoticeError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "panic: boom")
}

func TestConsumerStopsWhenViewDies(t *testing.T) {
	q := NewSampleQueue()
	v := newFakeView()
	c := newTestConsumer(q, v, &fakeNotifier{})
	c.Start(context.Background())

	v.alive.Store(false)
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("consumer did not exit after the view died")
	}
}
