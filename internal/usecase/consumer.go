package usecase

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"FinWatch/internal/domain/models"
	drepo "FinWatch/internal/domain/repository"
	"FinWatch/internal/services/analysis"
	"FinWatch/pkg/logger"
)

const defaultConsumerTick = 500 * time.Millisecond

// Consumer drains one session's queue, analyses each batch and renders the
// result. It runs until its view reports not alive or its context ends.
type Consumer struct {
	symbol    string
	queue     *SampleQueue
	view      drepo.View
	notifier  drepo.Notifier
	store     drepo.ResultStore
	publisher drepo.ResultPublisher
	metrics   drepo.Metrics
	log       *logger.Logger
	features  analysis.Features
	tick      time.Duration
	now       func() time.Time

	latest atomic.Pointer[models.Result]
	done   chan struct{}
}

type ConsumerOption func(*Consumer)

// WithConsumerTick sets the sleep between drains.
func WithConsumerTick(d time.Duration) ConsumerOption {
	return func(c *Consumer) {
		if d > 0 {
			c.tick = d
		}
	}
}

// WithFeatures sets the analysis feature set.
func WithFeatures(f analysis.Features) ConsumerOption {
	return func(c *Consumer) { c.features = f }
}

// WithResultStore keeps every computed result as the latest for its symbol.
func WithResultStore(s drepo.ResultStore) ConsumerOption {
	return func(c *Consumer) { c.store = s }
}

// WithResultPublisher forwards every computed result downstream.
func WithResultPublisher(p drepo.ResultPublisher) ConsumerOption {
	return func(c *Consumer) { c.publisher = p }
}

// WithConsumerMetrics sets the metrics sink.
func WithConsumerMetrics(m drepo.Metrics) ConsumerOption {
	return func(c *Consumer) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithConsumerLogger sets the logger.
func WithConsumerLogger(l *logger.Logger) ConsumerOption {
	return func(c *Consumer) {
		if l != nil {
			c.log = l
		}
	}
}

// NewConsumer creates a consumer for symbol reading from queue.
func NewConsumer(symbol string, queue *SampleQueue, view drepo.View, notifier drepo.Notifier, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		symbol:   symbol,
		queue:    queue,
		view:     view,
		notifier: notifier,
		metrics:  drepo.NopMetrics{},
		log:      logger.Nop(),
		features: analysis.DefaultFeatures(),
		tick:     defaultConsumerTick,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(logger.String("symbol", symbol))
	return c
}

// Start runs the consumer loop in a new goroutine.
func (c *Consumer) Start(ctx context.Context) {
	go c.Run(ctx)
}

// Run blocks until the view is no longer alive or ctx is done.
func (c *Consumer) Run(ctx context.Context) {
	defer close(c.done)
	for c.view.IsAlive() && ctx.Err() == nil {
		time.Sleep(c.tick)
		for _, e := range c.queue.Drain() {
			c.handle(ctx, e)
		}
		// Entries pushed while this drain was analysed wait for the next tick.
		c.metrics.SetQueueDepth(c.symbol, c.queue.Len())
	}
	c.log.Info("consumer exited")
}

// Done is closed when Run returns.
func (c *Consumer) Done() <-chan struct{} { return c.done }

// Latest returns the most recent result computed by this consumer.
func (c *Consumer) Latest() (*models.Result, bool) {
	r := c.latest.Load()
	return r, r != nil
}

// handle processes one entry. Failures, panics included, are reported and
// never escape to the loop.
func (c *Consumer) handle(ctx context.Context, e Entry) {
	defer func() {
		if rec := recover(); rec != nil {
			c.fail(fmt.Errorf("panic: %v", rec))
		}
	}()

	if e.Kind == EntryNoData {
		c.notifier.Warn(c.symbol, NoDataMessage(c.symbol))
		return
	}

	start := time.Now()
	res, err := analysis.Analyze(e.Batch.Series(), c.features)
	c.metrics.RecordAnalysis(c.symbol, time.Since(start), err)
	if err != nil {
		c.fail(err)
		return
	}
	res.Symbol = c.symbol
	res.ComputedAt = c.now().UTC()
	c.latest.Store(res)

	if n := len(e.Batch); n > 0 {
		c.metrics.RecordLastPrice(c.symbol, e.Batch[n-1].Close)
	}
	if c.store != nil {
		if err := c.store.Put(ctx, res); err != nil {
			c.log.Warn("store latest result failed", logger.Error(err))
		}
	}
	if err := c.view.Render(ctx, res); err != nil {
		c.log.Warn("render failed", logger.Error(err))
		c.metrics.RecordRenderError(c.symbol)
	}
	if c.publisher != nil {
		if err := c.publisher.Publish(ctx, res); err != nil {
			c.log.Warn("publish result failed", logger.Error(err))
		}
	}
}

func (c *Consumer) fail(err error) {
	c.log.Error("process batch failed", logger.Error(err))
	c.notifier.Error(c.symbol, ProcessingErrorMessage(c.symbol, err))
}
