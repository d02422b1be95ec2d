// Package simsource is an offline PriceSource producing a seeded random walk
// on the interval grid. It lets the pipeline run without network access.
package simsource

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"FinWatch/internal/domain/models"
	drepo "FinWatch/internal/domain/repository"
	"FinWatch/pkg/util"
)

// MaxPoints caps the size of one batch.
const MaxPoints = 2000

// Source generates closes for any symbol. Symbols listed in Unknown yield no data.
type Source struct {
	startPrice float64
	volatility float64
	seed       int64
	unknown    map[string]struct{}
	now        func() time.Time
}

var _ drepo.PriceSource = (*Source)(nil)

type Option func(*Source)

func WithStartPrice(p float64) Option {
	return func(s *Source) {
		if p > 0 {
			s.startPrice = p
		}
	}
}

func WithVolatility(v float64) Option {
	return func(s *Source) {
		if v >= 0 {
			s.volatility = v
		}
	}
}

func WithSeed(seed int64) Option {
	return func(s *Source) { s.seed = seed }
}

func WithClock(now func() time.Time) Option {
	return func(s *Source) { s.now = now }
}

// WithUnknown marks symbols for which Fetch reports absence.
func WithUnknown(symbols ...string) Option {
	return func(s *Source) {
		for _, sym := range symbols {
			s.unknown[sym] = struct{}{}
		}
	}
}

func New(opts ...Option) *Source {
	s := &Source{
		startPrice: 100,
		volatility: 0.01,
		unknown:    map[string]struct{}{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) Name() string { return "sim" }

// Fetch returns grid-aligned samples covering the period, newest last. The
// walk for a given window start is reproducible.
func (s *Source) Fetch(ctx context.Context, symbol, period, interval string) (models.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	step, ok := util.IntervalDuration(interval)
	if !ok {
		return nil, fmt.Errorf("sim: unsupported interval %q", interval)
	}
	if _, ok := s.unknown[symbol]; ok {
		return nil, nil
	}

	end := s.now().UTC().Truncate(step)
	start, bounded := util.PeriodStart(period, end)
	if !bounded || end.Sub(start)/step >= MaxPoints {
		start = end.Add(-time.Duration(MaxPoints-1) * step)
	}
	start = start.Truncate(step)
	if start.After(end) {
		return nil, nil
	}

	rng := rand.New(rand.NewSource(s.seedFor(symbol, start)))
	n := int(end.Sub(start)/step) + 1
	out := make(models.Batch, 0, n)
	price := s.startPrice
	for t := start; !t.After(end); t = t.Add(step) {
		price *= math.Exp(s.volatility * rng.NormFloat64())
		out = append(out, models.PricePoint{Time: t, Close: math.Round(price*100) / 100})
	}
	return out, nil
}

func (s *Source) seedFor(symbol string, start time.Time) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	return s.seed ^ int64(h.Sum64()) ^ start.Unix()
}
