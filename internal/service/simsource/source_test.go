package simsource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 15, 16, 7, 30, 0, time.UTC)

func newSource(opts ...Option) *Source {
	return New(append([]Option{WithSeed(7), WithClock(func() time.Time { return fixedNow })}, opts...)...)
}

func TestFetchGrid(t *testing.T) {
	s := newSource()
	b, err := s.Fetch(context.Background(), "MSFT", "1d", "1h")
	require.NoError(t, err)

	require.Len(t, b, 25)
	last, ok := b.Freshest()
	require.True(t, ok)
	assert.Equal(t, fixedNow.Truncate(time.Hour), last)
	for i := 1; i < len(b); i++ {
		assert.Equal(t, time.Hour, b[i].Time.Sub(b[i-1].Time))
		assert.Greater(t, b[i].Close, 0.0)
	}
}

func TestFetchDeterministic(t *testing.T) {
	a, err := newSource().Fetch(context.Background(), "MSFT", "5d", "1d")
	require.NoError(t, err)
	b, err := newSource().Fetch(context.Background(), "MSFT", "5d", "1d")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := newSource().Fetch(context.Background(), "AAPL", "5d", "1d")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestFetchCapsPoints(t *testing.T) {
	b, err := newSource().Fetch(context.Background(), "MSFT", "max", "1m")
	require.NoError(t, err)
	assert.Len(t, b, MaxPoints)
}

func TestFetchUnknownSymbol(t *testing.T) {
	b, err := newSource(WithUnknown("NOPE")).Fetch(context.Background(), "NOPE", "1d", "1d")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestFetchBadInterval(t *testing.T) {
	_, err := newSource().Fetch(context.Background(), "MSFT", "1d", "7m")
	assert.Error(t, err)
}

func TestFetchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newSource().Fetch(ctx, "MSFT", "1d", "1d")
	assert.ErrorIs(t, err, context.Canceled)
}
