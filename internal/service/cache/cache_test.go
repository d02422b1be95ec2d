package cache

import (
	"context"
	"math"
	"os"
	"testing"
	"time"

	"FinWatch/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.SetBytes(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.SetBytes(ctx, "b", []byte("2"), 0))

	b, ok, err := c.GetBytes(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), b)

	now = now.Add(2 * time.Minute)
	_, ok, _ = c.GetBytes(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = c.GetBytes(ctx, "b")
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "b"))
	_, ok, _ = c.GetBytes(ctx, "b")
	assert.False(t, ok)
}

func sample() *models.Result {
	t0 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	return &models.Result{
		Symbol:        "MSFT",
		ComputedAt:    t0.Add(time.Hour),
		Index:         []time.Time{t0, t0.Add(24 * time.Hour), t0.Add(48 * time.Hour)},
		Original:      []float64{1, 3, 2},
		MovingAverage: []float64{math.NaN(), math.NaN(), 2},
	}
}

func testStore(t *testing.T, s *ResultStore) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "MSFT")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, sample()))
	got, ok, err := s.Get(ctx, "MSFT")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "MSFT", got.Symbol)
	assert.Equal(t, []float64{1, 3, 2}, got.Original)
	require.Len(t, got.MovingAverage, 3)
	assert.True(t, math.IsNaN(got.MovingAverage[0]))
	assert.Equal(t, 2.0, got.MovingAverage[2])

	require.NoError(t, s.Delete(ctx, "MSFT"))
	_, ok, err = s.Get(ctx, "MSFT")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResultStoreInMemory(t *testing.T) {
	testStore(t, NewResultStore(NewTTLCache(), time.Minute))
}

func TestResultStoreRedis(t *testing.T) {
	addr := os.Getenv("FINWATCH_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("FINWATCH_TEST_REDIS_ADDR not set")
	}
	rc := NewRedisCache(RedisConfig{Addr: addr})
	t.Cleanup(func() { _ = rc.Close() })
	require.NoError(t, rc.Ping(context.Background()))
	testStore(t, NewResultStore(rc, time.Minute))
}
