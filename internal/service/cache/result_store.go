package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FinWatch/internal/domain/models"
	drepo "FinWatch/internal/domain/repository"
)

const resultKeyPrefix = "finwatch:result:"

// ResultStore serializes results as JSON into a BytesCache.
type ResultStore struct {
	cache BytesCache
	ttl   time.Duration
}

var _ drepo.ResultStore = (*ResultStore)(nil)

func NewResultStore(c BytesCache, ttl time.Duration) *ResultStore {
	return &ResultStore{cache: c, ttl: ttl}
}

func resultKey(symbol string) string { return resultKeyPrefix + symbol }

func (s *ResultStore) Put(ctx context.Context, r *models.Result) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode result %s: %w", r.Symbol, err)
	}
	return s.cache.SetBytes(ctx, resultKey(r.Symbol), b, s.ttl)
}

func (s *ResultStore) Get(ctx context.Context, symbol string) (*models.Result, bool, error) {
	b, ok, err := s.cache.GetBytes(ctx, resultKey(symbol))
	if err != nil || !ok {
		return nil, false, err
	}
	var r models.Result
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, false, fmt.Errorf("decode result %s: %w", symbol, err)
	}
	return &r, true, nil
}

func (s *ResultStore) Delete(ctx context.Context, symbol string) error {
	return s.cache.Delete(ctx, resultKey(symbol))
}
