package usecase

import (
	"context"
	"fmt"
	"time"

	"PatternPull/internal/domain/models"
	domrepo "PatternPull/internal/domain/repository"
	"PatternPull/pkg/cache"
)

// HistoryUseCase provides validated access to historical bars with an
// optional cache in front of the backing source. It implements BarSource
// so the replay engine can sit directly on top of it.
type HistoryUseCase struct {
	source domrepo.BarSource
	cache  cache.Service
	ttl    time.Duration
}

// HistoryOption configures a HistoryUseCase.
type HistoryOption func(*HistoryUseCase)

// WithHistoryCache fronts the source with a cache. Replay runs over the
// same range hit the cache instead of the database.
func WithHistoryCache(c cache.Service, ttl time.Duration) HistoryOption {
	return func(h *HistoryUseCase) {
		h.cache = c
		if ttl > 0 {
			h.ttl = ttl
		}
	}
}

func NewHistoryUseCase(source domrepo.BarSource, opts ...HistoryOption) *HistoryUseCase {
	h := &HistoryUseCase{source: source, ttl: 15 * time.Minute}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// LoadBars returns ordered bars for ticker in [from, to].
func (h *HistoryUseCase) LoadBars(ctx context.Context, ticker string, from, to time.Time, tf domrepo.Timeframe) ([]models.Bar, error) {
	if ticker == "" {
		return nil, fmt.Errorf("ticker required")
	}
	if from.After(to) {
		return nil, fmt.Errorf("from must be <= to")
	}
	if !domrepo.IsValidTimeframe(tf) {
		return nil, fmt.Errorf("invalid timeframe %q", tf)
	}

	key := fmt.Sprintf("bars:%s:%s:%d:%d", ticker, tf, from.Unix(), to.Unix())
	if h.cache != nil {
		var cached []models.Bar
		if err := h.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	bars, err := h.source.LoadBars(ctx, ticker, from, to, tf)
	if err != nil {
		return nil, fmt.Errorf("load bars: %w", err)
	}

	if h.cache != nil && len(bars) > 0 {
		_ = h.cache.Set(ctx, key, bars, h.ttl)
	}
	return bars, nil
}

var _ domrepo.BarSource = (*HistoryUseCase)(nil)
