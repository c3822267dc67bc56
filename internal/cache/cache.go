package cache

import (
	"context"
	"time"

	"jumjum/backend/internal/domain"
)

// StatsCache holds the computed billing summary between bill writes.
type StatsCache interface {
	Get(ctx context.Context, key string) (*domain.BillStats, bool, error)
	Set(ctx context.Context, key string, value *domain.BillStats, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

type NoopStatsCache struct{}

func (NoopStatsCache) Get(_ context.Context, _ string) (*domain.BillStats, bool, error) {
	return nil, false, nil
}

func (NoopStatsCache) Set(_ context.Context, _ string, _ *domain.BillStats, _ time.Duration) error {
	return nil
}

func (NoopStatsCache) Invalidate(_ context.Context, _ string) error {
	return nil
}
