package queue

import (
	"context"
	"time"

	"github.com/shashiranjanraj/ordersvc/pkg/cache"
)

// DefaultMarkerTTL is how long a completion marker survives.
const DefaultMarkerTTL = 24 * time.Hour

// CacheMarker stores completion markers as "job:done:<id>" keys.
type CacheMarker struct {
	store cache.Store
	ttl   time.Duration
}

func NewCacheMarker(store cache.Store, ttl time.Duration) *CacheMarker {
	if ttl <= 0 {
		ttl = DefaultMarkerTTL
	}
	return &CacheMarker{store: store, ttl: ttl}
}

func markerKey(id string) string { return "job:done:" + id }

func (m *CacheMarker) IsDone(ctx context.Context, id string) (bool, error) {
	var done bool
	hit, err := m.store.Get(ctx, markerKey(id), &done)
	if err != nil {
		return false, err
	}
	return hit && done, nil
}

func (m *CacheMarker) MarkDone(ctx context.Context, id string) error {
	return m.store.Set(ctx, markerKey(id), true, m.ttl)
}
