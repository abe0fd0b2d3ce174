package cache

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// FetchRateFunc retrieves the current native-asset exchange rate from an
// external source.
type FetchRateFunc func(ctx context.Context) (decimal.Decimal, error)

// RateCache holds one externally sourced exchange rate as an explicit
// value + fetchedAt pair. Callers pass the current time so staleness is a
// pure function of the inputs.
type RateCache struct {
	mu        sync.Mutex
	value     decimal.Decimal
	fetchedAt time.Time
	ttl       time.Duration
	fetch     FetchRateFunc
}

func NewRateCache(ttl time.Duration, fetch FetchRateFunc) *RateCache {
	return &RateCache{ttl: ttl, fetch: fetch}
}

// Refresh returns the cached rate when it is still fresh relative to now,
// otherwise fetches, stores and returns a new value. A fetch failure with a
// previously cached value falls back to the stale value rather than erroring.
func (r *RateCache) Refresh(ctx context.Context, now time.Time) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.fetchedAt.IsZero() && now.Sub(r.fetchedAt) < r.ttl {
		return r.value, nil
	}

	value, err := r.fetch(ctx)
	if err != nil {
		if !r.fetchedAt.IsZero() {
			return r.value, nil
		}
		return decimal.Zero, err
	}

	r.value = value
	r.fetchedAt = now
	return r.value, nil
}

// FetchedAt reports when the cached value was last refreshed.
func (r *RateCache) FetchedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetchedAt
}
