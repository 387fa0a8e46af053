package middleware

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// RateStore coordinates rate limiting counters for a specific key.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
}

// memoryRateStore keeps fixed-window counters in a process-local expiring cache.
type memoryRateStore struct {
	counters *cache.Cache
	clock    func() time.Time
}

// NewMemoryRateStore constructs an in-memory rate store. Expired windows are
// purged by the cache janitor every cleanup interval.
func NewMemoryRateStore(cleanup time.Duration) RateStore {
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &memoryRateStore{
		counters: cache.New(cache.NoExpiration, cleanup),
		clock:    time.Now,
	}
}

func (s *memoryRateStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}

	for {
		if err := s.counters.Add(key, 1, window); err == nil {
			return 1, window, nil
		}

		count, err := s.counters.IncrementInt(key, 1)
		if err != nil {
			// The window expired between Add and IncrementInt.
			continue
		}

		_, expires, ok := s.counters.GetWithExpiration(key)
		if !ok {
			continue
		}
		return count, expires.Sub(s.clock()), nil
	}
}
