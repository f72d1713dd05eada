package ingest

import (
	"context"
	"strings"
	"sync"
	"time"
)

// ForecastCache stores fetched forecasts per normalized city. A miss is
// reported with ok=false and a nil error.
type ForecastCache interface {
	Get(ctx context.Context, key string) (fc *Forecast, ok bool, err error)
	Set(ctx context.Context, key string, fc *Forecast, ttl time.Duration) error
}

// CacheKey is the cache key for a user-supplied city name.
func CacheKey(city string) string {
	return strings.ToLower(NormalizeCity(city))
}

type memoryEntry struct {
	fc        *Forecast
	expiresAt time.Time
}

// MemoryCache is a process-local ForecastCache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*Forecast, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return e.fc, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, fc *Forecast, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{fc: fc, expiresAt: c.now().Add(ttl)}
	return nil
}

// Len counts entries, including expired ones not yet evicted.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
