package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	fc := &Forecast{}
	require.NoError(t, c.Set(ctx, "moscow", fc, 30*time.Minute))

	got, ok, err := c.Get(ctx, "moscow")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Same(t, fc, got)

	_, ok, _ = c.Get(ctx, "kazan")
	assert.False(t, ok)

	now = now.Add(29 * time.Minute)
	_, ok, _ = c.Get(ctx, "moscow")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = c.Get(ctx, "moscow")
	assert.False(t, ok, "entry must expire exactly at its ttl")
	assert.Zero(t, c.Len())
}

func TestNormalizeCity(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Москва", "Moscow"},
		{"  санкт-петербург ", "Saint Petersburg"},
		{"Нижний   Новгород", "Nizhny Novgorod"},
		{"СПб", "Saint Petersburg"},
		{"питер", "Saint Petersburg"},
		{"St. Petersburg", "Saint Petersburg"},
		{"London", "London"},
		{" new  york ", "new york"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeCity(tt.in), "NormalizeCity(%q)", tt.in)
	}
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "moscow", CacheKey("мск"))
	assert.Equal(t, CacheKey("Москва"), CacheKey("MOSCOW"))
	assert.Equal(t, "new york", CacheKey(" New   York"))
}

func TestPopularCities(t *testing.T) {
	cities := PopularCities()
	assert.Len(t, cities, 15)
	assert.IsNonDecreasing(t, cities)
	assert.Contains(t, cities, "Kazan")
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := NewRedisCache(ctx, "127.0.0.1:1")
	assert.ErrorContains(t, err, "connect to redis")
}
