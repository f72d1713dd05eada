package ingest

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// CitySource lists the cities worth keeping warm, typically the distinct
// cities of active subscribers.
type CitySource func() ([]string, error)

// Scheduler periodically refreshes forecasts for known cities so commands
// and daily notifications are served from the cache.
type Scheduler struct {
	provider *Provider
	cities   CitySource
	interval time.Duration
	log      logrus.FieldLogger
}

func NewScheduler(provider *Provider, cities CitySource, interval time.Duration, log logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		provider: provider,
		cities:   cities,
		interval: interval,
		log:      log.WithField("component", "scheduler"),
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	s.RefreshAll(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler: shutting down")
			return
		case <-ticker.C:
			s.RefreshAll(ctx)
		}
	}
}

// RefreshAll refreshes every city once and returns how many succeeded.
// Failures are logged and do not stop the remaining cities.
func (s *Scheduler) RefreshAll(ctx context.Context) int {
	cities, err := s.cities()
	if err != nil {
		s.log.WithError(err).Error("scheduler: list cities")
		return 0
	}

	seen := make(map[string]bool, len(cities))
	ok := 0
	for _, city := range cities {
		key := CacheKey(city)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		if ctx.Err() != nil {
			return ok
		}
		if _, err := s.provider.Refresh(ctx, city); err != nil {
			s.log.WithError(err).WithField("city", city).Warn("scheduler: refresh failed")
			continue
		}
		ok++
	}
	s.log.WithField("cities", ok).Debug("scheduler: refreshed forecasts")
	return ok
}
