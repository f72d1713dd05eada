package ingest

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/lox/clearyfi/internal/metrics"
	"github.com/lox/clearyfi/internal/store"
)

// ErrNoData is returned when the provider answered without any usable samples.
var ErrNoData = errors.New("forecast has no usable samples")

// Fetcher is the upstream forecast source. *OpenWeather satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, city string) (*Forecast, []byte, *FetchResult, error)
}

// Provider serves forecasts from the cache, falling back to the fetcher.
// Concurrent misses for the same city share one upstream call.
type Provider struct {
	fetcher Fetcher
	cache   ForecastCache
	store   *store.Store
	ttl     time.Duration
	log     logrus.FieldLogger
	group   singleflight.Group
}

// NewProvider wires a provider. st may be nil, in which case fetches are not
// audited.
func NewProvider(fetcher Fetcher, cache ForecastCache, st *store.Store, ttl time.Duration, log logrus.FieldLogger) *Provider {
	return &Provider{
		fetcher: fetcher,
		cache:   cache,
		store:   st,
		ttl:     ttl,
		log:     log.WithField("component", "provider"),
	}
}

// Forecast returns the forecast for city, fetching it when not cached.
func (p *Provider) Forecast(ctx context.Context, city string) (*Forecast, error) {
	key := CacheKey(city)
	fc, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		p.log.WithError(err).Warn("provider: cache get failed")
		metrics.ForecastCacheTotal.WithLabelValues("error").Inc()
	}
	if ok {
		metrics.ForecastCacheTotal.WithLabelValues("hit").Inc()
		return fc, nil
	}
	metrics.ForecastCacheTotal.WithLabelValues("miss").Inc()
	return p.Refresh(ctx, city)
}

// Refresh fetches city upstream regardless of the cache and stores the result.
func (p *Provider) Refresh(ctx context.Context, city string) (*Forecast, error) {
	key := CacheKey(city)
	v, err, _ := p.group.Do(key, func() (any, error) {
		return p.fetch(ctx, key, NormalizeCity(city))
	})
	if err != nil {
		return nil, err
	}
	return v.(*Forecast), nil
}

func (p *Provider) fetch(ctx context.Context, key, city string) (*Forecast, error) {
	run := p.startRun(city)
	fc, raw, result, err := p.fetcher.Fetch(ctx, city)
	p.completeRun(run, raw, result, err)
	if err != nil {
		p.log.WithError(err).WithField("city", city).Warn("provider: fetch failed")
		return nil, err
	}
	if len(fc.Samples) == 0 {
		p.log.WithField("city", city).Warn("provider: empty forecast")
		return nil, ErrNoData
	}

	if err := p.cache.Set(ctx, key, fc, p.ttl); err != nil {
		p.log.WithError(err).Warn("provider: cache set failed")
	}
	p.log.WithFields(logrus.Fields{"city": city, "samples": len(fc.Samples)}).Debug("provider: fetched forecast")
	return fc, nil
}

func (p *Provider) startRun(city string) *store.IngestRun {
	if p.store == nil {
		return nil
	}
	run, err := p.store.StartIngestRun(SourceOpenWeather, ForecastEndpoint, city)
	if err != nil {
		p.log.WithError(err).Warn("provider: start ingest run")
		return nil
	}
	return run
}

func (p *Provider) completeRun(run *store.IngestRun, raw []byte, result *FetchResult, fetchErr error) {
	if run == nil {
		return
	}
	if result != nil {
		if result.HTTPStatus != 0 {
			run.HTTPStatus = sql.NullInt64{Int64: int64(result.HTTPStatus), Valid: true}
		}
		run.ResponseSizeBytes = sql.NullInt64{Int64: int64(result.ResponseSize), Valid: true}
		run.RecordsParsed = sql.NullInt64{Int64: int64(result.RecordCount + result.ParseErrors), Valid: true}
		run.RecordsStored = sql.NullInt64{Int64: int64(result.RecordCount), Valid: true}
		run.ParseErrors = sql.NullInt64{Int64: int64(result.ParseErrors), Valid: true}
	}
	if fetchErr != nil {
		run.ErrorMessage = sql.NullString{String: fetchErr.Error(), Valid: true}
	} else {
		run.Success = true
		if len(raw) > 0 {
			if _, err := p.store.StoreRawPayload(run.ID, SourceOpenWeather, ForecastEndpoint, run.LocationID.String, raw); err != nil {
				p.log.WithError(err).Warn("provider: store raw payload")
			}
		}
	}
	if err := p.store.CompleteIngestRun(run); err != nil {
		p.log.WithError(err).Warn("provider: complete ingest run")
	}
}
