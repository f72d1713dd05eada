// Package notify sends the daily car-care outlook to subscribers at their
// chosen local time.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/lox/clearyfi/internal/forecast"
	"github.com/lox/clearyfi/internal/ingest"
	"github.com/lox/clearyfi/internal/metrics"
	"github.com/lox/clearyfi/internal/models"
	"github.com/lox/clearyfi/internal/store"
	"github.com/lox/clearyfi/internal/telegram"
)

const (
	dispatchSpec = "@every 1m"
	cleanupSpec  = "0 3 * * *"
	jobTimeout   = 10 * time.Minute
)

// Sender delivers a text message. *telegram.Client satisfies it.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

type ForecastSource interface {
	Forecast(ctx context.Context, city string) (*ingest.Forecast, error)
}

type Config struct {
	Window        time.Duration // how far from notification_time a send may happen
	Workers       int           // cities processed concurrently
	RetentionDays int           // raw payload and notification log retention
}

type Scheduler struct {
	store     *store.Store
	forecasts ForecastSource
	analyzer  *forecast.Analyzer
	sender    Sender
	msgs      forecast.Messages
	cfg       Config
	cron      *cron.Cron
	now       func() time.Time
	log       logrus.FieldLogger
}

func NewScheduler(cfg Config, st *store.Store, forecasts ForecastSource, analyzer *forecast.Analyzer,
	sender Sender, msgs forecast.Messages, log logrus.FieldLogger) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Scheduler{
		store:     st,
		forecasts: forecasts,
		analyzer:  analyzer,
		sender:    sender,
		msgs:      msgs,
		cfg:       cfg,
		cron:      cron.New(cron.WithLocation(time.UTC)),
		now:       time.Now,
		log:       log.WithField("component", "notify"),
	}
}

// Run schedules the dispatch and cleanup jobs and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(dispatchSpec, func() { s.runJob(ctx, "dispatch", s.dispatchJob) }); err != nil {
		return fmt.Errorf("schedule dispatch: %w", err)
	}
	if _, err := s.cron.AddFunc(cleanupSpec, func() { s.runJob(ctx, "cleanup", s.Cleanup) }); err != nil {
		return fmt.Errorf("schedule cleanup: %w", err)
	}

	s.cron.Start()
	s.log.WithField("window", s.cfg.Window).Info("notify: scheduler started")

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.log.Info("notify: scheduler stopped")
	return nil
}

func (s *Scheduler) runJob(parent context.Context, name string, job func(context.Context) error) {
	if parent.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, jobTimeout)
	defer cancel()

	start := time.Now()
	if err := job(ctx); err != nil {
		s.log.WithError(err).WithField("job", name).Error("notify: job failed")
		return
	}
	s.log.WithFields(logrus.Fields{"job": name, "duration": time.Since(start).Round(time.Millisecond)}).Debug("notify: job done")
}

func (s *Scheduler) dispatchJob(ctx context.Context) error {
	_, err := s.Dispatch(ctx)
	return err
}

// Due reports whether sub should be notified at now and, if so, the local
// date the notification counts against. Times near midnight match across
// the date boundary.
func Due(sub models.Subscriber, now time.Time, window time.Duration) (string, bool) {
	clock, err := time.Parse("15:04", sub.NotificationTime)
	if err != nil {
		return "", false
	}
	local := sub.LocalNow(now)
	target := time.Date(local.Year(), local.Month(), local.Day(), clock.Hour(), clock.Minute(), 0, 0, local.Location())

	for _, t := range []time.Time{target, target.AddDate(0, 0, -1), target.AddDate(0, 0, 1)} {
		d := local.Sub(t)
		if d < 0 {
			d = -d
		}
		if d <= window {
			return t.Format(forecast.DateLayout), true
		}
	}
	return "", false
}

type DispatchStats struct {
	Due     int
	Sent    int
	Failed  int
	Skipped int // already notified for the date
}

type delivery struct {
	sub  models.Subscriber
	date string
}

// Dispatch sends the daily message to every active subscriber whose
// notification time falls inside the window. Each subscriber is claimed in
// the notification log first, so overlapping dispatches never double-send;
// failed deliveries release the claim to be retried on the next tick.
func (s *Scheduler) Dispatch(ctx context.Context) (DispatchStats, error) {
	runID := uuid.NewString()
	log := s.log.WithField("run_id", runID)
	now := s.now()

	subs, err := s.store.ActiveSubscribers()
	if err != nil {
		return DispatchStats{}, fmt.Errorf("list subscribers: %w", err)
	}

	var stats DispatchStats
	byCity := make(map[string][]delivery)
	var cities []string
	for _, sub := range subs {
		date, ok := Due(sub, now, s.cfg.Window)
		if !ok {
			continue
		}
		stats.Due++

		claimed, err := s.store.MarkNotified(sub.UserID, date)
		if err != nil {
			log.WithError(err).WithField("user_id", sub.UserID).Warn("notify: claim failed")
			stats.Failed++
			continue
		}
		if !claimed {
			stats.Skipped++
			continue
		}

		key := ingest.CacheKey(sub.City)
		if _, ok := byCity[key]; !ok {
			cities = append(cities, key)
		}
		byCity[key] = append(byCity[key], delivery{sub: sub, date: date})
	}
	if len(cities) == 0 {
		return stats, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for _, key := range cities {
		batch := byCity[key]
		g.Go(func() error {
			sent, failed := s.deliverCity(gctx, log, batch)
			mu.Lock()
			stats.Sent += sent
			stats.Failed += failed
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	log.WithFields(logrus.Fields{
		"due":     stats.Due,
		"sent":    stats.Sent,
		"failed":  stats.Failed,
		"skipped": stats.Skipped,
		"cities":  len(cities),
	}).Info("notify: dispatch complete")
	return stats, nil
}

// deliverCity fetches the city once and sends to every subscriber in batch.
func (s *Scheduler) deliverCity(ctx context.Context, log logrus.FieldLogger, batch []delivery) (sent, failed int) {
	city := batch[0].sub.City
	log = log.WithField("city", city)

	fc, err := s.forecasts.Forecast(ctx, city)
	if errors.Is(err, ingest.ErrNoData) {
		// Still a delivery: the analysis explains that there is no data.
		log.Info("notify: forecast has no data")
		fc, err = &ingest.Forecast{}, nil
	}
	if err != nil {
		log.WithError(err).Warn("notify: forecast unavailable")
		for _, d := range batch {
			s.release(log, d)
		}
		metrics.NotificationsTotal.WithLabelValues("forecast_error").Add(float64(len(batch)))
		return 0, len(batch)
	}

	res := s.analyzer.Analyze(fc.Samples)
	text := s.msgs.Get("notify.daily_header", map[string]any{"city": city}) + "\n\n" + res.Recommendation

	for _, d := range batch {
		err := s.sender.SendText(ctx, d.sub.ChatID, text)
		switch {
		case err == nil:
			sent++
			metrics.NotificationsTotal.WithLabelValues("sent").Inc()
		case errors.Is(err, telegram.ErrChatUnavailable):
			failed++
			metrics.NotificationsTotal.WithLabelValues("unreachable").Inc()
			log.WithField("user_id", d.sub.UserID).Info("notify: chat unavailable, unsubscribing")
			if err := s.store.SetSubscription(d.sub.UserID, false); err != nil {
				log.WithError(err).Warn("notify: unsubscribe failed")
			}
		default:
			failed++
			metrics.NotificationsTotal.WithLabelValues("send_error").Inc()
			log.WithError(err).WithField("user_id", d.sub.UserID).Warn("notify: send failed")
			s.release(log, d)
		}
	}
	return sent, failed
}

func (s *Scheduler) release(log logrus.FieldLogger, d delivery) {
	if err := s.store.UnmarkNotified(d.sub.UserID, d.date); err != nil {
		log.WithError(err).WithField("user_id", d.sub.UserID).Warn("notify: release claim failed")
	}
}

// Cleanup removes raw payloads and notification log rows past retention.
func (s *Scheduler) Cleanup(context.Context) error {
	payloads, err := s.store.CleanupOldRawPayloads(s.cfg.RetentionDays)
	if err != nil {
		return fmt.Errorf("cleanup raw payloads: %w", err)
	}
	logs, err := s.store.CleanupNotificationLog(s.cfg.RetentionDays)
	if err != nil {
		return fmt.Errorf("cleanup notification log: %w", err)
	}
	s.log.WithFields(logrus.Fields{"raw_payloads": payloads, "notification_log": logs}).Info("notify: cleanup done")
	return nil
}
