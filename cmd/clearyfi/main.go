package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/lox/clearyfi/internal/advice"
	"github.com/lox/clearyfi/internal/advisor"
	"github.com/lox/clearyfi/internal/api"
	"github.com/lox/clearyfi/internal/config"
	"github.com/lox/clearyfi/internal/forecast"
	"github.com/lox/clearyfi/internal/ingest"
	"github.com/lox/clearyfi/internal/locale"
	"github.com/lox/clearyfi/internal/logging"
	"github.com/lox/clearyfi/internal/notify"
	"github.com/lox/clearyfi/internal/store"
	"github.com/lox/clearyfi/internal/telegram"
)

type CLI struct {
	config.Config `embed:""`

	Serve   ServeCmd   `cmd:"" default:"1" help:"Run the HTTP API, Telegram bot and daily notifications."`
	Analyze AnalyzeCmd `cmd:"" help:"Analyze the forecast for one city and print the result."`
	Cleanup CleanupCmd `cmd:"" help:"Delete raw payloads and notification history past retention."`
}

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("clearyfi"),
		kong.Description("Car-care weather advice: wash days, tyres, roads and maintenance."),
		kong.UsageOnError(),
	)

	log := logging.New(cli.LogLevel, cli.LogFormat)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := newApp(ctx, cli.Config, log)
	if err != nil {
		log.WithError(err).Fatal("startup failed")
	}
	defer app.Close()

	kctx.BindTo(ctx, (*context.Context)(nil))
	if err := kctx.Run(app); err != nil {
		log.WithError(err).Fatal("command failed")
	}
}

// App holds the dependencies shared by every command.
type App struct {
	cfg      config.Config
	log      *logrus.Logger
	msgs     *locale.Catalog
	store    *store.Store
	cache    ingest.ForecastCache
	provider *ingest.Provider
	analyzer *forecast.Analyzer
	advisor  advisor.Advisor
}

func newApp(ctx context.Context, cfg config.Config, log *logrus.Logger) (*App, error) {
	msgs, err := locale.Load(cfg.Locale)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.DB)
	if err != nil {
		return nil, err
	}
	st := store.New(db, log)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.WithField("db", cfg.DB).Info("database migrated")

	var cache ingest.ForecastCache = ingest.NewMemoryCache()
	if cfg.RedisAddr != "" {
		rc, err := ingest.NewRedisCache(ctx, cfg.RedisAddr)
		if err != nil {
			db.Close()
			return nil, err
		}
		cache = rc
		log.WithField("addr", cfg.RedisAddr).Info("using redis forecast cache")
	}

	analyzer, err := forecast.NewAnalyzer(msgs)
	if err != nil {
		db.Close()
		return nil, err
	}

	var adv advisor.Advisor = advisor.Nop{}
	if cfg.AdvisorEnabled() {
		c, err := advisor.New(cfg.DeepSeekKey, log,
			advisor.WithBaseURL(cfg.DeepSeekBaseURL),
			advisor.WithModel(cfg.DeepSeekModel),
			advisor.WithLanguage(cfg.Locale),
		)
		if err != nil {
			db.Close()
			return nil, err
		}
		adv = c
		log.WithField("model", cfg.DeepSeekModel).Info("AI advice enabled")
	}

	return &App{
		cfg:      cfg,
		log:      log,
		msgs:     msgs,
		store:    st,
		cache:    cache,
		provider: ingest.NewProvider(ingest.NewOpenWeather(cfg.OpenWeatherKey), cache, st, cfg.CacheTTL, log),
		analyzer: analyzer,
		advisor:  adv,
	}, nil
}

func (a *App) Close() {
	if rc, ok := a.cache.(*ingest.RedisCache); ok {
		rc.Close()
	}
	a.store.Close()
}

type ServeCmd struct {
	config.Server `embed:""`
}

func (c *ServeCmd) Run(ctx context.Context, app *App) error {
	log := app.log
	g, ctx := errgroup.WithContext(ctx)

	server := api.NewServer(app.store, app.provider, app.analyzer, c.Port, log)
	g.Go(func() error { return server.Run(ctx) })

	refresher := ingest.NewScheduler(app.provider, app.store.SubscriberCities, app.cfg.CacheTTL, log)
	g.Go(func() error {
		refresher.Run(ctx)
		return nil
	})

	if c.NoBot {
		log.Info("telegram bot disabled (--no-bot)")
		if !c.NoNotify {
			log.Warn("daily notifications need the bot, not starting them")
		}
		return g.Wait()
	}

	botAPI, err := tgbotapi.NewBotAPI(c.TelegramToken)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	log.WithField("username", botAPI.Self.UserName).Info("telegram bot authorized")

	client := telegram.NewClient(botAPI, 3, time.Second, log)
	svc := advice.New(app.msgs, app.advisor, log)
	bot := telegram.NewBot(client, app.store, app.provider, app.analyzer, svc, app.msgs, app.cfg.City, log)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := botAPI.GetUpdatesChan(u)
	g.Go(func() error {
		<-ctx.Done()
		botAPI.StopReceivingUpdates()
		return nil
	})
	g.Go(func() error { return bot.Run(ctx, updates) })

	if c.NoNotify {
		log.Info("daily notifications disabled (--no-notify)")
	} else {
		sched := notify.NewScheduler(notify.Config{
			Window:        c.NotifyWindow,
			Workers:       c.NotifyWorkers,
			RetentionDays: app.cfg.RawRetention,
		}, app.store, app.provider, app.analyzer, client, app.msgs, log)
		g.Go(func() error { return sched.Run(ctx) })
	}

	return g.Wait()
}

type AnalyzeCmd struct {
	City      string `name:"city" help:"City to analyze (Russian names and aliases are accepted)."`
	PayloadID int64  `name:"payload-id" help:"Analyze a stored raw provider response instead of fetching."`
	JSON      bool   `name:"json" help:"Print the full analysis as JSON."`
}

func (c *AnalyzeCmd) Validate() error {
	if (c.City == "") == (c.PayloadID == 0) {
		return errors.New("exactly one of --city or --payload-id is required")
	}
	return nil
}

func (c *AnalyzeCmd) Run(ctx context.Context, app *App) error {
	fc, err := c.forecast(ctx, app)
	if err != nil {
		return err
	}
	res := app.analyzer.Analyze(fc.Samples)

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Println(res.Recommendation)
	return nil
}

func (c *AnalyzeCmd) forecast(ctx context.Context, app *App) (*ingest.Forecast, error) {
	if c.PayloadID != 0 {
		fc, result, err := ingest.Replay(app.store, c.PayloadID)
		if err != nil {
			return nil, err
		}
		app.log.WithFields(logrus.Fields{
			"payload_id":   c.PayloadID,
			"city":         fc.Location.Name,
			"samples":      result.RecordCount,
			"parse_errors": result.ParseErrors,
		}).Info("replaying stored payload")
		return fc, nil
	}

	city := ingest.NormalizeCity(c.City)
	fc, err := app.provider.Forecast(ctx, city)
	if errors.Is(err, ingest.ErrNoData) {
		return &ingest.Forecast{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("forecast %s: %w", city, err)
	}
	return fc, nil
}

type CleanupCmd struct{}

func (c *CleanupCmd) Run(app *App) error {
	payloads, err := app.store.CleanupOldRawPayloads(app.cfg.RawRetention)
	if err != nil {
		return fmt.Errorf("cleanup raw payloads: %w", err)
	}
	logs, err := app.store.CleanupNotificationLog(app.cfg.RawRetention)
	if err != nil {
		return fmt.Errorf("cleanup notification log: %w", err)
	}

	stats, err := app.store.GetRawPayloadStats()
	if err != nil {
		return fmt.Errorf("raw payload stats: %w", err)
	}
	app.log.WithFields(logrus.Fields{
		"deleted_payloads":      payloads,
		"deleted_notifications": logs,
		"remaining_payloads":    stats.TotalCount,
		"remaining_bytes":       stats.TotalSizeBytes,
	}).Info("cleanup done")
	return nil
}
