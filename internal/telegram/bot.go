package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/lox/clearyfi/internal/advice"
	"github.com/lox/clearyfi/internal/card"
	"github.com/lox/clearyfi/internal/forecast"
	"github.com/lox/clearyfi/internal/ingest"
	"github.com/lox/clearyfi/internal/metrics"
	"github.com/lox/clearyfi/internal/models"
	"github.com/lox/clearyfi/internal/store"
)

const (
	// DefaultTimezoneOffset is applied to new subscribers (Moscow time).
	DefaultTimezoneOffset = 3

	updateWorkers = 8
)

// ForecastSource is satisfied by *ingest.Provider.
type ForecastSource interface {
	Forecast(ctx context.Context, city string) (*ingest.Forecast, error)
}

type Bot struct {
	client      *Client
	store       *store.Store
	forecasts   ForecastSource
	analyzer    *forecast.Analyzer
	advice      *advice.Service
	msgs        forecast.Messages
	defaultCity string
	log         logrus.FieldLogger

	mu           sync.Mutex
	awaitingCity map[int64]bool
}

func NewBot(client *Client, st *store.Store, forecasts ForecastSource, analyzer *forecast.Analyzer,
	adv *advice.Service, msgs forecast.Messages, defaultCity string, log logrus.FieldLogger) *Bot {
	return &Bot{
		client:       client,
		store:        st,
		forecasts:    forecasts,
		analyzer:     analyzer,
		advice:       adv,
		msgs:         msgs,
		defaultCity:  defaultCity,
		log:          log.WithField("component", "bot"),
		awaitingCity: make(map[int64]bool),
	}
}

// Run handles updates until ctx is cancelled or the channel closes.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	var g errgroup.Group
	g.SetLimit(updateWorkers)
	b.log.Info("bot: listening for updates")

	for {
		select {
		case <-ctx.Done():
			b.log.Info("bot: shutting down")
			return g.Wait()
		case u, ok := <-updates:
			if !ok {
				return g.Wait()
			}
			g.Go(func() error {
				b.HandleUpdate(ctx, u)
				return nil
			})
		}
	}
}

type handler func(ctx context.Context, msg *tgbotapi.Message, sub *models.Subscriber, args string) (string, error)

func (b *Bot) handlers() map[string]handler {
	return map[string]handler{
		"start":       b.handleStart,
		"help":        b.handleHelp,
		"weather":     b.handleWeather,
		"forecast":    b.handleForecast,
		"wash":        b.handleWash,
		"tires":       b.handleTires,
		"roads":       b.handleRoads,
		"maintenance": b.handleMaintenance,
		"city":        b.handleCity,
		"settings":    b.handleSettings,
		"subscribe":   b.handleSubscribe,
		"unsubscribe": b.handleUnsubscribe,
		"time":        b.handleTime,
		"card":        b.handleCard,
	}
}

// HandleUpdate answers one incoming message.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	msg := u.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}

	var cmd, args string
	switch {
	case msg.IsCommand():
		cmd, args = msg.Command(), strings.TrimSpace(msg.CommandArguments())
	case b.takeAwaitingCity(msg.From.ID):
		cmd, args = "city", strings.TrimSpace(msg.Text)
	default:
		cmd = "text"
	}

	log := b.log.WithFields(logrus.Fields{"user_id": msg.From.ID, "command": cmd})
	h, ok := b.handlers()[cmd]
	if !ok {
		metrics.BotCommandsTotal.WithLabelValues("unknown").Inc()
		b.reply(ctx, msg, b.msgs.Get("bot.unknown_command", nil))
		return
	}
	metrics.BotCommandsTotal.WithLabelValues(cmd).Inc()

	sub, err := b.subscriber(msg)
	if err != nil {
		log.WithError(err).Error("bot: load subscriber")
		b.reply(ctx, msg, b.msgs.Get("errors.generic", nil))
		return
	}

	text, err := h(ctx, msg, sub, args)
	if err != nil {
		log.WithError(err).Error("bot: command failed")
		text = b.msgs.Get("errors.generic", nil)
	}
	if text != "" {
		b.reply(ctx, msg, text)
	}
}

func (b *Bot) reply(ctx context.Context, msg *tgbotapi.Message, text string) {
	if err := b.client.SendText(ctx, msg.Chat.ID, text); err != nil {
		b.log.WithError(err).WithField("chat_id", msg.Chat.ID).Warn("bot: reply failed")
	}
}

// subscriber loads the sender's record, registering them with defaults on
// first contact.
func (b *Bot) subscriber(msg *tgbotapi.Message) (*models.Subscriber, error) {
	sub, err := b.store.GetSubscriber(msg.From.ID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, store.ErrSubscriberNotFound) {
		return nil, err
	}
	if err := b.register(msg); err != nil {
		return nil, err
	}
	return b.store.GetSubscriber(msg.From.ID)
}

func (b *Bot) register(msg *tgbotapi.Message) error {
	return b.store.UpsertSubscriber(models.Subscriber{
		UserID:         msg.From.ID,
		ChatID:         msg.Chat.ID,
		Username:       msg.From.UserName,
		City:           b.defaultCity,
		IsActive:       true,
		TimezoneOffset: DefaultTimezoneOffset,
	})
}

func (b *Bot) setAwaitingCity(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.awaitingCity[userID] = true
}

func (b *Bot) takeAwaitingCity(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.awaitingCity[userID] {
		return false
	}
	delete(b.awaitingCity, userID)
	return true
}

func (b *Bot) handleStart(_ context.Context, msg *tgbotapi.Message, sub *models.Subscriber, _ string) (string, error) {
	// Refresh chat id and username for returning users.
	if err := b.register(msg); err != nil {
		return "", err
	}
	name := msg.From.FirstName
	if name == "" {
		name = msg.From.UserName
	}
	return b.msgs.Get("bot.welcome", map[string]any{"name": name, "city": sub.City}), nil
}

func (b *Bot) handleHelp(context.Context, *tgbotapi.Message, *models.Subscriber, string) (string, error) {
	return b.msgs.Get("bot.help", nil), nil
}

// analyze fetches and analyses the subscriber's city. When the forecast is
// unavailable it returns the user-facing explanation instead of an error.
func (b *Bot) analyze(ctx context.Context, city string) (forecast.Result, string) {
	fc, err := b.forecasts.Forecast(ctx, city)
	switch {
	case errors.Is(err, ingest.ErrCityNotFound):
		return forecast.Result{}, b.msgs.Get("bot.city_unknown", map[string]any{"city": city})
	case err != nil:
		b.log.WithError(err).WithField("city", city).Warn("bot: forecast unavailable")
		return forecast.Result{}, b.msgs.Get("errors.weather_unavailable", nil)
	}
	return b.analyzer.Analyze(fc.Samples), ""
}

func (b *Bot) withResult(ctx context.Context, sub *models.Subscriber, render func(forecast.Result) string) (string, error) {
	res, failure := b.analyze(ctx, sub.City)
	if failure != "" {
		return failure, nil
	}
	return render(res), nil
}

func (b *Bot) handleWeather(ctx context.Context, _ *tgbotapi.Message, sub *models.Subscriber, _ string) (string, error) {
	return b.withResult(ctx, sub, func(res forecast.Result) string { return b.advice.Weather(sub.City, res) })
}

func (b *Bot) handleForecast(ctx context.Context, _ *tgbotapi.Message, sub *models.Subscriber, _ string) (string, error) {
	return b.withResult(ctx, sub, func(res forecast.Result) string { return b.advice.Forecast(sub.City, res) })
}

func (b *Bot) handleWash(ctx context.Context, _ *tgbotapi.Message, sub *models.Subscriber, _ string) (string, error) {
	return b.withResult(ctx, sub, func(res forecast.Result) string { return b.advice.Wash(sub.City, res) })
}

func (b *Bot) handleTires(ctx context.Context, _ *tgbotapi.Message, sub *models.Subscriber, _ string) (string, error) {
	return b.withResult(ctx, sub, func(res forecast.Result) string { return b.advice.Tires(sub.City, res) })
}

func (b *Bot) handleRoads(ctx context.Context, _ *tgbotapi.Message, sub *models.Subscriber, _ string) (string, error) {
	return b.withResult(ctx, sub, func(res forecast.Result) string { return b.advice.Roads(ctx, sub.City, res) })
}

func (b *Bot) handleMaintenance(ctx context.Context, _ *tgbotapi.Message, sub *models.Subscriber, _ string) (string, error) {
	return b.withResult(ctx, sub, func(res forecast.Result) string { return b.advice.Maintenance(ctx, sub.City, res) })
}

func (b *Bot) handleCity(ctx context.Context, msg *tgbotapi.Message, sub *models.Subscriber, args string) (string, error) {
	if args == "" {
		b.setAwaitingCity(sub.UserID)
		return b.msgs.Get("bot.city_prompt", map[string]any{"cities": ingest.PopularCities()}), nil
	}

	city := ingest.NormalizeCity(args)
	if _, err := b.forecasts.Forecast(ctx, city); err != nil {
		if errors.Is(err, ingest.ErrCityNotFound) {
			return b.msgs.Get("bot.city_unknown", map[string]any{"city": args}), nil
		}
		b.log.WithError(err).WithField("city", city).Warn("bot: cannot verify city")
		return b.msgs.Get("errors.weather_unavailable", nil), nil
	}
	if err := b.store.SetCity(sub.UserID, city); err != nil {
		return "", err
	}
	return b.msgs.Get("bot.city_set", map[string]any{"city": city}), nil
}

func (b *Bot) handleSettings(_ context.Context, _ *tgbotapi.Message, sub *models.Subscriber, _ string) (string, error) {
	status := b.msgs.Get("bot.status_off", nil)
	if sub.IsActive {
		status = b.msgs.Get("bot.status_on", nil)
	}
	return b.msgs.Get("bot.settings", map[string]any{
		"city":   sub.City,
		"status": status,
		"time":   sub.NotificationTime,
		"offset": fmt.Sprintf("%+d", sub.TimezoneOffset),
	}), nil
}

func (b *Bot) handleSubscribe(_ context.Context, _ *tgbotapi.Message, sub *models.Subscriber, _ string) (string, error) {
	if err := b.store.SetSubscription(sub.UserID, true); err != nil {
		return "", err
	}
	return b.msgs.Get("bot.subscribed", map[string]any{"time": sub.NotificationTime}), nil
}

func (b *Bot) handleUnsubscribe(_ context.Context, _ *tgbotapi.Message, sub *models.Subscriber, _ string) (string, error) {
	if err := b.store.SetSubscription(sub.UserID, false); err != nil {
		return "", err
	}
	return b.msgs.Get("bot.unsubscribed", nil), nil
}

func (b *Bot) handleTime(_ context.Context, _ *tgbotapi.Message, sub *models.Subscriber, args string) (string, error) {
	hhmm, ok := ParseClock(args)
	if !ok {
		return b.msgs.Get("bot.time_invalid", nil), nil
	}
	if err := b.store.SetNotificationTime(sub.UserID, hhmm); err != nil {
		return "", err
	}
	return b.msgs.Get("bot.time_set", map[string]any{"time": hhmm}), nil
}

func (b *Bot) handleCard(ctx context.Context, msg *tgbotapi.Message, sub *models.Subscriber, _ string) (string, error) {
	res, failure := b.analyze(ctx, sub.City)
	if failure != "" {
		return failure, nil
	}
	if len(res.Days) == 0 {
		return res.Recommendation, nil
	}
	png, err := card.Render(sub.City, res.Days)
	if err != nil {
		return "", err
	}
	if err := b.client.SendPNG(ctx, msg.Chat.ID, "forecast.png", png, res.Summary.WashAdvice); err != nil {
		return "", err
	}
	return "", nil
}

// ParseClock accepts "H:MM" or "HH:MM" and returns the zero-padded form.
func ParseClock(s string) (string, bool) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return t.Format("15:04"), true
}
