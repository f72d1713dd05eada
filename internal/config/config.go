// Package config holds the settings shared by every clearyfi command.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is embedded into the kong CLI; every field can be set by flag or
// environment variable.
type Config struct {
	DB        string `name:"db" env:"CLEARYFI_DB" default:"data/clearyfi.db" help:"Path to SQLite database." validate:"required"`
	Locale    string `name:"locale" env:"CLEARYFI_LOCALE" default:"ru" help:"Message catalog language." validate:"oneof=ru en"`
	City      string `name:"default-city" env:"CLEARYFI_DEFAULT_CITY" default:"Moscow" help:"City for new subscribers." validate:"required"`
	LogLevel  string `name:"log-level" env:"LOG_LEVEL" default:"info" help:"Log level." validate:"oneof=trace debug info warn warning error"`
	LogFormat string `name:"log-format" env:"LOG_FORMAT" default:"text" help:"Log format (text or json)." validate:"oneof=text json"`

	OpenWeatherKey string        `name:"openweather-key" env:"OPENWEATHER_API_KEY" help:"OpenWeather API key." validate:"required"`
	RedisAddr      string        `name:"redis-addr" env:"REDIS_ADDR" help:"Redis address for the shared forecast cache; in-memory when empty." validate:"omitempty,hostname_port"`
	CacheTTL       time.Duration `name:"cache-ttl" env:"CACHE_TTL" default:"30m" help:"How long fetched forecasts are reused." validate:"min=1m,max=6h"`
	RawRetention   int           `name:"raw-retention-days" env:"RAW_RETENTION_DAYS" default:"14" help:"Days of raw API payloads to keep." validate:"min=1,max=365"`

	DeepSeekKey     string `name:"deepseek-key" env:"DEEPSEEK_API_KEY" help:"DeepSeek API key; AI advice is disabled when empty."`
	DeepSeekBaseURL string `name:"deepseek-base-url" env:"DEEPSEEK_BASE_URL" default:"https://api.deepseek.com" help:"DeepSeek API base URL." validate:"url"`
	DeepSeekModel   string `name:"deepseek-model" env:"DEEPSEEK_MODEL" default:"deepseek-chat" help:"DeepSeek chat model." validate:"required"`
}

// Server settings only matter to the long-running serve command.
type Server struct {
	Port          string        `name:"port" env:"CLEARYFI_PORT" default:"8080" help:"HTTP server port." validate:"numeric"`
	TelegramToken string        `name:"telegram-token" env:"TELEGRAM_BOT_TOKEN" help:"Telegram bot token."`
	NotifyWindow  time.Duration `name:"notify-window" env:"NOTIFY_WINDOW" default:"5m" help:"Tolerance around a subscriber's notification time." validate:"min=1m,max=1h"`
	NotifyWorkers int           `name:"notify-workers" env:"NOTIFY_WORKERS" default:"8" help:"Concurrent notification sends." validate:"min=1,max=64"`
	NoBot         bool          `name:"no-bot" help:"Do not start the Telegram bot."`
	NoNotify      bool          `name:"no-notify" help:"Do not send daily notifications."`
}

var validate = validator.New()

// Validate checks field constraints and reports every failing field.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Validate also enforces that a bot needs a token.
func (s Server) Validate() error {
	if err := Validate(s); err != nil {
		return err
	}
	if !s.NoBot && s.TelegramToken == "" {
		return errors.New("invalid config: TELEGRAM_BOT_TOKEN is required unless --no-bot is set")
	}
	return nil
}

func (c Config) Validate() error { return Validate(c) }

// AdvisorEnabled reports whether AI advice is configured.
func (c Config) AdvisorEnabled() bool { return c.DeepSeekKey != "" }
