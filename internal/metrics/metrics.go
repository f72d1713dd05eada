package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OpenWeatherCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearyfi_openweather_calls_total",
			Help: "Total OpenWeather forecast API calls",
		},
		[]string{"status"},
	)

	OpenWeatherLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clearyfi_openweather_latency_seconds",
			Help:    "OpenWeather API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ForecastCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearyfi_forecast_cache_total",
			Help: "Forecast cache lookups by result",
		},
		[]string{"result"},
	)

	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearyfi_analyses_total",
			Help: "Forecast analyses by outcome status",
		},
		[]string{"status"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearyfi_notifications_total",
			Help: "Daily notifications by result",
		},
		[]string{"result"},
	)

	BotCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearyfi_bot_commands_total",
			Help: "Telegram bot commands handled",
		},
		[]string{"command"},
	)

	AdvisorCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearyfi_advisor_calls_total",
			Help: "AI advisor completions by context and status",
		},
		[]string{"context", "status"},
	)
)
