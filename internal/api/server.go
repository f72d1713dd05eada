// Package api serves the analysis facade, the forecast card and operational
// endpoints over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/lox/clearyfi/internal/card"
	"github.com/lox/clearyfi/internal/forecast"
	"github.com/lox/clearyfi/internal/ingest"
	"github.com/lox/clearyfi/internal/store"
)

type ForecastSource interface {
	Forecast(ctx context.Context, city string) (*ingest.Forecast, error)
}

type Server struct {
	store     *store.Store
	forecasts ForecastSource
	analyzer  *forecast.Analyzer
	port      string
	log       logrus.FieldLogger
}

func NewServer(st *store.Store, forecasts ForecastSource, analyzer *forecast.Analyzer, port string, log logrus.FieldLogger) *Server {
	return &Server{
		store:     st,
		forecasts: forecasts,
		analyzer:  analyzer,
		port:      port,
		log:       log.WithField("component", "api"),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/card", s.handleCard)
	return s.logRequests(mux)
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.log.WithField("port", s.port).Info("api: listening")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).Round(time.Millisecond),
		}).Debug("api: request")
	})
}

type HealthStatus struct {
	Status           string                      `json:"status"`
	Error            string                      `json:"error,omitempty"`
	MigrationVersion int                         `json:"migration_version"`
	Ingest           []store.IngestHealthSummary `json:"ingest"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{Status: "ok", Ingest: []store.IngestHealthSummary{}}

	if err := s.store.Ping(r.Context()); err != nil {
		health.Status = "error"
		health.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, health)
		return
	}

	version, err := s.store.MigrationVersion()
	if err != nil {
		health.Status = "error"
		health.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, health)
		return
	}
	health.MigrationVersion = version

	if summaries, err := s.store.GetIngestHealth(1); err != nil {
		s.log.WithError(err).Warn("api: ingest health")
		health.Status = "degraded"
	} else if len(summaries) > 0 {
		health.Ingest = summaries
	}

	writeJSON(w, http.StatusOK, health)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	city, res, ok := s.analyze(w, r)
	if !ok {
		return
	}
	s.log.WithFields(logrus.Fields{"city": city, "status": res.Status.String()}).Debug("api: analyzed")
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	city, res, ok := s.analyze(w, r)
	if !ok {
		return
	}

	png, err := card.Render(city, res.Days)
	if errors.Is(err, card.ErrNoDays) {
		writeError(w, http.StatusServiceUnavailable, "no forecast data")
		return
	}
	if err != nil {
		s.log.WithError(err).WithField("city", city).Error("api: render card")
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=1800")
	w.Write(png)
}

// analyze fetches and analyses the requested city, writing the error
// response itself when it returns ok=false.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) (string, forecast.Result, bool) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return "", forecast.Result{}, false
	}
	city := ingest.NormalizeCity(r.URL.Query().Get("city"))
	if city == "" {
		writeError(w, http.StatusBadRequest, "city is required")
		return "", forecast.Result{}, false
	}

	fc, err := s.forecasts.Forecast(r.Context(), city)
	switch {
	case errors.Is(err, ingest.ErrNoData):
		return city, s.analyzer.Analyze(nil), true
	case errors.Is(err, ingest.ErrCityNotFound):
		writeError(w, http.StatusNotFound, "city not found")
		return "", forecast.Result{}, false
	case err != nil:
		s.log.WithError(err).WithField("city", city).Warn("api: forecast unavailable")
		writeError(w, http.StatusBadGateway, "forecast unavailable")
		return "", forecast.Result{}, false
	}

	if fc.Location.Name != "" {
		city = fc.Location.Name
	}
	return city, s.analyzer.Analyze(fc.Samples), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
