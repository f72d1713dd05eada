package api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/clearyfi/internal/api"
	"github.com/lox/clearyfi/internal/card"
	"github.com/lox/clearyfi/internal/forecast"
	"github.com/lox/clearyfi/internal/ingest"
	"github.com/lox/clearyfi/internal/locale"
	"github.com/lox/clearyfi/internal/logging"
	"github.com/lox/clearyfi/internal/models"
	"github.com/lox/clearyfi/internal/store"
)

type fakeForecasts struct {
	mu       sync.Mutex
	requests []string
	err      error
	empty    bool
}

func (f *fakeForecasts) Forecast(_ context.Context, city string) (*ingest.Forecast, error) {
	f.mu.Lock()
	f.requests = append(f.requests, city)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	fc := &ingest.Forecast{Location: models.Location{Name: city, Country: "RU"}}
	if f.empty {
		return fc, nil
	}
	at := func(day, hour int) time.Time { return time.Date(2026, 3, day, hour, 0, 0, 0, time.UTC) }
	fc.Samples = []models.ForecastSample{
		{Time: at(1, 0), Temp: 10, Humidity: 80, WindSpeed: 6, Precipitation: 1.2, Conditions: []string{"Rain"}},
		{Time: at(1, 12), Temp: 14, Humidity: 70, WindSpeed: 6, Precipitation: 0.4, Conditions: []string{"Rain"}},
		{Time: at(2, 0), Temp: 16, Humidity: 60, WindSpeed: 3, Conditions: []string{"Clear"}},
		{Time: at(2, 12), Temp: 20, Humidity: 60, WindSpeed: 3, Conditions: []string{"Clear"}},
	}
	return fc, nil
}

func setup(t *testing.T) (*api.Server, *store.Store, *fakeForecasts) {
	t.Helper()
	st, err := store.OpenMemory(logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	analyzer, err := forecast.NewAnalyzer(locale.MustLoad("en"))
	require.NoError(t, err)

	fc := &fakeForecasts{}
	return api.NewServer(st, fc, analyzer, "8080", logging.Nop()), st, fc
}

func get(t *testing.T, srv *api.Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	srv, _, _ := setup(t)

	w := get(t, srv, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var health api.HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Positive(t, health.MigrationVersion)
	assert.NotNil(t, health.Ingest)
}

func TestHealthEndpointReportsIngest(t *testing.T) {
	t.Parallel()
	srv, st, _ := setup(t)

	run, err := st.StartIngestRun(ingest.SourceOpenWeather, ingest.ForecastEndpoint, "moscow")
	require.NoError(t, err)
	run.Success = true
	run.RecordsParsed = sql.NullInt64{Int64: 40, Valid: true}
	require.NoError(t, st.CompleteIngestRun(run))

	w := get(t, srv, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var health api.HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	require.Len(t, health.Ingest, 1)
	assert.Equal(t, 1, health.Ingest[0].SuccessRuns)
}

func TestHealthEndpointDatabaseDown(t *testing.T) {
	t.Parallel()
	srv, st, _ := setup(t)
	require.NoError(t, st.Close())

	w := get(t, srv, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"error"`)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	srv, _, _ := setup(t)

	w := get(t, srv, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestAnalyzeEndpoint(t *testing.T) {
	t.Parallel()
	srv, _, fc := setup(t)

	w := get(t, srv, "/api/analyze?city="+url.QueryEscape("питер"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, []string{"Saint Petersburg"}, fc.requests)

	var body struct {
		Status         string           `json:"status"`
		Days           []map[string]any `json:"daily_summary"`
		BestWashDay    map[string]any   `json:"best_wash_day"`
		Alerts         []string         `json:"alerts"`
		Recommendation string           `json:"recommendation_text"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	assert.Len(t, body.Days, 2)
	require.NotNil(t, body.BestWashDay)
	assert.Equal(t, "2026-03-02", body.BestWashDay["date"])
	assert.NotNil(t, body.Alerts)
	assert.NotEmpty(t, body.Recommendation)
}

func TestAnalyzeEndpointNoData(t *testing.T) {
	t.Parallel()
	srv, _, fc := setup(t)
	fc.empty = true

	w := get(t, srv, "/api/analyze?city=Moscow")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"data_unavailable"`)
}

func TestAnalyzeEndpointProviderNoData(t *testing.T) {
	t.Parallel()
	srv, _, fc := setup(t)
	fc.err = fmt.Errorf("fetch: %w", ingest.ErrNoData)

	w := get(t, srv, "/api/analyze?city=Moscow")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"data_unavailable"`)
}

func TestAnalyzeEndpointErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		target string
		err    error
		code   int
	}{
		{"missing city", "/api/analyze", nil, http.StatusBadRequest},
		{"blank city", "/api/analyze?city=%20%20", nil, http.StatusBadRequest},
		{"unknown city", "/api/analyze?city=Atlantis", fmt.Errorf("fetch: %w", ingest.ErrCityNotFound), http.StatusNotFound},
		{"upstream down", "/api/analyze?city=Moscow", errors.New("boom"), http.StatusBadGateway},
		{"card for unknown city", "/api/card?city=Atlantis", ingest.ErrCityNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, fc := setup(t)
			fc.err = tt.err

			w := get(t, srv, tt.target)
			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestAnalyzeEndpointRejectsPost(t *testing.T) {
	t.Parallel()
	srv, _, _ := setup(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/analyze?city=Moscow", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestCardEndpoint(t *testing.T) {
	t.Parallel()
	srv, _, _ := setup(t)

	w := get(t, srv, "/api/card?city=Kazan")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, card.Width, img.Bounds().Dx())
	assert.Equal(t, card.Height, img.Bounds().Dy())
}

func TestCardEndpointNoData(t *testing.T) {
	t.Parallel()
	srv, _, fc := setup(t)
	fc.empty = true

	w := get(t, srv, "/api/card?city=Kazan")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
