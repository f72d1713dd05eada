package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"

	"github.com/lox/clearyfi/internal/httputil"
	"github.com/lox/clearyfi/internal/metrics"
	"github.com/lox/clearyfi/internal/models"
)

const (
	SourceOpenWeather = "openweather"
	ForecastEndpoint  = "data/2.5/forecast"
	DefaultBaseURL    = "https://api.openweathermap.org"
)

var (
	ErrCityNotFound = errors.New("city not found")
	ErrUnauthorized = errors.New("openweather: invalid api key")
	ErrCircuitOpen  = errors.New("openweather: circuit open")
)

// FetchResult contains metadata about a fetch operation for ingest auditing.
type FetchResult struct {
	HTTPStatus   int
	ResponseSize int
	RecordCount  int
	ParseErrors  int
	ParseError   string
	Error        error
}

// Forecast is a provider response reduced to what the engine needs.
type Forecast struct {
	Location  models.Location         `json:"location"`
	Samples   []models.ForecastSample `json:"samples"`
	FetchedAt time.Time               `json:"fetched_at"`
}

type OpenWeather struct {
	apiKey     string
	baseURL    string
	client     *http.Client
	breaker    *gobreaker.CircuitBreaker[upstreamResponse]
	newBackOff func() backoff.BackOff
}

type OpenWeatherOption func(*OpenWeather)

func WithBaseURL(u string) OpenWeatherOption {
	return func(o *OpenWeather) { o.baseURL = u }
}

func WithHTTPClient(c *http.Client) OpenWeatherOption {
	return func(o *OpenWeather) { o.client = c }
}

// WithBackOff replaces the retry policy; f is called once per Fetch.
func WithBackOff(f func() backoff.BackOff) OpenWeatherOption {
	return func(o *OpenWeather) { o.newBackOff = f }
}

func NewOpenWeather(apiKey string, opts ...OpenWeatherOption) *OpenWeather {
	o := &OpenWeather{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		client:  httputil.NewClient(),
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.MaxElapsedTime = time.Minute
			return bo
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	o.breaker = gobreaker.NewCircuitBreaker[upstreamResponse](gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
	return o
}

type upstreamResponse struct {
	status int
	body   []byte
}

type forecastResponse struct {
	List []forecastItem `json:"list"`
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
		Coord   struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"coord"`
	} `json:"city"`
}

type forecastItem struct {
	Dt    int64  `json:"dt"`
	DtTxt string `json:"dt_txt"`
	Main  struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64  `json:"speed"`
		Gust  *float64 `json:"gust"`
	} `json:"wind"`
	Visibility *float64 `json:"visibility"`
	Weather    []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Rain *precipVolume `json:"rain"`
	Snow *precipVolume `json:"snow"`
}

type precipVolume struct {
	ThreeHour *float64 `json:"3h"`
	OneHour   *float64 `json:"1h"`
}

func (p *precipVolume) mm() float64 {
	switch {
	case p == nil:
		return 0
	case p.ThreeHour != nil:
		return *p.ThreeHour
	case p.OneHour != nil:
		return *p.OneHour
	}
	return 0
}

// Fetch downloads the 5 day / 3 hour forecast for city. Rate limiting and
// server errors are retried; an unknown city is returned as ErrCityNotFound.
func (o *OpenWeather) Fetch(ctx context.Context, city string) (*Forecast, []byte, *FetchResult, error) {
	q := url.Values{}
	q.Set("q", city)
	q.Set("units", "metric")
	q.Set("appid", o.apiKey)
	endpoint := fmt.Sprintf("%s/%s?%s", o.baseURL, ForecastEndpoint, q.Encode())

	result := &FetchResult{}
	var body []byte

	operation := func() error {
		start := time.Now()
		resp, err := o.breaker.Execute(func() (upstreamResponse, error) {
			return o.do(ctx, endpoint)
		})
		metrics.OpenWeatherLatency.Observe(time.Since(start).Seconds())

		result.HTTPStatus = resp.status
		result.ResponseSize = len(resp.body)
		body = resp.body

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.OpenWeatherCallsTotal.WithLabelValues("circuit_open").Inc()
			return backoff.Permanent(ErrCircuitOpen)
		}
		if err != nil {
			metrics.OpenWeatherCallsTotal.WithLabelValues("error").Inc()
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("fetch forecast: %w", err)
		}

		metrics.OpenWeatherCallsTotal.WithLabelValues(fmt.Sprint(resp.status)).Inc()
		switch resp.status {
		case http.StatusOK:
			return nil
		case http.StatusNotFound:
			return backoff.Permanent(fmt.Errorf("%w: %s", ErrCityNotFound, city))
		case http.StatusUnauthorized:
			return backoff.Permanent(ErrUnauthorized)
		default:
			return backoff.Permanent(fmt.Errorf("fetch forecast: status %d: %s", resp.status, string(resp.body)))
		}
	}

	if err := backoff.Retry(operation, backoff.WithContext(o.newBackOff(), ctx)); err != nil {
		result.Error = err
		return nil, body, result, err
	}

	fc, err := parseForecast(body, result)
	if err != nil {
		result.Error = err
		return nil, body, result, err
	}
	return fc, body, result, nil
}

// do performs one request. 429 and 5xx are reported as errors so the breaker
// counts them.
func (o *OpenWeather) do(ctx context.Context, endpoint string) (upstreamResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return upstreamResponse{}, err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return upstreamResponse{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	out := upstreamResponse{status: resp.StatusCode, body: body}
	if err != nil {
		return out, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return out, fmt.Errorf("upstream returned %d", resp.StatusCode)
	}
	return out, nil
}

func parseForecast(body []byte, result *FetchResult) (*Forecast, error) {
	var data forecastResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	fc := &Forecast{
		Location: models.Location{
			Name:    data.City.Name,
			Country: data.City.Country,
			Lat:     data.City.Coord.Lat,
			Lon:     data.City.Coord.Lon,
		},
		Samples:   make([]models.ForecastSample, 0, len(data.List)),
		FetchedAt: time.Now().UTC(),
	}

	var parseErrors []string
	for i, item := range data.List {
		s, err := item.sample()
		if err != nil {
			parseErrors = append(parseErrors, fmt.Sprintf("list[%d]: %v", i, err))
			continue
		}
		if flags := ValidateSample(s); len(flags) > 0 {
			parseErrors = append(parseErrors, fmt.Sprintf("list[%d]: %s", i, QualityFlagsToJSON(flags)))
			continue
		}
		fc.Samples = append(fc.Samples, s)
	}

	result.RecordCount = len(fc.Samples)
	if len(parseErrors) > 0 {
		result.ParseErrors = len(parseErrors)
		result.ParseError = fmt.Sprintf("%d parse errors: %v", len(parseErrors), parseErrors[0])
	}
	return fc, nil
}

func (item forecastItem) sample() (models.ForecastSample, error) {
	var ts time.Time
	switch {
	case item.Dt > 0:
		ts = time.Unix(item.Dt, 0).UTC()
	case item.DtTxt != "":
		t, err := time.Parse(time.DateTime, item.DtTxt)
		if err != nil {
			return models.ForecastSample{}, fmt.Errorf("dt_txt=%q: %w", item.DtTxt, err)
		}
		ts = t
	default:
		return models.ForecastSample{}, errors.New("missing timestamp")
	}
	// Missing readings decode as 0 and the slot still counts towards the day.
	s := models.ForecastSample{
		Time:          ts,
		Temp:          item.Main.Temp,
		Humidity:      item.Main.Humidity,
		WindSpeed:     item.Wind.Speed,
		Precipitation: item.Rain.mm() + item.Snow.mm(),
	}
	if item.Wind.Gust != nil {
		s.WindGust = *item.Wind.Gust
	}
	if item.Visibility != nil {
		s.Visibility = sql.NullFloat64{Float64: *item.Visibility, Valid: true}
	}
	for _, w := range item.Weather {
		if w.Main != "" {
			s.Conditions = append(s.Conditions, w.Main)
		}
	}
	return s, nil
}
