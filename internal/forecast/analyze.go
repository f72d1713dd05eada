package forecast

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lox/clearyfi/internal/metrics"
	"github.com/lox/clearyfi/internal/models"
)

// Status distinguishes a full analysis from one with missing input or
// failed detectors.
type Status int

const (
	StatusSuccess Status = iota
	StatusDataUnavailable
	StatusPartialFailure
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusDataUnavailable:
		return "data_unavailable"
	case StatusPartialFailure:
		return "partial_failure"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Result is the output of one analysis. Recommendation is never empty.
type Result struct {
	Status         Status         `json:"status"`
	Days           []Day          `json:"daily_summary"`
	BestWashDay    *Day           `json:"best_wash_day"`
	Alerts         []string       `json:"alerts"`
	Recommendation string         `json:"recommendation_text"`
	Summary        Summary        `json:"summary"`
	Wash           []DayScore     `json:"wash_scores"`
	Roads          RoadAssessment `json:"roads"`
	Tires          TireAdvice     `json:"tires"`
	DetectorErrors []Event        `json:"detector_errors,omitempty"`
	SkippedSamples int            `json:"skipped_samples"`
}

// Today returns the first day of the forecast.
func (r Result) Today() (Day, bool) {
	if len(r.Days) == 0 {
		return Day{}, false
	}
	return r.Days[0], true
}

// Analyzer composes normalization, detection, scoring and rendering. It holds
// no per-call state and is safe for concurrent use.
type Analyzer struct {
	msgs     Messages
	registry *Registry
	renderer *Renderer
	wash     WashConfig
}

type Option func(*Analyzer)

func WithRegistry(r *Registry) Option {
	return func(a *Analyzer) { a.registry = r }
}

func WithWashConfig(cfg WashConfig) Option {
	return func(a *Analyzer) { a.wash = cfg }
}

func NewAnalyzer(msgs Messages, opts ...Option) (*Analyzer, error) {
	a := &Analyzer{
		msgs:     msgs,
		registry: DefaultRegistry(msgs),
		renderer: NewRenderer(msgs),
		wash:     DefaultWashConfig(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.wash.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Analyzer) Messages() Messages { return a.msgs }

// Analyze runs the whole pipeline over raw samples. Nil or empty input, or
// input with no usable sample, yields StatusDataUnavailable.
func (a *Analyzer) Analyze(samples []models.ForecastSample) Result {
	days, skipped := NormalizeWithStats(samples)
	res := a.AnalyzeDays(days)
	res.SkippedSamples = skipped
	return res
}

// AnalyzeDays runs detection, scoring and rendering over already normalized days.
func (a *Analyzer) AnalyzeDays(days []Day) Result {
	res := a.analyzeDays(days)
	metrics.AnalysesTotal.WithLabelValues(res.Status.String()).Inc()
	return res
}

func (a *Analyzer) analyzeDays(days []Day) Result {
	if len(days) == 0 {
		return Result{
			Status:         StatusDataUnavailable,
			Days:           []Day{},
			Alerts:         []string{},
			Recommendation: a.msgs.Get("analysis.no_data", nil),
			Summary: Summary{
				Alerts:       []string{},
				BestDays:     []string{},
				DaySummaries: map[string]string{},
			},
		}
	}

	eventsByDay := make(map[string][]Event, len(days))
	var failed []Event
	for _, d := range days {
		events := a.registry.RunAll(d)
		eventsByDay[d.Date] = events
		failed = append(failed, FailedEvents(events)...)
	}

	summary := a.renderer.Render(days, eventsByDay)

	res := Result{
		Status:         StatusSuccess,
		Days:           days,
		Alerts:         summary.Alerts,
		Summary:        summary,
		Roads:          AssessRoads(days[0]),
		Tires:          AssessTires(days[0].TempAvg, days),
		DetectorErrors: failed,
	}
	if len(failed) > 0 {
		res.Status = StatusPartialFailure
	}

	for _, d := range days {
		res.Wash = append(res.Wash, WashScore(d, a.wash))
	}

	if len(summary.BestDays) > 0 {
		for i := range days {
			if days[i].Date == summary.BestDays[0] {
				best := days[i]
				res.BestWashDay = &best
				break
			}
		}
	}

	res.Recommendation = a.recommendation(res)
	return res
}

func (a *Analyzer) recommendation(res Result) string {
	var b strings.Builder
	b.WriteString(a.msgs.Get("analysis.header", nil))
	b.WriteString("\n\n")
	b.WriteString(res.Summary.WashAdvice)
	b.WriteString("\n")
	b.WriteString(res.Summary.MudRisk)
	b.WriteString("\n\n")

	if len(res.Summary.BestDays) > 0 {
		b.WriteString(a.msgs.Get("analysis.best_days", map[string]any{"dates": res.Summary.BestDays}))
	} else {
		b.WriteString(a.msgs.Get("analysis.no_best_day", nil))
	}

	if len(res.Alerts) > 0 {
		b.WriteString("\n\n")
		b.WriteString(a.msgs.Get("analysis.alerts_header", nil))
		for _, alert := range res.Alerts {
			b.WriteString("\n• ")
			b.WriteString(alert)
		}
	}

	if res.Status == StatusPartialFailure {
		b.WriteString("\n\n")
		b.WriteString(a.msgs.Get("analysis.partial", nil))
	}
	return b.String()
}
