// Package advice turns an analysis result into the per-topic chat messages:
// weather, forecast, wash, tires, roads and maintenance.
package advice

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lox/clearyfi/internal/advisor"
	"github.com/lox/clearyfi/internal/forecast"
)

type Service struct {
	msgs    forecast.Messages
	advisor advisor.Advisor
	log     logrus.FieldLogger
	now     func() time.Time
}

// New builds a Service. adv may be nil, in which case only rule-based text
// is produced.
func New(msgs forecast.Messages, adv advisor.Advisor, log logrus.FieldLogger) *Service {
	if adv == nil {
		adv = advisor.Nop{}
	}
	return &Service{
		msgs:    msgs,
		advisor: adv,
		log:     log.WithField("component", "advice"),
		now:     time.Now,
	}
}

func (s *Service) get(key string, params map[string]any) string {
	return s.msgs.Get(key, params)
}

func (s *Service) noData() string {
	return s.get("analysis.no_data", nil)
}

// NowLine describes the first forecast day in one line.
func (s *Service) NowLine(d forecast.Day) string {
	return s.get("weather.now", map[string]any{
		"date":       d.Date,
		"conditions": strings.Join(d.Conditions, ", "),
		"temp":       oneDecimal(d.TempAvg),
		"min":        oneDecimal(d.TempMin),
		"max":        oneDecimal(d.TempMax),
		"humidity":   fmt.Sprintf("%d", int(math.Round(d.Humidity))),
		"wind":       oneDecimal(d.Wind),
	})
}

// Weather is today's conditions plus today's alerts.
func (s *Service) Weather(city string, res forecast.Result) string {
	today, ok := res.Today()
	if !ok {
		return s.noData()
	}
	alerts := forecast.NewRenderer(s.msgs).DayAlerts(today)
	events := s.get("day.no_events", nil)
	if len(alerts) > 0 {
		events = strings.Join(alerts, "\n")
	}
	return s.get("weather.message", map[string]any{
		"city":   city,
		"now":    s.NowLine(today),
		"events": events,
	})
}

// Forecast lists every day summary followed by the overall recommendation.
func (s *Service) Forecast(city string, res forecast.Result) string {
	if len(res.Days) == 0 {
		return res.Recommendation
	}
	var b strings.Builder
	b.WriteString(s.get("weather.forecast_header", map[string]any{"city": city}))
	b.WriteString("\n\n")
	for _, d := range res.Days {
		b.WriteString(forecast.ClassifyDay(d).Emoji())
		b.WriteString(" ")
		b.WriteString(res.Summary.DaySummaries[d.Date])
		b.WriteString("\n\n")
	}
	b.WriteString(res.Recommendation)
	return b.String()
}

func (s *Service) Wash(city string, res forecast.Result) string {
	today, ok := res.Today()
	if !ok || len(res.Wash) == 0 {
		return s.noData()
	}
	score := res.Wash[0]
	best := s.get("wash.no_best_days", nil)
	if len(res.Summary.BestDays) > 0 {
		best = s.get("wash.best_days", map[string]any{"dates": res.Summary.BestDays})
	}
	return s.get("wash.message", map[string]any{
		"city":   city,
		"now":    s.NowLine(today),
		"advice": res.Summary.WashAdvice,
		"score_line": s.get("wash.score_line", map[string]any{
			"date":    score.Date,
			"score":   fmt.Sprintf("%.0f", score.Score),
			"verdict": s.get("verdict."+score.Verdict, nil),
		}),
		"best": best,
	})
}

func (s *Service) Tires(city string, res forecast.Result) string {
	today, ok := res.Today()
	if !ok {
		return s.noData()
	}
	t := res.Tires

	change := "tires.change.none"
	if t.ChangeRecommended {
		switch t.Season {
		case forecast.SeasonWinter:
			change = "tires.change.winter"
		case forecast.SeasonSummer:
			change = "tires.change.summer"
		}
	}
	service := "tires.service.ok"
	if !t.ServiceOK {
		service = "tires.service.postpone"
	}

	return s.get("tires.message", map[string]any{
		"city":          city,
		"now":           s.NowLine(today),
		"season":        s.get("tires.season."+string(t.Season), nil),
		"season_advice": s.get(change, nil),
		"pressure":      s.get("tires.pressure."+t.Pressure, nil),
		"service":       s.get(service, nil),
		"urgency":       s.urgencyLine("tires.urgency.", t.Urgency),
	})
}

// Roads describes today's road risks. When an advisor is configured its
// answer is appended; advisor failures are logged and ignored.
func (s *Service) Roads(ctx context.Context, city string, res forecast.Result) string {
	today, ok := res.Today()
	if !ok {
		return s.noData()
	}
	r := res.Roads

	condition := "roads.condition.hard"
	switch {
	case r.Score >= 4:
		condition = "roads.condition.good"
	case r.Score >= 3:
		condition = "roads.condition.fair"
	}

	tips := make([]string, 0, len(r.Risks))
	for _, key := range r.TipKeys() {
		tips = append(tips, s.get(key, nil))
	}

	text := s.get("roads.message", map[string]any{
		"city":      city,
		"now":       s.NowLine(today),
		"condition": s.get(condition, nil),
		"score":     r.Score,
		"tips":      strings.Join(tips, "\n"),
		"danger":    s.urgencyLine("roads.danger.", forecast.Urgency(r.Level)),
	})

	facts := map[string]any{
		"city":         city,
		"today":        today,
		"risks":        r.Risks,
		"danger_level": r.Level,
		"forecast":     headDays(res.Days, 3),
	}
	return s.withAdvice(ctx, text, advisor.TopicRoads, facts)
}

func (s *Service) Maintenance(ctx context.Context, city string, res forecast.Result) string {
	today, ok := res.Today()
	if !ok {
		return s.noData()
	}
	plan := PlanMaintenance(s.now(), today)

	text := s.get("maintenance.message", map[string]any{
		"city":     city,
		"now":      s.NowLine(today),
		"season":   s.get("maintenance.season."+string(plan.Season), nil),
		"seasonal": s.bullets("maintenance.item.", plan.Seasonal),
		"fluids":   s.bullets("maintenance.fluid.", plan.Fluids),
		"checks":   s.bullets("maintenance.check.", plan.Checks),
		"urgency":  s.urgencyLine("maintenance.urgency.", plan.Urgency),
	})

	facts := map[string]any{
		"city":     city,
		"today":    today,
		"season":   plan.Season,
		"urgency":  plan.Urgency,
		"fluids":   plan.Fluids,
		"forecast": headDays(res.Days, 3),
	}
	return s.withAdvice(ctx, text, advisor.TopicMaintenance, facts)
}

func (s *Service) withAdvice(ctx context.Context, text string, topic advisor.Topic, facts any) string {
	answer, err := s.advisor.Advise(ctx, topic, facts)
	if err != nil {
		s.log.WithError(err).WithField("topic", topic).Warn("advice: advisor failed, using rules only")
		return text
	}
	if answer == "" {
		return text
	}
	return text + "\n\n" + s.get("advisor.heading", nil) + "\n" + answer
}

func (s *Service) urgencyLine(prefix string, u forecast.Urgency) string {
	switch u {
	case forecast.UrgencyHigh, forecast.UrgencyMedium:
		return s.get(prefix+string(u), nil)
	}
	return ""
}

func (s *Service) bullets(prefix string, keys []string) string {
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = "• " + s.get(prefix+k, nil)
	}
	return strings.Join(lines, "\n")
}

func headDays(days []forecast.Day, n int) []forecast.Day {
	if len(days) > n {
		return days[:n]
	}
	return days
}

func oneDecimal(v float64) string {
	return fmt.Sprintf("%.1f", v)
}
