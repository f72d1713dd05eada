package forecast

import (
	"fmt"
	"math"
	"strings"
)

// Summary is the rendered, human-readable outlook for a forecast.
type Summary struct {
	WashAdvice   string            `json:"wash_advice"`
	MudRisk      string            `json:"mud_risk"`
	Alerts       []string          `json:"alerts"`
	BestDays     []string          `json:"best_days"`
	DaySummaries map[string]string `json:"day_summaries"`
}

// Renderer turns normalized days and their events into text.
type Renderer struct {
	msgs Messages
}

func NewRenderer(msgs Messages) *Renderer {
	return &Renderer{msgs: msgs}
}

// Render builds the full summary. eventsByDay is keyed by Day.Date and may
// contain untriggered or failed events; only triggered ones are shown.
func (r *Renderer) Render(days []Day, eventsByDay map[string][]Event) Summary {
	s := Summary{
		WashAdvice:   r.WashAdvice(days),
		MudRisk:      r.MudRisk(days),
		Alerts:       r.Alerts(days),
		BestDays:     BestWashDays(days),
		DaySummaries: make(map[string]string, len(days)),
	}
	for _, d := range days {
		s.DaySummaries[d.Date] = r.DaySummary(d, eventsByDay[d.Date])
	}
	return s
}

// WashAdvice names up to two days from the best wash tier, or explains why
// no day qualified.
func (r *Renderer) WashAdvice(days []Day) string {
	tier, picked := RankWashDays(days)
	dates := make([]string, 0, 2)
	for i := 0; i < len(picked) && i < 2; i++ {
		dates = append(dates, picked[i].Date)
	}

	switch tier {
	case TierExcellent:
		if len(picked) == 1 {
			return r.msgs.Get("wash.excellent_one", map[string]any{"date": dates[0]})
		}
		return r.msgs.Get("wash.excellent_many", map[string]any{"dates": dates})
	case TierGood:
		return r.msgs.Get("wash.good", map[string]any{"dates": dates})
	case TierAcceptable:
		return r.msgs.Get("wash.acceptable", map[string]any{"date": dates[0]})
	}

	var reasons []string
	if anyDay(days, func(d Day) bool { return d.RainProbability > 0.5 }) {
		reasons = append(reasons, r.msgs.Get("wash.reason.rain", nil))
	}
	if anyDay(days, func(d Day) bool { return d.Mud }) {
		reasons = append(reasons, r.msgs.Get("wash.reason.mud", nil))
	}
	if !anyDay(days, func(d Day) bool { return d.DryWindow }) {
		reasons = append(reasons, r.msgs.Get("wash.reason.no_dry", nil))
	}
	if len(reasons) == 0 {
		reasons = append(reasons, r.msgs.Get("wash.reason.unfavourable", nil))
	}
	return r.msgs.Get("wash.postpone", map[string]any{"reasons": strings.Join(reasons, ", ")})
}

// MudRisk reports the most severe bucket of muddy days.
func (r *Renderer) MudRisk(days []Day) string {
	var high, medium, low []string
	for _, d := range days {
		if !d.Mud {
			continue
		}
		params := map[string]any{"date": d.Date}
		switch {
		case d.RainProbability >= 0.7:
			high = append(high, r.msgs.Get("mud.item.high", params))
		case d.RainProbability >= 0.3:
			medium = append(medium, r.msgs.Get("mud.item.medium", params))
		default:
			low = append(low, r.msgs.Get("mud.item.low", params))
		}
	}

	switch {
	case len(high) > 0:
		return r.msgs.Get("mud.high", map[string]any{"dates": high})
	case len(medium) > 0:
		return r.msgs.Get("mud.medium", map[string]any{"dates": medium})
	case len(low) > 0:
		return r.msgs.Get("mud.low", map[string]any{"dates": low})
	}
	return r.msgs.Get("mud.none", nil)
}

// Alerts emits every applicable alert per day: critical first, then
// important, then informational.
func (r *Renderer) Alerts(days []Day) []string {
	alerts := []string{}
	for _, d := range days {
		alerts = append(alerts, r.DayAlerts(d)...)
	}
	return alerts
}

func (r *Renderer) DayAlerts(d Day) []string {
	var alerts []string
	date := map[string]any{"date": d.Date}

	if d.IceRisk {
		alerts = append(alerts, r.msgs.Get("alerts.ice", date))
	}
	if d.StormRisk {
		alerts = append(alerts, r.msgs.Get("alerts.storm", date))
	}

	switch {
	case d.TempDrop && d.TempAvg < 0:
		alerts = append(alerts, r.msgs.Get("alerts.freeze_drop", map[string]any{
			"date": d.Date,
			"temp": formatTemp(d.TempAvg),
		}))
	case d.TempDrop:
		alerts = append(alerts, r.msgs.Get("alerts.drop", date))
	}
	if d.RainProbability == 1 && hasLabel(d.Conditions, "snow") {
		alerts = append(alerts, r.msgs.Get("alerts.wet_snow", date))
	}
	if d.Mud {
		alerts = append(alerts, r.msgs.Get("alerts.mud", date))
	}

	if d.Humidity > 90 {
		alerts = append(alerts, r.msgs.Get("alerts.humidity", map[string]any{
			"date":     d.Date,
			"humidity": formatPercent(d.Humidity),
		}))
	}
	if d.Wind > 15 {
		alerts = append(alerts, r.msgs.Get("alerts.wind", map[string]any{
			"date": d.Date,
			"wind": formatTemp(d.Wind),
		}))
	}
	return alerts
}

// DaySummary describes one day in a single line.
func (r *Renderer) DaySummary(d Day, events []Event) string {
	risk := "day.risk.low"
	switch {
	case d.Mud && d.RainProbability > 0.5:
		risk = "day.risk.high"
	case d.Mud:
		risk = "day.risk.medium"
	}

	var details []string
	if d.DryWindow {
		details = append(details, r.msgs.Get("day.wash.dry_window", nil))
	}
	if d.RainProbability == 0 {
		details = append(details, r.msgs.Get("day.wash.no_precip", nil))
	}
	if !d.Mud {
		details = append(details, r.msgs.Get("day.wash.no_mud", nil))
	}
	wash := r.msgs.Get("day.wash.bad", nil)
	if len(details) > 0 {
		wash = r.msgs.Get("day.wash.ok", map[string]any{"details": strings.Join(details, ", ")})
	}

	var texts []string
	for _, e := range TriggeredEvents(events) {
		if e.Message != "" {
			texts = append(texts, e.Message)
		} else {
			texts = append(texts, e.Name)
		}
	}
	eventText := r.msgs.Get("day.no_events", nil)
	if len(texts) > 0 {
		eventText = strings.Join(texts, " | ")
	}

	return r.msgs.Get("day.summary", map[string]any{
		"date":       d.Date,
		"conditions": strings.Join(d.Conditions, ", "),
		"temp":       formatTemp(d.TempAvg),
		"humidity":   formatPercent(d.Humidity),
		"precip":     formatPercent(d.RainProbability*100) + "%",
		"risk":       r.msgs.Get(risk, nil),
		"wash":       wash,
		"events":     eventText,
	})
}

func anyDay(days []Day, pred func(Day) bool) bool {
	for _, d := range days {
		if pred(d) {
			return true
		}
	}
	return false
}

func formatTemp(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%d", int(math.Round(v)))
}
