package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioDays is a wet day, a dry day and a muddy day.
func scenarioDays() []Day {
	return []Day{
		{
			Date: "2026-03-01", TempAvg: 12, TempMin: 10, TempMax: 14, Humidity: 65, Wind: 6,
			Precipitation: 1.6, RainProbability: 1, Conditions: []string{"Rain"}, Visibility: 10000, Confidence: 1,
		},
		{
			Date: "2026-03-02", TempAvg: 18, TempMin: 16, TempMax: 20, Humidity: 60, Wind: 3,
			DryWindow: true, DryHours: 24, Conditions: []string{"Clear"}, Visibility: 10000, Confidence: 1,
		},
		{
			Date: "2026-03-03", TempAvg: 10, TempMin: 8, TempMax: 12, Humidity: 80, Wind: 4,
			Precipitation: 2.5, RainProbability: 1, Mud: true, Conditions: []string{"Rain"}, Visibility: 10000, Confidence: 1,
		},
	}
}

func TestRenderScenario(t *testing.T) {
	days := scenarioDays()
	reg := DefaultRegistry(en)
	events := make(map[string][]Event)
	for _, d := range days {
		events[d.Date] = reg.RunAll(d)
	}

	s := NewRenderer(en).Render(days, events)

	assert.Equal(t, "Ideal day for washing: 2026-03-02. Completely dry conditions.", s.WashAdvice)
	assert.Equal(t, "HIGH mud risk: 2026-03-03 (strong risk). Avoid trips on these days.", s.MudRisk)
	assert.Equal(t, []string{"⚠️ 2026-03-03: muddy roads, the car will get dirty fast."}, s.Alerts)
	assert.Equal(t, []string{"2026-03-02"}, s.BestDays)
	require.Len(t, s.DaySummaries, 3)

	assert.Equal(t,
		"2026-03-02: Clear, 18.0°C, humidity: 60%, precipitation: 0%, mud risk: Low. "+
			"Suitable for washing (dry window, no precipitation, no mud). "+
			"Events: ✅ 2026-03-02: dry window, a good time to wash.",
		s.DaySummaries["2026-03-02"])
	assert.Equal(t,
		"2026-03-03: Rain, 10.0°C, humidity: 80%, precipitation: 100%, mud risk: High. "+
			"Not suitable for washing. "+
			"Events: 🌧 2026-03-03: precipitation expected, better postpone the wash. | "+
			"🟤 2026-03-03: high mud risk, a fresh wash will not last.",
		s.DaySummaries["2026-03-03"])
}

func TestDaySummaryWithoutEvents(t *testing.T) {
	d := scenarioDays()[1]
	got := NewRenderer(en).DaySummary(d, nil)
	assert.Equal(t,
		"2026-03-02: Clear, 18.0°C, humidity: 60%, precipitation: 0%, mud risk: Low. "+
			"Suitable for washing (dry window, no precipitation, no mud). Events: no notable events",
		got)
}

func TestWashAdvice(t *testing.T) {
	r := NewRenderer(en)
	excellent := func(date string, wind float64) Day {
		return Day{Date: date, DryWindow: true, Confidence: 1, Wind: wind}
	}

	tests := []struct {
		name string
		days []Day
		want string
	}{
		{
			name: "two of several excellent days, calmest first",
			days: []Day{excellent("d1", 5), excellent("d2", 1), excellent("d3", 3)},
			want: "Best days for washing: d2, d3. Reliably dry weather.",
		},
		{
			name: "good days",
			days: []Day{
				{Date: "d1", DryWindow: true, RainProbability: 0.1, Wind: 4},
				{Date: "d2", DryWindow: true, RainProbability: 0.2, Wind: 2},
			},
			want: "Good days for washing: d2, d1. Low chance of precipitation.",
		},
		{
			name: "acceptable day",
			days: []Day{{Date: "d1", RainProbability: 0.3, DryHours: 9}},
			want: "Washing is possible on d1, but with some risk. An early wash is recommended.",
		},
		{
			name: "every reason to postpone",
			days: []Day{
				{Date: "d1", RainProbability: 1},
				{Date: "d2", RainProbability: 1, Mud: true},
			},
			want: "Better postpone the wash: precipitation expected, mud risk, no dry periods.",
		},
		{
			name: "no specific reason",
			days: []Day{{Date: "d1", RainProbability: 0.4, DryWindow: true}},
			want: "Better postpone the wash: unfavourable conditions.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.WashAdvice(tt.days))
		})
	}
}

func TestMudRisk(t *testing.T) {
	r := NewRenderer(en)

	assert.Equal(t, "No muddy stretches expected. Roads are in good shape.",
		r.MudRisk([]Day{{Date: "d1"}}))
	assert.Equal(t, "Moderate mud risk: d1 (moderate risk). Take care on dirt roads.",
		r.MudRisk([]Day{{Date: "d1", Mud: true, RainProbability: 0.5}}))
	assert.Equal(t, "Minimal mud risk: d1 (low risk), d2 (low risk). Usual precautions.",
		r.MudRisk([]Day{{Date: "d1", Mud: true}, {Date: "d2", Mud: true, Melt: true}}))
	assert.Equal(t, "HIGH mud risk: d2 (strong risk). Avoid trips on these days.",
		r.MudRisk([]Day{{Date: "d1", Mud: true}, {Date: "d2", Mud: true, RainProbability: 0.7}}))
}

func TestDayAlertsOrder(t *testing.T) {
	d := Day{
		Date:            "d1",
		IceRisk:         true,
		StormRisk:       true,
		TempDrop:        true,
		TempAvg:         -2,
		RainProbability: 1,
		Conditions:      []string{"Snow"},
		Mud:             true,
		Humidity:        95,
		Wind:            16,
	}
	assert.Equal(t, []string{
		"🚨 d1: ICY ROADS! Extremely dangerous!",
		"🚨 d1: STORM WARNING!",
		"⚠️ d1: sharp cooling down to -2.0°C, black ice risk!",
		"⚠️ d1: wet snow. Reduced visibility and grip.",
		"⚠️ d1: muddy roads, the car will get dirty fast.",
		"ℹ️ d1: very high humidity (95%).",
		"ℹ️ d1: strong wind (16.0 m/s).",
	}, NewRenderer(en).DayAlerts(d))
}

func TestDayAlertsWarmDrop(t *testing.T) {
	got := NewRenderer(en).DayAlerts(Day{Date: "d1", TempDrop: true, TempAvg: 4})
	assert.Equal(t, []string{"⚠️ d1: sharp cooling (temperature change)."}, got)
}

func TestAlertsEmptyIsNotNil(t *testing.T) {
	got := NewRenderer(en).Alerts([]Day{{Date: "d1", Humidity: 50}})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
