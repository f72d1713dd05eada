package forecast

import (
	"math"
	"sort"

	"github.com/lox/clearyfi/internal/models"
)

// DateLayout is the calendar-date format used as the key for a Day.
const DateLayout = "2006-01-02"

const (
	// slotHours is the width of one provider sample.
	slotHours = 3.0

	tempDropThreshold = -5.0
	mudHumidity       = 75.0
	dryHumidity       = 70.0
	defaultVisibility = 10000.0
	stormWind         = 20.0
)

// Day is one calendar day of forecast reduced to averaged and derived fields.
type Day struct {
	Date            string   `json:"date"`
	TempAvg         float64  `json:"temperature_avg"`
	TempMin         float64  `json:"temperature_min"`
	TempMax         float64  `json:"temperature_max"`
	Humidity        float64  `json:"humidity_avg"`
	Wind            float64  `json:"wind_speed_avg"`
	WindGustMax     float64  `json:"wind_gust_max"`
	Precipitation   float64  `json:"precipitation"`
	Visibility      float64  `json:"visibility_min"`
	Conditions      []string `json:"conditions"`
	RainProbability float64  `json:"rain_probability"`
	TempDelta       *float64 `json:"temperature_delta"`
	TempDrop        bool     `json:"temperature_drop"`
	HadSnow         bool     `json:"had_snow"`
	Melt            bool     `json:"melt_flag"`
	Mud             bool     `json:"mud_flag"`
	DryWindow       bool     `json:"dry_window"`
	DryHours        float64  `json:"dry_hours"`
	SunnyHours      float64  `json:"sunny_hours"`
	Confidence      float64  `json:"confidence"`
	PollenLevel     float64  `json:"pollen_level"`
	IceRisk         bool     `json:"ice_risk"`
	StormRisk       bool     `json:"storm_risk"`
}

// Rainy reports whether any precipitation volume fell on the day.
func (d Day) Rainy() bool { return d.RainProbability > 0 }

// Normalize groups samples by calendar date and derives one Day per date in
// ascending order. Samples without a timestamp are skipped.
func Normalize(samples []models.ForecastSample) []Day {
	days, _ := NormalizeWithStats(samples)
	return days
}

// NormalizeWithStats is Normalize that also reports how many samples were skipped.
func NormalizeWithStats(samples []models.ForecastSample) ([]Day, int) {
	groups := make(map[string][]models.ForecastSample)
	skipped := 0
	for _, s := range samples {
		if s.Time.IsZero() {
			skipped++
			continue
		}
		key := s.Time.UTC().Format(DateLayout)
		groups[key] = append(groups[key], s)
	}

	dates := make([]string, 0, len(groups))
	for date := range groups {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	days := make([]Day, 0, len(dates))
	var prevTemp *float64
	prevHadSnow := false

	for _, date := range dates {
		day := aggregateDay(date, groups[date])

		if prevTemp != nil {
			delta := round1(day.TempAvg - *prevTemp)
			day.TempDelta = &delta
			day.TempDrop = delta <= tempDropThreshold
		}
		day.Melt = prevHadSnow && day.TempAvg > 0
		day.Mud = (day.Humidity >= mudHumidity && day.Rainy()) || day.Melt
		day.DryWindow = !day.Rainy() && day.Humidity < dryHumidity

		avg := day.TempAvg
		prevTemp = &avg
		prevHadSnow = day.HadSnow

		days = append(days, day)
	}
	return days, skipped
}

// aggregateDay computes everything that depends only on the day's own samples.
func aggregateDay(date string, samples []models.ForecastSample) Day {
	// Fixed summation order keeps the result independent of input order.
	sort.SliceStable(samples, func(i, j int) bool { return sampleLess(samples[i], samples[j]) })

	var tempSum, humSum, windSum, precip float64
	tempMin, tempMax := math.Inf(1), math.Inf(-1)
	visibility := math.Inf(1)
	var gust float64
	var drySlots, sunnySlots int
	seen := make(map[string]bool)
	var conditions []string

	for _, s := range samples {
		tempSum += s.Temp
		humSum += s.Humidity
		windSum += s.WindSpeed
		precip += s.Precipitation
		tempMin = math.Min(tempMin, s.Temp)
		tempMax = math.Max(tempMax, s.Temp)
		gust = math.Max(gust, s.WindGust)
		if s.Visibility.Valid {
			visibility = math.Min(visibility, s.Visibility.Float64)
		}
		if s.Precipitation <= 0 {
			drySlots++
		}
		if IsClear(s.Conditions) {
			sunnySlots++
		}
		for _, c := range s.Conditions {
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			conditions = append(conditions, c)
		}
	}
	// Samples that tie on every numeric field can still arrive in any order.
	sort.Strings(conditions)

	n := float64(len(samples))
	day := Day{
		Date:          date,
		TempAvg:       round1(tempSum / n),
		TempMin:       round1(tempMin),
		TempMax:       round1(tempMax),
		Humidity:      round1(humSum / n),
		Wind:          round1(windSum / n),
		WindGustMax:   round1(gust),
		Precipitation: round1(precip),
		Visibility:    defaultVisibility,
		Conditions:    conditions,
		DryHours:      float64(drySlots) * slotHours,
		SunnyHours:    float64(sunnySlots) * slotHours,
		Confidence:    confidence(len(samples)),
	}
	if conditions == nil {
		day.Conditions = []string{}
	}
	if !math.IsInf(visibility, 1) {
		day.Visibility = visibility
	}
	if precip > 0 {
		day.RainProbability = 1
	}
	day.HadSnow = hasLabel(conditions, "snow")
	day.IceRisk = day.TempMin < 0 && day.Rainy()
	day.StormRisk = IsStormy(conditions) || day.WindGustMax >= stormWind || day.Wind >= stormWind
	return day
}

// confidence is lower for partial days at either end of the forecast window.
func confidence(samples int) float64 {
	if samples >= 6 {
		return 1.0
	}
	return math.Max(0.25, float64(samples)/8)
}

func sampleLess(a, b models.ForecastSample) bool {
	if !a.Time.Equal(b.Time) {
		return a.Time.Before(b.Time)
	}
	if a.Temp != b.Temp {
		return a.Temp < b.Temp
	}
	if a.Humidity != b.Humidity {
		return a.Humidity < b.Humidity
	}
	if a.WindSpeed != b.WindSpeed {
		return a.WindSpeed < b.WindSpeed
	}
	return a.Precipitation < b.Precipitation
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
