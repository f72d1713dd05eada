package forecast

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/clearyfi/internal/locale"
	"github.com/lox/clearyfi/internal/models"
)

var en = locale.MustLoad("en")

func mustTime(ts string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", ts)
	if err != nil {
		panic(err)
	}
	return t
}

func sample(ts string, temp, humidity, wind, precip float64, conds ...string) models.ForecastSample {
	return models.ForecastSample{
		Time:          mustTime(ts),
		Temp:          temp,
		Humidity:      humidity,
		WindSpeed:     wind,
		Precipitation: precip,
		Conditions:    conds,
	}
}

// threeDaySamples is a small forecast: a wet day, a dry day and a muddy day.
func threeDaySamples() []models.ForecastSample {
	return []models.ForecastSample{
		sample("2026-03-01 00:00", 10, 80, 6, 1.2, "Rain"),
		sample("2026-03-01 12:00", 14, 70, 6, 0.4, "Rain", "Clouds"),
		sample("2026-03-02 00:00", 16, 60, 3, 0, "Clear"),
		sample("2026-03-02 06:00", 18, 60, 3, 0, "Clear"),
		sample("2026-03-02 12:00", 20, 60, 3, 0, "Clear"),
		sample("2026-03-03 00:00", 9, 85, 4, 2.5, "Rain"),
		sample("2026-03-03 12:00", 11, 85, 4, 0, "Clouds"),
	}
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Empty(t, Normalize(nil))
	days, skipped := NormalizeWithStats([]models.ForecastSample{})
	assert.Empty(t, days)
	assert.Zero(t, skipped)
}

func TestNormalizeAggregatesPerDay(t *testing.T) {
	days := Normalize(threeDaySamples())
	require.Len(t, days, 3)

	d := days[0]
	assert.Equal(t, "2026-03-01", d.Date)
	assert.Equal(t, 12.0, d.TempAvg)
	assert.Equal(t, 10.0, d.TempMin)
	assert.Equal(t, 14.0, d.TempMax)
	assert.Equal(t, 75.0, d.Humidity)
	assert.Equal(t, 6.0, d.Wind)
	assert.Equal(t, 1.6, d.Precipitation)
	assert.Equal(t, 1.0, d.RainProbability)
	assert.Equal(t, []string{"Clouds", "Rain"}, d.Conditions)
	assert.Nil(t, d.TempDelta)
	assert.True(t, d.Mud, "humidity 75 with rain is muddy")
	assert.False(t, d.DryWindow)
	assert.Zero(t, d.DryHours)

	d = days[1]
	require.NotNil(t, d.TempDelta)
	assert.Equal(t, 6.0, *d.TempDelta)
	assert.True(t, d.DryWindow)
	assert.False(t, d.Mud)
	assert.Equal(t, 9.0, d.SunnyHours)
	assert.Equal(t, 10000.0, d.Visibility)
	assert.Equal(t, 0.375, d.Confidence)

	d = days[2]
	require.NotNil(t, d.TempDelta)
	assert.Equal(t, -8.0, *d.TempDelta)
	assert.True(t, d.TempDrop)
	assert.True(t, d.Mud)
}

func TestNormalizeIsOrderIndependent(t *testing.T) {
	base := threeDaySamples()
	want := Normalize(base)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]models.ForecastSample(nil), base...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, Normalize(shuffled), "permutation %d", i)
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := []models.ForecastSample{
		sample("2026-03-01 12:00", 14, 70, 6, 0),
		sample("2026-03-01 00:00", 10, 80, 6, 0),
	}
	Normalize(in)
	assert.Equal(t, mustTime("2026-03-01 12:00"), in[0].Time)
}

func TestNormalizeDeltaFollowsPreviousDay(t *testing.T) {
	var samples []models.ForecastSample
	temps := []float64{3.3, -1.7, 4.46, 12.05, 11.95, -8}
	start := mustTime("2026-01-01 12:00")
	for i, temp := range temps {
		samples = append(samples, models.ForecastSample{
			Time:     start.AddDate(0, 0, i),
			Temp:     temp,
			Humidity: 50,
		})
	}

	days := Normalize(samples)
	require.Len(t, days, len(temps))
	assert.Nil(t, days[0].TempDelta)
	for i := 1; i < len(days); i++ {
		require.NotNil(t, days[i].TempDelta, "day %d", i)
		assert.Equal(t, round1(days[i].TempAvg-days[i-1].TempAvg), *days[i].TempDelta, "day %d", i)
		assert.Equal(t, *days[i].TempDelta <= -5, days[i].TempDrop, "day %d", i)
	}
}

func TestNormalizeTemperatureDropBoundary(t *testing.T) {
	days := Normalize([]models.ForecastSample{
		sample("2026-01-01 12:00", 10, 50, 1, 0),
		sample("2026-01-02 12:00", 5, 50, 1, 0),
		sample("2026-01-03 12:00", 0.1, 50, 1, 0),
	})
	require.Len(t, days, 3)
	assert.True(t, days[1].TempDrop, "a -5.0 delta is a drop")
	assert.False(t, days[2].TempDrop, "a -4.9 delta is not")
}

func TestNormalizeMudOnlyFromHumidRainOrMelt(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var samples []models.ForecastSample
	start := mustTime("2026-02-01 00:00")
	labels := [][]string{{"Clear"}, {"Rain"}, {"Snow"}, {"Clouds"}, {}}
	for i := 0; i < 80; i++ {
		precip := 0.0
		if rng.Intn(3) == 0 {
			precip = rng.Float64() * 4
		}
		samples = append(samples, models.ForecastSample{
			Time:          start.Add(time.Duration(i) * 3 * time.Hour),
			Temp:          rng.Float64()*20 - 10,
			Humidity:      40 + rng.Float64()*60,
			WindSpeed:     rng.Float64() * 12,
			Precipitation: precip,
			Conditions:    labels[rng.Intn(len(labels))],
		})
	}

	days := Normalize(samples)
	require.NotEmpty(t, days)
	for _, d := range days {
		if d.Mud {
			assert.True(t, (d.Humidity >= 75 && d.RainProbability == 1) || d.Melt, d.Date)
		}
		if d.DryWindow {
			assert.True(t, d.RainProbability == 0 && d.Humidity < 70, d.Date)
		}
	}
}

func TestNormalizeSnowAndMelt(t *testing.T) {
	days := Normalize([]models.ForecastSample{
		sample("2026-01-10 12:00", 2, 60, 2, 0, "Clear"),
		sample("2026-01-11 12:00", -3, 60, 2, 0, "Snow"),
		sample("2026-01-12 12:00", 2, 60, 2, 0, "Clouds"),
	})
	require.Len(t, days, 3)

	assert.True(t, days[1].HadSnow)
	assert.False(t, days[1].Melt, "previous day had no snow")

	assert.False(t, days[2].HadSnow)
	assert.True(t, days[2].Melt)
	assert.True(t, days[2].Mud, "melt alone makes mud")
}

func TestNormalizeSkipsSamplesWithoutTimestamp(t *testing.T) {
	in := []models.ForecastSample{
		{Temp: 40, Humidity: 10},
		sample("2026-03-02 12:00", 18, 60, 3, 0, "Clear"),
		{Temp: -40},
	}
	days, skipped := NormalizeWithStats(in)
	require.Len(t, days, 1)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, 18.0, days[0].TempAvg)
}

func TestNormalizeDropsEmptyLabelsAndDuplicates(t *testing.T) {
	days := Normalize([]models.ForecastSample{
		sample("2026-03-02 00:00", 18, 60, 3, 0, "Clear", ""),
		sample("2026-03-02 03:00", 18, 60, 3, 0, "Clear"),
	})
	require.Len(t, days, 1)
	assert.Equal(t, []string{"Clear"}, days[0].Conditions)
}

func TestNormalizeRiskFlags(t *testing.T) {
	s := sample("2026-03-02 00:00", -2, 95, 8, 1, "Rain")
	s.WindGust = 22
	s.Visibility.Valid = true
	s.Visibility.Float64 = 700
	days := Normalize([]models.ForecastSample{s})
	require.Len(t, days, 1)
	assert.True(t, days[0].IceRisk)
	assert.True(t, days[0].StormRisk)
	assert.Equal(t, 700.0, days[0].Visibility)
}

func TestNormalizeConditionsSorted(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	a := models.ForecastSample{Time: at, Temp: 4, Humidity: 80, Conditions: []string{"Snow", "Clouds"}}
	b := models.ForecastSample{Time: at, Temp: 4, Humidity: 80, Conditions: []string{"Rain", "Clouds"}}

	first := Normalize([]models.ForecastSample{a, b})
	second := Normalize([]models.ForecastSample{b, a})
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, []string{"Clouds", "Rain", "Snow"}, first[0].Conditions)
	assert.Equal(t, first[0].Conditions, second[0].Conditions)
}
