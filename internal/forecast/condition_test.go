package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyDay(t *testing.T) {
	tests := []struct {
		name string
		day  Day
		want WeatherCondition
	}{
		{
			name: "hot day overrides labels",
			day:  Day{TempMax: 32, TempMin: 20, Conditions: []string{"Clouds"}},
			want: ConditionHot,
		},
		{
			name: "frost overrides clear sky",
			day:  Day{TempMax: 2, TempMin: -8, Conditions: []string{"Clear"}},
			want: ConditionFrost,
		},
		{
			name: "snowy frost is snow",
			day:  Day{TempMax: -2, TempMin: -9, Conditions: []string{"Snow"}},
			want: ConditionSnow,
		},
		{
			name: "thunderstorm",
			day:  Day{TempMax: 24, TempMin: 15, Conditions: []string{"Thunderstorm"}, RainProbability: 1},
			want: ConditionStorm,
		},
		{
			name: "sleet counts as snow",
			day:  Day{TempMax: 3, TempMin: -1, Conditions: []string{"Sleet"}},
			want: ConditionSnow,
		},
		{
			name: "heavy rain by volume",
			day:  Day{TempMax: 15, TempMin: 9, Conditions: []string{"Rain"}, Precipitation: 12, RainProbability: 1},
			want: ConditionHeavyRain,
		},
		{
			name: "light drizzle",
			day:  Day{TempMax: 15, TempMin: 9, Conditions: []string{"Drizzle"}, Precipitation: 0.6, RainProbability: 1},
			want: ConditionLightRain,
		},
		{
			name: "precipitation without rain label",
			day:  Day{TempMax: 15, TempMin: 9, Conditions: []string{"Clouds"}, RainProbability: 1},
			want: ConditionLightRain,
		},
		{
			name: "mist",
			day:  Day{TempMax: 12, TempMin: 6, Conditions: []string{"Mist"}},
			want: ConditionFog,
		},
		{
			name: "overcast",
			day:  Day{TempMax: 12, TempMin: 6, Conditions: []string{"Clouds"}},
			want: ConditionCloudy,
		},
		{
			name: "partly clear is not cloudy",
			day:  Day{TempMax: 22, TempMin: 12, Conditions: []string{"Clear", "Clouds"}},
			want: ConditionClearWarm,
		},
		{
			name: "clear and cool",
			day:  Day{TempMax: 14, TempMin: 4, Conditions: []string{"Clear"}},
			want: ConditionClearCool,
		},
		{
			name: "no labels",
			day:  Day{TempMax: 14, TempMin: 4, Conditions: []string{}},
			want: ConditionClearCool,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyDay(tt.day))
		})
	}
}

func TestLabelMatchingIgnoresCase(t *testing.T) {
	assert.True(t, IsRainy([]string{"LIGHT RAIN"}))
	assert.True(t, IsRainy([]string{"Thunderstorm"}))
	assert.True(t, IsSnowy([]string{"heavy snow"}))
	assert.True(t, IsFoggy([]string{"Haze"}))
	assert.False(t, IsRainy([]string{"Clear", "Clouds"}))
	assert.False(t, IsStormy(nil))
}

func TestConditionEmoji(t *testing.T) {
	assert.Equal(t, "❄️", ConditionSnow.Emoji())
	assert.Equal(t, "🌤", WeatherCondition("unknown").Emoji())
}
