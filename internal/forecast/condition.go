package forecast

import (
	"strings"
)

// WeatherCondition is a coarse weather category for a whole day.
type WeatherCondition string

const (
	ConditionClearWarm WeatherCondition = "clear_warm"
	ConditionClearCool WeatherCondition = "clear_cool"
	ConditionCloudy    WeatherCondition = "cloudy"
	ConditionLightRain WeatherCondition = "light_rain"
	ConditionHeavyRain WeatherCondition = "heavy_rain"
	ConditionStorm     WeatherCondition = "storm"
	ConditionFog       WeatherCondition = "fog"
	ConditionSnow      WeatherCondition = "snow"
	ConditionHot       WeatherCondition = "hot"
	ConditionFrost     WeatherCondition = "frost"
)

// hasLabel reports whether any label contains one of needles, ignoring case.
func hasLabel(labels []string, needles ...string) bool {
	for _, l := range labels {
		lower := strings.ToLower(l)
		for _, n := range needles {
			if strings.Contains(lower, n) {
				return true
			}
		}
	}
	return false
}

func IsSnowy(labels []string) bool { return hasLabel(labels, "snow", "sleet") }

func IsRainy(labels []string) bool {
	return hasLabel(labels, "rain", "drizzle", "shower", "thunderstorm")
}

func IsFoggy(labels []string) bool { return hasLabel(labels, "fog", "mist", "haze", "smoke") }

func IsClear(labels []string) bool { return hasLabel(labels, "clear") }

func IsStormy(labels []string) bool {
	return hasLabel(labels, "thunderstorm", "squall", "tornado")
}

// ClassifyDay picks the dominant condition for a day. Temperature extremes
// win over the labels, then storm, precipitation, fog and cloud.
func ClassifyDay(d Day) WeatherCondition {
	if d.TempMax >= 30 {
		return ConditionHot
	}
	if d.TempMin <= -5 && !IsSnowy(d.Conditions) {
		return ConditionFrost
	}

	switch {
	case IsStormy(d.Conditions):
		return ConditionStorm
	case IsSnowy(d.Conditions):
		return ConditionSnow
	case IsRainy(d.Conditions) && d.Precipitation >= 10:
		return ConditionHeavyRain
	case IsRainy(d.Conditions) || d.RainProbability > 0:
		return ConditionLightRain
	case IsFoggy(d.Conditions):
		return ConditionFog
	case hasLabel(d.Conditions, "cloud", "overcast") && !IsClear(d.Conditions):
		return ConditionCloudy
	}

	if d.TempMax >= 20 {
		return ConditionClearWarm
	}
	return ConditionClearCool
}

var conditionEmoji = map[WeatherCondition]string{
	ConditionClearWarm: "☀️",
	ConditionClearCool: "🌤",
	ConditionCloudy:    "☁️",
	ConditionLightRain: "🌦",
	ConditionHeavyRain: "🌧",
	ConditionStorm:     "⛈",
	ConditionFog:       "🌫",
	ConditionSnow:      "❄️",
	ConditionHot:       "🔥",
	ConditionFrost:     "🥶",
}

func (c WeatherCondition) Emoji() string {
	if e, ok := conditionEmoji[c]; ok {
		return e
	}
	return "🌤"
}
