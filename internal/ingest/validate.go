package ingest

import (
	"encoding/json"

	"github.com/lox/clearyfi/internal/models"
)

const (
	FlagTempOutOfRange     = "temp_out_of_range"
	FlagHumidityInvalid    = "humidity_invalid"
	FlagWindSpeedUnlikely  = "wind_speed_unlikely"
	FlagVisibilityNegative = "visibility_negative"
	FlagPrecipNegative     = "precip_negative"
)

// ValidateSample flags physically implausible provider values.
func ValidateSample(s models.ForecastSample) []string {
	var flags []string

	if s.Temp < -70 || s.Temp > 60 {
		flags = append(flags, FlagTempOutOfRange)
	}
	if s.Humidity < 0 || s.Humidity > 100 {
		flags = append(flags, FlagHumidityInvalid)
	}
	if s.WindSpeed < 0 || s.WindSpeed > 120 || s.WindGust < 0 || s.WindGust > 150 {
		flags = append(flags, FlagWindSpeedUnlikely)
	}
	if s.Visibility.Valid && s.Visibility.Float64 < 0 {
		flags = append(flags, FlagVisibilityNegative)
	}
	if s.Precipitation < 0 {
		flags = append(flags, FlagPrecipNegative)
	}

	return flags
}

func QualityFlagsToJSON(flags []string) string {
	if len(flags) == 0 {
		return ""
	}
	b, _ := json.Marshal(flags)
	return string(b)
}
