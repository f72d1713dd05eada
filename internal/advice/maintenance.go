package advice

import (
	"slices"
	"time"

	"github.com/lox/clearyfi/internal/forecast"
)

type Season string

const (
	Winter Season = "winter"
	Spring Season = "spring"
	Summer Season = "summer"
	Autumn Season = "autumn"
)

// SeasonOf maps a month to its meteorological season.
func SeasonOf(m time.Month) Season {
	switch m {
	case time.December, time.January, time.February:
		return Winter
	case time.March, time.April, time.May:
		return Spring
	case time.June, time.July, time.August:
		return Summer
	}
	return Autumn
}

// MaintenancePlan holds catalog key suffixes for each section of the
// maintenance message.
type MaintenancePlan struct {
	Season   Season           `json:"season"`
	Seasonal []string         `json:"seasonal"`
	Fluids   []string         `json:"fluids"`
	Checks   []string         `json:"checks"`
	Urgency  forecast.Urgency `json:"urgency"`
}

var seasonalItems = map[Season][]string{
	Winter: {"antifreeze", "battery", "winter_tires"},
	Summer: {"air_conditioning", "engine_temperature", "coolant"},
	Spring: {"oil_change", "spring_clean", "diagnostics"},
	Autumn: {"winter_prep", "tire_swap", "heating"},
}

// Items whose presence makes a service visit urgent.
var urgentItems = []string{"antifreeze", "battery", "oil_change", "frost_battery", "heat_overheating"}

// PlanMaintenance builds the checklist for the season of now and the
// conditions of today.
func PlanMaintenance(now time.Time, today forecast.Day) MaintenancePlan {
	p := MaintenancePlan{Season: SeasonOf(now.Month())}
	temp := today.TempAvg

	p.Seasonal = slices.Clone(seasonalItems[p.Season])
	switch {
	case temp < -10:
		p.Seasonal = append(p.Seasonal, "frost_battery")
	case temp > 30:
		p.Seasonal = append(p.Seasonal, "heat_overheating")
	}

	switch {
	case temp < -15:
		p.Fluids = append(p.Fluids, "oil_winter")
	case temp > 35:
		p.Fluids = append(p.Fluids, "oil_summer")
	default:
		p.Fluids = append(p.Fluids, "oil_all")
	}
	if temp < 0 {
		p.Fluids = append(p.Fluids, "washer")
	}
	p.Fluids = append(p.Fluids, "brake")

	p.Checks = []string{"brakes", "steering", "suspension", "electrics", "ignition"}
	switch p.Season {
	case Winter, Autumn:
		p.Checks = append(p.Checks, "heater", "defrost", "cold_start")
	case Summer, Spring:
		p.Checks = append(p.Checks, "air_conditioning", "cooling", "ventilation")
	}
	if forecast.IsRainy(today.Conditions) || forecast.IsSnowy(today.Conditions) {
		p.Checks = append(p.Checks, "wipers")
	}
	if today.Wind > 8 {
		p.Checks = append(p.Checks, "seals")
	}

	p.Urgency = forecast.UrgencyLow
	switch {
	case slices.ContainsFunc(p.Seasonal, func(item string) bool { return slices.Contains(urgentItems, item) }):
		p.Urgency = forecast.UrgencyHigh
	case len(p.Seasonal) > 3:
		p.Urgency = forecast.UrgencyMedium
	}
	return p
}
