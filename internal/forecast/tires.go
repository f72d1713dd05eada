package forecast

type TireSeason string

const (
	SeasonWinter     TireSeason = "winter"
	SeasonSummer     TireSeason = "summer"
	SeasonTransition TireSeason = "transition"
)

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

const (
	winterBelow = 5.0
	summerAbove = 15.0
	// A winter change is not confirmed if any day in the window gets warmer
	// than this, and a summer change if any day gets colder than summerFloor.
	winterCeiling = 7.0
	summerFloor   = 10.0
	confirmDays   = 3
)

// TireAdvice is the tire-season assessment for the current conditions.
type TireAdvice struct {
	Season            TireSeason `json:"season"`
	ChangeRecommended bool       `json:"change_recommended"`
	Pressure          string     `json:"pressure"` // "cold", "heat" or "normal"
	ServiceOK         bool       `json:"service_ok"`
	Urgency           Urgency    `json:"urgency"`
	CurrentTemp       float64    `json:"current_temperature"`
}

// AssessTires buckets the current temperature into a season and confirms a
// change only when the first three forecast days agree with it.
func AssessTires(current float64, days []Day) TireAdvice {
	a := TireAdvice{
		Season:      tireSeason(current),
		CurrentTemp: current,
		Pressure:    "normal",
		ServiceOK:   true,
		Urgency:     UrgencyLow,
	}

	window := days
	if len(window) > confirmDays {
		window = window[:confirmDays]
	}
	switch a.Season {
	case SeasonWinter:
		a.ChangeRecommended = true
		for _, d := range window {
			if d.TempMax > winterCeiling {
				a.ChangeRecommended = false
				break
			}
		}
	case SeasonSummer:
		a.ChangeRecommended = true
		for _, d := range window {
			if d.TempMin < summerFloor {
				a.ChangeRecommended = false
				break
			}
		}
	}

	switch {
	case current < 0:
		a.Pressure = "cold"
	case current > 25:
		a.Pressure = "heat"
	}

	if len(days) > 0 && days[0].Precipitation > 0 {
		a.ServiceOK = false
	}

	switch {
	case a.Season == SeasonWinter && current < 0, a.Season == SeasonSummer && current > 20:
		a.Urgency = UrgencyHigh
	case a.Season == SeasonWinter && current < 3, a.Season == SeasonSummer && current > summerAbove:
		a.Urgency = UrgencyMedium
	}
	return a
}

func tireSeason(temp float64) TireSeason {
	switch {
	case temp < winterBelow:
		return SeasonWinter
	case temp > summerAbove:
		return SeasonSummer
	default:
		return SeasonTransition
	}
}

// TireScore expresses AssessTires for day as a DayScore. Score is 1 when a
// seasonal change is confirmed and 0 otherwise.
func TireScore(day Day, window []Day) DayScore {
	a := AssessTires(day.TempAvg, window)
	s := DayScore{
		Date:     day.Date,
		Activity: ActivityTires,
		Verdict:  string(a.Season),
	}
	if a.ChangeRecommended {
		s.Score = 1
		s.Rationale = append(s.Rationale, "change_confirmed")
	} else if a.Season != SeasonTransition {
		s.Rationale = append(s.Rationale, "change_not_confirmed")
	}
	s.Rationale = append(s.Rationale, "pressure_"+a.Pressure, "urgency_"+string(a.Urgency))
	return s
}
