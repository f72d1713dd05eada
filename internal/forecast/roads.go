package forecast

import "slices"

type RoadRisk string

const (
	RiskBlackIce       RoadRisk = "black_ice"
	RiskSnow           RoadRisk = "snow"
	RiskRain           RoadRisk = "rain"
	RiskFog            RoadRisk = "fog"
	RiskStrongWind     RoadRisk = "strong_wind"
	RiskPoorVisibility RoadRisk = "poor_visibility"
)

type DangerLevel string

const (
	DangerLow    DangerLevel = "low"
	DangerMedium DangerLevel = "medium"
	DangerHigh   DangerLevel = "high"
)

const blackIceTemp = 2.0

// RoadAssessment lists the road risks for one day. Score runs from 1 (many
// risks) to 5 (clear roads).
type RoadAssessment struct {
	Date  string      `json:"date"`
	Risks []RoadRisk  `json:"risks"`
	Level DangerLevel `json:"danger_level"`
	Score int         `json:"condition_score"`
}

// AssessRoads rates the day's roads. Black ice follows the day's average
// temperature; a cold night alone is reported through Day.IceRisk.
func AssessRoads(d Day) RoadAssessment {
	risks := []RoadRisk{}
	if d.TempAvg < blackIceTemp && (IsRainy(d.Conditions) || d.Precipitation > 0) {
		risks = append(risks, RiskBlackIce)
	}
	if IsSnowy(d.Conditions) || d.Precipitation > 5 {
		risks = append(risks, RiskSnow)
	}
	if IsRainy(d.Conditions) || d.Precipitation > 0 {
		risks = append(risks, RiskRain)
	}
	if IsFoggy(d.Conditions) {
		risks = append(risks, RiskFog)
	}
	if d.Wind > 10 {
		risks = append(risks, RiskStrongWind)
	}
	if d.Visibility < 1000 {
		risks = append(risks, RiskPoorVisibility)
	}

	level := DangerLow
	switch {
	case slices.Contains(risks, RiskBlackIce) || d.Visibility < 500:
		level = DangerHigh
	case len(risks) >= 2:
		level = DangerMedium
	}

	return RoadAssessment{
		Date:  d.Date,
		Risks: risks,
		Level: level,
		Score: 5 - min(4, len(risks)),
	}
}

// RoadScore expresses AssessRoads as a DayScore.
func RoadScore(d Day) DayScore {
	a := AssessRoads(d)
	why := make([]string, 0, len(a.Risks))
	for _, r := range a.Risks {
		why = append(why, string(r))
	}
	return DayScore{
		Date:      d.Date,
		Activity:  ActivityRoads,
		Score:     float64(a.Score),
		Verdict:   string(a.Level),
		Rationale: why,
	}
}

// TipKeys returns the catalog keys of the driving tips for the risks.
func (a RoadAssessment) TipKeys() []string {
	if len(a.Risks) == 0 {
		return []string{"roads.tip.ok"}
	}
	keys := make([]string, 0, len(a.Risks))
	for _, r := range a.Risks {
		keys = append(keys, "roads.tip."+string(r))
	}
	return keys
}
