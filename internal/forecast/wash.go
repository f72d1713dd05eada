package forecast

import (
	"errors"
	"sort"
)

type Activity string

const (
	ActivityWash  Activity = "wash"
	ActivityTires Activity = "tires"
	ActivityRoads Activity = "roads"
)

// DayScore is an activity-specific verdict for one day.
type DayScore struct {
	Date      string   `json:"date"`
	Activity  Activity `json:"activity"`
	Score     float64  `json:"score"`
	Verdict   string   `json:"verdict"`
	Rationale []string `json:"rationale"`
}

const (
	VerdictIdeal          = "ideal"
	VerdictExcellent      = "excellent"
	VerdictGood           = "good"
	VerdictConditional    = "conditional"
	VerdictNotRecommended = "not_recommended"
	VerdictUnsuitable     = "unsuitable"
)

// WashConfig tunes the numeric wash score.
type WashConfig struct {
	// MinTemp is the temperature below which washing is close to pointless.
	MinTemp float64
}

func DefaultWashConfig() WashConfig {
	return WashConfig{MinTemp: -2}
}

var ErrInvalidWashConfig = errors.New("wash config: min temperature must be below 0°C")

func (c WashConfig) Validate() error {
	if c.MinTemp >= 0 {
		return ErrInvalidWashConfig
	}
	return nil
}

// WashScore rates a day for washing on a 0-100 scale.
func WashScore(d Day, cfg WashConfig) DayScore {
	score := 100.0
	var why []string

	penalize := func(amount float64, reason string) {
		if score <= 0 {
			return
		}
		score -= amount
		if score < 0 {
			score = 0
		}
		why = append(why, reason)
	}

	if d.RainProbability > 0 {
		penalize(d.RainProbability*100*2, "precipitation")
	}

	switch t := d.TempAvg; {
	case t < cfg.MinTemp:
		penalize(80, "temperature_below_minimum")
	case t < 0:
		penalize(60, "freezing")
	case t < 5:
		penalize(30, "cold")
	case t < 10:
		penalize(15, "cool")
	}

	switch h := d.Humidity; {
	case h > 90:
		penalize(50, "humidity_very_high")
	case h > 85:
		penalize(25, "humidity_high")
	case h > 75:
		penalize(10, "humidity_elevated")
	}

	switch w := d.Wind; {
	case w > 12:
		penalize(40, "wind_strong")
	case w > 8:
		penalize(20, "wind_moderate")
	case w > 5:
		penalize(5, "wind_light")
	}

	if score > 0 && d.TempAvg >= 10 && d.TempAvg <= 25 && d.Humidity <= 75 && d.Wind < 5 && !d.Rainy() {
		score += 10
		if score > 100 {
			score = 100
		}
		why = append(why, "ideal_conditions")
	}

	return DayScore{
		Date:      d.Date,
		Activity:  ActivityWash,
		Score:     score,
		Verdict:   washVerdict(score),
		Rationale: why,
	}
}

func washVerdict(score float64) string {
	switch {
	case score >= 90:
		return VerdictIdeal
	case score >= 75:
		return VerdictExcellent
	case score >= 60:
		return VerdictGood
	case score >= 40:
		return VerdictConditional
	case score >= 20:
		return VerdictNotRecommended
	default:
		return VerdictUnsuitable
	}
}

// WashTier is the categorical wash classification used to pick days across
// a forecast window. Higher tiers are better.
type WashTier int

const (
	TierNone WashTier = iota
	TierAcceptable
	TierGood
	TierExcellent
)

func (t WashTier) String() string {
	switch t {
	case TierExcellent:
		return "excellent"
	case TierGood:
		return "good"
	case TierAcceptable:
		return "acceptable"
	default:
		return "none"
	}
}

func ClassifyWash(d Day) WashTier {
	switch {
	case d.DryWindow && d.RainProbability == 0 && !d.Mud && d.Confidence > 0.8:
		return TierExcellent
	case d.DryWindow && d.RainProbability <= 0.2 && !d.Mud:
		return TierGood
	case d.RainProbability <= 0.3 && !d.Mud && d.DryHours >= 6:
		return TierAcceptable
	default:
		return TierNone
	}
}

// RankWashDays returns the best non-empty tier and its days, calmest first,
// then warmest. TierNone with no days means nothing qualified.
func RankWashDays(days []Day) (WashTier, []Day) {
	best := TierNone
	var picked []Day
	for _, d := range days {
		tier := ClassifyWash(d)
		if tier == TierNone {
			continue
		}
		if tier > best {
			best = tier
			picked = picked[:0]
		}
		if tier == best {
			picked = append(picked, d)
		}
	}

	sort.SliceStable(picked, func(i, j int) bool {
		if picked[i].Wind != picked[j].Wind {
			return picked[i].Wind < picked[j].Wind
		}
		return picked[i].TempAvg > picked[j].TempAvg
	})
	return best, picked
}

// WashPoints is the additive score behind best-day selection.
func WashPoints(d Day) int {
	points := 0
	if d.DryWindow {
		points += 3
	}
	switch {
	case d.RainProbability == 0:
		points += 2
	case d.RainProbability <= 0.1:
		points++
	}
	if !d.Mud {
		points += 2
	}
	if d.Wind < 5 {
		points++
	}
	if d.SunnyHours > 6 {
		points++
	}
	if d.TempAvg >= 15 && d.TempAvg <= 25 {
		points++
	}
	if d.Humidity > 85 {
		points--
	}
	if d.PollenLevel > 7 {
		points--
	}
	return points
}

const (
	minBestDayPoints = 5
	maxBestDays      = 3
)

// BestWashDays returns up to three dates scoring at least five points,
// highest first. Equal scores keep forecast order.
func BestWashDays(days []Day) []string {
	type scored struct {
		date   string
		points int
	}
	var candidates []scored
	for _, d := range days {
		if p := WashPoints(d); p >= minBestDayPoints {
			candidates = append(candidates, scored{d.Date, p})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].points > candidates[j].points
	})

	dates := make([]string, 0, maxBestDays)
	for i := 0; i < len(candidates) && i < maxBestDays; i++ {
		dates = append(dates, candidates[i].date)
	}
	return dates
}
