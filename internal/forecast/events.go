package forecast

import (
	"fmt"
)

// Messages renders a catalog template. *locale.Catalog satisfies it.
type Messages interface {
	Get(key string, params map[string]any) string
}

// Event is the outcome of running one detector against one day. Err is set
// when the detector itself failed; such events never count as triggered.
type Event struct {
	Name      string `json:"name"`
	Triggered bool   `json:"triggered"`
	Message   string `json:"message,omitempty"`
	Err       string `json:"error,omitempty"`
}

// Detector is a stateless predicate over a normalized day.
type Detector interface {
	Name() string
	Triggered(Day) bool
	Message(Day) string
}

// Registry runs an ordered set of detectors.
type Registry struct {
	detectors []Detector
}

func NewRegistry(detectors ...Detector) *Registry {
	return &Registry{detectors: append([]Detector(nil), detectors...)}
}

// DefaultRegistry holds the six built-in detectors.
func DefaultRegistry(msgs Messages) *Registry {
	return NewRegistry(
		RainDetector{msgs},
		SnowDetector{msgs},
		MeltDetector{msgs},
		MudDetector{msgs},
		TemperatureDropDetector{msgs},
		DryWindowDetector{msgs},
	)
}

func (r *Registry) Register(d Detector) {
	r.detectors = append(r.detectors, d)
}

func (r *Registry) Len() int { return len(r.detectors) }

// RunAll returns one Event per registered detector. A detector that panics is
// reported with Err set and does not stop the remaining detectors.
func (r *Registry) RunAll(day Day) []Event {
	events := make([]Event, 0, len(r.detectors))
	for i, d := range r.detectors {
		events = append(events, runDetector(i, d, day))
	}
	return events
}

func runDetector(idx int, d Detector, day Day) (ev Event) {
	name := fmt.Sprintf("detector_%d", idx)
	defer func() {
		if rec := recover(); rec != nil {
			ev = Event{Name: name, Err: fmt.Sprint(rec)}
		}
	}()

	name = d.Name()
	ev.Name = name
	if d.Triggered(day) {
		ev.Triggered = true
		ev.Message = d.Message(day)
	}
	return ev
}

// TriggeredEvents filters out untriggered and failed events.
func TriggeredEvents(events []Event) []Event {
	var out []Event
	for _, e := range events {
		if e.Triggered && e.Err == "" {
			out = append(out, e)
		}
	}
	return out
}

// FailedEvents returns the error records from a RunAll result.
func FailedEvents(events []Event) []Event {
	var out []Event
	for _, e := range events {
		if e.Err != "" {
			out = append(out, e)
		}
	}
	return out
}

func dateParams(d Day) map[string]any {
	return map[string]any{"date": d.Date}
}

type RainDetector struct{ msgs Messages }

func (RainDetector) Name() string           { return "rain" }
func (RainDetector) Triggered(d Day) bool   { return d.RainProbability == 1 }
func (r RainDetector) Message(d Day) string { return r.msgs.Get("events.rain", dateParams(d)) }

type SnowDetector struct{ msgs Messages }

func (SnowDetector) Name() string           { return "snow" }
func (SnowDetector) Triggered(d Day) bool   { return hasLabel(d.Conditions, "snow") }
func (s SnowDetector) Message(d Day) string { return s.msgs.Get("events.snow", dateParams(d)) }

type MeltDetector struct{ msgs Messages }

func (MeltDetector) Name() string           { return "melt" }
func (MeltDetector) Triggered(d Day) bool   { return d.Melt }
func (m MeltDetector) Message(d Day) string { return m.msgs.Get("events.melt", dateParams(d)) }

type MudDetector struct{ msgs Messages }

func (MudDetector) Name() string { return "mud" }

func (MudDetector) Triggered(d Day) bool {
	return (d.Humidity >= mudHumidity && d.Rainy()) || d.Melt
}

func (m MudDetector) Message(d Day) string { return m.msgs.Get("events.mud", dateParams(d)) }

// TemperatureDropDetector falls back to an absolute threshold when the day
// has no predecessor to compare against.
type TemperatureDropDetector struct{ msgs Messages }

func (TemperatureDropDetector) Name() string { return "temperature_drop" }

func (TemperatureDropDetector) Triggered(d Day) bool {
	if d.TempDelta != nil {
		return *d.TempDelta <= tempDropThreshold
	}
	return d.TempAvg <= 1
}

func (t TemperatureDropDetector) Message(d Day) string {
	return t.msgs.Get("events.temperature_drop", dateParams(d))
}

type DryWindowDetector struct{ msgs Messages }

func (DryWindowDetector) Name() string { return "dry_window" }

func (DryWindowDetector) Triggered(d Day) bool {
	return !d.Rainy() && d.Humidity < dryHumidity
}

func (w DryWindowDetector) Message(d Day) string {
	return w.msgs.Get("events.dry_window", dateParams(d))
}
