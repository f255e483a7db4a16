package navigation

import "time"

// Snapshot is a read-only copy of an engine's progress for API and UI
// consumers.
type Snapshot struct {
	State              State        `json:"state"`
	StepIndex          int          `json:"step_index"`
	StepCount          int          `json:"step_count"`
	IsLastStep         bool         `json:"is_last_step"`
	Instruction        string       `json:"instruction"`
	Maneuver           ManeuverKind `json:"maneuver"`
	ManeuverIcon       string       `json:"maneuver_icon"`
	NextInstruction    string       `json:"next_instruction,omitempty"`
	DistanceToNextStep Distance     `json:"distance_to_next_step"`
	RemainingDistance  Distance     `json:"remaining_distance"`
	RemainingDuration  Duration     `json:"remaining_duration"`
	EstimatedArrival   time.Time    `json:"estimated_arrival"`
	ETAText            string       `json:"eta_text"`
	OffRoute           bool         `json:"off_route"`
	ProgressPercentage float64      `json:"progress_percentage"`
	LastFix            *Fix         `json:"last_fix,omitempty"`
}

// Snapshot captures the current progress. Display texts come from the
// formatting rules, not from provider text.
func (e *Engine) Snapshot() Snapshot {
	p := e.progress
	s := Snapshot{
		State:              e.state,
		StepIndex:          p.StepIndex(),
		StepCount:          len(e.route.Steps),
		IsLastStep:         p.IsLastStep(),
		Instruction:        e.CurrentInstruction(),
		Maneuver:           ManeuverUnknown,
		DistanceToNextStep: Distance{Meters: p.DistanceToNextStep().Meters, Text: e.DistanceText()},
		RemainingDistance:  Distance{Meters: p.RemainingDistance().Meters, Text: e.RemainingDistanceText()},
		RemainingDuration:  Duration{Seconds: p.RemainingDuration().Seconds, Text: e.RemainingDurationText()},
		EstimatedArrival:   p.EstimatedArrival(),
		ETAText:            e.ETAText(),
		OffRoute:           p.IsOffRoute(),
		ProgressPercentage: p.ProgressPercentage(),
	}
	if step, ok := p.CurrentStep(); ok {
		s.Maneuver = step.Maneuver
	}
	s.ManeuverIcon = s.Maneuver.Icon()
	if next, ok := p.NextStep(); ok {
		s.NextInstruction = next.PlainInstruction()
	}
	if e.lastFix != nil {
		f := *e.lastFix
		s.LastFix = &f
	}
	return s
}
