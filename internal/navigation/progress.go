package navigation

import (
	"errors"
	"time"
)

// ErrLastStep is returned when advancing past the final step is attempted.
var ErrLastStep = errors.New("already on the last step")

// Progress tracks where along a route the traveler is. It is owned by a
// single Engine and is not safe for concurrent use.
type Progress struct {
	route              Route
	currentStepIndex   int
	distanceToNextStep Distance
	remainingDistance  Distance
	remainingDuration  Duration
	estimatedArrival   time.Time
	offRoute           bool

	// smallest threshold announced for the current step; unset after every advance
	lastAnnounced    int
	hasLastAnnounced bool
}

// NewProgress starts at step zero with the route totals as the remaining
// figures and the ETA set to now plus the route duration.
func NewProgress(route Route, now time.Time) *Progress {
	p := &Progress{
		route:             route,
		remainingDistance: route.Distance,
		remainingDuration: route.Duration,
		estimatedArrival:  now.Add(time.Duration(route.Duration.Seconds) * time.Second),
	}
	if len(route.Steps) > 0 {
		p.distanceToNextStep = route.Steps[0].Distance
	} else {
		p.distanceToNextStep = NewDistance(0)
	}
	return p
}

// AdvanceStep moves to the next step and clears the announcement marker. On
// the last step it changes nothing and returns ErrLastStep.
func (p *Progress) AdvanceStep() error {
	if p.IsLastStep() {
		return ErrLastStep
	}
	p.currentStepIndex++
	p.clearAnnounced()
	return nil
}

// IsLastStep reports whether the current step is the final one.
func (p *Progress) IsLastStep() bool {
	return p.currentStepIndex == len(p.route.Steps)-1
}

// ProgressPercentage is the share of the total route already covered, or 0
// for a zero-length route.
func (p *Progress) ProgressPercentage() float64 {
	total := float64(p.route.Distance.Meters)
	if total <= 0 {
		return 0
	}
	remaining := float64(p.remainingDistance.Meters)
	return (total - remaining) / total * 100
}

// CurrentStep returns the active step, if any.
func (p *Progress) CurrentStep() (Step, bool) {
	if p.currentStepIndex < 0 || p.currentStepIndex >= len(p.route.Steps) {
		return Step{}, false
	}
	return p.route.Steps[p.currentStepIndex], true
}

// NextStep returns the step after the active one, if any.
func (p *Progress) NextStep() (Step, bool) {
	next := p.currentStepIndex + 1
	if next >= len(p.route.Steps) {
		return Step{}, false
	}
	return p.route.Steps[next], true
}

func (p *Progress) StepIndex() int               { return p.currentStepIndex }
func (p *Progress) DistanceToNextStep() Distance { return p.distanceToNextStep }
func (p *Progress) RemainingDistance() Distance  { return p.remainingDistance }
func (p *Progress) RemainingDuration() Duration  { return p.remainingDuration }
func (p *Progress) EstimatedArrival() time.Time  { return p.estimatedArrival }
func (p *Progress) IsOffRoute() bool             { return p.offRoute }

// LastAnnouncedThreshold returns the smallest threshold already announced
// for the current step.
func (p *Progress) LastAnnouncedThreshold() (int, bool) {
	return p.lastAnnounced, p.hasLastAnnounced
}

func (p *Progress) setAnnounced(threshold int) {
	p.lastAnnounced = threshold
	p.hasLastAnnounced = true
}

func (p *Progress) clearAnnounced() {
	p.lastAnnounced = 0
	p.hasLastAnnounced = false
}

// updateRemaining recomputes the aggregate figures from the distance to the
// end of the current step, assuming a constant average speed.
func (p *Progress) updateRemaining(distanceToStepEnd float64, now time.Time) {
	total := int(distanceToStepEnd)
	for i := p.currentStepIndex + 1; i < len(p.route.Steps); i++ {
		total += p.route.Steps[i].Distance.Meters
	}

	seconds := int(float64(total) / averageSpeedMetersPerSecond)

	p.remainingDistance = NewDistance(float64(total))
	p.remainingDuration = NewDuration(seconds)
	p.estimatedArrival = now.Add(time.Duration(seconds) * time.Second)
}
