package navigation

import (
	"errors"
	"fmt"
	"time"

	"github.com/richxcame/navigator/pkg/geo"
	"go.uber.org/zap"
)

const (
	// StepAdvanceThresholdMeters is how close to a step's end a fix must be
	// for the step to count as completed.
	StepAdvanceThresholdMeters = 50.0

	// OffRouteThresholdMeters is the distance from the step geometry beyond
	// which the traveler is off route.
	OffRouteThresholdMeters = 50.0

	// announcementWindowMeters is the width of the band below each
	// announcement threshold in which it fires.
	announcementWindowMeters = 20

	averageSpeedMetersPerSecond = 50.0 / 3.6

	defaultInstruction = "Continue to destination"
	etaLayout          = "3:04 PM"
)

// announcementThresholds are checked in this order; the order matters.
var announcementThresholds = [...]int{500, 200, 100, 50}

// ErrNavigationEnded is returned by operations on a completed or cancelled engine.
var ErrNavigationEnded = errors.New("navigation has ended")

// State is the lifecycle stage of an engine.
type State string

const (
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

// Fix is one position report from the location source.
type Fix struct {
	Position  geo.Coordinate `json:"position"`
	Accuracy  float64        `json:"accuracy"` // horizontal, meters
	Speed     float64        `json:"speed"`    // meters per second
	Timestamp time.Time      `json:"timestamp"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for ETA calculation.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithListener subscribes l before the engine becomes active.
func WithListener(l Listener) Option {
	return func(e *Engine) {
		if l != nil {
			e.listeners = append(e.listeners, l)
		}
	}
}

// WithLocation sets the time zone used by ETAText.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

type decodedPath struct {
	points []geo.Coordinate
	err    error
}

// Engine tracks one traveler along one route. It is not safe for concurrent
// use: callers must serialize OnPositionUpdate, ForceAdvanceStep and Cancel.
type Engine struct {
	route     Route
	progress  *Progress
	state     State
	lastFix   *Fix
	listeners []Listener
	paths     map[int]decodedPath

	now func() time.Time
	loc *time.Location
	log *zap.Logger
}

// NewEngine validates route and returns an engine that is already active on
// step zero.
func NewEngine(route Route, opts ...Option) (*Engine, error) {
	if err := route.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		route: route.clone(),
		state: StateActive,
		paths: make(map[int]decodedPath),
		now:   time.Now,
		loc:   time.Local,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.progress = NewProgress(e.route, e.now())

	e.log.Debug("navigation engine started",
		zap.Int("steps", len(e.route.Steps)),
		zap.Int("distance_meters", e.route.Distance.Meters),
	)
	return e, nil
}

// Subscribe adds a listener. Events are delivered to listeners in
// subscription order.
func (e *Engine) Subscribe(l Listener) {
	if l != nil {
		e.listeners = append(e.listeners, l)
	}
}

// OnPositionUpdate feeds one fix through step tracking, announcement
// scheduling and off-route detection.
func (e *Engine) OnPositionUpdate(fix Fix) error {
	if e.state != StateActive {
		return ErrNavigationEnded
	}

	step, ok := e.progress.CurrentStep()
	if !ok {
		return nil
	}
	stepIndex := e.progress.StepIndex()
	f := fix
	e.lastFix = &f

	distanceToStepEnd := geo.Haversine(fix.Position, step.EndLocation)
	e.progress.distanceToNextStep = NewDistance(distanceToStepEnd)
	e.progress.updateRemaining(distanceToStepEnd, e.now())

	if distanceToStepEnd < StepAdvanceThresholdMeters {
		if finished := e.completeStep(); finished {
			return nil
		}
	}

	e.checkAnnouncement(int(distanceToStepEnd))
	e.checkOffRoute(fix.Position, stepIndex, step)

	e.log.Debug("position updated",
		zap.Int("distance_to_step_end", int(distanceToStepEnd)),
		zap.Int("step", e.progress.StepIndex()+1),
		zap.Int("steps", len(e.route.Steps)),
	)
	return nil
}

// ForceAdvanceStep moves to the next step without the distance check and
// emits StepCompleted. Announcements and off-route state are not evaluated.
func (e *Engine) ForceAdvanceStep() error {
	if e.state != StateActive {
		return ErrNavigationEnded
	}
	if err := e.progress.AdvanceStep(); err != nil {
		return err
	}
	e.emit(Event{Kind: EventStepCompleted})
	if e.progress.IsLastStep() {
		e.log.Debug("reached final step")
	}
	return nil
}

// Cancel ends navigation without arriving. No event is emitted.
func (e *Engine) Cancel() error {
	if e.state != StateActive {
		return ErrNavigationEnded
	}
	e.state = StateCancelled
	e.log.Info("navigation cancelled", zap.Int("step", e.progress.StepIndex()))
	return nil
}

// State returns the lifecycle state.
func (e *Engine) State() State { return e.state }

// Route returns a copy of the route being followed.
func (e *Engine) Route() Route { return e.route.clone() }

// CurrentInstruction returns the plain instruction of the active step.
func (e *Engine) CurrentInstruction() string {
	step, ok := e.progress.CurrentStep()
	if !ok {
		return defaultInstruction
	}
	return step.PlainInstruction()
}

// DistanceText formats the distance to the end of the active step.
func (e *Engine) DistanceText() string {
	return e.progress.DistanceToNextStep().Formatted()
}

// RemainingDistanceText formats the distance left to the destination.
func (e *Engine) RemainingDistanceText() string {
	return e.progress.RemainingDistance().Formatted()
}

// RemainingDurationText formats the estimated time left.
func (e *Engine) RemainingDurationText() string {
	return e.progress.RemainingDuration().Formatted()
}

// ETAText formats the estimated arrival as a short local time, e.g. "3:04 PM".
func (e *Engine) ETAText() string {
	return e.progress.EstimatedArrival().In(e.loc).Format(etaLayout)
}

// completeStep handles a fix inside the advance threshold. It reports true
// when the route is finished.
func (e *Engine) completeStep() bool {
	e.log.Debug("step completed", zap.Int("step", e.progress.StepIndex()+1))

	if e.progress.IsLastStep() {
		e.state = StateCompleted
		e.log.Info("navigation completed", zap.Int("steps", len(e.route.Steps)))
		e.emit(Event{Kind: EventNavigationCompleted})
		return true
	}

	if err := e.progress.AdvanceStep(); err != nil {
		return false
	}
	e.emit(Event{Kind: EventStepCompleted})

	if next, ok := e.progress.CurrentStep(); ok {
		e.emit(Event{
			Kind:           EventInstructionUpdate,
			Instruction:    next.PlainInstruction(),
			DistanceMeters: next.Distance.Meters,
		})
	}
	return false
}

// checkAnnouncement emits at most one instruction update per fix, for the
// first threshold whose window contains the distance and which is nearer
// than anything already announced on this step.
func (e *Engine) checkAnnouncement(distanceToStep int) {
	for _, threshold := range announcementThresholds {
		if distanceToStep > threshold || distanceToStep <= threshold-announcementWindowMeters {
			continue
		}
		last, announced := e.progress.LastAnnouncedThreshold()
		if announced && last <= threshold {
			continue
		}

		step, ok := e.progress.CurrentStep()
		if !ok {
			return
		}
		e.progress.setAnnounced(threshold)
		e.emit(Event{
			Kind:           EventInstructionUpdate,
			Instruction:    step.PlainInstruction(),
			DistanceMeters: distanceToStep,
		})
		e.log.Debug("announcement", zap.Int("threshold", threshold))
		return
	}
}

// checkOffRoute compares the fix with the geometry of the step that was
// active when the fix arrived. Only the transition onto off-route emits an
// event; returning to the route clears the flag silently.
func (e *Engine) checkOffRoute(pos geo.Coordinate, stepIndex int, step Step) {
	points, err := e.stepPath(stepIndex, step)
	if err != nil || len(points) == 0 {
		return
	}

	minDistance := geo.MinDistanceToPolyline(pos, points)
	wasOffRoute := e.progress.offRoute
	e.progress.offRoute = minDistance > OffRouteThresholdMeters

	switch {
	case e.progress.offRoute && !wasOffRoute:
		e.log.Info("went off route", zap.Int("distance_meters", int(minDistance)))
		e.emit(Event{Kind: EventOffRoute, DistanceMeters: int(minDistance)})
	case !e.progress.offRoute && wasOffRoute:
		e.log.Debug("back on route")
	}
}

// stepPath decodes a step polyline once and remembers the outcome.
func (e *Engine) stepPath(index int, step Step) ([]geo.Coordinate, error) {
	if cached, ok := e.paths[index]; ok {
		return cached.points, cached.err
	}

	points, err := geo.DecodePolyline(step.Polyline)
	switch {
	case err != nil:
		e.log.Warn("cannot decode step polyline, skipping off-route check",
			zap.Int("step", index),
			zap.Error(err),
		)
		err = fmt.Errorf("step %d: %w", index, err)
	case len(points) == 0:
		e.log.Warn("step polyline has no coordinates, skipping off-route check", zap.Int("step", index))
	}

	e.paths[index] = decodedPath{points: points, err: err}
	return points, err
}

func (e *Engine) emit(ev Event) {
	ev.StepIndex = e.progress.StepIndex()
	ev.At = e.now()
	for _, l := range e.listeners {
		l.OnEvent(ev)
	}
}
