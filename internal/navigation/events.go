package navigation

import "time"

// EventKind names one of the four notifications the engine raises.
type EventKind string

const (
	EventInstructionUpdate   EventKind = "instruction_update"
	EventStepCompleted       EventKind = "step_completed"
	EventNavigationCompleted EventKind = "navigation_completed"
	EventOffRoute            EventKind = "off_route"
)

// Event is delivered synchronously from inside the engine call that caused
// it. For instruction updates DistanceMeters is the distance to the
// maneuver; for off-route events it is the distance from the step geometry.
type Event struct {
	Kind           EventKind `json:"kind"`
	Instruction    string    `json:"instruction,omitempty"`
	DistanceMeters int       `json:"distance_meters,omitempty"`
	StepIndex      int       `json:"step_index"`
	At             time.Time `json:"at"`
}

// Listener receives engine events. Implementations must not call back into
// the engine and should hand slow work (speech, network) to another
// goroutine.
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

// OnEvent calls f(e).
func (f ListenerFunc) OnEvent(e Event) { f(e) }

// Recorder buffers events so a caller can drain them after each engine call.
type Recorder struct {
	events []Event
}

// OnEvent appends e.
func (r *Recorder) OnEvent(e Event) {
	r.events = append(r.events, e)
}

// Drain returns the buffered events in emission order and empties the buffer.
func (r *Recorder) Drain() []Event {
	out := r.events
	r.events = nil
	return out
}

// Len returns the number of buffered events.
func (r *Recorder) Len() int { return len(r.events) }
