package eventbus

import "time"

// Subjects for navigation events. Every subject is prefixed with
// "navigation." so one stream captures them all.
const (
	SubjectAll = "navigation.>"

	SubjectSessionStarted     = "navigation.session_started"
	SubjectInstructionUpdate  = "navigation.instruction_update"
	SubjectStepCompleted      = "navigation.step_completed"
	SubjectNavigationComplete = "navigation.navigation_completed"
	SubjectOffRoute           = "navigation.off_route"
	SubjectCancelled          = "navigation.cancelled"
	SubjectUtterance          = "navigation.utterance"
)

// SubjectFor returns the subject an engine event of the given kind is
// published on.
func SubjectFor(kind string) string {
	return "navigation." + kind
}

// SessionStartedData is emitted when a navigation session begins.
type SessionStartedData struct {
	SessionID       string    `json:"session_id"`
	Steps           int       `json:"steps"`
	DistanceMeters  int       `json:"distance_meters"`
	DurationSeconds int       `json:"duration_seconds"`
	DestinationLat  float64   `json:"destination_latitude"`
	DestinationLng  float64   `json:"destination_longitude"`
	Summary         string    `json:"summary,omitempty"`
	StartedAt       time.Time `json:"started_at"`
}

// NavigationEventData carries one engine event for a session.
type NavigationEventData struct {
	SessionID      string    `json:"session_id"`
	Kind           string    `json:"kind"`
	Instruction    string    `json:"instruction,omitempty"`
	DistanceMeters int       `json:"distance_meters,omitempty"`
	StepIndex      int       `json:"step_index"`
	H3Cell         string    `json:"h3_cell,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// UtteranceData carries a phrase for the session's speech player.
type UtteranceData struct {
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
	Text      string `json:"text"`
	StepIndex int    `json:"step_index"`
}

// SessionCancelledData is emitted when a session is cancelled or swept.
type SessionCancelledData struct {
	SessionID   string    `json:"session_id"`
	Reason      string    `json:"reason"`
	StepIndex   int       `json:"step_index"`
	CancelledAt time.Time `json:"cancelled_at"`
}
