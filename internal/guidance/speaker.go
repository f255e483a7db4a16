package guidance

import (
	"sync"

	"github.com/richxcame/navigator/internal/navigation"
)

// Utterance is one phrase queued for the speech player.
type Utterance struct {
	Text      string               `json:"text"`
	Kind      navigation.EventKind `json:"kind"`
	StepIndex int                  `json:"step_index"`
}

// Speaker maps engine events to utterances. Step completions are silent;
// the instruction update that follows them carries the phrase.
type Speaker struct {
	mu      sync.RWMutex
	enabled bool
}

// NewSpeaker returns an enabled speaker.
func NewSpeaker() *Speaker {
	return &Speaker{enabled: true}
}

// SetEnabled mutes or unmutes the speaker.
func (s *Speaker) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()
}

// Enabled reports whether the speaker produces utterances.
func (s *Speaker) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// Utter returns the phrase for e, or false when e is silent or the speaker
// is muted.
func (s *Speaker) Utter(e navigation.Event) (Utterance, bool) {
	if !s.Enabled() {
		return Utterance{}, false
	}

	var text string
	switch e.Kind {
	case navigation.EventInstructionUpdate:
		text = Announcement(e.Instruction, e.DistanceMeters)
	case navigation.EventNavigationCompleted:
		text = Arrival()
	case navigation.EventOffRoute:
		text = OffRoute()
	default:
		return Utterance{}, false
	}
	if text == "" {
		return Utterance{}, false
	}
	return Utterance{Text: text, Kind: e.Kind, StepIndex: e.StepIndex}, true
}

// Listener adapts the speaker to an engine listener that hands each
// utterance to play.
func (s *Speaker) Listener(play func(Utterance)) navigation.Listener {
	return navigation.ListenerFunc(func(e navigation.Event) {
		if u, ok := s.Utter(e); ok {
			play(u)
		}
	})
}
