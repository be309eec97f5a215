package player

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"termreel/internal/progress"
)

// State is a playback supervisor state.
type State int

const (
	StateStarting State = iota
	StateRunning
	StateStopping
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Stage maps the state onto the progress vocabulary.
func (s State) Stage() progress.Stage {
	return progress.Stage(s.String())
}

// ErrInvalidTransition is returned by TransitionTo for a move the state
// machine does not allow.
var ErrInvalidTransition = errors.New("invalid state transition")

var transitions = map[State][]State{
	StateStarting: {StateRunning, StateFailed},
	StateRunning:  {StateStopping},
	StateStopping: {StateStopped},
}

type machine struct {
	mu       sync.RWMutex
	state    State
	session  string
	logger   zerolog.Logger
	reporter progress.Reporter
}

func newMachine(logger zerolog.Logger, reporter progress.Reporter) *machine {
	return &machine{state: StateStarting, logger: logger, reporter: reporter}
}

func (m *machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *machine) setSession(id string) {
	m.mu.Lock()
	m.session = id
	m.mu.Unlock()
}

// TransitionTo moves to next if the transition table allows it.
func (m *machine) TransitionTo(next State, reason string) error {
	m.mu.Lock()
	prev := m.state
	allowed := false
	for _, s := range transitions[prev] {
		if s == next {
			allowed = true
			break
		}
	}
	if !allowed {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, prev, next)
	}
	m.state = next
	id := m.session
	m.mu.Unlock()

	// Emit outside of lock
	m.logger.Debug().
		Str("from", prev.String()).
		Str("to", next.String()).
		Str("reason", reason).
		Msg("state transition")
	m.reporter.Update(progress.Update{SessionID: id, Stage: next.Stage(), Message: reason})
	return nil
}
