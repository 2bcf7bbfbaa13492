package session

import "github.com/zlnvch/drawguess/models"

// Phase is the single connection and authentication state of a session.
// Being authenticated implies being connected.
type Phase int

const (
	PhaseDisconnected Phase = iota
	PhaseConnecting
	PhaseConnected
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

// ConnectionState maps the phase onto the transport's connection states.
func (p Phase) ConnectionState() models.ConnectionState {
	switch p {
	case PhaseConnecting:
		return models.StateConnecting
	case PhaseConnected, PhaseAuthenticated:
		return models.StateConnected
	}
	return models.StateDisconnected
}

var transitions = map[Phase][]Phase{
	PhaseDisconnected:  {PhaseConnecting},
	PhaseConnecting:    {PhaseConnected, PhaseDisconnected},
	PhaseConnected:     {PhaseAuthenticated, PhaseDisconnected},
	PhaseAuthenticated: {PhaseConnected, PhaseDisconnected},
}

// canTransition reports whether a session may move from one phase to the
// other. Staying in the same phase is always allowed.
func canTransition(from Phase, to Phase) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// phaseFor derives the starting phase from a transport state.
func phaseFor(state models.ConnectionState) Phase {
	switch state {
	case models.StateConnected:
		return PhaseConnected
	case models.StateConnecting:
		return PhaseConnecting
	}
	return PhaseDisconnected
}
