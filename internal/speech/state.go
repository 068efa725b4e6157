package speech

// State is the lifecycle state of a recognition session.
type State int

const (
	StateIdle State = iota
	StateBackgroundListening
	StateActiveListening
	StateProcessing
	StateDemoMode
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:                "idle",
	StateBackgroundListening: "background_listening",
	StateActiveListening:     "active_listening",
	StateProcessing:          "processing",
	StateDemoMode:            "demo_mode",
	StateFailed:              "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the state by name so it can be used directly in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Role identifies which of the two recognizers an event or command refers to.
type Role int

const (
	// RoleBackground is the continuous recognizer used only for wake-word spotting.
	RoleBackground Role = iota
	// RoleActive is the recognizer that captures one utterance.
	RoleActive
)

func (r Role) String() string {
	switch r {
	case RoleBackground:
		return "background"
	case RoleActive:
		return "active"
	default:
		return "unknown"
	}
}

func (r Role) other() Role {
	if r == RoleBackground {
		return RoleActive
	}
	return RoleBackground
}

// listeningState is the state a session is in while the recognizer of this role runs.
func (r Role) listeningState() State {
	if r == RoleBackground {
		return StateBackgroundListening
	}
	return StateActiveListening
}

// ParseRole parses the wire name of a role.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "background":
		return RoleBackground, true
	case "active":
		return RoleActive, true
	default:
		return 0, false
	}
}
