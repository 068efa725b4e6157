package speech

import (
	"errors"
	"fmt"
)

// EventKind is the recognizer callback an Event was normalised from.
type EventKind int

const (
	EventStart EventKind = iota
	EventResult
	EventError
	EventEnd
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventResult:
		return "result"
	case EventError:
		return "error"
	case EventEnd:
		return "end"
	default:
		return "unknown"
	}
}

// ParseEventKind parses the wire name of an event kind.
func ParseEventKind(s string) (EventKind, bool) {
	switch s {
	case "start":
		return EventStart, true
	case "result":
		return EventResult, true
	case "error":
		return EventError, true
	case "end":
		return EventEnd, true
	default:
		return 0, false
	}
}

// Event is a recognizer callback after validation at the platform boundary.
type Event struct {
	Role       Role
	Generation uint64
	Kind       EventKind
	Transcript string
	Final      bool
	ErrorCode  ErrorCode
}

// ErrInvalidEvent is returned by Event.Validate.
var ErrInvalidEvent = errors.New("invalid recognizer event")

// Validate checks that the event is well formed.
func (e Event) Validate() error {
	if e.Role != RoleBackground && e.Role != RoleActive {
		return fmt.Errorf("%w: unknown role %d", ErrInvalidEvent, e.Role)
	}
	if e.Generation == 0 {
		return fmt.Errorf("%w: missing generation", ErrInvalidEvent)
	}
	switch e.Kind {
	case EventStart, EventEnd, EventResult:
	case EventError:
		if e.ErrorCode == "" {
			return fmt.Errorf("%w: error event without code", ErrInvalidEvent)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidEvent, e.Kind)
	}
	return nil
}
