package capture

import "fmt"

// State is the position of a session in the capture flow.
type State int

const (
	StateClosed State = iota
	StateIdle
	StateDetecting
	StateSuccess // pose accepted, advancing to the next challenge
	StateFailure // pose rejected, resetting to idle
	StateCountdown
	StateCaptured
	StateSubmitting // still handed to the sink, waiting for its locator
	StateError
)

var stateNames = [...]string{
	StateClosed:     "closed",
	StateIdle:       "idle",
	StateDetecting:  "detecting",
	StateSuccess:    "success",
	StateFailure:    "failure",
	StateCountdown:  "countdown",
	StateCaptured:   "captured",
	StateSubmitting: "submitting",
	StateError:      "error",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown capture state %q", b)
}

// busy reports whether a detection chain is in flight.
func (s State) busy() bool {
	switch s {
	case StateDetecting, StateSuccess, StateFailure, StateCountdown:
		return true
	}
	return false
}
