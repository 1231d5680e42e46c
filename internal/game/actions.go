package game

import "fmt"

// Phase is the betting street of the current hand.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhasePreflop
	PhaseFlop
	PhaseTurn
	PhaseRiver
	PhaseShowdown
)

var phaseNames = [...]string{"waiting", "preflop", "flop", "turn", "river", "showdown"}

func (p Phase) String() string {
	if p < PhaseWaiting || p > PhaseShowdown {
		return "unknown"
	}
	return phaseNames[p]
}

// Betting reports whether a betting round is in progress.
func (p Phase) Betting() bool {
	return p >= PhasePreflop && p <= PhaseRiver
}

// MarshalText renders the phase name for JSON.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Action is a betting decision.
type Action int

const (
	Fold Action = iota
	Check
	Call
	Raise
	AllIn
)

var actionNames = [...]string{"fold", "check", "call", "raise", "all_in"}

func (a Action) String() string {
	if a < Fold || a > AllIn {
		return "unknown"
	}
	return actionNames[a]
}

// MarshalText renders the action name for JSON.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses an action name.
func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAction converts a wire action name into an Action.
func ParseAction(s string) (Action, error) {
	for i, name := range actionNames {
		if name == s {
			return Action(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// LastAction records the most recent accepted action.
type LastAction struct {
	Player int    `json:"player"`
	Action Action `json:"action"`
	Amount int    `json:"amount,omitempty"`
}
