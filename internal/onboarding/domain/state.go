package domain

// State is a step of the onboarding flow.
type State string

const (
	StateStep1Entity   State = "step1_entity"
	StateStep2Delegate State = "step2_delegate"
	StateStep3Payment  State = "step3_payment"
	StateSubmitted     State = "submitted"
)

var stateOrder = []State{StateStep1Entity, StateStep2Delegate, StateStep3Payment, StateSubmitted}

// transitions lists the guarded forward moves.
var transitions = map[State]State{
	StateStep1Entity:   StateStep2Delegate,
	StateStep2Delegate: StateStep3Payment,
	StateStep3Payment:  StateSubmitted,
}

func (s State) Valid() bool {
	return s.Number() > 0
}

// Number is the 1-based step position; 0 for unknown states.
func (s State) Number() int {
	for i, candidate := range stateOrder {
		if candidate == s {
			return i + 1
		}
	}
	return 0
}

// Next returns the guarded successor of s.
func (s State) Next() (State, bool) {
	next, ok := transitions[s]
	return next, ok
}

// CanTransition reports whether from -> to is a guarded forward move.
func CanTransition(from, to State) bool {
	next, ok := transitions[from]
	return ok && next == to
}

// Navigable reports whether a page for s can be entered directly.
func (s State) Navigable() bool {
	return s.Valid() && s != StateSubmitted
}

// ParseStep accepts a state name or a step number ("1".."3").
func ParseStep(raw string) (State, bool) {
	switch raw {
	case "1", "entity":
		return StateStep1Entity, true
	case "2", "delegate":
		return StateStep2Delegate, true
	case "3", "payment":
		return StateStep3Payment, true
	}
	s := State(raw)
	return s, s.Navigable()
}
