package workflow

// State is an invoice lifecycle state
type State string

const (
	StateNew     State = "NEW"
	StatePending State = "PENDING"
	StatePaid    State = "PAID"
)

// AllStates lists the lifecycle states in workflow order
func AllStates() []State {
	return []State{StateNew, StatePending, StatePaid}
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known lifecycle state
func (s State) IsValid() bool {
	switch s {
	case StateNew, StatePending, StatePaid:
		return true
	}
	return false
}
