package workflow

// Trigger is an operator action that moves an invoice between states
type Trigger string

const (
	TriggerMarkPending Trigger = "mark_pending"
	TriggerMarkPaid    Trigger = "mark_paid"
	TriggerReopen      Trigger = "reopen"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

// TriggerFor returns the trigger that leads to the target state
func TriggerFor(target State) (Trigger, bool) {
	switch target {
	case StateNew:
		return TriggerReopen, true
	case StatePending:
		return TriggerMarkPending, true
	case StatePaid:
		return TriggerMarkPaid, true
	}
	return "", false
}
