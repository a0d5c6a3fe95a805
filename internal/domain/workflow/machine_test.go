package workflow

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"new", StateNew, true},
		{"pending", StatePending, true},
		{"paid", StatePaid, true},
		{"lowercase", State("paid"), false},
		{"empty state", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.expected {
				t.Errorf("State.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTriggerFor(t *testing.T) {
	tests := []struct {
		target State
		want   Trigger
		ok     bool
	}{
		{StateNew, TriggerReopen, true},
		{StatePending, TriggerMarkPending, true},
		{StatePaid, TriggerMarkPaid, true},
		{State("CANCELED"), "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.target), func(t *testing.T) {
			got, ok := TriggerFor(tt.target)
			if got != tt.want || ok != tt.ok {
				t.Errorf("TriggerFor(%s) = %v, %v; want %v, %v", tt.target, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestInvoiceMachine_Transitions(t *testing.T) {
	paid := WithPaymentDate(context.Background(), time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name    string
		from    State
		trigger Trigger
		ctx     context.Context
		want    State
		wantErr error
	}{
		{"new to pending", StateNew, TriggerMarkPending, context.Background(), StatePending, nil},
		{"new to paid", StateNew, TriggerMarkPaid, paid, StatePaid, nil},
		{"pending to paid", StatePending, TriggerMarkPaid, paid, StatePaid, nil},
		{"paid keeps paid", StatePaid, TriggerMarkPaid, paid, StatePaid, nil},
		{"pending reopened", StatePending, TriggerReopen, context.Background(), StateNew, nil},
		{"paid reopened", StatePaid, TriggerReopen, context.Background(), StateNew, nil},
		{"paid without date", StatePending, TriggerMarkPaid, context.Background(), StatePending, ErrGuardFailed},
		{"new cannot reopen", StateNew, TriggerReopen, context.Background(), StateNew, ErrInvalidTransition},
		{"paid cannot go pending", StatePaid, TriggerMarkPending, context.Background(), StatePaid, ErrInvalidTransition},
		{"pending cannot go pending", StatePending, TriggerMarkPending, context.Background(), StatePending, ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewInvoiceMachine(tt.from)
			err := m.Fire(tt.ctx, tt.trigger)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Fire() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("Fire() unexpected error = %v", err)
			}

			if m.State() != tt.want {
				t.Errorf("State() = %v, want %v", m.State(), tt.want)
			}
		})
	}
}

func TestInvoiceMachine_MachinesAreIndependent(t *testing.T) {
	a := NewInvoiceMachine(StateNew)
	b := NewInvoiceMachine(StateNew)

	if err := a.Fire(context.Background(), TriggerMarkPending); err != nil {
		t.Fatalf("Fire() unexpected error = %v", err)
	}

	if b.State() != StateNew {
		t.Errorf("second machine moved to %v", b.State())
	}
}

func TestBuilder_BuildCopiesConfiguration(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateNew).Permit(TriggerMarkPending, StatePending)

	m := builder.Build(StateNew)
	builder.Configure(StateNew).Permit(TriggerReopen, StatePaid)

	if m.CanFire(TriggerReopen) {
		t.Error("machine picked up a transition configured after Build")
	}
	if !m.CanFire(TriggerMarkPending) {
		t.Error("machine lost a transition configured before Build")
	}
}

func TestBuilder_PanicsOnInvalidState(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() with invalid state did not panic")
		}
	}()

	NewBuilder().Configure(State("BOGUS"))
}

func TestStateMachine_PermittedTriggers(t *testing.T) {
	m := NewInvoiceMachine(StatePending)
	triggers := m.PermittedTriggers()

	seen := map[Trigger]bool{}
	for _, tr := range triggers {
		seen[tr] = true
	}

	if len(triggers) != 2 || !seen[TriggerMarkPaid] || !seen[TriggerReopen] {
		t.Errorf("PermittedTriggers() = %v", triggers)
	}
}
