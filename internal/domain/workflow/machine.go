package workflow

import (
	"context"
	"sync"
	"time"
)

// StateMachine tracks the current state and validates transitions
type StateMachine interface {
	State() State
	CanFire(trigger Trigger) bool
	Fire(ctx context.Context, trigger Trigger) error
	PermittedTriggers() []Trigger
}

type paymentDateKey struct{}

// WithPaymentDate attaches the payment date checked by the mark_paid guard
func WithPaymentDate(ctx context.Context, date time.Time) context.Context {
	return context.WithValue(ctx, paymentDateKey{}, date)
}

func hasPaymentDate(ctx context.Context) bool {
	date, ok := ctx.Value(paymentDateKey{}).(time.Time)
	return ok && !date.IsZero()
}

var (
	invoiceBuilderOnce sync.Once
	invoiceBuilder     StateMachineBuilder
)

func newInvoiceBuilder() StateMachineBuilder {
	b := NewBuilder()

	b.Configure(StateNew).
		Permit(TriggerMarkPending, StatePending).
		PermitIf(TriggerMarkPaid, StatePaid, hasPaymentDate)

	b.Configure(StatePending).
		PermitIf(TriggerMarkPaid, StatePaid, hasPaymentDate).
		Permit(TriggerReopen, StateNew)

	// PAID -> PAID re-records the payment date.
	b.Configure(StatePaid).
		PermitIf(TriggerMarkPaid, StatePaid, hasPaymentDate).
		Permit(TriggerReopen, StateNew)

	return b
}

// NewInvoiceMachine returns the invoice lifecycle positioned at current
func NewInvoiceMachine(current State) StateMachine {
	invoiceBuilderOnce.Do(func() {
		invoiceBuilder = newInvoiceBuilder()
	})
	return invoiceBuilder.Build(current)
}
