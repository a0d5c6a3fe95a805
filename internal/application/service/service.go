// Package service orchestrates invoice selection, creation and lifecycle.
package service

import (
	"context"
	"time"

	"github.com/garyjia/timesheet-invoicing/internal/application/dispatcher"
	"github.com/garyjia/timesheet-invoicing/internal/domain/event"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Clock returns the current time
type Clock func() time.Time

// IDGenerator issues invoice identifiers
type IDGenerator interface {
	NextID() int64
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{}) {}
func (nopLogger) Error(string, ...interface{}) {}

func orNop(logger Logger) Logger {
	if logger == nil {
		return nopLogger{}
	}
	return logger
}

func orSystemClock(clock Clock) Clock {
	if clock == nil {
		return time.Now
	}
	return clock
}

// publish hands an event to the dispatcher without blocking the caller
func publish(ctx context.Context, d dispatcher.Dispatcher, evt *event.Event) {
	if d == nil {
		return
	}
	d.DispatchAsync(context.WithoutCancel(ctx), evt)
}
