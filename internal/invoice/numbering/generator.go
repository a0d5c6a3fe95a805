// Package numbering issues invoice numbers from configurable patterns.
package numbering

import (
	"context"
	"time"

	"github.com/garyjia/timesheet-invoicing/internal/application/port"
	"github.com/garyjia/timesheet-invoicing/internal/domain/errs"
)

// Generator issues invoice numbers backed by a sequence store.
//
// Uniqueness rests on the store: Increment must be a single atomic
// read-modify-write. When it runs inside the commit transaction the number
// is released again if the commit rolls back.
type Generator struct {
	sequences port.SequenceRepository
}

// NewGenerator creates a generator on top of a sequence store
func NewGenerator(sequences port.SequenceRepository) *Generator {
	return &Generator{sequences: sequences}
}

// Next issues the next number for pattern at the given time
func (g *Generator) Next(ctx context.Context, pattern string, at time.Time) (string, error) {
	p, err := Parse(pattern)
	if err != nil {
		return "", err
	}

	n, err := g.sequences.Increment(ctx, p.String(), p.Epoch(at))
	if err != nil {
		return "", &errs.NumberingFailure{Err: err}
	}
	return p.Format(at, n), nil
}
