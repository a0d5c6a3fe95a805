// Package render turns calculated invoices into documents.
//
// Renderers are pure: the same Input always yields the same bytes, which is
// why nothing here reads the clock or generates random values. An empty
// Input.Number renders a preview.
package render

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
	"github.com/garyjia/timesheet-invoicing/internal/domain/errs"
	"github.com/garyjia/timesheet-invoicing/internal/invoice/calculator"
)

// Renderer is one document strategy
type Renderer interface {
	ID() string
	Render(in Input) (*entity.Document, error)
}

// Input is everything a renderer may draw from
type Input struct {
	Template  *entity.InvoiceTemplate
	Entries   []*entity.Timesheet
	Totals    *calculator.Totals
	Number    string
	IssueDate time.Time
	DueDate   time.Time
}

// Preview reports whether the input has no assigned number yet
func (in Input) Preview() bool {
	return in.Number == ""
}

// requireFields fails with a RenderError naming the first empty template field
func requireFields(renderer string, in Input, fields ...string) error {
	if in.Template == nil {
		return &errs.RenderError{Renderer: renderer, Field: "template"}
	}
	if in.Totals == nil {
		return &errs.RenderError{Renderer: renderer, Err: fmt.Errorf("no totals to render")}
	}
	for _, f := range fields {
		if in.Template.Field(f) == "" {
			return &errs.RenderError{Renderer: renderer, Field: f}
		}
	}
	return nil
}

// Registry maps template renderer keys to strategies
type Registry struct {
	mu        sync.RWMutex
	renderers map[string]Renderer
}

// NewRegistry creates a registry holding the given renderers
func NewRegistry(renderers ...Renderer) *Registry {
	r := &Registry{renderers: make(map[string]Renderer, len(renderers))}
	for _, rr := range renderers {
		r.Register(rr)
	}
	return r
}

// DefaultRegistry holds every built-in renderer
func DefaultRegistry() *Registry {
	return NewRegistry(JSON{}, CSV{}, HTML{}, XLSX{}, PDF{})
}

// Register adds or replaces a renderer
func (r *Registry) Register(rr Renderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderers[rr.ID()] = rr
}

// Get looks up a renderer by key
func (r *Registry) Get(id string) (Renderer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rr, ok := r.renderers[id]
	if !ok {
		return nil, errs.Invalid("renderer", "unknown renderer %q", id)
	}
	return rr, nil
}

// IDs lists the registered keys in sorted order
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.renderers))
	for id := range r.renderers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
