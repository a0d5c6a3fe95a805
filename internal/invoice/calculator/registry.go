package calculator

import (
	"sort"
	"strconv"
	"sync"

	"github.com/garyjia/timesheet-invoicing/internal/domain/errs"
)

// Registry maps template calculator keys to strategies
type Registry struct {
	mu          sync.RWMutex
	calculators map[string]Calculator
}

// NewRegistry creates a registry holding the given calculators
func NewRegistry(calculators ...Calculator) *Registry {
	r := &Registry{calculators: make(map[string]Calculator, len(calculators))}
	for _, c := range calculators {
		r.Register(c)
	}
	return r
}

// DefaultRegistry holds every built-in strategy
func DefaultRegistry() *Registry {
	return NewRegistry(
		Default{},
		Short(),
		ByUser(),
		ByProject(),
		ByActivity(),
		ByDate(),
		ActivityRate{},
	)
}

// Register adds or replaces a calculator
func (r *Registry) Register(c Calculator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calculators[c.ID()] = c
}

// Get looks up a calculator by key
func (r *Registry) Get(id string) (Calculator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.calculators[id]
	if !ok {
		return nil, errs.Invalid("calculator", "unknown calculator %q", id)
	}
	return c, nil
}

// IDs lists the registered keys in sorted order
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.calculators))
	for id := range r.calculators {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func idKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
