package operations

import (
	"errors"
	"fmt"
	"sync"
)

var (
	errNilStep   = errors.New("cannot register a nil step")
	errEmptyID   = errors.New("step id cannot be empty")
	errStepCycle = errors.New("dependency cycle detected")
)

// Registry holds the steps of a pipeline keyed by id, remembering registration order
type Registry struct {
	mu    sync.RWMutex
	steps map[string]Step
	order []string
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{steps: make(map[string]Step)}
}

// Register adds step. Ids must be unique.
func (r *Registry) Register(step Step) error {
	if step == nil {
		return errNilStep
	}
	id := step.ID()
	if id == "" {
		return errEmptyID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.steps[id]; dup {
		return fmt.Errorf("step %s already registered", id)
	}
	r.steps[id] = step
	r.order = append(r.order, id)
	return nil
}

// Get returns the step registered under id
func (r *Registry) Get(id string) (Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if step, ok := r.steps[id]; ok {
		return step, nil
	}
	return nil, fmt.Errorf("step %s not found", id)
}

func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.steps[id]
	return ok
}

// ListIDs returns step ids in registration order
func (r *Registry) ListIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.steps)
}

// GetDependencyOrder returns every step after its dependencies. Independent steps keep
// their registration order.
func (r *Registry) GetDependencyOrder() ([]Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sorted()
}

// ValidateDependencies reports unknown dependencies and cycles
func (r *Registry) ValidateDependencies() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, err := r.sorted()
	return err
}

// GetDependents returns the steps that list stepID as a direct dependency
func (r *Registry) GetDependents(stepID string) []Step {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Step
	for _, id := range r.order {
		for _, dep := range r.steps[id].GetDependencies() {
			if dep == stepID {
				out = append(out, r.steps[id])
				break
			}
		}
	}
	return out
}

// sorted is a depth-first topological sort walking steps in registration order
func (r *Registry) sorted() ([]Step, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	mark := make(map[string]int, len(r.steps))
	out := make([]Step, 0, len(r.steps))

	var visit func(id string) error
	visit = func(id string) error {
		switch mark[id] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w at step %s", errStepCycle, id)
		}
		mark[id] = visiting
		for _, dep := range r.steps[id].GetDependencies() {
			if _, ok := r.steps[dep]; !ok {
				return fmt.Errorf("step %s depends on unknown step %s", id, dep)
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		mark[id] = done
		out = append(out, r.steps[id])
		return nil
	}

	for _, id := range r.order {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return out, nil
}
