// Package suite composes expectation sets into suites and runs them against a
// provisioned host.
package suite

import (
	"fmt"
	"sort"
	"sync"

	"github.com/alexisbeaulieu97/hostspec/internal/expect"
	hserrors "github.com/alexisbeaulieu97/hostspec/pkg/errors"
)

// Registry holds expectation sets by name. It is passed explicitly to the
// builders that need it; there is no package-level registry.
type Registry struct {
	mu   sync.RWMutex
	sets map[string]*expect.Set
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sets: make(map[string]*expect.Set)}
}

// Register adds set. Names are unique.
func (r *Registry) Register(set *expect.Set) error {
	if set == nil || set.Name == "" {
		return hserrors.NewValidationError("set", "cannot register an unnamed set", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sets[set.Name]; exists {
		return hserrors.NewValidationError("sets."+set.Name, fmt.Sprintf("set %q is already registered", set.Name), nil)
	}
	r.sets[set.Name] = set
	return nil
}

// Lookup returns the set registered under name.
func (r *Registry) Lookup(name string) (*expect.Set, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.sets[name]
	if !ok {
		return nil, hserrors.NewUnknownSetError(name)
	}
	return set, nil
}

// Names lists registered set names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sets))
	for name := range r.sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
