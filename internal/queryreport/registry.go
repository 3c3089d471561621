package queryreport

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrReportNotFound indicates the named report has not been registered.
var ErrReportNotFound = errors.New("queryreport: report not found")

// Registry maps report names to their definitions. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	reports map[string]Definition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{reports: make(map[string]Definition)}
}

// Set stores def under name, replacing any previous definition.
func (r *Registry) Set(name string, def Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[name] = Clone(def)
}

// Get returns a copy of the definition registered under name.
func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.reports[name]
	if !ok {
		return Definition{}, false
	}
	return Clone(def), true
}

// Update replaces the named definition with the value returned by fn.
func (r *Registry) Update(name string, fn func(Definition) Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	def, ok := r.reports[name]
	if !ok {
		return fmt.Errorf("update %q: %w", name, ErrReportNotFound)
	}
	r.reports[name] = Clone(fn(Clone(def)))
	return nil
}

// Names lists registered report names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.reports))
	for name := range r.reports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered reports.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.reports)
}
