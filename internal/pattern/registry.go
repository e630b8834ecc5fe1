package pattern

import (
	"fmt"
	"sync"

	applogger "PatternPull/pkg/logger"
)

// Registry holds registered patterns in insertion order with per-pattern
// enable flags. Names are unique; re-registering a name overwrites the
// previous pattern in place with a warning.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*entry
	l       *applogger.Logger
}

type entry struct {
	p       Pattern
	enabled bool
}

// NewRegistry creates an empty registry.
func NewRegistry(l *applogger.Logger) *Registry {
	return &Registry{entries: make(map[string]*entry), l: l}
}

// Register adds a pattern, enabled. A duplicate name overwrites the existing
// pattern but keeps its position in the ordering.
func (r *Registry) Register(p Pattern) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if e, ok := r.entries[name]; ok {
		if r.l != nil {
			r.l.Warn("pattern re-registered, overwriting", applogger.String("pattern", name))
		}
		e.p = p
		return
	}
	r.entries[name] = &entry{p: p, enabled: true}
	r.order = append(r.order, name)
}

// Unregister removes a pattern by name.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[name]; !ok {
		return fmt.Errorf("unknown pattern: %s", name)
	}
	delete(r.entries, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Enable marks a pattern active.
func (r *Registry) Enable(name string) error { return r.setEnabled(name, true) }

// Disable keeps a pattern registered but excludes it from Active.
func (r *Registry) Disable(name string) error { return r.setEnabled(name, false) }

func (r *Registry) setEnabled(name string, v bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return fmt.Errorf("unknown pattern: %s", name)
	}
	e.enabled = v
	return nil
}

// Active returns enabled patterns in stable insertion order.
func (r *Registry) Active() []Pattern {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Pattern, 0, len(r.order))
	for _, name := range r.order {
		if e := r.entries[name]; e != nil && e.enabled {
			out = append(out, e.p)
		}
	}
	return out
}

// Get returns a registered pattern by name regardless of enablement.
func (r *Registry) Get(name string) (Pattern, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.p, true
}
