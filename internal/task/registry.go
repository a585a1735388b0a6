package task

import (
	"fmt"
	"sync"

	"github.com/rajubeparybd/gulp-compiler/internal/dag"
)

// GroupDef declares a group by member names, as read from configuration.
type GroupDef struct {
	Name        string
	Kind        Kind
	Members     []string
	Description string
}

// Registry maps task names to tasks. Groups refer to their members through
// explicit lookups in the registry, never through shared ambient state.
type Registry struct {
	mu           sync.RWMutex
	tasks        map[string]Task
	order        []string
	descriptions map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tasks:        make(map[string]Task),
		descriptions: make(map[string]string),
	}
}

// Register adds t under its name.
func (r *Registry) Register(t Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[t.Name()]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTask, t.Name())
	}
	r.tasks[t.Name()] = t
	r.order = append(r.order, t.Name())
	return nil
}

// Describe attaches a human-readable description shown by task listings.
func (r *Registry) Describe(name, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descriptions[name] = description
}

// Description returns the description registered for name, if any.
func (r *Registry) Description(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.descriptions[name]
}

// Lookup returns the task registered under name.
func (r *Registry) Lookup(name string) (Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, name)
	}
	return t, nil
}

// Resolve looks up every name, failing on the first unknown one.
func (r *Registry) Resolve(names ...string) ([]Task, error) {
	out := make([]Task, 0, len(names))
	for _, name := range names {
		t, err := r.Lookup(name)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Names returns all registered task names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Define builds and registers groups from their declarations. Members may
// name registered tasks or other groups in defs, in any declaration order.
// Unknown members, duplicate names and cyclic references are rejected and
// nothing is registered.
func (r *Registry) Define(defs []GroupDef, opts ...Option) error {
	if len(defs) == 0 {
		return nil
	}

	byName := make(map[string]GroupDef, len(defs))
	g := dag.New()
	for _, def := range defs {
		if _, dup := byName[def.Name]; dup {
			return fmt.Errorf("%w: %q declared twice", ErrDuplicateTask, def.Name)
		}
		if _, err := r.Lookup(def.Name); err == nil {
			return fmt.Errorf("%w: %q", ErrDuplicateTask, def.Name)
		}
		if def.Kind != KindParallel && def.Kind != KindSeries {
			return fmt.Errorf("group %q: unsupported kind %q", def.Name, def.Kind)
		}
		if len(def.Members) == 0 {
			return fmt.Errorf("group %q: must list at least one member", def.Name)
		}
		byName[def.Name] = def
		g.AddNode(def.Name)
	}

	for _, def := range defs {
		for _, member := range def.Members {
			if _, isDef := byName[member]; !isDef {
				if _, err := r.Lookup(member); err != nil {
					return fmt.Errorf("group %q: %w", def.Name, err)
				}
				continue
			}
			if err := g.AddEdge(member, def.Name); err != nil {
				return fmt.Errorf("group %q cannot reference itself: %w", def.Name, err)
			}
		}
	}

	order, err := g.TopologicalOrder()
	if err != nil {
		return fmt.Errorf("invalid task groups: %w", err)
	}

	for _, name := range order {
		def := byName[name]
		members, err := r.Resolve(def.Members...)
		if err != nil {
			return fmt.Errorf("group %q: %w", name, err)
		}
		if err := r.Register(NewGroup(name, def.Kind, members, opts...)); err != nil {
			return err
		}
		if def.Description != "" {
			r.Describe(name, def.Description)
		}
	}
	return nil
}
