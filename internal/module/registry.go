package module

import (
	"rash/internal/rasherr"
)

// Registry maps a module name to its implementation, grounded on the
// teacher's dsl.Registry name→TypeDef map (`dsl/registry.go`).
type Registry struct {
	byName map[string]Module
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Module)}
}

// Register adds m under name, overwriting any previous registration for
// that name (callers register the core module set once at startup; there
// is no "already registered" failure mode here since, unlike the teacher's
// type registry, module names are not user-declared).
func (r *Registry) Register(name string, m Module) {
	r.byName[name] = m
}

// Lookup resolves name to its Module, returning ModuleNotFound if absent.
func (r *Registry) Lookup(name string) (Module, error) {
	m, ok := r.byName[name]
	if !ok {
		return nil, rasherr.New(rasherr.KindModuleNotFound, "dispatch", name, rasherr.ErrModuleNotFound)
	}
	return m, nil
}

// Names returns every registered module name, for diagnostics and help
// text (no defined order is promised).
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for k := range r.byName {
		out = append(out, k)
	}
	return out
}
