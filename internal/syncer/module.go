// Package syncer keeps the local data modules consistent with their
// remote envelope files. It decides push-vs-pull per module from hash
// baselines, isolates per-module failures, and treats module contents as
// opaque JSON throughout.
package syncer

import (
	"context"
	"fmt"
)

// Module is one independently-owned local data domain. Read returns the
// module's current value as an opaque JSON-serializable value; Write
// replaces it. The engine never inspects a module's internal shape — it
// only hashes values and moves them in and out of envelopes.
type Module interface {
	Name() string
	Filename() string
	Read(ctx context.Context) (any, error)
	Write(ctx context.Context, value any) error
}

// Registry is the fixed, ordered set of modules one engine instance syncs.
// It is constructor-injected (never a package global) so independent
// engines can coexist in tests without interference.
type Registry struct {
	modules []Module
	byName  map[string]Module
}

// NewRegistry builds a registry, rejecting duplicate names or filenames.
func NewRegistry(modules ...Module) (*Registry, error) {
	r := &Registry{
		modules: make([]Module, 0, len(modules)),
		byName:  make(map[string]Module, len(modules)),
	}

	filenames := make(map[string]string, len(modules))

	for _, m := range modules {
		if _, dup := r.byName[m.Name()]; dup {
			return nil, fmt.Errorf("syncer: duplicate module name %q", m.Name())
		}

		if prev, dup := filenames[m.Filename()]; dup {
			return nil, fmt.Errorf("syncer: modules %q and %q share filename %q", prev, m.Name(), m.Filename())
		}

		r.byName[m.Name()] = m
		filenames[m.Filename()] = m.Name()
		r.modules = append(r.modules, m)
	}

	return r, nil
}

// All returns the modules in registration order.
func (r *Registry) All() []Module {
	return r.modules
}

// Lookup returns the module registered under name.
func (r *Registry) Lookup(name string) (Module, bool) {
	m, ok := r.byName[name]
	return m, ok
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	return len(r.modules)
}
