/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package registry

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/MaxiMittel/dynormo/errors"
	"github.com/MaxiMittel/dynormo/schema"
)

// Registry maps entity names to their schemas. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*schema.Entity
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{schemas: make(map[string]*schema.Entity)}
}

// Register validates entity and adds it under its name. Registering a name
// twice is an error.
func (r *Registry) Register(entity *schema.Entity) error {
	if entity == nil {
		return errors.NewValidationError("schema", "schema is required")
	}
	if err := entity.Validate(); err != nil {
		return fmt.Errorf("schema %s: %w", entity.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.schemas[entity.Name]; exists {
		return errors.NewAlreadyExistsError("schema", entity.Name)
	}
	r.schemas[entity.Name] = entity
	return nil
}

// Get returns the schema registered under name.
func (r *Registry) Get(name string) (*schema.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errors.ErrNoSchema, name)
	}
	return e, nil
}

// Names returns the registered entity names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Schemas returns the registered schemas ordered by name.
func (r *Registry) Schemas() []*schema.Entity {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*schema.Entity, 0, len(names))
	for _, name := range names {
		if e, ok := r.schemas[name]; ok {
			out = append(out, e)
		}
	}
	return slices.Clip(out)
}

// Default is the process-wide registry populated by generated code.
var Default = New()

// RegisterSchema adds entity to the Default registry.
func RegisterSchema(entity *schema.Entity) error {
	return Default.Register(entity)
}

// MustRegisterSchema is RegisterSchema for init functions. It panics if the
// schema is invalid or its name is taken.
func MustRegisterSchema(entity *schema.Entity) {
	if err := Default.Register(entity); err != nil {
		panic(fmt.Sprintf("registry: %v", err))
	}
}

// GetSchema returns the schema registered under name in the Default registry.
func GetSchema(name string) (*schema.Entity, error) {
	return Default.Get(name)
}

// Schemas returns every schema of the Default registry ordered by name.
func Schemas() []*schema.Entity {
	return Default.Schemas()
}
