package schema

import (
	"errors"
	"fmt"
)

var (
	ErrSchemaNotFound  = errors.New("schema not found")
	ErrDuplicateSchema = errors.New("duplicate schema")
)

// Resolver looks up schemas referenced by relations.
type Resolver interface {
	Resolve(ref SchemaRef) (*Schema, error)
}

// Registry holds declared schemas by ID.
type Registry struct {
	byID  map[string]*Schema
	order []*Schema
}

// NewRegistry creates a registry holding the given schemas.
func NewRegistry(schemas ...*Schema) (*Registry, error) {
	r := &Registry{byID: make(map[string]*Schema)}
	for _, s := range schemas {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a schema. IDs must be unique.
func (r *Registry) Register(s *Schema) error {
	if _, exists := r.byID[s.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSchema, s.ID())
	}
	r.byID[s.ID()] = s
	r.order = append(r.order, s)
	return nil
}

// Resolve implements Resolver.
func (r *Registry) Resolve(ref SchemaRef) (*Schema, error) {
	s, ok := r.byID[string(ref)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, ref)
	}
	return s, nil
}

// Schemas returns the registered schemas in registration order.
func (r *Registry) Schemas() []*Schema {
	out := make([]*Schema, len(r.order))
	copy(out, r.order)
	return out
}
