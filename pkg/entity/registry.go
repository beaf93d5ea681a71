package entity

import (
	"fmt"
	"reflect"
	"sync"
)

// Registry caches one Schema per entity type
type Registry struct {
	schemas map[reflect.Type]*Schema
	byTable map[string]*Schema
	mutex   sync.RWMutex
}

var defaultRegistry = NewRegistry()

// NewRegistry creates an empty schema registry
func NewRegistry() *Registry {
	return &Registry{
		schemas: make(map[reflect.Type]*Schema),
		byTable: make(map[string]*Schema),
	}
}

// GetDefaultRegistry returns the process-wide registry used by Describe
func GetDefaultRegistry() *Registry {
	return defaultRegistry
}

// Describe returns the schema of model from the default registry, building it on first use
func Describe(model any) (*Schema, error) {
	return defaultRegistry.Describe(model)
}

// Describe returns the cached schema of model's struct type or builds and caches it
func (r *Registry) Describe(model any) (*Schema, error) {
	typ := reflect.TypeOf(model)
	if typ == nil {
		return nil, fmt.Errorf("%w: model cannot be nil", ErrInvalidEntity)
	}
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}

	r.mutex.RLock()
	s, ok := r.schemas[typ]
	r.mutex.RUnlock()
	if ok {
		return s, nil
	}

	built, err := buildSchema(model)
	if err != nil {
		return nil, err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	if s, ok := r.schemas[typ]; ok {
		return s, nil
	}
	r.schemas[typ] = built
	r.byTable[built.Table()] = built
	return built, nil
}

// Register describes an entity and checks that it carries the bookkeeping columns
func (r *Registry) Register(model Entity) (*Schema, error) {
	s, err := r.Describe(model)
	if err != nil {
		return nil, err
	}
	for _, name := range []string{ColumnID, ColumnCreated, ColumnModified, ColumnDeleted} {
		if !s.HasColumn(name) {
			return nil, fmt.Errorf("%w: %s has no %s column", ErrMissingColumn, s.Name, name)
		}
	}
	return s, nil
}

// Lookup finds a registered schema by its quoted table reference
func (r *Registry) Lookup(table string) (*Schema, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	s, ok := r.byTable[table]
	return s, ok
}

// Schemas lists every schema described so far
func (r *Registry) Schemas() []*Schema {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	out := make([]*Schema, 0, len(r.schemas))
	for _, s := range r.schemas {
		out = append(out, s)
	}
	return out
}
