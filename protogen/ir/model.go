package ir

import (
	"fmt"
	"sort"
)

// Resolver answers type queries for the closure engine.
// Implementations return *ResolutionError when a name is unknown.
type Resolver interface {
	Class(qualifiedName string) (*ClassDescriptor, error)
}

// ResolutionError reports a referenced type that cannot be resolved.
// It is always fatal: a dangling reference would produce an invalid schema.
type ResolutionError struct {
	// Name is the unresolved qualified name.
	Name string

	// Referrer describes where the reference came from, if known.
	Referrer string
}

func (e *ResolutionError) Error() string {
	if e.Referrer != "" {
		return fmt.Sprintf("cannot resolve type %s (referenced from %s)", e.Name, e.Referrer)
	}
	return fmt.Sprintf("cannot resolve type %s", e.Name)
}

// Model is an in-memory resolved object model. It implements Resolver.
type Model struct {
	classes   map[string]*ClassDescriptor
	resources map[string]*ResourceClass
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{
		classes:   make(map[string]*ClassDescriptor),
		resources: make(map[string]*ResourceClass),
	}
}

// AddClass adds a class descriptor. A later declaration with the same
// qualified name replaces the earlier one.
func (m *Model) AddClass(d *ClassDescriptor) {
	m.classes[d.QualifiedName] = d
}

// AddResource adds a resource class.
func (m *Model) AddResource(r ResourceClass) {
	m.resources[r.QualifiedName] = &r
}

// Class implements Resolver.
func (m *Model) Class(name string) (*ClassDescriptor, error) {
	d, ok := m.classes[name]
	if !ok {
		return nil, &ResolutionError{Name: name}
	}
	return d, nil
}

// HasClass reports whether the model declares name.
func (m *Model) HasClass(name string) bool {
	_, ok := m.classes[name]
	return ok
}

// ClassNames returns all declared class names in sorted order.
func (m *Model) ClassNames() []string {
	names := make([]string, 0, len(m.classes))
	for name := range m.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resources returns the resource classes sorted by qualified name.
func (m *Model) Resources() []ResourceClass {
	names := make([]string, 0, len(m.resources))
	for name := range m.resources {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ResourceClass, 0, len(names))
	for _, name := range names {
		out = append(out, *m.resources[name])
	}
	return out
}

// Merge copies every class and resource of other into m.
func (m *Model) Merge(other *Model) {
	for name, d := range other.classes {
		m.classes[name] = d
	}
	for name, r := range other.resources {
		m.resources[name] = r
	}
}
