package entity

import (
	"github.com/tendant/content-distill/pkg/distill"
)

// Stub is an entity that does not support the field system.
type Stub struct {
	Type       string
	BundleName string
	EntityID   string
}

// EntityTypeID returns the entity type
func (s Stub) EntityTypeID() string { return s.Type }

// Bundle returns the bundle
func (s Stub) Bundle() string { return s.BundleName }

// ID returns the entity id
func (s Stub) ID() string { return s.EntityID }

// Entity is a fieldable entity held in memory.
type Entity struct {
	Type       string
	BundleName string
	EntityID   string

	definitions []distill.FieldDefinition
	values      map[string][]Item
	loader      Loader
}

// New creates an empty fieldable entity
func New(entityType, bundle, id string) *Entity {
	return &Entity{
		Type:       entityType,
		BundleName: bundle,
		EntityID:   id,
		values:     make(map[string][]Item),
	}
}

// WithLoader sets the loader used to resolve entity references
func (e *Entity) WithLoader(loader Loader) *Entity {
	e.loader = loader
	return e
}

// AddField declares a field, replacing an earlier definition of the same
// name in place, and sets its items.
func (e *Entity) AddField(definition distill.FieldDefinition, items ...Item) *Entity {
	replaced := false
	for i, def := range e.definitions {
		if def.Name == definition.Name {
			e.definitions[i] = definition
			replaced = true
			break
		}
	}
	if !replaced {
		e.definitions = append(e.definitions, definition)
	}
	e.values[definition.Name] = items
	return e
}

// SetItems replaces the items of a declared field.
func (e *Entity) SetItems(name string, items ...Item) bool {
	if !e.HasField(name) {
		return false
	}
	e.values[name] = items
	return true
}

// EntityTypeID returns the entity type
func (e *Entity) EntityTypeID() string { return e.Type }

// Bundle returns the bundle
func (e *Entity) Bundle() string { return e.BundleName }

// ID returns the entity id
func (e *Entity) ID() string { return e.EntityID }

// FieldDefinitions returns the declared fields in declaration order
func (e *Entity) FieldDefinitions() []distill.FieldDefinition {
	out := make([]distill.FieldDefinition, len(e.definitions))
	copy(out, e.definitions)
	return out
}

// Definition returns the definition of the named field
func (e *Entity) Definition(name string) (distill.FieldDefinition, bool) {
	for _, def := range e.definitions {
		if def.Name == name {
			return def, true
		}
	}
	return distill.FieldDefinition{}, false
}

// HasField reports whether the field is declared
func (e *Entity) HasField(name string) bool {
	_, ok := e.Definition(name)
	return ok
}

// Field returns the item list of the named field, or nil when it is not declared
func (e *Entity) Field(name string) distill.FieldItemList {
	def, ok := e.Definition(name)
	if !ok {
		return nil
	}
	items := e.values[name]
	if IsReferenceType(def.Type) {
		return NewReferenceList(def, e.loader, items...)
	}
	return NewItemList(def, items...)
}

// RawItems returns the stored items of the named field
func (e *Entity) RawItems(name string) []Item {
	return e.values[name]
}
