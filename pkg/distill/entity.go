package distill

import "context"

// Entity is the minimal view of a content entity. Entities that only satisfy
// Entity are not fieldable and distill to {target_id: <id>}.
type Entity interface {
	EntityTypeID() string
	Bundle() string
	ID() string
}

// FieldableEntity is an Entity that supports the field system.
type FieldableEntity interface {
	Entity

	// FieldDefinitions returns the fields present on the entity, in display order.
	FieldDefinitions() []FieldDefinition

	// HasField reports whether the entity has a field with the given name.
	HasField(name string) bool

	// Field returns the item list of the named field, or nil when absent.
	Field(name string) FieldItemList
}

// FieldDefinition describes a field declared on an entity type or bundle.
type FieldDefinition struct {
	Name string `json:"name"`
	Type string `json:"type"`

	// Multiple is the declared cardinality. It is only authoritative for base
	// fields; the cardinality of bundle fields is taken from the item count.
	Multiple bool `json:"multiple,omitempty"`

	// BaseField is true for fields declared on the entity type itself rather
	// than on a bundle.
	BaseField bool `json:"base_field,omitempty"`

	// Settings holds type specific storage settings such as "target_type".
	Settings map[string]any `json:"settings,omitempty"`
}

// FieldItemList holds the values of one field on one entity.
type FieldItemList interface {
	Definition() FieldDefinition
	IsEmpty() bool
	Count() int
	Items() []FieldItem
}

// FieldItem is a single value of a field.
type FieldItem interface {
	// Property returns a named property of the item, e.g. "value" or "target_id".
	Property(name string) (any, bool)

	// MainValue returns the item's primary property.
	MainValue() any
}

// EntityReferenceList is a FieldItemList whose items point at other entities.
// Multi-value extraction iterates the referenced entities instead of the raw items.
type EntityReferenceList interface {
	FieldItemList

	// ReferencedEntities loads the targets in delta order. Targets that cannot
	// be loaded are omitted.
	ReferencedEntities(ctx context.Context) ([]Reference, error)
}

// Reference is a loaded reference target together with its field delta.
type Reference struct {
	Delta  int
	Entity Entity
}
