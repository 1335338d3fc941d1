package entity

import (
	"context"
	"errors"
	"fmt"

	"github.com/tendant/content-distill/pkg/distill"
)

// Item is one field value, a set of named properties.
type Item map[string]any

// Property returns a named property of the item
func (i Item) Property(name string) (any, bool) {
	v, ok := i[name]
	return v, ok
}

// MainValue returns "value", "target_id" or "uri", whichever is set first.
func (i Item) MainValue() any {
	for _, key := range []string{"value", "target_id", "uri"} {
		if v, ok := i[key]; ok {
			return v
		}
	}
	return nil
}

// ItemList is the value list of a non-reference field.
type ItemList struct {
	definition distill.FieldDefinition
	items      []Item
}

// NewItemList creates an item list for definition
func NewItemList(definition distill.FieldDefinition, items ...Item) *ItemList {
	return &ItemList{definition: definition, items: items}
}

// Definition returns the field definition
func (l *ItemList) Definition() distill.FieldDefinition { return l.definition }

// IsEmpty reports whether the list holds no items
func (l *ItemList) IsEmpty() bool { return len(l.items) == 0 }

// Count returns the number of items
func (l *ItemList) Count() int { return len(l.items) }

// Items returns the items in delta order
func (l *ItemList) Items() []distill.FieldItem {
	out := make([]distill.FieldItem, len(l.items))
	for i, item := range l.items {
		out[i] = item
	}
	return out
}

// Loader loads entities by type and id.
type Loader interface {
	Load(ctx context.Context, entityType, id string) (distill.Entity, error)
}

// ReferenceList is the value list of an entity_reference field.
type ReferenceList struct {
	ItemList
	loader Loader
}

// NewReferenceList creates a reference list whose targets are resolved through loader
func NewReferenceList(definition distill.FieldDefinition, loader Loader, items ...Item) *ReferenceList {
	return &ReferenceList{ItemList: ItemList{definition: definition, items: items}, loader: loader}
}

// ReferencedEntities loads the targets in delta order. Targets that are not
// found are skipped; their delta is not reused. Without a loader nothing can
// be resolved and the result is empty.
func (l *ReferenceList) ReferencedEntities(ctx context.Context) ([]distill.Reference, error) {
	if l.loader == nil {
		return nil, nil
	}

	refs := make([]distill.Reference, 0, len(l.items))
	for delta, item := range l.items {
		targetType, targetID := l.target(item)
		if targetID == "" {
			continue
		}
		target, err := l.loader.Load(ctx, targetType, targetID)
		if errors.Is(err, ErrEntityNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		refs = append(refs, distill.Reference{Delta: delta, Entity: target})
	}
	return refs, nil
}

func (l *ReferenceList) target(item Item) (string, string) {
	targetType, _ := item["target_type"].(string)
	if targetType == "" {
		targetType, _ = l.definition.Settings["target_type"].(string)
	}

	var targetID string
	switch v := item["target_id"].(type) {
	case nil:
	case string:
		targetID = v
	case float64:
		targetID = fmt.Sprintf("%.0f", v)
	default:
		targetID = fmt.Sprint(v)
	}
	return targetType, targetID
}

// IsReferenceType reports whether fields of fieldType iterate referenced entities.
func IsReferenceType(fieldType string) bool {
	return fieldType == "entity_reference"
}
