package processors

import (
	"errors"
	"fmt"

	"github.com/tendant/content-distill/pkg/distill"
)

// ErrInvalidValue indicates a field value could not be converted to its type
var ErrInvalidValue = errors.New("invalid field value")

// Handlers receive a FieldItemList for single-value fields and a FieldItem
// (or a referenced distill.Entity) for each slot of multi-value fields.

// firstItem returns the item a handler should read.
func firstItem(value any) (distill.FieldItem, bool) {
	switch v := value.(type) {
	case distill.FieldItemList:
		items := v.Items()
		if len(items) == 0 {
			return nil, false
		}
		return items[0], true
	case distill.FieldItem:
		return v, true
	}
	return nil, false
}

// mainValue returns the main property of the item, or value itself when it
// is neither an item nor a list.
func mainValue(value any) any {
	if item, ok := firstItem(value); ok {
		return item.MainValue()
	}
	return value
}

func property(value any, name string) (any, bool) {
	item, ok := firstItem(value)
	if !ok {
		return nil, false
	}
	return item.Property(name)
}

func invalid(fieldType string, value any, err error) error {
	return fmt.Errorf("%w: %s %v: %v", ErrInvalidValue, fieldType, value, err)
}
