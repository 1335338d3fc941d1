package distill_test

import (
	"context"

	"github.com/tendant/content-distill/pkg/distill"
)

type stubEntity struct {
	typ, bundle, id string
}

func (e stubEntity) EntityTypeID() string { return e.typ }
func (e stubEntity) Bundle() string       { return e.bundle }
func (e stubEntity) ID() string           { return e.id }

type testItem map[string]any

func (i testItem) Property(name string) (any, bool) {
	v, ok := i[name]
	return v, ok
}

func (i testItem) MainValue() any { return i["value"] }

type testList struct {
	def   distill.FieldDefinition
	items []distill.FieldItem
}

func (l *testList) Definition() distill.FieldDefinition { return l.def }
func (l *testList) IsEmpty() bool                       { return len(l.items) == 0 }
func (l *testList) Count() int                          { return len(l.items) }
func (l *testList) Items() []distill.FieldItem          { return l.items }

type testRefList struct {
	testList
	refs []distill.Reference
	err  error
}

func (l *testRefList) ReferencedEntities(ctx context.Context) ([]distill.Reference, error) {
	return l.refs, l.err
}

type testEntity struct {
	stubEntity
	defs  []distill.FieldDefinition
	lists map[string]distill.FieldItemList
}

func newTestEntity(id string) *testEntity {
	return &testEntity{
		stubEntity: stubEntity{typ: "node", bundle: "article", id: id},
		lists:      make(map[string]distill.FieldItemList),
	}
}

// addField declares a field and stores its values as plain items.
func (e *testEntity) addField(def distill.FieldDefinition, values ...any) *testEntity {
	list := &testList{def: def}
	for _, v := range values {
		list.items = append(list.items, testItem{"value": v})
	}
	e.defs = append(e.defs, def)
	e.lists[def.Name] = list
	return e
}

func (e *testEntity) addList(list distill.FieldItemList) *testEntity {
	e.defs = append(e.defs, list.Definition())
	e.lists[list.Definition().Name] = list
	return e
}

func (e *testEntity) FieldDefinitions() []distill.FieldDefinition { return e.defs }

func (e *testEntity) HasField(name string) bool {
	_, ok := e.lists[name]
	return ok
}

func (e *testEntity) Field(name string) distill.FieldItemList { return e.lists[name] }

// valueOf returns the value of the first item of a list or the item itself.
func valueOf(v any) any {
	switch x := v.(type) {
	case distill.FieldItemList:
		return x.Items()[0].MainValue()
	case distill.FieldItem:
		return x.MainValue()
	}
	return nil
}

func constHandler(out any) distill.Handler {
	return func(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
		return out, nil
	}
}
