package entity_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-distill/pkg/distill"
	"github.com/tendant/content-distill/pkg/distill/entity"
)

type mockLoader struct {
	mock.Mock
}

func (m *mockLoader) Load(ctx context.Context, entityType, id string) (distill.Entity, error) {
	args := m.Called(ctx, entityType, id)
	e, _ := args.Get(0).(distill.Entity)
	return e, args.Error(1)
}

var relatedDef = distill.FieldDefinition{
	Name:      "field_related",
	Type:      "entity_reference",
	BaseField: true,
	Multiple:  true,
	Settings:  map[string]any{"target_type": "node"},
}

func TestItem(t *testing.T) {
	assert.Equal(t, "v", entity.Item{"value": "v", "target_id": "1"}.MainValue())
	assert.Equal(t, "1", entity.Item{"target_id": "1", "uri": "u"}.MainValue())
	assert.Equal(t, "u", entity.Item{"uri": "u"}.MainValue())
	assert.Nil(t, entity.Item{"other": 1}.MainValue())

	v, ok := entity.Item{"format": "html"}.Property("format")
	assert.True(t, ok)
	assert.Equal(t, "html", v)
}

func TestEntityFields(t *testing.T) {
	e := entity.New("node", "article", "1").
		AddField(distill.FieldDefinition{Name: "title", Type: "string", BaseField: true}, entity.Item{"value": "Old"}).
		AddField(relatedDef, entity.Item{"target_id": "2"})

	assert.True(t, e.HasField("title"))
	assert.False(t, e.HasField("missing"))
	assert.Nil(t, e.Field("missing"))

	_, isRef := e.Field("field_related").(distill.EntityReferenceList)
	assert.True(t, isRef)
	_, isRef = e.Field("title").(distill.EntityReferenceList)
	assert.False(t, isRef)

	e.AddField(distill.FieldDefinition{Name: "title", Type: "string_long", BaseField: true}, entity.Item{"value": "New"})
	defs := e.FieldDefinitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "title", defs[0].Name)
	assert.Equal(t, "string_long", defs[0].Type)
	assert.Equal(t, "New", e.Field("title").Items()[0].MainValue())

	assert.True(t, e.SetItems("title"))
	assert.True(t, e.Field("title").IsEmpty())
	assert.False(t, e.SetItems("missing"))
}

func TestReferencedEntities(t *testing.T) {
	ctx := context.Background()
	target := entity.Stub{Type: "node", BundleName: "page", EntityID: "2"}

	t.Run("SkipsMissingTargets", func(t *testing.T) {
		loader := &mockLoader{}
		loader.On("Load", ctx, "node", "2").Return(target, nil)
		loader.On("Load", ctx, "node", "3").Return(nil, entity.ErrEntityNotFound)
		loader.On("Load", ctx, "user", "4").Return(entity.Stub{Type: "user", EntityID: "4"}, nil)

		list := entity.NewReferenceList(relatedDef, loader,
			entity.Item{"target_id": "2"},
			entity.Item{"target_id": float64(3)},
			entity.Item{"target_id": "4", "target_type": "user"},
			entity.Item{"value": "no target"},
		)

		refs, err := list.ReferencedEntities(ctx)
		require.NoError(t, err)
		require.Len(t, refs, 2)
		assert.Equal(t, 0, refs[0].Delta)
		assert.Equal(t, "2", refs[0].Entity.ID())
		assert.Equal(t, 2, refs[1].Delta)
		assert.Equal(t, "user", refs[1].Entity.EntityTypeID())
		loader.AssertExpectations(t)
	})

	t.Run("PropagatesErrors", func(t *testing.T) {
		loader := &mockLoader{}
		loader.On("Load", ctx, "node", "2").Return(nil, errors.New("connection refused"))

		list := entity.NewReferenceList(relatedDef, loader, entity.Item{"target_id": "2"})
		_, err := list.ReferencedEntities(ctx)
		assert.Error(t, err)
	})

	t.Run("NoLoader", func(t *testing.T) {
		list := entity.NewReferenceList(relatedDef, nil, entity.Item{"target_id": "2"})
		refs, err := list.ReferencedEntities(ctx)
		require.NoError(t, err)
		assert.Empty(t, refs)
	})
}

func TestDecodeDocuments(t *testing.T) {
	t.Run("Single", func(t *testing.T) {
		docs, err := entity.DecodeDocuments(strings.NewReader(`{
			"type": "node", "bundle": "article", "id": "1",
			"fields": [{"name": "title", "type": "string", "base_field": true, "items": [{"value": "Hi"}]}]
		}`))
		require.NoError(t, err)
		require.Len(t, docs, 1)

		e, ok := docs[0].Build(nil).(*entity.Entity)
		require.True(t, ok)
		assert.Equal(t, "Hi", e.Field("title").Items()[0].MainValue())
		assert.True(t, e.FieldDefinitions()[0].BaseField)
	})

	t.Run("ArrayWithStub", func(t *testing.T) {
		docs, err := entity.DecodeDocuments(strings.NewReader(`[
			{"type": "node", "id": "1"},
			{"type": "user", "id": "42", "fieldable": false}
		]`))
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "node", docs[0].Bundle)

		stub := docs[1].Build(nil)
		_, fieldable := stub.(distill.FieldableEntity)
		assert.False(t, fieldable)

		values, err := distill.Distill(context.Background(), stub)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"target_id": "42"}, values.ToMap())
	})

	t.Run("Invalid", func(t *testing.T) {
		for _, in := range []string{
			``,
			`{"id": "1"}`,
			`{"type": "node", "fields": [{"name": "a", "type": "string"}, {"name": "a", "type": "string"}]}`,
			`{"type": "node", "fields": [{"name": "a"}]}`,
			`[{`,
			`[]`,
			`[null]`,
			`[{"type": "node", "id": "1"}, null]`,
		} {
			_, err := entity.DecodeDocuments(strings.NewReader(in))
			assert.ErrorIs(t, err, entity.ErrInvalidDocument, in)
		}
	})
}

func TestToDocument(t *testing.T) {
	e := entity.New("node", "article", "1").
		AddField(distill.FieldDefinition{Name: "title", Type: "string"}, entity.Item{"value": "Hi"})

	doc := entity.ToDocument(e)
	assert.True(t, doc.IsFieldable())
	require.Len(t, doc.Fields, 1)
	assert.Equal(t, "title", doc.Fields[0].Name)

	clone, err := doc.Clone()
	require.NoError(t, err)
	assert.Equal(t, doc, clone)

	stubDoc := entity.ToDocument(entity.Stub{Type: "user", BundleName: "user", EntityID: "42"})
	assert.False(t, stubDoc.IsFieldable())
}
