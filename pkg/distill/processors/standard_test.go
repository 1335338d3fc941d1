package processors

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-distill/pkg/distill"
	"github.com/tendant/content-distill/pkg/distill/entity"
)

type def = distill.FieldDefinition

type mapLoader map[string]distill.Entity

func (l mapLoader) Load(ctx context.Context, entityType, id string) (distill.Entity, error) {
	e, ok := l[entityType+"/"+id]
	if !ok {
		return nil, entity.ErrEntityNotFound
	}
	return e, nil
}

func distillJSON(t *testing.T, e distill.Entity, reg distill.Processor) string {
	t.Helper()
	values, err := distill.Distill(context.Background(), e, distill.WithProcessor(reg))
	require.NoError(t, err)
	out, err := json.Marshal(values)
	require.NoError(t, err)
	return string(out)
}

func TestRegistryDiscovery(t *testing.T) {
	reg := NewRegistry()

	for _, fieldType := range []string{
		"string", "string_long", "text", "text_long", "text_with_summary",
		"integer", "decimal", "float", "boolean", "email", "uri", "uuid", "language",
		"link", "datetime", "timestamp", "created", "changed",
		"list_string", "list_integer", "list_float",
		"entity_reference", "file", "image",
	} {
		assert.True(t, reg.HasTypeHandler(fieldType), fieldType)
	}
	assert.False(t, reg.HasTypeHandler("map"))
	assert.False(t, reg.HasFieldHandler("title"))
	assert.Equal(t, DefaultFieldTypes, reg.SystemFieldTypes())

	t.Run("ExtraHandlers", func(t *testing.T) {
		upper := func(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
			return "TITLE", nil
		}
		reg := NewStandard(WithFieldTypes("string")).Registry(distill.WithFieldHandler("title", upper))
		assert.True(t, reg.HasFieldHandler("title"))
		assert.Equal(t, []string{"string"}, reg.SystemFieldTypes())
	})
}

func TestStandardDistill(t *testing.T) {
	e := entity.New("node", "article", "1").
		AddField(def{Name: "title", Type: "string", BaseField: true}, entity.Item{"value": "Hello"}).
		AddField(def{Name: "field_count", Type: "integer"}, entity.Item{"value": "42"}).
		AddField(def{Name: "field_ratio", Type: "float"}, entity.Item{"value": 0.5}).
		AddField(def{Name: "field_price", Type: "decimal"}, entity.Item{"value": "12.50"}).
		AddField(def{Name: "status", Type: "boolean", BaseField: true}, entity.Item{"value": 1.0}).
		AddField(def{Name: "created", Type: "created", BaseField: true}, entity.Item{"value": 0.0}).
		AddField(def{Name: "field_event", Type: "datetime"}, entity.Item{"value": "2024-03-01T10:00:00+02:00"}).
		AddField(def{Name: "field_link", Type: "link"}, entity.Item{"uri": "https://example.com", "title": "Example"}).
		AddField(def{Name: "field_file", Type: "file"}, entity.Item{"uri": "public://docs/a.pdf"}).
		AddField(def{Name: "field_image", Type: "image"}, entity.Item{"uri": "public://a.png", "alt": "A", "width": 10.0}).
		AddField(def{Name: "field_tags", Type: "list_string", BaseField: true, Multiple: true},
			entity.Item{"value": "a"}, entity.Item{"value": "b"}).
		AddField(def{Name: "field_data", Type: "map"}, entity.Item{"value": "ignored"})

	reg := NewRegistry(WithURLResolver(BaseURLResolver{BaseURL: "https://cdn.example.com/"}))

	expected := `{
		"title": "Hello",
		"field_count": 42,
		"field_ratio": 0.5,
		"field_price": 12.5,
		"status": true,
		"created": "1970-01-01T00:00:00Z",
		"field_event": "2024-03-01T08:00:00Z",
		"field_link": {"uri": "https://example.com", "title": "Example"},
		"field_file": "https://cdn.example.com/docs/a.pdf",
		"field_image": {"url": "https://cdn.example.com/a.png", "alt": "A", "width": 10},
		"field_tags": ["a", "b"]
	}`
	assert.JSONEq(t, expected, distillJSON(t, e, reg))
}

func TestHandlers(t *testing.T) {
	ctx := context.Background()
	s := NewStandard()

	t.Run("DecimalScale", func(t *testing.T) {
		out, err := s.ProcessDecimalType(ctx, entity.Item{"value": "12.5"}, 0, distill.Settings{"scale": 2})
		require.NoError(t, err)
		assert.Equal(t, json.Number("12.50"), out)
	})

	t.Run("TextWithSummary", func(t *testing.T) {
		item := entity.Item{"value": "Body", "summary": "Short"}
		out, err := s.ProcessTextWithSummaryType(ctx, item, 0, distill.Settings{})
		require.NoError(t, err)
		assert.Equal(t, "Body", out)

		out, err = s.ProcessTextWithSummaryType(ctx, item, 0, distill.Settings{"summary": true})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"value": "Body", "summary": "Short"}, out)
	})

	t.Run("ListLabel", func(t *testing.T) {
		settings := distill.Settings{"label": true, "allowed_values": map[string]any{"a": "Alpha"}}
		out, err := s.ProcessListStringType(ctx, entity.Item{"value": "a"}, 0, settings)
		require.NoError(t, err)
		assert.Equal(t, "Alpha", out)

		out, err = s.ProcessListStringType(ctx, entity.Item{"value": "z"}, 0, settings)
		require.NoError(t, err)
		assert.Equal(t, "z", out)
	})

	t.Run("DateFormat", func(t *testing.T) {
		out, err := s.ProcessTimestampType(ctx, entity.Item{"value": int64(86400)}, 0, distill.Settings{"format": "2006-01-02"})
		require.NoError(t, err)
		assert.Equal(t, "1970-01-02", out)

		out, err = s.ProcessChangedType(ctx, entity.Item{"value": ""}, 0, distill.Settings{})
		require.NoError(t, err)
		assert.Nil(t, out)
	})

	t.Run("MissingValue", func(t *testing.T) {
		out, err := s.ProcessIntegerType(ctx, entity.Item{}, 0, distill.Settings{})
		require.NoError(t, err)
		assert.Nil(t, out)

		out, err = s.ProcessLinkType(ctx, entity.Item{"title": "no uri"}, 0, distill.Settings{})
		require.NoError(t, err)
		assert.Nil(t, out)
	})

	t.Run("ResolverError", func(t *testing.T) {
		failing := NewStandard(WithURLResolver(URLResolverFunc(func(ctx context.Context, uri string) (string, error) {
			return "", errors.New("offline")
		})))
		_, err := failing.ProcessFileType(ctx, entity.Item{"uri": "public://a"}, 0, distill.Settings{})
		assert.ErrorContains(t, err, "offline")
	})
}

func TestInvalidValue(t *testing.T) {
	e := entity.New("node", "article", "1").
		AddField(def{Name: "field_count", Type: "integer"}, entity.Item{"value": "abc"})

	_, err := distill.Distill(context.Background(), e, distill.WithProcessor(NewRegistry()))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidValue)

	var fieldErr *distill.FieldError
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, "field_count", fieldErr.Field)
	assert.Equal(t, "processIntegerType", fieldErr.Op)
}

func TestEntityReference(t *testing.T) {
	loader := mapLoader{}
	author := def{Name: "field_author", Type: "entity_reference", BaseField: true, Settings: map[string]any{"target_type": "user"}}
	manager := def{Name: "field_manager", Type: "entity_reference", BaseField: true, Settings: map[string]any{"target_type": "user"}}
	name := def{Name: "name", Type: "string", BaseField: true}

	loader["user/5"] = entity.New("user", "user", "5").WithLoader(loader).
		AddField(name, entity.Item{"value": "Ann"}).
		AddField(manager, entity.Item{"target_id": "6"})
	loader["user/6"] = entity.New("user", "user", "6").WithLoader(loader).
		AddField(name, entity.Item{"value": "Bob"})

	node := entity.New("node", "article", "1").WithLoader(loader).
		AddField(author, entity.Item{"target_id": "5"})

	t.Run("StubByDefault", func(t *testing.T) {
		assert.JSONEq(t, `{"field_author":{"target_type":"user","target_id":"5"}}`, distillJSON(t, node, NewRegistry()))
	})

	t.Run("MaxDepth", func(t *testing.T) {
		assert.JSONEq(t,
			`{"field_author":{"name":"Ann","field_manager":{"target_type":"user","target_id":"6"}}}`,
			distillJSON(t, node, NewRegistry(WithMaxDepth(1))))
	})

	t.Run("DepthSetting", func(t *testing.T) {
		d := distill.New(node, distill.WithProcessor(NewRegistry()))
		err := d.ExtractField(context.Background(), "field_author", distill.WithSettings(distill.Settings{"depth": 2}))
		require.NoError(t, err)

		out, err := json.Marshal(d.Values())
		require.NoError(t, err)
		assert.JSONEq(t, `{"field_author":{"name":"Ann","field_manager":{"name":"Bob"}}}`, string(out))
	})

	t.Run("UnresolvedTarget", func(t *testing.T) {
		orphan := entity.New("node", "article", "2").WithLoader(loader).
			AddField(author, entity.Item{"target_id": 404.0})
		assert.JSONEq(t, `{"field_author":{"target_type":"user","target_id":"404"}}`, distillJSON(t, orphan, NewRegistry(WithMaxDepth(1))))
	})

	t.Run("RegistriesKeepTheirOwnHandlers", func(t *testing.T) {
		named := func(label string) distill.RegistryOption {
			return distill.WithFieldHandler("name", func(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
				return label, nil
			})
		}
		std := NewStandard(WithMaxDepth(1))
		first := std.Registry(named("first"))
		second := std.Registry(named("second"))

		assert.JSONEq(t, `{"field_author":{"name":"first","field_manager":{"target_type":"user","target_id":"6"}}}`, distillJSON(t, node, first))
		assert.JSONEq(t, `{"field_author":{"name":"second","field_manager":{"target_type":"user","target_id":"6"}}}`, distillJSON(t, node, second))
	})

	t.Run("NestedDistillationKeepsHooksAndLanguage", func(t *testing.T) {
		profile := def{Name: "field_profile", Type: "map"}
		loader["user/7"] = entity.New("user", "user", "7").WithLoader(loader).
			AddField(name, entity.Item{"value": "Cy"}).
			AddField(profile, entity.Item{"value": "ignored"})
		n := entity.New("node", "article", "4").WithLoader(loader).
			AddField(author, entity.Item{"target_id": "7"})

		hooks := distill.NewHooks().SubscribeType("map", func(hctx *distill.HookContext, value any, index int, settings distill.Settings) (any, error) {
			return "profile:" + distill.LanguageFromContext(hctx.Context), nil
		})
		values, err := distill.Distill(context.Background(), n,
			distill.WithProcessor(NewRegistry(WithMaxDepth(1))),
			distill.WithHooks(hooks),
			distill.WithLanguage("de"),
		)
		require.NoError(t, err)
		out, err := json.Marshal(values)
		require.NoError(t, err)
		assert.JSONEq(t, `{"field_author":{"name":"Cy","field_profile":"profile:de"}}`, string(out))
	})

	t.Run("MultipleTargets", func(t *testing.T) {
		related := def{Name: "field_related", Type: "entity_reference", Multiple: true, BaseField: true, Settings: map[string]any{"target_type": "user"}}
		n := entity.New("node", "article", "3").WithLoader(loader).
			AddField(related, entity.Item{"target_id": "5"}, entity.Item{"target_id": "missing"}, entity.Item{"target_id": "6"})
		assert.JSONEq(t,
			`{"field_related":[{"target_type":"user","target_id":"5"},{"target_type":"user","target_id":"6"}]}`,
			distillJSON(t, n, NewRegistry()))
	})
}

func TestBaseURLResolver(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		base, uri, want string
	}{
		{"https://cdn.example.com", "public://a/b.png", "https://cdn.example.com/a/b.png"},
		{"https://cdn.example.com/", "/files/c.png", "https://cdn.example.com/files/c.png"},
		{"", "public://a.png", "/a.png"},
		{"https://cdn.example.com", "https://other.example.com/x.png", "https://other.example.com/x.png"},
	}
	for _, tt := range tests {
		got, err := BaseURLResolver{BaseURL: tt.base}.ResolveURL(ctx, tt.uri)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.uri)
	}
}
