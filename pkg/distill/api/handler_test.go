package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-distill/pkg/distill"
	"github.com/tendant/content-distill/pkg/distill/export"
	exportmemory "github.com/tendant/content-distill/pkg/distill/export/memory"
	"github.com/tendant/content-distill/pkg/distill/processors"
	"github.com/tendant/content-distill/pkg/distill/repo/memory"
)

const documents = `[
	{
		"type": "node",
		"bundle": "article",
		"id": "1",
		"fields": [
			{"name": "title", "type": "string", "base_field": true, "items": [{"value": "Hello"}]},
			{"name": "field_count", "type": "integer", "items": [{"value": "7"}]},
			{"name": "field_author", "type": "entity_reference", "base_field": true,
			 "settings": {"target_type": "user"}, "items": [{"target_id": "5"}]},
			{"name": "field_bad", "type": "integer", "items": [{"value": "x"}]}
		]
	},
	{"type": "user", "id": "5", "fields": [{"name": "name", "type": "string", "base_field": true, "items": [{"value": "Ann"}]}]}
]`

func setupHandlerTest(t *testing.T, opts ...Option) (http.Handler, *exportmemory.Store) {
	t.Helper()
	store := exportmemory.New()
	base := []Option{
		WithProcessor(processors.NewRegistry(processors.WithMaxDepth(1))),
		WithExporter(export.NewExporter(store)),
	}
	h := NewHandler(memory.New(), append(base, opts...)...)
	router := h.Routes()

	req := httptest.NewRequest(http.MethodPut, "/entities", strings.NewReader(documents))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var refs []EntityRef
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &refs))
	require.Equal(t, []EntityRef{{EntityType: "node", ID: "1"}, {EntityType: "user", ID: "5"}}, refs)
	return router, store
}

func do(router http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetEntity(t *testing.T) {
	router, _ := setupHandlerTest(t)

	t.Run("SelectedFields", func(t *testing.T) {
		w := do(router, http.MethodGet, "/entities/node/1?field=title:label&field=field_author&lang=en", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.JSONEq(t, `{
			"entity_type": "node",
			"bundle": "article",
			"id": "1",
			"language": "en",
			"values": {"label": "Hello", "field_author": {"name": "Ann"}}
		}`, w.Body.String())
	})

	t.Run("FieldOrderFollowsRequest", func(t *testing.T) {
		w := do(router, http.MethodGet, "/entities/node/1?field=field_count&field=title", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"values":{"field_count":7,"title":"Hello"}`)
	})

	t.Run("AllFieldsFailsOnBadValue", func(t *testing.T) {
		w := do(router, http.MethodGet, "/entities/node/1", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "field_bad", resp.Field)
	})

	t.Run("AllFields", func(t *testing.T) {
		w := do(router, http.MethodGet, "/entities/user/5", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"values":{"name":"Ann"}`)
		assert.Contains(t, w.Body.String(), `"language":"und"`)
	})

	t.Run("NotFound", func(t *testing.T) {
		w := do(router, http.MethodGet, "/entities/node/404", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestPutEntities(t *testing.T) {
	router, _ := setupHandlerTest(t)

	t.Run("Invalid", func(t *testing.T) {
		w := do(router, http.MethodPut, "/entities", []byte(`{"id": "x"}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = do(router, http.MethodPut, "/entities", []byte(`not json`))
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = do(router, http.MethodPut, "/entities", []byte(`[null]`))
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = do(router, http.MethodPut, "/entities", []byte(`[]`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("DocumentAndList", func(t *testing.T) {
		w := do(router, http.MethodGet, "/entities/user/5/document", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"bundle":"user"`)

		w = do(router, http.MethodGet, "/entities/node", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[{"entity_type":"node","id":"1"}]`, w.Body.String())
	})

	t.Run("Delete", func(t *testing.T) {
		w := do(router, http.MethodDelete, "/entities/user/5", nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		// The reference now renders as a stub
		w = do(router, http.MethodGet, "/entities/node/1?field=field_author", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"field_author":{"target_id":"5","target_type":"user"}`)

		w = do(router, http.MethodDelete, "/entities/user/5", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestExportEntity(t *testing.T) {
	router, store := setupHandlerTest(t)

	w := do(router, http.MethodPost, "/entities/user/5/export?lang=fr", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result export.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "user/user/5.fr.json", result.Key)

	rc, err := store.Get(context.Background(), result.Key)
	require.NoError(t, err)
	defer rc.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(rc)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Ann"}`, buf.String())

	t.Run("NotConfigured", func(t *testing.T) {
		h := NewHandler(memory.New())
		w := do(h.Routes(), http.MethodPost, "/entities/user/5/export", nil)
		assert.Equal(t, http.StatusNotImplemented, w.Code)
	})
}

func TestFieldTypes(t *testing.T) {
	router, _ := setupHandlerTest(t)
	w := do(router, http.MethodGet, "/field-types", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var types []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &types))
	assert.Equal(t, processors.DefaultFieldTypes, types)

	t.Run("NoProcessor", func(t *testing.T) {
		w := do(NewHandler(memory.New()).Routes(), http.MethodGet, "/field-types", nil)
		assert.JSONEq(t, `[]`, w.Body.String())
	})
}

func TestHooksAreUsed(t *testing.T) {
	hooks := distill.NewHooks().SubscribeType("integer", func(hctx *distill.HookContext, value any, index int, settings distill.Settings) (any, error) {
		return "hooked", nil
	})
	router, _ := setupHandlerTest(t, WithProcessor(nil), WithHooks(hooks))

	w := do(router, http.MethodGet, "/entities/node/1?field=field_count", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"field_count":"hooked"`)
}
