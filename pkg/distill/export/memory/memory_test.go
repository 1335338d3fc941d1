package memory

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-distill/pkg/distill/export"
)

func TestStore(t *testing.T) {
	store := New()
	ctx := context.Background()
	key := "node/article/1.und.json"

	t.Run("PutAndGet", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, key, bytes.NewBufferString(`{"a":1}`), "application/json"))

		rc, err := store.Get(ctx, key)
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, string(data))
		assert.Equal(t, []string{key}, store.Keys())
	})

	t.Run("URL", func(t *testing.T) {
		_, err := store.URL(ctx, key)
		assert.ErrorIs(t, err, export.ErrURLUnavailable)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, key))
		_, err := store.Get(ctx, key)
		assert.ErrorIs(t, err, export.ErrObjectNotFound)
		assert.ErrorIs(t, store.Delete(ctx, key), export.ErrObjectNotFound)
		assert.Empty(t, store.ContentType(key))
	})
}
