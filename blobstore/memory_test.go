package blobstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Put(ctx, "snap", []byte("payload")))

	blob, err := store.Open(ctx, "snap")
	require.NoError(t, err)

	got, err := io.ReadAll(NewReader(blob))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
	require.NoError(t, blob.Close())
}

func TestMemoryStoreOpenIsSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Put(ctx, "snap", []byte("v1")))
	blob, err := store.Open(ctx, "snap")
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "snap", []byte("v2")))

	got, err := io.ReadAll(NewReader(blob))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got), "open handle must not observe later overwrites")
}

func TestMemoryStoreCreateListDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	w, err := store.Create(ctx, "runs/1")
	require.NoError(t, err)
	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.NoError(t, store.Put(ctx, "runs/2", []byte("def")))
	require.NoError(t, store.Put(ctx, "other", []byte("x")))

	names, err := store.List(ctx, "runs/")
	require.NoError(t, err)
	assert.Equal(t, []string{"runs/1", "runs/2"}, names)

	require.NoError(t, store.Delete(ctx, "runs/1"))
	_, err = store.Open(ctx, "runs/1")
	assert.ErrorIs(t, err, ErrNotFound)
}
