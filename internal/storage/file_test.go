package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	kv, err := NewFile(filepath.Join(dir, "state"))
	require.NoError(t, err)

	_, err = kv.Get(ctx, KeyNews)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Put(ctx, KeyNews, []byte(`[{"id":1}]`)))
	got, err := kv.Get(ctx, KeyNews)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1}]`, string(got))

	require.NoError(t, kv.Put(ctx, KeyNews, []byte(`[]`)))
	got, _ = kv.Get(ctx, KeyNews)
	assert.Equal(t, "[]", string(got))

	entries, _ := os.ReadDir(filepath.Join(dir, "state"))
	assert.Len(t, entries, 1, "no temp files are left behind")

	require.NoError(t, kv.Delete(ctx, KeyNews))
	require.NoError(t, kv.Delete(ctx, KeyNews))
	_, err = kv.Get(ctx, KeyNews)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileRejectsPathKeys(t *testing.T) {
	kv, err := NewFile(t.TempDir())
	require.NoError(t, err)

	err = kv.Put(context.Background(), "../escape", []byte("x"))
	assert.Error(t, err)
}
