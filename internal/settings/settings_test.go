package settings

import (
	"context"
	"testing"
	"time"

	"github.com/bilgisen/wpsync/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, storage.KV) {
	t.Helper()
	kv, err := storage.NewFile(t.TempDir())
	require.NoError(t, err)
	return NewStore(kv, Defaults(5*time.Minute)), kv
}

func TestLoadMissingReturnsDefaults(t *testing.T) {
	s, _ := newStore(t)
	st := s.Load(context.Background())

	assert.Equal(t, CurrentVersion, st.Version)
	assert.False(t, st.News.SyncEnabled)
	assert.Equal(t, 5*time.Minute, st.AutoSync.Interval())
}

func TestLoadMalformedReturnsDefaults(t *testing.T) {
	s, kv := newStore(t)
	require.NoError(t, kv.Put(context.Background(), storage.KeySettings, []byte("{not json")))

	st := s.Load(context.Background())
	assert.Equal(t, Defaults(5*time.Minute), st)
}

func TestLegacyDocumentIsMigrated(t *testing.T) {
	s, kv := newStore(t)
	legacyDoc := `{"apiUrl":"https://old.example/wp-json","syncEnabled":true,"autoSyncEnabled":true,"bidirectionalSync":true}`
	require.NoError(t, kv.Put(context.Background(), storage.KeySettings, []byte(legacyDoc)))

	st := s.Load(context.Background())
	assert.Equal(t, CurrentVersion, st.Version)
	assert.True(t, st.News.Active())
	assert.True(t, st.Events.Active())
	assert.True(t, st.Bidirectional)
}

func TestLegacyAutoSyncWithoutSyncIsDropped(t *testing.T) {
	st, err := Decode([]byte(`{"syncEnabled":false,"autoSyncEnabled":true}`), Defaults(time.Minute))
	require.NoError(t, err)
	assert.False(t, st.News.AutoSyncEnabled)
	assert.False(t, st.Events.AutoSyncEnabled)
}

func TestUpdatePersists(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	last := time.Date(2026, 10, 18, 7, 0, 0, 0, time.UTC)
	_, err := s.Update(ctx, func(st *Settings) {
		st.Events.SyncEnabled = true
		st.AutoSync.LastSync = last
	})
	require.NoError(t, err)

	st := s.Load(ctx)
	assert.True(t, st.Events.SyncEnabled)
	assert.False(t, st.News.SyncEnabled)
	assert.True(t, last.Equal(st.AutoSync.LastSync))
}
