package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTTLHonored(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	require.NoError(t, c.Set(ctx, "posts", []byte("[1,2]"), 100*time.Millisecond))

	got, ok := c.Get(ctx, "posts")
	require.True(t, ok)
	assert.Equal(t, "[1,2]", string(got))

	time.Sleep(150 * time.Millisecond)

	_, ok = c.Get(ctx, "posts")
	assert.False(t, ok)
	assert.Equal(t, 0, c.size(), "expired entry is evicted on read")
}

func TestMemoryExpiryWithClock(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	c := NewMemory()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "forever", []byte("2"), 0))

	now = now.Add(59 * time.Second)
	_, ok := c.Get(ctx, "a")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok = c.Get(ctx, "a")
	assert.False(t, ok)

	now = now.Add(24 * time.Hour)
	_, ok = c.Get(ctx, "forever")
	assert.True(t, ok)
}

func TestMemoryClearAndDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), time.Minute)

	require.NoError(t, c.Delete(ctx, "a"))
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)

	require.NoError(t, c.Clear(ctx))
	_, ok = c.Get(ctx, "b")
	assert.False(t, ok)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	type page struct{ IDs []int }
	require.NoError(t, SetJSON(ctx, c, "p", page{IDs: []int{3, 4}}, time.Minute))

	var got page
	require.True(t, GetJSON(ctx, c, "p", &got))
	assert.Equal(t, []int{3, 4}, got.IDs)

	assert.False(t, GetJSON(ctx, c, "missing", &got))
}

func TestKeyIsStable(t *testing.T) {
	a := Key("posts", "20", "1")
	assert.Equal(t, a, Key("posts", "20", "1"))
	assert.NotEqual(t, a, Key("posts", "201"))
	assert.Contains(t, a, "posts:")
}
