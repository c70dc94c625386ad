package cache

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRedis serves GET, SET, DEL and SCAN from a map and records the TTL
// passed with each SET. Expiry itself is left to Redis.
type memRedis struct {
	mu   sync.Mutex
	data map[string]string
	ttl  map[string]time.Duration
}

func newMemRedis(t *testing.T) (*redis.Client, *memRedis) {
	t.Helper()
	m := &memRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	client.AddHook(m)
	t.Cleanup(func() { client.Close() })
	return client, m
}

func (m *memRedis) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, fmt.Errorf("unexpected dial to %s", addr)
	}
}

func (m *memRedis) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (m *memRedis) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		m.mu.Lock()
		defer m.mu.Unlock()

		args := cmd.Args()
		switch cmd.Name() {
		case "get":
			v, ok := m.data[fmt.Sprint(args[1])]
			if !ok {
				return redis.Nil
			}
			cmd.(*redis.StringCmd).SetVal(v)
		case "set":
			key := fmt.Sprint(args[1])
			if b, ok := args[2].([]byte); ok {
				m.data[key] = string(b)
			} else {
				m.data[key] = fmt.Sprint(args[2])
			}
			m.ttl[key] = 0
			if len(args) >= 5 {
				n, _ := args[4].(int64)
				switch args[3] {
				case "ex":
					m.ttl[key] = time.Duration(n) * time.Second
				case "px":
					m.ttl[key] = time.Duration(n) * time.Millisecond
				}
			}
			cmd.(*redis.StatusCmd).SetVal("OK")
		case "del":
			var n int64
			for _, k := range args[1:] {
				if _, ok := m.data[fmt.Sprint(k)]; ok {
					delete(m.data, fmt.Sprint(k))
					n++
				}
			}
			cmd.(*redis.IntCmd).SetVal(n)
		case "scan":
			prefix := ""
			for i := 2; i+1 < len(args); i += 2 {
				if args[i] == "match" {
					prefix = strings.TrimSuffix(fmt.Sprint(args[i+1]), "*")
				}
			}
			var keys []string
			for k := range m.data {
				if strings.HasPrefix(k, prefix) {
					keys = append(keys, k)
				}
			}
			sort.Strings(keys)
			cmd.(*redis.ScanCmd).SetVal(keys, 0)
		default:
			return fmt.Errorf("unsupported command %q", cmd.Name())
		}
		return nil
	}
}

func TestRedisPrefixAndTTL(t *testing.T) {
	ctx := context.Background()
	client, mem := newMemRedis(t)
	c := NewRedisWithClient(client, "wp:")

	require.NoError(t, c.Set(ctx, "posts", []byte("[]"), 5*time.Minute))
	assert.Equal(t, "[]", mem.data["wp:cache:posts"])
	assert.Equal(t, 5*time.Minute, mem.ttl["wp:cache:posts"])

	got, ok := c.Get(ctx, "posts")
	require.True(t, ok)
	assert.Equal(t, "[]", string(got))

	_, ok = c.Get(ctx, "absent")
	assert.False(t, ok)
}

func TestRedisClearOnlyTouchesCacheKeys(t *testing.T) {
	ctx := context.Background()
	client, mem := newMemRedis(t)
	c := NewRedisWithClient(client, "wp:")
	mem.data["wp:store:news_items"] = "[]"

	require.NoError(t, c.Set(ctx, Key("wp-posts", "fetch", "10", "1"), []byte("a"), time.Minute))
	require.NoError(t, c.Set(ctx, Key("wp-posts", "fetch", "10", "2"), []byte("b"), time.Minute))
	require.NoError(t, c.Delete(ctx, "never-set"))

	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, map[string]string{"wp:store:news_items": "[]"}, mem.data)
}
