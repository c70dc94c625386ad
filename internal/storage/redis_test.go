package storage

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRedis answers GET, SET and DEL from a map so the client never dials.
type memRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemRedis(t *testing.T) (*redis.Client, *memRedis) {
	t.Helper()
	m := &memRedis{data: map[string]string{}}
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
			switch v := args[2].(type) {
			case []byte:
				m.data[fmt.Sprint(args[1])] = string(v)
			default:
				m.data[fmt.Sprint(args[1])] = fmt.Sprint(v)
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
		default:
			return fmt.Errorf("unsupported command %q", cmd.Name())
		}
		return nil
	}
}

func TestRedisPrefixesKeys(t *testing.T) {
	ctx := context.Background()
	client, mem := newMemRedis(t)
	kv := NewRedisWithClient(client, "wp:")

	require.NoError(t, kv.Put(ctx, KeyNews, []byte(`[{"id":1}]`)))
	assert.Equal(t, `[{"id":1}]`, mem.data["wp:store:"+KeyNews])

	got, err := kv.Get(ctx, KeyNews)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, string(got))

	require.NoError(t, kv.Delete(ctx, KeyNews))
	assert.Empty(t, mem.data)
}

func TestRedisMissingKeyIsNotFound(t *testing.T) {
	client, _ := newMemRedis(t)
	kv := NewRedisWithClient(client, "wp:")

	_, err := kv.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, kv.Delete(context.Background(), "absent"))
}
