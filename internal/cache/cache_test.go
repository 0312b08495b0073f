package cache

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisutil "github.com/crystallogic/accounts/internal/redis"
)

func setupCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := New(
		client,
		time.Minute,
		redisutil.RetryPolicy{MaxAttempts: 2, InitialDelay: time.Millisecond},
		slog.Default(),
		nil,
	)

	return c, mr
}

func TestKey(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		params    []string
		want      string
	}{
		{
			name:      "operation only",
			operation: "list_users",
			want:      "list_users",
		},
		{
			name:      "operation with params",
			operation: "get_user",
			params:    []string{"Alice"},
			want:      "get_user_alice",
		},
		{
			name:      "everything is lowercased",
			operation: "Get_User",
			params:    []string{"ALICE", "V2"},
			want:      "get_user_alice_v2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.operation, tt.params...))
		})
	}
}

func TestGetOrCompute(t *testing.T) {
	ctx := context.Background()

	t.Run("miss computes and stores", func(t *testing.T) {
		c, mr := setupCache(t)

		calls := 0
		payload, err := c.GetOrCompute(ctx, "get_user", []string{"alice"}, Options{}, func(ctx context.Context) ([]byte, error) {
			calls++
			return []byte(`{"username":"alice"}`), nil
		})

		require.NoError(t, err)
		assert.Equal(t, []byte(`{"username":"alice"}`), payload)
		assert.Equal(t, 1, calls)
		assert.True(t, mr.Exists("get_user_alice"))
	})

	t.Run("hit skips compute", func(t *testing.T) {
		c, _ := setupCache(t)

		first, err := c.GetOrCompute(ctx, "get_user", []string{"alice"}, Options{}, func(ctx context.Context) ([]byte, error) {
			return []byte(`{"username":"alice"}`), nil
		})
		require.NoError(t, err)

		second, err := c.GetOrCompute(ctx, "get_user", []string{"alice"}, Options{}, func(ctx context.Context) ([]byte, error) {
			t.Fatal("compute must not run on a cache hit")
			return nil, nil
		})
		require.NoError(t, err)

		// Served payloads are byte-for-byte identical either way.
		assert.Equal(t, first, second)
	})

	t.Run("compressed entries round-trip", func(t *testing.T) {
		c, mr := setupCache(t)

		payload := []byte(`{"users":["alice","bob","carol"]}`)
		first, err := c.GetOrCompute(ctx, "list_users", nil, Options{Compress: true}, func(ctx context.Context) ([]byte, error) {
			return payload, nil
		})
		require.NoError(t, err)
		assert.Equal(t, payload, first)

		// The stored value is gzip, not the plain payload.
		stored, err := mr.Get("list_users")
		require.NoError(t, err)
		assert.NotEqual(t, string(payload), stored)
		assert.Equal(t, byte(0x1f), stored[0])

		second, err := c.GetOrCompute(ctx, "list_users", nil, Options{Compress: true}, func(ctx context.Context) ([]byte, error) {
			t.Fatal("compute must not run on a cache hit")
			return nil, nil
		})
		require.NoError(t, err)
		assert.Equal(t, payload, second)
	})

	t.Run("corrupt gzip entry is treated as a miss and dropped", func(t *testing.T) {
		c, mr := setupCache(t)

		// Gzip magic followed by garbage.
		require.NoError(t, mr.Set("get_user_alice", "\x1f\x8bgarbage"))

		calls := 0
		payload, err := c.GetOrCompute(ctx, "get_user", []string{"alice"}, Options{}, func(ctx context.Context) ([]byte, error) {
			calls++
			return []byte(`fresh`), nil
		})

		require.NoError(t, err)
		assert.Equal(t, []byte(`fresh`), payload)
		assert.Equal(t, 1, calls)
	})

	t.Run("non-JSON entry is treated as a miss and dropped", func(t *testing.T) {
		c, mr := setupCache(t)

		require.NoError(t, mr.Set("get_user_alice", "<<<not json at all>>>"))

		calls := 0
		payload, err := c.GetOrCompute(ctx, "get_user", []string{"alice"}, Options{}, func(ctx context.Context) ([]byte, error) {
			calls++
			return []byte(`{"username":"alice"}`), nil
		})

		require.NoError(t, err)
		assert.Equal(t, []byte(`{"username":"alice"}`), payload)
		assert.Equal(t, 1, calls)

		// The corrupt entry was replaced by the fresh payload.
		stored, err := mr.Get("get_user_alice")
		require.NoError(t, err)
		assert.Equal(t, `{"username":"alice"}`, stored)
	})

	t.Run("gzip-valid non-JSON entry is treated as a miss and dropped", func(t *testing.T) {
		c, mr := setupCache(t)

		// Sound gzip stream, garbage content.
		corrupt, err := compress([]byte("<<<not json at all>>>"))
		require.NoError(t, err)
		require.NoError(t, mr.Set("get_user_alice", string(corrupt)))

		calls := 0
		payload, err := c.GetOrCompute(ctx, "get_user", []string{"alice"}, Options{}, func(ctx context.Context) ([]byte, error) {
			calls++
			return []byte(`{"username":"alice"}`), nil
		})

		require.NoError(t, err)
		assert.Equal(t, []byte(`{"username":"alice"}`), payload)
		assert.Equal(t, 1, calls)
	})

	t.Run("lookup retries transient read failures", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })

		c := New(
			client,
			time.Minute,
			redisutil.RetryPolicy{MaxAttempts: 5, InitialDelay: 50 * time.Millisecond},
			slog.Default(),
			nil,
		)

		require.NoError(t, mr.Set("get_user_alice", `{"username":"alice"}`))
		mr.SetError("LOADING Redis is loading the dataset in memory")
		time.AfterFunc(60*time.Millisecond, func() { mr.SetError("") })

		calls := 0
		payload, err := c.GetOrCompute(ctx, "get_user", []string{"alice"}, Options{}, func(ctx context.Context) ([]byte, error) {
			calls++
			return []byte(`{"username":"stale"}`), nil
		})

		require.NoError(t, err)
		assert.Equal(t, []byte(`{"username":"alice"}`), payload)
		assert.Equal(t, 0, calls)
	})

	t.Run("redis outage degrades to compute", func(t *testing.T) {
		c, mr := setupCache(t)
		mr.Close()

		payload, err := c.GetOrCompute(ctx, "get_user", []string{"alice"}, Options{}, func(ctx context.Context) ([]byte, error) {
			return []byte(`fresh`), nil
		})

		require.NoError(t, err)
		assert.Equal(t, []byte(`fresh`), payload)
	})

	t.Run("compute error propagates and nothing is stored", func(t *testing.T) {
		c, mr := setupCache(t)

		_, err := c.GetOrCompute(ctx, "get_user", []string{"alice"}, Options{}, func(ctx context.Context) ([]byte, error) {
			return nil, assert.AnError
		})

		assert.Equal(t, assert.AnError, err)
		assert.False(t, mr.Exists("get_user_alice"))
	})

	t.Run("entries expire after their ttl", func(t *testing.T) {
		c, mr := setupCache(t)

		_, err := c.GetOrCompute(ctx, "get_user", []string{"alice"}, Options{TTL: time.Second}, func(ctx context.Context) ([]byte, error) {
			return []byte(`v1`), nil
		})
		require.NoError(t, err)

		mr.FastForward(2 * time.Second)

		payload, err := c.GetOrCompute(ctx, "get_user", []string{"alice"}, Options{}, func(ctx context.Context) ([]byte, error) {
			return []byte(`v2`), nil
		})
		require.NoError(t, err)
		assert.Equal(t, []byte(`v2`), payload)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	require.NoError(t, mr.Set("get_user_alice", "cached"))

	require.NoError(t, c.Delete(ctx, "get_user_alice"))
	assert.False(t, mr.Exists("get_user_alice"))

	t.Run("no keys is a no-op", func(t *testing.T) {
		assert.NoError(t, c.Delete(ctx))
	})
}

func TestFlush(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	require.NoError(t, mr.Set("get_user_alice", "cached"))
	require.NoError(t, mr.Set("list_users", "cached"))

	require.NoError(t, c.Flush(ctx))

	assert.False(t, mr.Exists("get_user_alice"))
	assert.False(t, mr.Exists("list_users"))
}
