//go:build integration

package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newTestRedis(t *testing.T) RedisConfig {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err, "start redis container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return RedisConfig{Addr: endpoint}
}

func TestRedisLocker_Integration(t *testing.T) {
	cfg := newTestRedis(t)
	ctx := context.Background()

	client, err := NewRedisClient(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	locker := NewRedisLocker(client, 5*time.Second, WithPollInterval(5*time.Millisecond))

	t.Run("mutual exclusion", func(t *testing.T) {
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			inside  int
			maxSeen int
		)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock, err := locker.Lock(ctx, "invoice-numbering:u1")
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()

				time.Sleep(2 * time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				unlock()
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, maxSeen)
	})

	t.Run("context cancellation", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "held")
		require.NoError(t, err)
		defer unlock()

		waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(waitCtx, "held")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("expired lock is not released by its old holder", func(t *testing.T) {
		short := NewRedisLocker(client, 50*time.Millisecond, WithPollInterval(5*time.Millisecond))

		stale, err := short.Lock(ctx, "expiring")
		require.NoError(t, err)
		time.Sleep(100 * time.Millisecond)

		fresh, err := short.Lock(ctx, "expiring")
		require.NoError(t, err)
		stale()

		exists, err := client.Exists(ctx, "lock:expiring").Result()
		require.NoError(t, err)
		assert.Equal(t, int64(1), exists)
		fresh()
	})

	require.NoError(t, locker.Ping(ctx))
}
