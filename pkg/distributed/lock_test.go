package distributed

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient connects to PERFPROBE_TEST_REDIS or skips.
func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("PERFPROBE_TEST_REDIS")
	if addr == "" {
		t.Skip("PERFPROBE_TEST_REDIS not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestDistributedLock_MutualExclusion(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	key := "perfprobe:test:" + uuid.NewString()

	first := NewDistributedLock(client, key, time.Second)
	second := NewDistributedLock(client, key, time.Second)

	ok, err := first.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = second.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	err = second.LockWithTimeout(ctx, 200*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockTimeout)

	assert.ErrorIs(t, second.Unlock(ctx), ErrLockNotHeld)
	require.NoError(t, first.Unlock(ctx))

	require.NoError(t, second.LockWithTimeout(ctx, time.Second))
	require.NoError(t, second.Unlock(ctx))
}

func TestDistributedLock_RenewalOutlivesTTL(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	key := "perfprobe:test:" + uuid.NewString()

	lock := NewDistributedLock(client, key, 400*time.Millisecond)
	require.NoError(t, lock.LockWithTimeout(ctx, time.Second))

	time.Sleep(time.Second)

	exists, err := client.Exists(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)

	require.NoError(t, lock.Unlock(ctx))
	exists, err = client.Exists(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), exists)
}

func TestDistributedLock_ContextCancel(t *testing.T) {
	client := newTestClient(t)
	key := "perfprobe:test:" + uuid.NewString()

	holder := NewDistributedLock(client, key, time.Second)
	ok, err := holder.TryLock(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	defer holder.Unlock(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	waiter := NewDistributedLock(client, key, time.Second)
	assert.ErrorIs(t, waiter.LockWithTimeout(ctx, 5*time.Second), context.DeadlineExceeded)
}
