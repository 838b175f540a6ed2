package gate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"perfprobe/internal/core/domain"
	"perfprobe/pkg/config"
)

func TestMemoryGate_Serializes(t *testing.T) {
	g := NewMemoryGate(1, 5*time.Second)

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := g.Acquire(context.Background())
			if !assert.NoError(t, err) {
				return
			}
			defer release()

			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive)
}

func TestMemoryGate_QueueTimeout(t *testing.T) {
	g := NewMemoryGate(1, 50*time.Millisecond)

	release, err := g.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	_, err = g.Acquire(context.Background())
	assert.ErrorIs(t, err, domain.ErrSessionBusy)
}

func TestMemoryGate_ContextCancelled(t *testing.T) {
	g := NewMemoryGate(1, time.Minute)

	release, err := g.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = g.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrSessionBusy)
}

func TestMemoryGate_ReleaseIsIdempotent(t *testing.T) {
	g := NewMemoryGate(1, 50*time.Millisecond)

	release, err := g.Acquire(context.Background())
	require.NoError(t, err)
	release()
	release()

	second, err := g.Acquire(context.Background())
	require.NoError(t, err)
	defer second()

	_, err = g.Acquire(context.Background())
	assert.ErrorIs(t, err, domain.ErrSessionBusy)
}

func TestMemoryGate_Health(t *testing.T) {
	g := NewMemoryGate(0, time.Second)
	assert.NoError(t, g.HealthCheck(context.Background()))
	assert.NoError(t, g.Close())
	assert.Equal(t, 1, cap(g.slots))
}

func TestNew_DefaultsToMemoryGate(t *testing.T) {
	cfg := config.DefaultConfig()
	g := New(context.Background(), cfg, zap.NewNop().Sugar())
	assert.IsType(t, &MemoryGate{}, g)
}

func TestNew_FallsBackWhenRedisUnreachable(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Address = "127.0.0.1:1"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	g := New(ctx, cfg, zap.NewNop().Sugar())
	assert.IsType(t, &MemoryGate{}, g)
}
