package gate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"perfprobe/internal/core/domain"
)

// MemoryGate serializes sessions within one process with a buffered
// channel of slots.
type MemoryGate struct {
	slots        chan struct{}
	queueTimeout time.Duration
}

func NewMemoryGate(capacity int, queueTimeout time.Duration) *MemoryGate {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryGate{
		slots:        make(chan struct{}, capacity),
		queueTimeout: queueTimeout,
	}
}

// Acquire waits for a free slot for up to the queue timeout.
func (g *MemoryGate) Acquire(ctx context.Context) (func(), error) {
	waitCtx, cancel := withQueueTimeout(ctx, g.queueTimeout)
	defer cancel()

	select {
	case g.slots <- struct{}{}:
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: no slot within %s", domain.ErrSessionBusy, g.queueTimeout)
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-g.slots })
	}, nil
}

func (g *MemoryGate) HealthCheck(context.Context) error {
	return nil
}

func (g *MemoryGate) Close() error {
	return nil
}

func withQueueTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
