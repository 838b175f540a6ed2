package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"perfprobe/internal/core/domain"
	"perfprobe/pkg/distributed"
)

// RedisGate serializes sessions across every instance sharing the lock key.
type RedisGate struct {
	client       *redis.Client
	key          string
	ttl          time.Duration
	queueTimeout time.Duration
	logger       *zap.SugaredLogger
}

func NewRedisGate(client *redis.Client, key string, ttl, queueTimeout time.Duration, logger *zap.SugaredLogger) *RedisGate {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &RedisGate{
		client:       client,
		key:          key,
		ttl:          ttl,
		queueTimeout: queueTimeout,
		logger:       logger,
	}
}

func (g *RedisGate) Acquire(ctx context.Context) (func(), error) {
	lock := distributed.NewDistributedLock(g.client, g.key, g.ttl)

	if err := lock.LockWithTimeout(ctx, g.queueTimeout); err != nil {
		if errors.Is(err, distributed.ErrLockTimeout) {
			return nil, fmt.Errorf("%w: lock %s held elsewhere", domain.ErrSessionBusy, g.key)
		}
		return nil, err
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lock.Unlock(ctx); err != nil {
			g.logger.Warnw("failed to release session lock", "key", g.key, "error", err)
		}
	}, nil
}

func (g *RedisGate) HealthCheck(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

func (g *RedisGate) Close() error {
	return g.client.Close()
}
