package gate

import (
	"context"

	"go.uber.org/zap"

	"perfprobe/internal/core/ports"
	redisinfra "perfprobe/internal/infrastructure/redis"
	"perfprobe/pkg/config"
)

// New returns the Redis gate when enabled and reachable, falling back to
// the in-process gate otherwise.
func New(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) ports.SessionGate {
	if cfg.Redis.Enabled {
		client, err := redisinfra.NewRedisClient(ctx, redisinfra.Options{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}, logger)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory session gate",
				"error", err,
			)
		} else {
			logger.Infow("using Redis session gate", "key", cfg.Redis.LockKey)
			return NewRedisGate(client, cfg.Redis.LockKey, cfg.Redis.LockTTL, cfg.Browser.QueueTimeout, logger)
		}
	}

	logger.Infow("using memory session gate", "max_sessions", cfg.Browser.MaxSessions)
	return NewMemoryGate(cfg.Browser.MaxSessions, cfg.Browser.QueueTimeout)
}
