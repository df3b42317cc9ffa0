package session

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"impressa/internal/config"
)

// NewStore returns a Redis-backed store when cfg.Addr is set and reachable,
// and an in-memory store otherwise.
func NewStore(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) LogStore {
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.Addr != "" {
		store, err := NewRedisStore(ctx, &redis.Options{
			Addr:     cfg.Addr,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		}, cfg.KeyPrefix)
		if err != nil {
			logger.Warn("redis unavailable, falling back to in-memory status log", zap.Error(err))
			return NewMemoryStore()
		}
		logger.Info("using redis status log", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
		return store
	}

	logger.Debug("using in-memory status log")
	return NewMemoryStore()
}
