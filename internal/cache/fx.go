package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/gastrack/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewRedisClient connects to redis when an address is configured, nil otherwise.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	if !cfg.RedisEnabled() {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis unreachable at startup", zap.Error(err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			_ = ctx
			return client.Close()
		},
	})

	return client
}

// NewReportCache picks the shared redis cache when available.
func NewReportCache(cfg config.Config, client *redis.Client) ReportCache {
	if cfg.RedisEnabled() && client != nil {
		return NewRedisReportCache(client)
	}
	return NewMemoryReportCache()
}

// Module wires the redis client and the report cache.
var Module = fx.Module("cache",
	fx.Provide(
		NewRedisClient,
		NewReportCache,
		NewCatalogResolverCache,
	),
)
