package app

import (
	"context"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/sds011-gateway/internal/config"
	"github.com/taoyao-code/sds011-gateway/internal/driverapi"
	"github.com/taoyao-code/sds011-gateway/internal/health"
	redisstorage "github.com/taoyao-code/sds011-gateway/internal/storage/redis"
)

// NewRedisClient 创建 Redis 客户端；未启用时返回 nil, nil
func NewRedisClient(ctx context.Context, cfg cfgpkg.RedisConfig, logger *zap.Logger) (*redisstorage.Client, error) {
	if !cfg.Enabled {
		logger.Info("redis is disabled, skipping initialization")
		return nil, nil
	}

	client, err := redisstorage.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("redis client initialized",
		zap.String("addr", cfg.Addr),
		zap.Int("pool_size", cfg.PoolSize))
	return client, nil
}

// NewRedisBridge 事件发布与命令订阅
func NewRedisBridge(
	client *redisstorage.Client,
	cfg cfgpkg.RedisConfig,
	commands driverapi.CommandSource,
	logger *zap.Logger,
) (*redisstorage.EventPublisher, *redisstorage.CommandSubscriber) {
	pub := redisstorage.NewEventPublisher(client, cfg.EventsChannel, cfg.LatestTTL)
	sub := redisstorage.NewCommandSubscriber(client, cfg.CommandsChannel, commands, logger)
	logger.Info("redis bridge configured",
		zap.String("events_channel", cfg.EventsChannel),
		zap.String("commands_channel", cfg.CommandsChannel),
		zap.Duration("latest_ttl", cfg.LatestTTL))
	return pub, sub
}

// AddRedisChecker 添加 Redis 检查器
func AddRedisChecker(aggregator *health.Aggregator, redisClient *redisstorage.Client) {
	if redisClient != nil {
		aggregator.AddChecker(health.NewRedisChecker(redisClient))
	}
}
