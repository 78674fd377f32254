package redis

import (
	"context"
	"fmt"
	"time"

	"rcc-core/pkg/config"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// 缓存连接的超时都很短：后端变慢时应尽快降级到存储，而不是拖住请求
const (
	cacheDialTimeout  = 2 * time.Second
	cacheReadTimeout  = 500 * time.Millisecond
	cacheWriteTimeout = 500 * time.Millisecond
	cacheMaxRetries   = 1
)

// NewRedisClient 创建面向缓存的 Redis 客户端（不检测连通性）
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cacheDialTimeout,
		ReadTimeout:  cacheReadTimeout,
		WriteTimeout: cacheWriteTimeout,
		MaxRetries:   cacheMaxRetries,
	})
}

// Connect 创建客户端并 PING 一次；PING 失败时仍返回客户端，由调用方决定是否降级
func Connect(ctx context.Context, cfg *config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	client := NewRedisClient(cfg)

	pingCtx, cancel := context.WithTimeout(ctx, cacheDialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis not reachable", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB), zap.Error(err))
		return client, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	logger.Info("Redis connected", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return client, nil
}

// Close 关闭Redis连接
func Close(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
