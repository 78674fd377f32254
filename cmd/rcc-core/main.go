package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rcc-core/internal/cache"
	"rcc-core/internal/config"
	"rcc-core/internal/notify"
	"rcc-core/internal/repository"
	"rcc-core/internal/service"
	"rcc-core/pkg/database"
	"rcc-core/pkg/logger"
	rccmqtt "rcc-core/pkg/mqtt"
	rccredis "rcc-core/pkg/redis"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "rcc-core")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore := openStore(ctx, cfg, log)
	defer closeStore()

	// Redis 不可用时继续启动，缓存处于降级状态，由健康检查负责恢复
	redisClient, _ := rccredis.Connect(ctx, &cfg.Redis, log)
	defer rccredis.Close(redisClient)

	rccCache := cache.NewRedisRccCache(redisClient, cache.Config{
		Enabled: cfg.Cache.Enabled,
		Prefix:  cfg.Cache.Prefix,
		TTL:     cfg.Cache.TTL,
	}, log)
	if err := rccCache.CheckHealth(ctx); err != nil {
		log.Warn("Version cache unavailable at startup, serving from store", zap.Error(err))
	}
	go rccCache.RunHealthMonitor(ctx, cfg.Cache.HealthInterval)

	publisher, closePublisher := newPublisher(cfg, redisClient, log)
	defer closePublisher()

	access := service.NewAccessService(store, log)
	versions := service.NewVersionService(store, rccCache, access, publisher, log)

	warmEnvironments(ctx, versions, cfg.Warm, log)

	log.Info("rcc-core started",
		zap.Bool("db_enabled", cfg.DBEnabled),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.String("notify_driver", cfg.Notify.Driver),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down rcc-core")
	cancel()
}

// openStore DB 未启用或连接失败时退回内存存储
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Store, func()) {
	if cfg.DBEnabled {
		db, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err == nil {
			log.Info("DB enabled for rcc-core", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Database))
			return repository.NewPostgresStore(db), func() { _ = database.Close(db) }
		}
		log.Warn("DB enabled but connection failed, falling back to memory store", zap.Error(err))
	}
	return repository.NewMemoryStore(), func() {}
}

func newPublisher(cfg *config.Config, redisClient *redis.Client, log *zap.Logger) (notify.Publisher, func()) {
	switch cfg.Notify.Driver {
	case config.NotifyDriverMQTT:
		client, err := rccmqtt.NewClient(&cfg.MQTT, log)
		if err != nil {
			log.Warn("MQTT unavailable, version events disabled", zap.String("broker", cfg.MQTT.Broker), zap.Error(err))
			return notify.NopPublisher{}, func() {}
		}
		log.Info("Publishing version events over MQTT", zap.String("broker", cfg.MQTT.Broker))
		return notify.NewMQTTPublisher(client, cfg.Notify.TopicPrefix), client.Disconnect
	case config.NotifyDriverStream:
		log.Info("Publishing version events to Redis stream", zap.String("stream", cfg.Notify.Stream))
		return notify.NewStreamPublisher(redisClient, cfg.Notify.Stream, cfg.Notify.StreamMaxLen), func() {}
	default:
		return notify.NopPublisher{}, func() {}
	}
}

// warmEnvironments 预加载常用环境，失败只记录日志
func warmEnvironments(ctx context.Context, versions *service.VersionService, targets []config.WarmTarget, log *zap.Logger) {
	for _, t := range targets {
		warmCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		vos, err := versions.GetAllByEnvironmentIDInCache(warmCtx, t.ProjectID, t.EnvironmentID)
		cancel()
		if err != nil {
			log.Warn("Failed to warm environment",
				zap.Int64("project_id", t.ProjectID),
				zap.Int64("environment_id", t.EnvironmentID),
				zap.Error(err),
			)
			continue
		}
		log.Info("Environment warmed",
			zap.Int64("environment_id", t.EnvironmentID),
			zap.Int("versions", len(vos)),
		)
	}
}
