package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	commoncfg "rcc-core/pkg/config"
)

// 通知驱动
const (
	NotifyDriverNone   = "none"
	NotifyDriverMQTT   = "mqtt"
	NotifyDriverStream = "stream"
)

// Config rcc-core 配置
type Config struct {
	DBEnabled bool
	Database  commoncfg.DatabaseConfig
	Redis     commoncfg.RedisConfig
	Cache     CacheConfig
	Notify    NotifyConfig
	MQTT      commoncfg.MQTTConfig
	Log       struct {
		Level  string
		Format string
	}
	// Warm 启动时预加载的环境
	Warm []WarmTarget
}

// CacheConfig 版本缓存配置
type CacheConfig struct {
	Enabled        bool
	Prefix         string
	TTL            time.Duration
	HealthInterval time.Duration
}

// NotifyConfig 版本事件通知配置
type NotifyConfig struct {
	Driver       string // none | mqtt | stream
	Stream       string // Redis Stream 名称
	StreamMaxLen int64
	TopicPrefix  string // MQTT 主题前缀
}

// WarmTarget 预加载的工程/环境
type WarmTarget struct {
	ProjectID     int64
	EnvironmentID int64
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.DBEnabled = commoncfg.ParseBool(os.Getenv("DB_ENABLED"), true)
	cfg.Database = commoncfg.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "rcc",
		SSLMode:  "disable",
		MaxConns: 20,
		MaxIdle:  5,
	}
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis = commoncfg.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.Cache.Enabled = commoncfg.ParseBool(os.Getenv("CACHE_ENABLED"), true)
	cfg.Cache.Prefix = commoncfg.GetEnv("CACHE_PREFIX", "rcc:")
	cfg.Cache.TTL = commoncfg.ParseDuration(os.Getenv("CACHE_TTL"), 24*time.Hour)
	cfg.Cache.HealthInterval = commoncfg.ParseDuration(os.Getenv("CACHE_HEALTH_INTERVAL"), 10*time.Second)

	cfg.Notify.Driver = strings.ToLower(commoncfg.GetEnv("NOTIFY_DRIVER", NotifyDriverNone))
	cfg.Notify.Stream = commoncfg.GetEnv("NOTIFY_STREAM", "rcc:version-events")
	cfg.Notify.StreamMaxLen = int64(commoncfg.ParseInt(os.Getenv("NOTIFY_STREAM_MAXLEN"), 10000))
	cfg.Notify.TopicPrefix = commoncfg.GetEnv("MQTT_TOPIC_PREFIX", "rcc")

	cfg.MQTT = commoncfg.MQTTConfig{
		Broker:   "tcp://localhost:1883",
		ClientID: "rcc-core",
		QoS:      1,
	}
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.Log.Level = commoncfg.GetEnv("LOG_LEVEL", "info")
	cfg.Log.Format = commoncfg.GetEnv("LOG_FORMAT", "json")

	switch cfg.Notify.Driver {
	case NotifyDriverNone, NotifyDriverMQTT, NotifyDriverStream:
	default:
		return nil, fmt.Errorf("invalid NOTIFY_DRIVER %q", cfg.Notify.Driver)
	}

	warm, err := ParseWarmTargets(os.Getenv("RCC_WARM_ENVIRONMENTS"))
	if err != nil {
		return nil, err
	}
	cfg.Warm = warm

	return cfg, nil
}

// ParseWarmTargets 解析 "projectID:environmentID" 的逗号分隔列表
func ParseWarmTargets(s string) ([]WarmTarget, error) {
	var out []WarmTarget
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		projectRaw, envRaw, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid warm target %q: want projectID:environmentID", part)
		}
		projectID, err := strconv.ParseInt(strings.TrimSpace(projectRaw), 10, 64)
		if err != nil || projectID <= 0 {
			return nil, fmt.Errorf("invalid project id in warm target %q", part)
		}
		envID, err := strconv.ParseInt(strings.TrimSpace(envRaw), 10, 64)
		if err != nil || envID <= 0 {
			return nil, fmt.Errorf("invalid environment id in warm target %q", part)
		}
		out = append(out, WarmTarget{ProjectID: projectID, EnvironmentID: envID})
	}
	return out, nil
}
