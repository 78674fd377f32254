// Package cache 版本元数据的 Redis 读穿缓存
//
// 缓存只是存储的派生视图：写路径只做失效，从不回填；
// 回填只发生在读路径上一次未命中并回源之后。
// 任何后端错误都不会返回给调用方，而是把缓存标记为不健康，
// 之后所有读写都直接走存储，直到健康检查恢复。
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"rcc-core/internal/domain"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	// loadedField 环境 hash 的“已加载”标记，使没有任何版本的环境也能被识别为已加载
	loadedField = "_loaded"
	// 版本字段前缀，避免与标记字段冲突
	nameFieldPrefix = "v:"
)

// RccCache 版本缓存
type RccCache interface {
	// CacheEnable 为 false 时所有读写都应绕过缓存
	CacheEnable() bool

	GetVersionByID(ctx context.Context, versionID int64) *domain.ApiVersion
	GetVersion(ctx context.Context, environmentID int64, name string) *domain.ApiVersion
	// GetVersions 环境未加载时返回 nil
	GetVersions(ctx context.Context, environmentID int64) []*domain.ApiVersion
	ExistsVersionHKey(ctx context.Context, environmentID int64) bool

	LoadVersionForID(ctx context.Context, vo *domain.ApiVersion)
	// LoadVersions 原子地替换环境的版本集合并写入 id 索引
	LoadVersions(ctx context.Context, environmentID int64, vos []*domain.ApiVersion)

	EvictVersionByID(ctx context.Context, versionIDs []int64)
	// EvictVersions 丢弃整个环境的版本集合，下次读取时重新加载
	EvictVersions(ctx context.Context, environmentIDs ...int64)
	// DeleteVersionCascade 原子地删除 id 索引和环境 hash 中的该版本
	DeleteVersionCascade(ctx context.Context, v *domain.Version)
}

// Config 缓存配置
type Config struct {
	Enabled bool
	Prefix  string
	TTL     time.Duration
}

// RedisRccCache 基于 Redis 的 RccCache
type RedisRccCache struct {
	client  *redis.Client
	cfg     Config
	healthy atomic.Bool
	logger  *zap.Logger
}

// NewRedisRccCache 创建 Redis 版本缓存
func NewRedisRccCache(client *redis.Client, cfg Config, logger *zap.Logger) *RedisRccCache {
	if cfg.Prefix == "" {
		cfg.Prefix = "rcc:"
	}
	c := &RedisRccCache{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
	c.healthy.Store(true)
	return c
}

var _ RccCache = (*RedisRccCache)(nil)

// VersionIDKey id 索引键
func (c *RedisRccCache) VersionIDKey(versionID int64) string {
	return c.cfg.Prefix + "version:id:" + strconv.FormatInt(versionID, 10)
}

// VersionEnvKey 环境版本集合（hash）键
func (c *RedisRccCache) VersionEnvKey(environmentID int64) string {
	return c.cfg.Prefix + "version:env:" + strconv.FormatInt(environmentID, 10)
}

// CacheEnable 配置开启且后端健康
func (c *RedisRccCache) CacheEnable() bool {
	return c.cfg.Enabled && c.healthy.Load()
}

// fail 记录后端错误并降级；miss 不算错误
func (c *RedisRccCache) fail(op string, err error) {
	if err == nil || errors.Is(err, redis.Nil) {
		return
	}
	if c.healthy.CompareAndSwap(true, false) {
		c.logger.Warn("Version cache degraded to store",
			zap.String("op", op),
			zap.Error(err),
		)
		return
	}
	c.logger.Debug("Version cache operation failed", zap.String("op", op), zap.Error(err))
}

func (c *RedisRccCache) decode(op, raw string) *domain.ApiVersion {
	var vo domain.ApiVersion
	if err := json.Unmarshal([]byte(raw), &vo); err != nil {
		// 数据损坏只当作未命中，不影响健康状态
		c.logger.Warn("Failed to decode cached version", zap.String("op", op), zap.Error(err))
		return nil
	}
	return &vo
}

// GetVersionByID 只查缓存
func (c *RedisRccCache) GetVersionByID(ctx context.Context, versionID int64) *domain.ApiVersion {
	if !c.CacheEnable() {
		return nil
	}
	raw, err := c.client.Get(ctx, c.VersionIDKey(versionID)).Result()
	if err != nil {
		c.fail("get_version_by_id", err)
		return nil
	}
	return c.decode("get_version_by_id", raw)
}

// GetVersion 按环境 + 名称查缓存
func (c *RedisRccCache) GetVersion(ctx context.Context, environmentID int64, name string) *domain.ApiVersion {
	if !c.CacheEnable() {
		return nil
	}
	raw, err := c.client.HGet(ctx, c.VersionEnvKey(environmentID), nameFieldPrefix+name).Result()
	if err != nil {
		c.fail("get_version", err)
		return nil
	}
	return c.decode("get_version", raw)
}

// GetVersions 返回环境下缓存的全部版本（按 versionId 排序）
func (c *RedisRccCache) GetVersions(ctx context.Context, environmentID int64) []*domain.ApiVersion {
	if !c.CacheEnable() {
		return nil
	}
	fields, err := c.client.HGetAll(ctx, c.VersionEnvKey(environmentID)).Result()
	if err != nil {
		c.fail("get_versions", err)
		return nil
	}
	if _, ok := fields[loadedField]; !ok {
		return nil
	}

	vos := make([]*domain.ApiVersion, 0, len(fields)-1)
	for field, raw := range fields {
		if !strings.HasPrefix(field, nameFieldPrefix) {
			continue
		}
		vo := c.decode("get_versions", raw)
		if vo == nil {
			return nil
		}
		vos = append(vos, vo)
	}
	sort.Slice(vos, func(i, j int) bool { return vos[i].VersionID < vos[j].VersionID })
	return vos
}

// ExistsVersionHKey 环境版本集合是否已加载
func (c *RedisRccCache) ExistsVersionHKey(ctx context.Context, environmentID int64) bool {
	if !c.CacheEnable() {
		return false
	}
	ok, err := c.client.HExists(ctx, c.VersionEnvKey(environmentID), loadedField).Result()
	if err != nil {
		c.fail("exists_version_hkey", err)
		return false
	}
	return ok
}

// LoadVersionForID 写入单个 id 索引
func (c *RedisRccCache) LoadVersionForID(ctx context.Context, vo *domain.ApiVersion) {
	if vo == nil || !c.CacheEnable() {
		return
	}
	data, err := json.Marshal(vo)
	if err != nil {
		c.logger.Warn("Failed to encode version", zap.Int64("version_id", vo.VersionID), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.VersionIDKey(vo.VersionID), data, c.cfg.TTL).Err(); err != nil {
		c.fail("load_version_for_id", err)
	}
}

// LoadVersions 在一个 MULTI/EXEC 中替换环境集合、写入标记和所有 id 索引
func (c *RedisRccCache) LoadVersions(ctx context.Context, environmentID int64, vos []*domain.ApiVersion) {
	if !c.CacheEnable() {
		return
	}

	encoded := make(map[*domain.ApiVersion][]byte, len(vos))
	for _, vo := range vos {
		data, err := json.Marshal(vo)
		if err != nil {
			c.logger.Warn("Failed to encode version", zap.Int64("version_id", vo.VersionID), zap.Error(err))
			return
		}
		encoded[vo] = data
	}

	envKey := c.VersionEnvKey(environmentID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, envKey)
		values := make([]interface{}, 0, 2*len(vos)+2)
		for _, vo := range vos {
			pipe.Set(ctx, c.VersionIDKey(vo.VersionID), encoded[vo], c.cfg.TTL)
			values = append(values, nameFieldPrefix+vo.VersionName, encoded[vo])
		}
		values = append(values, loadedField, "1")
		pipe.HSet(ctx, envKey, values...)
		if c.cfg.TTL > 0 {
			pipe.Expire(ctx, envKey, c.cfg.TTL)
		}
		return nil
	})
	if err != nil {
		c.fail("load_versions", err)
		return
	}

	c.logger.Debug("Loaded environment versions into cache",
		zap.Int64("environment_id", environmentID),
		zap.Int("version_count", len(vos)),
	)
}

// EvictVersionByID 删除 id 索引
func (c *RedisRccCache) EvictVersionByID(ctx context.Context, versionIDs []int64) {
	if len(versionIDs) == 0 || !c.CacheEnable() {
		return
	}
	keys := make([]string, 0, len(versionIDs))
	for _, id := range versionIDs {
		keys = append(keys, c.VersionIDKey(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.fail("evict_version_by_id", err)
	}
}

// EvictVersions 删除环境集合
func (c *RedisRccCache) EvictVersions(ctx context.Context, environmentIDs ...int64) {
	if len(environmentIDs) == 0 || !c.CacheEnable() {
		return
	}
	keys := make([]string, 0, len(environmentIDs))
	for _, id := range environmentIDs {
		keys = append(keys, c.VersionEnvKey(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.fail("evict_versions", err)
	}
}

// DeleteVersionCascade 在一个 MULTI/EXEC 中删除 id 索引与环境集合中的版本
func (c *RedisRccCache) DeleteVersionCascade(ctx context.Context, v *domain.Version) {
	if v == nil || !c.CacheEnable() {
		return
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, c.VersionIDKey(v.ID))
		pipe.HDel(ctx, c.VersionEnvKey(v.EnvironmentID), nameFieldPrefix+v.Name)
		return nil
	})
	if err != nil {
		c.fail("delete_version_cascade", err)
	}
}

// Purge 删除前缀下的全部键
func (c *RedisRccCache) Purge(ctx context.Context) (int, error) {
	var cursor uint64
	deleted := 0
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.cfg.Prefix+"*", 200).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to scan cache keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return deleted, fmt.Errorf("failed to delete cache keys: %w", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return deleted, nil
}
