package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CheckHealth 探测后端并更新健康状态
// 从不健康恢复时先清空前缀下的所有键：降级期间的失效操作都被跳过了，残留条目可能已过期
func (c *RedisRccCache) CheckHealth(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		c.fail("ping", err)
		return err
	}
	if c.healthy.Load() {
		return nil
	}

	n, err := c.Purge(ctx)
	if err != nil {
		c.logger.Warn("Version cache purge failed, staying degraded", zap.Error(err))
		return err
	}
	c.healthy.Store(true)
	c.logger.Info("Version cache recovered", zap.Int("purged_keys", n))
	return nil
}

// RunHealthMonitor 按间隔检查健康状态，直到 ctx 取消
func (c *RedisRccCache) RunHealthMonitor(ctx context.Context, interval time.Duration) {
	if !c.cfg.Enabled || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, interval)
			_ = c.CheckHealth(checkCtx)
			cancel()
		}
	}
}
