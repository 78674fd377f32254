package cache

import (
	"context"
	"testing"
	"time"

	"rcc-core/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestCache(t *testing.T, cfg Config) (*miniredis.Miniredis, *RedisRccCache) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisRccCache(client, cfg, zap.NewNop())
}

func enabledConfig() Config {
	return Config{Enabled: true, Prefix: "rcc:", TTL: 10 * time.Minute}
}

func sampleVersions() []*domain.ApiVersion {
	return []*domain.ApiVersion{
		{VersionID: 2, VersionName: "v2", EnvironmentID: 5, ProjectID: 1, CheckSum: "b"},
		{VersionID: 1, VersionName: "v1", EnvironmentID: 5, ProjectID: 1, CheckSum: "a"},
	}
}

func TestLoadVersions_PopulatesBothIndexes(t *testing.T) {
	mr, c := setupTestCache(t, enabledConfig())
	ctx := context.Background()

	assert.False(t, c.ExistsVersionHKey(ctx, 5))
	assert.Nil(t, c.GetVersions(ctx, 5))

	c.LoadVersions(ctx, 5, sampleVersions())

	assert.True(t, c.ExistsVersionHKey(ctx, 5))
	vos := c.GetVersions(ctx, 5)
	require.Len(t, vos, 2)
	assert.Equal(t, int64(1), vos[0].VersionID)
	assert.Equal(t, int64(2), vos[1].VersionID)

	byName := c.GetVersion(ctx, 5, "v2")
	byID := c.GetVersionByID(ctx, 2)
	require.NotNil(t, byName)
	require.NotNil(t, byID)
	assert.Equal(t, byName, byID)

	// 两种 key 都应设置过期时间
	assert.Greater(t, mr.TTL(c.VersionIDKey(1)), time.Duration(0))
	assert.Greater(t, mr.TTL(c.VersionEnvKey(5)), time.Duration(0))
}

func TestLoadVersions_ReplacesExistingSet(t *testing.T) {
	_, c := setupTestCache(t, enabledConfig())
	ctx := context.Background()

	c.LoadVersions(ctx, 5, sampleVersions())
	c.LoadVersions(ctx, 5, []*domain.ApiVersion{{VersionID: 3, VersionName: "v3", EnvironmentID: 5}})

	vos := c.GetVersions(ctx, 5)
	require.Len(t, vos, 1)
	assert.Equal(t, "v3", vos[0].VersionName)
	assert.Nil(t, c.GetVersion(ctx, 5, "v1"))
}

func TestLoadVersions_EmptyEnvironmentIsMarkedLoaded(t *testing.T) {
	_, c := setupTestCache(t, enabledConfig())
	ctx := context.Background()

	c.LoadVersions(ctx, 9, nil)

	assert.True(t, c.ExistsVersionHKey(ctx, 9))
	vos := c.GetVersions(ctx, 9)
	assert.NotNil(t, vos)
	assert.Empty(t, vos)
}

func TestDeleteVersionCascade(t *testing.T) {
	_, c := setupTestCache(t, enabledConfig())
	ctx := context.Background()
	c.LoadVersions(ctx, 5, sampleVersions())

	c.DeleteVersionCascade(ctx, &domain.Version{ID: 1, EnvironmentID: 5, Name: "v1"})

	assert.Nil(t, c.GetVersionByID(ctx, 1))
	assert.Nil(t, c.GetVersion(ctx, 5, "v1"))
	assert.True(t, c.ExistsVersionHKey(ctx, 5))
	vos := c.GetVersions(ctx, 5)
	require.Len(t, vos, 1)
	assert.Equal(t, "v2", vos[0].VersionName)
}

func TestEvictVersionByIDAndEnvironment(t *testing.T) {
	_, c := setupTestCache(t, enabledConfig())
	ctx := context.Background()
	c.LoadVersions(ctx, 5, sampleVersions())

	c.EvictVersionByID(ctx, []int64{2})
	assert.Nil(t, c.GetVersionByID(ctx, 2))
	assert.NotNil(t, c.GetVersion(ctx, 5, "v2"))

	c.EvictVersions(ctx, 5)
	assert.False(t, c.ExistsVersionHKey(ctx, 5))
	assert.Nil(t, c.GetVersion(ctx, 5, "v2"))
	assert.NotNil(t, c.GetVersionByID(ctx, 1))
}

func TestLoadVersionForID(t *testing.T) {
	_, c := setupTestCache(t, enabledConfig())
	ctx := context.Background()

	c.LoadVersionForID(ctx, &domain.ApiVersion{VersionID: 4, VersionName: "v4", EnvironmentID: 5})

	assert.Equal(t, "v4", c.GetVersionByID(ctx, 4).VersionName)
	assert.False(t, c.ExistsVersionHKey(ctx, 5))
}

func TestDisabledCacheIsInert(t *testing.T) {
	mr, c := setupTestCache(t, Config{Enabled: false})
	ctx := context.Background()

	c.LoadVersions(ctx, 5, sampleVersions())
	c.LoadVersionForID(ctx, &domain.ApiVersion{VersionID: 4})

	assert.False(t, c.CacheEnable())
	assert.Empty(t, mr.Keys())
	assert.Nil(t, c.GetVersionByID(ctx, 4))
	assert.False(t, c.ExistsVersionHKey(ctx, 5))
}

func TestCorruptedEntryIsAMiss(t *testing.T) {
	mr, c := setupTestCache(t, enabledConfig())
	ctx := context.Background()

	require.NoError(t, mr.Set(c.VersionIDKey(8), "{not-json"))

	assert.Nil(t, c.GetVersionByID(ctx, 8))
	assert.True(t, c.CacheEnable())
}

func TestBackendFailureDegradesAndRecoveryPurges(t *testing.T) {
	mr, c := setupTestCache(t, enabledConfig())
	ctx := context.Background()
	c.LoadVersions(ctx, 5, sampleVersions())

	mr.Close()
	assert.Nil(t, c.GetVersionByID(ctx, 1))
	assert.False(t, c.CacheEnable())
	assert.Error(t, c.CheckHealth(ctx))

	require.NoError(t, mr.Restart())
	require.NoError(t, c.CheckHealth(ctx))

	assert.True(t, c.CacheEnable())
	assert.False(t, c.ExistsVersionHKey(ctx, 5))
	assert.Nil(t, c.GetVersionByID(ctx, 1))
}

func TestPurge_OnlyTouchesPrefix(t *testing.T) {
	mr, c := setupTestCache(t, enabledConfig())
	ctx := context.Background()
	c.LoadVersions(ctx, 5, sampleVersions())
	require.NoError(t, mr.Set("other:key", "keep"))

	n, err := c.Purge(ctx)

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"other:key"}, mr.Keys())
}

func TestRunHealthMonitor_StopsOnCancel(t *testing.T) {
	_, c := setupTestCache(t, enabledConfig())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		c.RunHealthMonitor(ctx, 10*time.Millisecond)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("health monitor did not stop")
	}
	assert.True(t, c.CacheEnable())
}
