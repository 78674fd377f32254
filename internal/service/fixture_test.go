package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rcc-core/internal/cache"
	"rcc-core/internal/domain"
	"rcc-core/internal/notify"
	"rcc-core/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	fixedNow = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	adminUser    = &domain.User{ID: 1, Name: "root", Admin: true}
	memberUser   = &domain.User{ID: 2, Name: "alice"}
	guestUser    = &domain.User{ID: 3, Name: "bob"}
	outsiderUser = &domain.User{ID: 4, Name: "carol"}
)

const (
	productMall  int64 = 1
	projectOrder int64 = 10
	projectPay   int64 = 20
	envOrderDev  int64 = 100
	envOrderProd int64 = 101
	envOrderGone int64 = 102
	envPayDev    int64 = 200
	unknownEnvID int64 = 999
	unknownVerID int64 = 9999
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.VersionEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event notify.VersionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []notify.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notify.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	ctx   context.Context
	store *repository.MemoryStore
	mr    *miniredis.Miniredis
	cache *cache.RedisRccCache
	pub   *recordingPublisher
	svc   *VersionService
}

// newFixture 初始化一个产品和两个工程：
// order（dev、prod、一个已删除的环境）和 pay（dev）
// alice 是 order 的成员，bob 只有 pay/dev 的环境授权
func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := repository.NewMemoryStore()
	store.AddProduct(domain.Product{ID: productMall, Name: "mall"})
	store.AddProject(domain.Project{ID: projectOrder, Name: "order", ProductID: productMall})
	store.AddProject(domain.Project{ID: projectPay, Name: "pay", ProductID: productMall})
	store.AddEnvironment(domain.Environment{ID: envOrderDev, Name: "dev", ProjectID: projectOrder, ProductID: productMall})
	store.AddEnvironment(domain.Environment{ID: envOrderProd, Name: "prod", ProjectID: projectOrder, ProductID: productMall})
	store.AddEnvironment(domain.Environment{ID: envOrderGone, Name: "old", ProjectID: projectOrder, ProductID: productMall, Deleted: domain.DeletedDelete})
	store.AddEnvironment(domain.Environment{ID: envPayDev, Name: "pay-dev", ProjectID: projectPay, ProductID: productMall})
	store.AddProjectMember(memberUser.ID, projectOrder)
	store.AddEnvironmentGrant(guestUser.ID, envPayDev)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	rccCache := cache.NewRedisRccCache(client, cache.Config{Enabled: true, Prefix: "rcc:", TTL: time.Hour}, zap.NewNop())

	pub := &recordingPublisher{}
	svc := NewVersionService(store, rccCache, NewAccessService(store, zap.NewNop()), pub, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }

	return &fixture{
		ctx:   context.Background(),
		store: store,
		mr:    mr,
		cache: rccCache,
		pub:   pub,
		svc:   svc,
	}
}

func (f *fixture) mustSave(t *testing.T, environmentID int64, name string) int64 {
	t.Helper()
	id, err := f.svc.SaveVersion(f.ctx, environmentID, name, "memo of "+name, adminUser)
	require.NoError(t, err)
	require.Greater(t, id, int64(0))
	return id
}

func (f *fixture) mustGetVersion(t *testing.T, id int64) *domain.Version {
	t.Helper()
	v, err := f.store.Repos().Versions.GetVersion(f.ctx, id)
	require.NoError(t, err)
	return v
}

// seedGroup 在已有版本下创建分组及其配置项
func (f *fixture) seedGroup(t *testing.T, versionID int64, name string, deleted domain.Deleted, items map[string]string) *domain.ConfigGroup {
	t.Helper()
	v := f.mustGetVersion(t, versionID)
	repos := f.store.Repos()
	g := &domain.ConfigGroup{
		Name:          name,
		Memo:          "group memo",
		VersionID:     v.ID,
		EnvironmentID: v.EnvironmentID,
		ProjectID:     v.ProjectID,
		ProductID:     v.ProductID,
		Deleted:       deleted,
	}
	_, err := repos.Groups.CreateGroup(f.ctx, g)
	require.NoError(t, err)

	var rows []*domain.ConfigItem
	for k, val := range items {
		rows = append(rows, &domain.ConfigItem{
			Name:          k,
			Val:           val,
			Memo:          "item memo",
			GroupID:       g.ID,
			VersionID:     v.ID,
			EnvironmentID: v.EnvironmentID,
			ProjectID:     v.ProjectID,
			ProductID:     v.ProductID,
			Deleted:       deleted,
		})
	}
	if len(rows) > 0 {
		require.NoError(t, repos.Items.CreateItems(f.ctx, rows))
	}
	return g
}

func requireBizStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	var be *domain.BizError
	require.True(t, errors.As(err, &be), "expected BizError, got %v", err)
	require.Equal(t, status, be.Status)
}
