package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"rcc-core/internal/domain"
)

// MemoryStore: 用于 DB 未就绪时的联调与服务层测试
// - 所有 Repository 共享一把锁
// - WithTx 持锁执行并在失败时恢复快照，从而保证业务操作的原子性
// - 返回值均为副本，调用方修改不会影响存储
type MemoryStore struct {
	mu   sync.Mutex
	data *memoryData
}

type memoryData struct {
	seq          int64
	versions     map[int64]domain.Version
	groups       map[int64]domain.ConfigGroup
	items        map[int64]domain.ConfigItem
	environments map[int64]domain.Environment
	projects     map[int64]domain.Project
	products     map[int64]domain.Product
	members      map[int64]map[int64]bool // userID -> projectID
	grants       map[int64]map[int64]bool // userID -> environmentID
}

// NewMemoryStore 创建空的内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemoryData()}
}

var _ Store = (*MemoryStore)(nil)

func newMemoryData() *memoryData {
	return &memoryData{
		versions:     map[int64]domain.Version{},
		groups:       map[int64]domain.ConfigGroup{},
		items:        map[int64]domain.ConfigItem{},
		environments: map[int64]domain.Environment{},
		projects:     map[int64]domain.Project{},
		products:     map[int64]domain.Product{},
		members:      map[int64]map[int64]bool{},
		grants:       map[int64]map[int64]bool{},
	}
}

func (d *memoryData) clone() *memoryData {
	c := newMemoryData()
	c.seq = d.seq
	for k, v := range d.versions {
		c.versions[k] = v
	}
	for k, v := range d.groups {
		c.groups[k] = v
	}
	for k, v := range d.items {
		c.items[k] = v
	}
	for k, v := range d.environments {
		c.environments[k] = v
	}
	for k, v := range d.projects {
		c.projects[k] = v
	}
	for k, v := range d.products {
		c.products[k] = v
	}
	for u, m := range d.members {
		c.members[u] = map[int64]bool{}
		for k, v := range m {
			c.members[u][k] = v
		}
	}
	for u, m := range d.grants {
		c.grants[u] = map[int64]bool{}
		for k, v := range m {
			c.grants[u][k] = v
		}
	}
	return c
}

func (d *memoryData) nextID() int64 {
	d.seq++
	return d.seq
}

// Repos 非事务 Repository，每次调用单独加锁
func (s *MemoryStore) Repos() *Repositories {
	return s.repositories(false)
}

// WithTx 持锁执行 fn，失败时恢复到执行前的快照
func (s *MemoryStore) WithTx(ctx context.Context, fn func(repos *Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(s.repositories(true)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *MemoryStore) repositories(inTx bool) *Repositories {
	b := memBase{s: s, inTx: inTx}
	return &Repositories{
		Versions: &memoryVersions{b},
		Groups:   &memoryGroups{b},
		Items:    &memoryItems{b},
		Catalog:  &memoryCatalog{b},
		Access:   &memoryAccess{b},
	}
}

// ---- seed helpers ----

// AddProduct 写入产品
func (s *MemoryStore) AddProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.products[p.ID] = p
}

// AddProject 写入工程
func (s *MemoryStore) AddProject(p domain.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.projects[p.ID] = p
}

// AddEnvironment 写入环境
func (s *MemoryStore) AddEnvironment(e domain.Environment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.environments[e.ID] = e
}

// AddProjectMember 授权用户为工程成员
func (s *MemoryStore) AddProjectMember(userID, projectID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.members[userID] == nil {
		s.data.members[userID] = map[int64]bool{}
	}
	s.data.members[userID][projectID] = true
}

// AddEnvironmentGrant 单独授权用户访问环境
func (s *MemoryStore) AddEnvironmentGrant(userID, environmentID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.grants[userID] == nil {
		s.data.grants[userID] = map[int64]bool{}
	}
	s.data.grants[userID][environmentID] = true
}

type memBase struct {
	s    *MemoryStore
	inTx bool
}

// acquire 事务内已持锁，直接返回
func (b memBase) acquire() func() {
	if b.inTx {
		return func() {}
	}
	b.s.mu.Lock()
	return b.s.mu.Unlock
}

// ---- versions ----

type memoryVersions struct{ memBase }

func (r *memoryVersions) GetVersion(_ context.Context, id int64) (*domain.Version, error) {
	defer r.acquire()()
	v, ok := r.s.data.versions[id]
	if !ok {
		return nil, fmt.Errorf("version %d not found: %w", id, sql.ErrNoRows)
	}
	return &v, nil
}

func (r *memoryVersions) FindVersion(ctx context.Context, q VersionQuery) (*domain.Version, error) {
	list, err := r.ListVersions(ctx, q)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (r *memoryVersions) ListVersions(_ context.Context, q VersionQuery) ([]*domain.Version, error) {
	defer r.acquire()()
	var out []*domain.Version
	for _, v := range r.s.data.versions {
		if q.Matches(&v) {
			v := v
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryVersions) CreateVersion(_ context.Context, v *domain.Version) (int64, error) {
	if v.EnvironmentID <= 0 {
		return 0, fmt.Errorf("environment_id is required")
	}
	if v.Name == "" {
		return 0, fmt.Errorf("name is required")
	}
	defer r.acquire()()
	v.ID = r.s.data.nextID()
	r.s.data.versions[v.ID] = *v
	return v.ID, nil
}

func applyPatch(v *domain.Version, patch domain.VersionPatch) {
	v.UpdateTime = patch.UpdateTime
	if patch.Name != nil {
		v.Name = *patch.Name
	}
	if patch.Memo != nil {
		v.Memo = *patch.Memo
	}
	if patch.Deleted != nil {
		v.Deleted = *patch.Deleted
	}
}

func (r *memoryVersions) UpdateVersion(_ context.Context, id int64, patch domain.VersionPatch) (int64, error) {
	defer r.acquire()()
	v, ok := r.s.data.versions[id]
	if !ok {
		return 0, nil
	}
	applyPatch(&v, patch)
	r.s.data.versions[id] = v
	return 1, nil
}

func (r *memoryVersions) UpdateVersions(_ context.Context, patch domain.VersionPatch, q VersionQuery) (int64, error) {
	var w whereBuilder
	q.build(&w)
	if w.empty() {
		return 0, fmt.Errorf("refusing to update versions without a filter")
	}
	defer r.acquire()()
	var n int64
	for id, v := range r.s.data.versions {
		if !q.Matches(&v) {
			continue
		}
		applyPatch(&v, patch)
		r.s.data.versions[id] = v
		n++
	}
	return n, nil
}

// ---- groups ----

type memoryGroups struct{ memBase }

func (r *memoryGroups) ListGroups(_ context.Context, q GroupQuery) ([]*domain.ConfigGroup, error) {
	defer r.acquire()()
	var out []*domain.ConfigGroup
	for _, g := range r.s.data.groups {
		if q.Matches(&g) {
			g := g
			out = append(out, &g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryGroups) CreateGroup(_ context.Context, g *domain.ConfigGroup) (int64, error) {
	defer r.acquire()()
	g.ID = r.s.data.nextID()
	r.s.data.groups[g.ID] = *g
	return g.ID, nil
}

func (r *memoryGroups) SoftDeleteGroupsByVersionID(_ context.Context, versionID int64, now time.Time) (int64, error) {
	defer r.acquire()()
	var n int64
	for id, g := range r.s.data.groups {
		if g.VersionID == versionID && g.Deleted == domain.DeletedOK {
			g.Deleted = domain.DeletedDelete
			g.UpdateTime = now
			r.s.data.groups[id] = g
			n++
		}
	}
	return n, nil
}

// ---- items ----

type memoryItems struct{ memBase }

func (r *memoryItems) ListItems(_ context.Context, q ItemQuery) ([]*domain.ConfigItem, error) {
	defer r.acquire()()
	var out []*domain.ConfigItem
	for _, it := range r.s.data.items {
		if q.Matches(&it) {
			it := it
			out = append(out, &it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryItems) CreateItems(_ context.Context, items []*domain.ConfigItem) error {
	defer r.acquire()()
	for _, it := range items {
		it.ID = r.s.data.nextID()
		r.s.data.items[it.ID] = *it
	}
	return nil
}

func (r *memoryItems) SoftDeleteItemsByVersionID(_ context.Context, versionID int64, now time.Time) (int64, error) {
	defer r.acquire()()
	var n int64
	for id, it := range r.s.data.items {
		if it.VersionID == versionID && it.Deleted == domain.DeletedOK {
			it.Deleted = domain.DeletedDelete
			it.UpdateTime = now
			r.s.data.items[id] = it
			n++
		}
	}
	return n, nil
}

// ---- catalog ----

type memoryCatalog struct{ memBase }

func (r *memoryCatalog) GetEnvironment(_ context.Context, id int64) (*domain.Environment, error) {
	defer r.acquire()()
	e, ok := r.s.data.environments[id]
	if !ok {
		return nil, fmt.Errorf("environment %d not found: %w", id, sql.ErrNoRows)
	}
	return &e, nil
}

func (r *memoryCatalog) ListEnvironmentsByIDs(_ context.Context, ids []int64) ([]*domain.Environment, error) {
	defer r.acquire()()
	out := []*domain.Environment{}
	for _, id := range sortedIDs(ids) {
		if e, ok := r.s.data.environments[id]; ok {
			out = append(out, &e)
		}
	}
	return out, nil
}

func (r *memoryCatalog) ListProjectsByIDs(_ context.Context, ids []int64) ([]*domain.Project, error) {
	defer r.acquire()()
	out := []*domain.Project{}
	for _, id := range sortedIDs(ids) {
		if p, ok := r.s.data.projects[id]; ok {
			out = append(out, &p)
		}
	}
	return out, nil
}

func (r *memoryCatalog) ListProductsByIDs(_ context.Context, ids []int64) ([]*domain.Product, error) {
	defer r.acquire()()
	out := []*domain.Product{}
	for _, id := range sortedIDs(ids) {
		if p, ok := r.s.data.products[id]; ok {
			out = append(out, &p)
		}
	}
	return out, nil
}

func sortedIDs(ids []int64) []int64 {
	seen := map[int64]bool{}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ---- access ----

type memoryAccess struct{ memBase }

func (r *memoryAccess) IsProjectMember(_ context.Context, userID, projectID int64) (bool, error) {
	defer r.acquire()()
	return r.s.data.members[userID][projectID], nil
}

func (r *memoryAccess) HasEnvironmentGrant(_ context.Context, userID, environmentID int64) (bool, error) {
	defer r.acquire()()
	return r.s.data.grants[userID][environmentID], nil
}

func (r *memoryAccess) ListMemberProjects(_ context.Context, userID int64) ([]*domain.Project, error) {
	defer r.acquire()()
	var ids []int64
	for id := range r.s.data.members[userID] {
		ids = append(ids, id)
	}
	out := []*domain.Project{}
	for _, id := range sortedIDs(ids) {
		if p, ok := r.s.data.projects[id]; ok && p.Deleted == domain.DeletedOK {
			out = append(out, &p)
		}
	}
	return out, nil
}

func (r *memoryAccess) ListGrantedEnvironments(_ context.Context, userID int64) ([]*domain.Environment, error) {
	defer r.acquire()()
	var ids []int64
	for id := range r.s.data.grants[userID] {
		ids = append(ids, id)
	}
	out := []*domain.Environment{}
	for _, id := range sortedIDs(ids) {
		if e, ok := r.s.data.environments[id]; ok && e.Deleted == domain.DeletedOK {
			out = append(out, &e)
		}
	}
	return out, nil
}
