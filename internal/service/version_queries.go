package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"rcc-core/internal/domain"
	"rcc-core/internal/repository"

	"go.uber.org/zap"
)

// MyAllVersion 用户可访问的版本，productID/projectID 大于 0 时按其过滤，按版本 id 升序
func (s *VersionService) MyAllVersion(ctx context.Context, user *domain.User, productID, projectID int64) ([]*domain.VersionNode, error) {
	maps, err := s.auth.LoadVersionAccess(ctx, user)
	if err != nil {
		return nil, err
	}

	versions := make([]*domain.Version, 0, len(maps.Versions))
	for _, v := range maps.Versions {
		if productID > 0 && v.ProductID != productID {
			continue
		}
		if projectID > 0 && v.ProjectID != projectID {
			continue
		}
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].ID < versions[j].ID })
	if len(versions) == 0 {
		return []*domain.VersionNode{}, nil
	}

	if err := s.fillMissingNames(ctx, maps, versions); err != nil {
		return nil, err
	}

	nodes := make([]*domain.VersionNode, 0, len(versions))
	for _, v := range versions {
		node := &domain.VersionNode{
			VersionID:     v.ID,
			VersionName:   v.Name,
			EnvironmentID: v.EnvironmentID,
			ProjectID:     v.ProjectID,
			ProductID:     v.ProductID,
		}
		if e := maps.Environments[v.EnvironmentID]; e != nil {
			node.EnvironmentName = e.Name
		}
		if p := maps.Projects[v.ProjectID]; p != nil {
			node.ProjectName = p.Name
		}
		if p := maps.Products[v.ProductID]; p != nil {
			node.ProductName = p.Name
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// fillMissingNames 只批量查询 maps 中缺失的环境/工程/产品
func (s *VersionService) fillMissingNames(ctx context.Context, maps *AccessMaps, versions []*domain.Version) error {
	var envIDs, projectIDs, productIDs []int64
	wantEnv, wantProject, wantProduct := map[int64]bool{}, map[int64]bool{}, map[int64]bool{}
	for _, v := range versions {
		if _, ok := maps.Environments[v.EnvironmentID]; !ok && !wantEnv[v.EnvironmentID] {
			wantEnv[v.EnvironmentID] = true
			envIDs = append(envIDs, v.EnvironmentID)
		}
		if _, ok := maps.Projects[v.ProjectID]; !ok && !wantProject[v.ProjectID] {
			wantProject[v.ProjectID] = true
			projectIDs = append(projectIDs, v.ProjectID)
		}
		if _, ok := maps.Products[v.ProductID]; !ok && !wantProduct[v.ProductID] {
			wantProduct[v.ProductID] = true
			productIDs = append(productIDs, v.ProductID)
		}
	}

	catalog := s.store.Repos().Catalog
	if len(envIDs) > 0 {
		envs, err := catalog.ListEnvironmentsByIDs(ctx, envIDs)
		if err != nil {
			return fmt.Errorf("failed to list environments: %w", err)
		}
		for _, e := range envs {
			maps.Environments[e.ID] = e
		}
	}
	if len(projectIDs) > 0 {
		projects, err := catalog.ListProjectsByIDs(ctx, projectIDs)
		if err != nil {
			return fmt.Errorf("failed to list projects: %w", err)
		}
		for _, p := range projects {
			maps.Projects[p.ID] = p
		}
	}
	if len(productIDs) > 0 {
		products, err := catalog.ListProductsByIDs(ctx, productIDs)
		if err != nil {
			return fmt.Errorf("failed to list products: %w", err)
		}
		for _, p := range products {
			maps.Products[p.ID] = p
		}
	}
	return nil
}

// CheckAuth 用户是否同时有权访问两个版本（复制配置前调用）
// 任一版本不存在或已删除时返回 false
func (s *VersionService) CheckAuth(ctx context.Context, user *domain.User, srcVersionID, destVersionID int64) (bool, error) {
	versions, err := s.store.Repos().Versions.ListVersions(ctx, repository.VersionQuery{
		IDs:     []int64{srcVersionID, destVersionID},
		Deleted: domain.DeletedOK.Ptr(),
	})
	if err != nil {
		return false, err
	}
	if len(versions) != 2 {
		return false, nil
	}
	for _, v := range versions {
		ok, err := s.auth.CheckEnvironmentAuth(ctx, v.ProductID, v.ProjectID, v.EnvironmentID, user)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// SelectByProjectIDAndEnvironmentIDAndName 按工程、环境、名称查询未删除的版本，不存在时返回 nil
// 环境 id 无效时返回 nil，零值在查询条件里表示不过滤
func (s *VersionService) SelectByProjectIDAndEnvironmentIDAndName(ctx context.Context, projectID, environmentID int64, name string) (*domain.Version, error) {
	if environmentID <= 0 {
		return nil, nil
	}
	return s.store.Repos().Versions.FindVersion(ctx, repository.VersionQuery{
		ProjectID:     projectID,
		EnvironmentID: environmentID,
		Name:          name,
		Deleted:       domain.DeletedOK.Ptr(),
	})
}

// SelectByProjectIDAndEnvironment 工程、环境下所有未删除的版本
func (s *VersionService) SelectByProjectIDAndEnvironment(ctx context.Context, projectID, environmentID int64) ([]*domain.Version, error) {
	if environmentID <= 0 {
		return []*domain.Version{}, nil
	}
	return s.store.Repos().Versions.ListVersions(ctx, repository.VersionQuery{
		ProjectID:     projectID,
		EnvironmentID: environmentID,
		Deleted:       domain.DeletedOK.Ptr(),
	})
}

// SelectIDsByEnvironmentIDs 一组环境下未删除版本的 id，参数无效时返回 nil
func (s *VersionService) SelectIDsByEnvironmentIDs(ctx context.Context, projectID int64, environmentIDs []int64) ([]int64, error) {
	if projectID <= 0 || len(environmentIDs) == 0 {
		return nil, nil
	}
	versions, err := s.store.Repos().Versions.ListVersions(ctx, repository.VersionQuery{
		ProjectID:      projectID,
		EnvironmentIDs: environmentIDs,
		Deleted:        domain.DeletedOK.Ptr(),
	})
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(versions))
	for _, v := range versions {
		ids = append(ids, v.ID)
	}
	return ids, nil
}

// GetByEnvironmentByIDInCache 按 id 读取版本，未命中时回源并回填
// 已删除的版本视为不存在
func (s *VersionService) GetByEnvironmentByIDInCache(ctx context.Context, versionID int64) (*domain.ApiVersion, error) {
	if versionID <= 0 {
		return nil, nil
	}
	if vo := s.cache.GetVersionByID(ctx, versionID); vo != nil {
		return vo, nil
	}
	v, err := s.store.Repos().Versions.GetVersion(ctx, versionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if v.IsDeleted() {
		return nil, nil
	}
	vo := domain.NewApiVersion(v)
	s.cache.LoadVersionForID(ctx, vo)
	return vo, nil
}

// GetByEnvironmentAndNameInCache 按环境+名称读取版本
// 环境未加载时整体加载该环境；环境已加载但名称未命中时直接查存储且不回填
func (s *VersionService) GetByEnvironmentAndNameInCache(ctx context.Context, projectID, environmentID int64, name string) (*domain.ApiVersion, error) {
	if environmentID <= 0 {
		return nil, nil
	}
	if vo := s.cache.GetVersion(ctx, environmentID, name); vo != nil {
		return matchProject(vo, projectID), nil
	}

	if s.cache.CacheEnable() && !s.cache.ExistsVersionHKey(ctx, environmentID) {
		vos, err := s.loadEnvironment(ctx, environmentID)
		if err != nil {
			return nil, err
		}
		for _, vo := range vos {
			if vo.VersionName == name {
				return matchProject(vo, projectID), nil
			}
		}
		return nil, nil
	}

	v, err := s.SelectByProjectIDAndEnvironmentIDAndName(ctx, projectID, environmentID, name)
	if err != nil || v == nil {
		return nil, err
	}
	return domain.NewApiVersion(v), nil
}

// GetAllByEnvironmentIDInCache 环境下所有版本，环境未加载时回源并整体加载
func (s *VersionService) GetAllByEnvironmentIDInCache(ctx context.Context, projectID, environmentID int64) ([]*domain.ApiVersion, error) {
	if environmentID <= 0 {
		return []*domain.ApiVersion{}, nil
	}
	vos := s.cache.GetVersions(ctx, environmentID)
	if vos == nil {
		var err error
		vos, err = s.loadEnvironment(ctx, environmentID)
		if err != nil {
			return nil, err
		}
	}
	out := make([]*domain.ApiVersion, 0, len(vos))
	for _, vo := range vos {
		if matchProject(vo, projectID) != nil {
			out = append(out, vo)
		}
	}
	return out, nil
}

// loadEnvironment 读取环境下所有未删除的版本并写入缓存
// 环境只属于一个工程，按环境整体加载，工程过滤由调用方完成
func (s *VersionService) loadEnvironment(ctx context.Context, environmentID int64) ([]*domain.ApiVersion, error) {
	if environmentID <= 0 {
		return nil, fmt.Errorf("load versions: invalid environment id %d", environmentID)
	}
	versions, err := s.store.Repos().Versions.ListVersions(ctx, repository.VersionQuery{
		EnvironmentID: environmentID,
		Deleted:       domain.DeletedOK.Ptr(),
	})
	if err != nil {
		return nil, err
	}
	vos := make([]*domain.ApiVersion, 0, len(versions))
	for _, v := range versions {
		vos = append(vos, domain.NewApiVersion(v))
	}
	s.cache.LoadVersions(ctx, environmentID, vos)

	s.logger.Debug("Environment versions loaded",
		zap.Int64("environment_id", environmentID),
		zap.Int("count", len(vos)),
	)
	return vos, nil
}

func matchProject(vo *domain.ApiVersion, projectID int64) *domain.ApiVersion {
	if projectID > 0 && vo.ProjectID != projectID {
		return nil
	}
	return vo
}
