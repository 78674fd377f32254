package service

import (
	"context"
	"fmt"

	"rcc-core/internal/domain"
	"rcc-core/internal/repository"

	"go.uber.org/zap"
)

// Authorizer 版本服务依赖的授权能力
type Authorizer interface {
	CheckProjectAuth(ctx context.Context, productID, projectID int64, user *domain.User) (bool, error)
	CheckEnvironmentAuth(ctx context.Context, productID, projectID, environmentID int64, user *domain.User) (bool, error)
	LoadVersionAccess(ctx context.Context, user *domain.User) (*AccessMaps, error)
}

// AccessMaps 用户可访问的资源，按 id 索引
// Products/Projects/Environments 只包含授权查询顺带得到的记录，名称缺失的由调用方补查
type AccessMaps struct {
	Products     map[int64]*domain.Product
	Projects     map[int64]*domain.Project
	Environments map[int64]*domain.Environment
	Versions     map[int64]*domain.Version
}

func newAccessMaps() *AccessMaps {
	return &AccessMaps{
		Products:     map[int64]*domain.Product{},
		Projects:     map[int64]*domain.Project{},
		Environments: map[int64]*domain.Environment{},
		Versions:     map[int64]*domain.Version{},
	}
}

// AccessService 工程/环境级授权
// 规则：管理员全部放行；工程成员可访问工程下所有环境；否则需要环境级授权
type AccessService struct {
	store  repository.Store
	logger *zap.Logger
}

// NewAccessService 创建授权服务
func NewAccessService(store repository.Store, logger *zap.Logger) *AccessService {
	return &AccessService{store: store, logger: logger}
}

var _ Authorizer = (*AccessService)(nil)

// CheckProjectAuth 工程级授权
func (s *AccessService) CheckProjectAuth(ctx context.Context, productID, projectID int64, user *domain.User) (bool, error) {
	if user == nil {
		return false, nil
	}
	if user.Admin {
		return true, nil
	}
	ok, err := s.store.Repos().Access.IsProjectMember(ctx, user.ID, projectID)
	if err != nil {
		return false, fmt.Errorf("failed to check project auth: %w", err)
	}
	if !ok {
		s.logger.Debug("Project access denied",
			zap.Int64("user_id", user.ID),
			zap.Int64("product_id", productID),
			zap.Int64("project_id", projectID),
		)
	}
	return ok, nil
}

// CheckEnvironmentAuth 环境级授权
func (s *AccessService) CheckEnvironmentAuth(ctx context.Context, productID, projectID, environmentID int64, user *domain.User) (bool, error) {
	ok, err := s.CheckProjectAuth(ctx, productID, projectID, user)
	if err != nil || ok || user == nil {
		return ok, err
	}
	granted, err := s.store.Repos().Access.HasEnvironmentGrant(ctx, user.ID, environmentID)
	if err != nil {
		return false, fmt.Errorf("failed to check environment auth: %w", err)
	}
	return granted, nil
}

// LoadVersionAccess 加载用户可访问的版本
func (s *AccessService) LoadVersionAccess(ctx context.Context, user *domain.User) (*AccessMaps, error) {
	maps := newAccessMaps()
	if user == nil {
		return maps, nil
	}
	repos := s.store.Repos()

	if user.Admin {
		versions, err := repos.Versions.ListVersions(ctx, repository.VersionQuery{Deleted: domain.DeletedOK.Ptr()})
		if err != nil {
			return nil, fmt.Errorf("failed to load versions: %w", err)
		}
		for _, v := range versions {
			maps.Versions[v.ID] = v
		}
		return maps, nil
	}

	projects, err := repos.Access.ListMemberProjects(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load member projects: %w", err)
	}
	projectIDs := make([]int64, 0, len(projects))
	for _, p := range projects {
		maps.Projects[p.ID] = p
		projectIDs = append(projectIDs, p.ID)
	}

	envs, err := repos.Access.ListGrantedEnvironments(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load granted environments: %w", err)
	}
	envIDs := make([]int64, 0, len(envs))
	for _, e := range envs {
		maps.Environments[e.ID] = e
		envIDs = append(envIDs, e.ID)
	}

	// 空集合在 VersionQuery 中等同于不过滤，必须跳过
	if len(projectIDs) > 0 {
		versions, err := repos.Versions.ListVersions(ctx, repository.VersionQuery{
			ProjectIDs: projectIDs,
			Deleted:    domain.DeletedOK.Ptr(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load project versions: %w", err)
		}
		for _, v := range versions {
			maps.Versions[v.ID] = v
		}
	}
	if len(envIDs) > 0 {
		versions, err := repos.Versions.ListVersions(ctx, repository.VersionQuery{
			EnvironmentIDs: envIDs,
			Deleted:        domain.DeletedOK.Ptr(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load environment versions: %w", err)
		}
		for _, v := range versions {
			maps.Versions[v.ID] = v
		}
	}

	return maps, nil
}
