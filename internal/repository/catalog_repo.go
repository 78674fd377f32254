package repository

import (
	"context"

	"rcc-core/internal/domain"
)

// CatalogRepository 产品/工程/环境的只读查询
type CatalogRepository interface {
	// GetEnvironment 不过滤 deleted；不存在时返回包装了 sql.ErrNoRows 的错误
	GetEnvironment(ctx context.Context, id int64) (*domain.Environment, error)
	ListEnvironmentsByIDs(ctx context.Context, ids []int64) ([]*domain.Environment, error)
	ListProjectsByIDs(ctx context.Context, ids []int64) ([]*domain.Project, error)
	ListProductsByIDs(ctx context.Context, ids []int64) ([]*domain.Product, error)
}

// AccessRepository 用户授权关系
type AccessRepository interface {
	IsProjectMember(ctx context.Context, userID, projectID int64) (bool, error)
	HasEnvironmentGrant(ctx context.Context, userID, environmentID int64) (bool, error)

	// ListMemberProjects 用户作为成员的未删除工程
	ListMemberProjects(ctx context.Context, userID int64) ([]*domain.Project, error)

	// ListGrantedEnvironments 用户被单独授权的未删除环境
	ListGrantedEnvironments(ctx context.Context, userID int64) ([]*domain.Environment, error)
}
