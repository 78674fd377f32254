package repository

import (
	"context"

	"rcc-core/internal/domain"
)

// VersionsRepository 版本Repository接口
type VersionsRepository interface {
	// GetVersion 按主键获取（不过滤 deleted，调用方自行判断）
	// 不存在时返回包装了 sql.ErrNoRows 的错误
	GetVersion(ctx context.Context, id int64) (*domain.Version, error)

	// FindVersion 返回第一条匹配记录，无匹配时返回 nil, nil
	FindVersion(ctx context.Context, q VersionQuery) (*domain.Version, error)

	// ListVersions 按 id 升序返回所有匹配记录
	ListVersions(ctx context.Context, q VersionQuery) ([]*domain.Version, error)

	// CreateVersion 插入并返回生成的 id（同时回写到 v.ID）
	CreateVersion(ctx context.Context, v *domain.Version) (int64, error)

	// UpdateVersion 按主键部分更新，返回影响行数
	UpdateVersion(ctx context.Context, id int64, patch domain.VersionPatch) (int64, error)

	// UpdateVersions 按条件部分更新，返回影响行数；条件为空时拒绝执行
	UpdateVersions(ctx context.Context, patch domain.VersionPatch, q VersionQuery) (int64, error)
}
