package repository

import (
	"context"
	"time"

	"rcc-core/internal/domain"
)

// ConfigGroupsRepository 配置分组Repository接口
type ConfigGroupsRepository interface {
	ListGroups(ctx context.Context, q GroupQuery) ([]*domain.ConfigGroup, error)

	// CreateGroup 插入并返回生成的 id（同时回写到 g.ID）
	CreateGroup(ctx context.Context, g *domain.ConfigGroup) (int64, error)

	// SoftDeleteGroupsByVersionID 软删除版本下所有未删除的分组
	SoftDeleteGroupsByVersionID(ctx context.Context, versionID int64, now time.Time) (int64, error)
}

// ConfigItemsRepository 配置项Repository接口
type ConfigItemsRepository interface {
	ListItems(ctx context.Context, q ItemQuery) ([]*domain.ConfigItem, error)

	// CreateItems 逐条插入，生成的 id 回写到每个 item
	CreateItems(ctx context.Context, items []*domain.ConfigItem) error

	// SoftDeleteItemsByVersionID 软删除版本下所有未删除的配置项
	SoftDeleteItemsByVersionID(ctx context.Context, versionID int64, now time.Time) (int64, error)
}
