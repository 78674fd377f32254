package repository

import (
	"context"
	"fmt"
	"time"

	"rcc-core/internal/domain"
)

// PostgresConfigItemsRepository 配置项Repository实现
type PostgresConfigItemsRepository struct {
	db DBTX
}

// NewPostgresConfigItemsRepository 创建配置项Repository
func NewPostgresConfigItemsRepository(db DBTX) *PostgresConfigItemsRepository {
	return &PostgresConfigItemsRepository{db: db}
}

var _ ConfigItemsRepository = (*PostgresConfigItemsRepository)(nil)

// ListItems 查询配置项列表
func (r *PostgresConfigItemsRepository) ListItems(ctx context.Context, q ItemQuery) ([]*domain.ConfigItem, error) {
	var w whereBuilder
	q.build(&w)
	query := `
		SELECT
			id,
			name,
			COALESCE(val, ''),
			COALESCE(memo, ''),
			group_id,
			version_id,
			environment_id,
			project_id,
			product_id,
			deleted,
			create_time,
			update_time
		FROM rcc_config_item` + w.sql() + `
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list config items: %w", err)
	}
	defer rows.Close()

	var items []*domain.ConfigItem
	for rows.Next() {
		var it domain.ConfigItem
		var deleted int16
		if err := rows.Scan(
			&it.ID,
			&it.Name,
			&it.Val,
			&it.Memo,
			&it.GroupID,
			&it.VersionID,
			&it.EnvironmentID,
			&it.ProjectID,
			&it.ProductID,
			&deleted,
			&it.CreateTime,
			&it.UpdateTime,
		); err != nil {
			return nil, fmt.Errorf("failed to scan config item: %w", err)
		}
		it.Deleted = domain.Deleted(deleted)
		items = append(items, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate config items: %w", err)
	}
	return items, nil
}

// CreateItems 批量创建配置项
func (r *PostgresConfigItemsRepository) CreateItems(ctx context.Context, items []*domain.ConfigItem) error {
	query := `
		INSERT INTO rcc_config_item (
			name,
			val,
			memo,
			group_id,
			version_id,
			environment_id,
			project_id,
			product_id,
			deleted,
			create_time,
			update_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	for _, it := range items {
		var id int64
		err := r.db.QueryRowContext(ctx, query,
			it.Name, it.Val, it.Memo, it.GroupID, it.VersionID, it.EnvironmentID,
			it.ProjectID, it.ProductID, int16(it.Deleted), it.CreateTime, it.UpdateTime,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to create config item %q: %w", it.Name, err)
		}
		it.ID = id
	}
	return nil
}

// SoftDeleteItemsByVersionID 软删除版本下的配置项
func (r *PostgresConfigItemsRepository) SoftDeleteItemsByVersionID(ctx context.Context, versionID int64, now time.Time) (int64, error) {
	query := `
		UPDATE rcc_config_item
		SET deleted = $1, update_time = $2
		WHERE version_id = $3 AND deleted = $4
	`
	res, err := r.db.ExecContext(ctx, query, int16(domain.DeletedDelete), now, versionID, int16(domain.DeletedOK))
	if err != nil {
		return 0, fmt.Errorf("failed to delete config items: %w", err)
	}
	return res.RowsAffected()
}
