package repository

import (
	"context"
	"fmt"
	"time"

	"rcc-core/internal/domain"
)

// PostgresConfigGroupsRepository 配置分组Repository实现
type PostgresConfigGroupsRepository struct {
	db DBTX
}

// NewPostgresConfigGroupsRepository 创建配置分组Repository
func NewPostgresConfigGroupsRepository(db DBTX) *PostgresConfigGroupsRepository {
	return &PostgresConfigGroupsRepository{db: db}
}

var _ ConfigGroupsRepository = (*PostgresConfigGroupsRepository)(nil)

// ListGroups 查询分组列表
func (r *PostgresConfigGroupsRepository) ListGroups(ctx context.Context, q GroupQuery) ([]*domain.ConfigGroup, error) {
	var w whereBuilder
	q.build(&w)
	query := `
		SELECT
			id,
			name,
			COALESCE(memo, ''),
			version_id,
			environment_id,
			project_id,
			product_id,
			deleted,
			create_time,
			update_time
		FROM rcc_config_group` + w.sql() + `
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list config groups: %w", err)
	}
	defer rows.Close()

	var groups []*domain.ConfigGroup
	for rows.Next() {
		var g domain.ConfigGroup
		var deleted int16
		if err := rows.Scan(
			&g.ID,
			&g.Name,
			&g.Memo,
			&g.VersionID,
			&g.EnvironmentID,
			&g.ProjectID,
			&g.ProductID,
			&deleted,
			&g.CreateTime,
			&g.UpdateTime,
		); err != nil {
			return nil, fmt.Errorf("failed to scan config group: %w", err)
		}
		g.Deleted = domain.Deleted(deleted)
		groups = append(groups, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate config groups: %w", err)
	}
	return groups, nil
}

// CreateGroup 创建分组
func (r *PostgresConfigGroupsRepository) CreateGroup(ctx context.Context, g *domain.ConfigGroup) (int64, error) {
	query := `
		INSERT INTO rcc_config_group (
			name,
			memo,
			version_id,
			environment_id,
			project_id,
			product_id,
			deleted,
			create_time,
			update_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		g.Name, g.Memo, g.VersionID, g.EnvironmentID, g.ProjectID, g.ProductID,
		int16(g.Deleted), g.CreateTime, g.UpdateTime,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create config group: %w", err)
	}
	g.ID = id
	return id, nil
}

// SoftDeleteGroupsByVersionID 软删除版本下的分组
func (r *PostgresConfigGroupsRepository) SoftDeleteGroupsByVersionID(ctx context.Context, versionID int64, now time.Time) (int64, error) {
	query := `
		UPDATE rcc_config_group
		SET deleted = $1, update_time = $2
		WHERE version_id = $3 AND deleted = $4
	`
	res, err := r.db.ExecContext(ctx, query, int16(domain.DeletedDelete), now, versionID, int16(domain.DeletedOK))
	if err != nil {
		return 0, fmt.Errorf("failed to delete config groups: %w", err)
	}
	return res.RowsAffected()
}
