package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"rcc-core/internal/domain"
)

const versionColumns = `
			id,
			environment_id,
			project_id,
			product_id,
			name,
			COALESCE(memo, ''),
			COALESCE(check_sum, ''),
			check_sum_date,
			deleted,
			create_time,
			update_time`

// PostgresVersionsRepository 版本Repository实现
type PostgresVersionsRepository struct {
	db DBTX
}

// NewPostgresVersionsRepository 创建版本Repository
func NewPostgresVersionsRepository(db DBTX) *PostgresVersionsRepository {
	return &PostgresVersionsRepository{db: db}
}

// 确保实现了接口
var _ VersionsRepository = (*PostgresVersionsRepository)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(s rowScanner) (*domain.Version, error) {
	var v domain.Version
	var checkSumDate sql.NullTime
	var deleted int16
	if err := s.Scan(
		&v.ID,
		&v.EnvironmentID,
		&v.ProjectID,
		&v.ProductID,
		&v.Name,
		&v.Memo,
		&v.CheckSum,
		&checkSumDate,
		&deleted,
		&v.CreateTime,
		&v.UpdateTime,
	); err != nil {
		return nil, err
	}
	if checkSumDate.Valid {
		v.CheckSumDate = checkSumDate.Time
	}
	v.Deleted = domain.Deleted(deleted)
	return &v, nil
}

// GetVersion 按主键获取版本
func (r *PostgresVersionsRepository) GetVersion(ctx context.Context, id int64) (*domain.Version, error) {
	query := `SELECT` + versionColumns + `
		FROM rcc_version
		WHERE id = $1`

	v, err := scanVersion(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("version %d not found: %w", id, err)
		}
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	return v, nil
}

// FindVersion 查询第一条匹配的版本
func (r *PostgresVersionsRepository) FindVersion(ctx context.Context, q VersionQuery) (*domain.Version, error) {
	var w whereBuilder
	q.build(&w)
	query := `SELECT` + versionColumns + `
		FROM rcc_version` + w.sql() + `
		ORDER BY id
		LIMIT 1`

	v, err := scanVersion(r.db.QueryRowContext(ctx, query, w.args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find version: %w", err)
	}
	return v, nil
}

// ListVersions 查询版本列表
func (r *PostgresVersionsRepository) ListVersions(ctx context.Context, q VersionQuery) ([]*domain.Version, error) {
	var w whereBuilder
	q.build(&w)
	query := `SELECT` + versionColumns + `
		FROM rcc_version` + w.sql() + `
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	var versions []*domain.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate versions: %w", err)
	}
	return versions, nil
}

// CreateVersion 创建版本
func (r *PostgresVersionsRepository) CreateVersion(ctx context.Context, v *domain.Version) (int64, error) {
	if v.EnvironmentID <= 0 {
		return 0, fmt.Errorf("environment_id is required")
	}
	if v.Name == "" {
		return 0, fmt.Errorf("name is required")
	}

	query := `
		INSERT INTO rcc_version (
			environment_id,
			project_id,
			product_id,
			name,
			memo,
			check_sum,
			check_sum_date,
			deleted,
			create_time,
			update_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		v.EnvironmentID, v.ProjectID, v.ProductID, v.Name, v.Memo,
		v.CheckSum, v.CheckSumDate, int16(v.Deleted), v.CreateTime, v.UpdateTime,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create version: %w", err)
	}
	v.ID = id
	return id, nil
}

// patchSet 构造 SET 子句，参数从 $1 开始
func patchSet(patch domain.VersionPatch) ([]string, []any) {
	sets := []string{"update_time = $1"}
	args := []any{patch.UpdateTime}
	if patch.Name != nil {
		args = append(args, *patch.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if patch.Memo != nil {
		args = append(args, *patch.Memo)
		sets = append(sets, fmt.Sprintf("memo = $%d", len(args)))
	}
	if patch.Deleted != nil {
		args = append(args, int16(*patch.Deleted))
		sets = append(sets, fmt.Sprintf("deleted = $%d", len(args)))
	}
	return sets, args
}

// UpdateVersion 按主键部分更新
func (r *PostgresVersionsRepository) UpdateVersion(ctx context.Context, id int64, patch domain.VersionPatch) (int64, error) {
	sets, args := patchSet(patch)
	w := whereBuilder{args: args}
	w.add("id = $%d", id)

	query := `UPDATE rcc_version SET ` + strings.Join(sets, ", ") + w.sql()
	res, err := r.db.ExecContext(ctx, query, w.args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update version: %w", err)
	}
	return res.RowsAffected()
}

// UpdateVersions 按条件批量部分更新
func (r *PostgresVersionsRepository) UpdateVersions(ctx context.Context, patch domain.VersionPatch, q VersionQuery) (int64, error) {
	sets, args := patchSet(patch)
	w := whereBuilder{args: args}
	q.build(&w)
	if w.empty() {
		return 0, fmt.Errorf("refusing to update versions without a filter")
	}

	query := `UPDATE rcc_version SET ` + strings.Join(sets, ", ") + w.sql()
	res, err := r.db.ExecContext(ctx, query, w.args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update versions: %w", err)
	}
	return res.RowsAffected()
}
