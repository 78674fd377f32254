package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rcc-core/internal/domain"

	"github.com/lib/pq"
)

// PostgresCatalogRepository 产品/工程/环境只读查询
type PostgresCatalogRepository struct {
	db DBTX
}

// NewPostgresCatalogRepository 创建目录Repository
func NewPostgresCatalogRepository(db DBTX) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{db: db}
}

var _ CatalogRepository = (*PostgresCatalogRepository)(nil)

// GetEnvironment 按主键获取环境
func (r *PostgresCatalogRepository) GetEnvironment(ctx context.Context, id int64) (*domain.Environment, error) {
	query := `
		SELECT id, name, project_id, product_id, deleted
		FROM rcc_environment
		WHERE id = $1
	`
	var e domain.Environment
	var deleted int16
	err := r.db.QueryRowContext(ctx, query, id).Scan(&e.ID, &e.Name, &e.ProjectID, &e.ProductID, &deleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("environment %d not found: %w", id, err)
		}
		return nil, fmt.Errorf("failed to get environment: %w", err)
	}
	e.Deleted = domain.Deleted(deleted)
	return &e, nil
}

// ListEnvironmentsByIDs 批量查询环境
func (r *PostgresCatalogRepository) ListEnvironmentsByIDs(ctx context.Context, ids []int64) ([]*domain.Environment, error) {
	if len(ids) == 0 {
		return []*domain.Environment{}, nil
	}
	query := `
		SELECT id, name, project_id, product_id, deleted
		FROM rcc_environment
		WHERE id = ANY($1)
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list environments: %w", err)
	}
	defer rows.Close()
	return scanEnvironments(rows)
}

func scanEnvironments(rows *sql.Rows) ([]*domain.Environment, error) {
	var envs []*domain.Environment
	for rows.Next() {
		var e domain.Environment
		var deleted int16
		if err := rows.Scan(&e.ID, &e.Name, &e.ProjectID, &e.ProductID, &deleted); err != nil {
			return nil, fmt.Errorf("failed to scan environment: %w", err)
		}
		e.Deleted = domain.Deleted(deleted)
		envs = append(envs, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate environments: %w", err)
	}
	return envs, nil
}

// ListProjectsByIDs 批量查询工程
func (r *PostgresCatalogRepository) ListProjectsByIDs(ctx context.Context, ids []int64) ([]*domain.Project, error) {
	if len(ids) == 0 {
		return []*domain.Project{}, nil
	}
	query := `
		SELECT id, name, product_id, deleted
		FROM rcc_project
		WHERE id = ANY($1)
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()
	return scanProjects(rows)
}

func scanProjects(rows *sql.Rows) ([]*domain.Project, error) {
	var projects []*domain.Project
	for rows.Next() {
		var p domain.Project
		var deleted int16
		if err := rows.Scan(&p.ID, &p.Name, &p.ProductID, &deleted); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		p.Deleted = domain.Deleted(deleted)
		projects = append(projects, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}
	return projects, nil
}

// ListProductsByIDs 批量查询产品
func (r *PostgresCatalogRepository) ListProductsByIDs(ctx context.Context, ids []int64) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return []*domain.Product{}, nil
	}
	query := `
		SELECT id, name, deleted
		FROM rcc_product
		WHERE id = ANY($1)
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		var p domain.Product
		var deleted int16
		if err := rows.Scan(&p.ID, &p.Name, &deleted); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p.Deleted = domain.Deleted(deleted)
		products = append(products, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}
