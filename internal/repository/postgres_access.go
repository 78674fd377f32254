package repository

import (
	"context"
	"fmt"

	"rcc-core/internal/domain"
)

// PostgresAccessRepository 基于 rcc_project_user / rcc_environment_user 的授权查询
type PostgresAccessRepository struct {
	db DBTX
}

// NewPostgresAccessRepository 创建授权Repository
func NewPostgresAccessRepository(db DBTX) *PostgresAccessRepository {
	return &PostgresAccessRepository{db: db}
}

var _ AccessRepository = (*PostgresAccessRepository)(nil)

// IsProjectMember 用户是否为工程成员
func (r *PostgresAccessRepository) IsProjectMember(ctx context.Context, userID, projectID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM rcc_project_user WHERE user_id = $1 AND project_id = $2)`
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, userID, projectID).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check project member: %w", err)
	}
	return ok, nil
}

// HasEnvironmentGrant 用户是否被单独授权了该环境
func (r *PostgresAccessRepository) HasEnvironmentGrant(ctx context.Context, userID, environmentID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM rcc_environment_user WHERE user_id = $1 AND environment_id = $2)`
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, userID, environmentID).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check environment grant: %w", err)
	}
	return ok, nil
}

// ListMemberProjects 用户作为成员的工程
func (r *PostgresAccessRepository) ListMemberProjects(ctx context.Context, userID int64) ([]*domain.Project, error) {
	query := `
		SELECT p.id, p.name, p.product_id, p.deleted
		FROM rcc_project p
		JOIN rcc_project_user pu ON pu.project_id = p.id
		WHERE pu.user_id = $1 AND p.deleted = $2
		ORDER BY p.id
	`
	rows, err := r.db.QueryContext(ctx, query, userID, int16(domain.DeletedOK))
	if err != nil {
		return nil, fmt.Errorf("failed to list member projects: %w", err)
	}
	defer rows.Close()
	return scanProjects(rows)
}

// ListGrantedEnvironments 用户被单独授权的环境
func (r *PostgresAccessRepository) ListGrantedEnvironments(ctx context.Context, userID int64) ([]*domain.Environment, error) {
	query := `
		SELECT e.id, e.name, e.project_id, e.product_id, e.deleted
		FROM rcc_environment e
		JOIN rcc_environment_user eu ON eu.environment_id = e.id
		WHERE eu.user_id = $1 AND e.deleted = $2
		ORDER BY e.id
	`
	rows, err := r.db.QueryContext(ctx, query, userID, int16(domain.DeletedOK))
	if err != nil {
		return nil, fmt.Errorf("failed to list granted environments: %w", err)
	}
	defer rows.Close()
	return scanEnvironments(rows)
}
