package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore 基于 PostgreSQL 的 Store
type PostgresStore struct {
	db    *sql.DB
	repos *Repositories
}

// NewPostgresStore 创建 PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, repos: newPostgresRepositories(db)}
}

var _ Store = (*PostgresStore)(nil)

func newPostgresRepositories(db DBTX) *Repositories {
	return &Repositories{
		Versions: NewPostgresVersionsRepository(db),
		Groups:   NewPostgresConfigGroupsRepository(db),
		Items:    NewPostgresConfigItemsRepository(db),
		Catalog:  NewPostgresCatalogRepository(db),
		Access:   NewPostgresAccessRepository(db),
	}
}

// Repos 非事务 Repository
func (s *PostgresStore) Repos() *Repositories {
	return s.repos
}

// WithTx 在单个事务内执行 fn
func (s *PostgresStore) WithTx(ctx context.Context, fn func(repos *Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(newPostgresRepositories(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
