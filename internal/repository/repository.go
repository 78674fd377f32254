package repository

import (
	"context"
	"database/sql"
)

// DBTX *sql.DB 与 *sql.Tx 的公共子集，Repository 可以绑定到任一者
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repositories 一组绑定到同一连接（或同一事务）的 Repository
type Repositories struct {
	Versions VersionsRepository
	Groups   ConfigGroupsRepository
	Items    ConfigItemsRepository
	Catalog  CatalogRepository
	Access   AccessRepository
}

// Store 关系存储入口
// Repos 返回非事务的 Repository；WithTx 在单个事务内执行 fn，fn 返回错误时整体回滚
type Store interface {
	Repos() *Repositories
	WithTx(ctx context.Context, fn func(repos *Repositories) error) error
}
