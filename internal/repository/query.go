package repository

import (
	"fmt"
	"strings"

	"rcc-core/internal/domain"

	"github.com/lib/pq"
)

// VersionQuery 版本查询条件，零值字段表示不过滤
// 注意：空切片同样视为不过滤，调用方需自行处理“空集合”场景
type VersionQuery struct {
	IDs            []int64
	ExcludeID      int64
	EnvironmentID  int64
	EnvironmentIDs []int64
	ProjectID      int64
	ProjectIDs     []int64
	Name           string
	Deleted        *domain.Deleted
}

// GroupQuery 配置分组查询条件
type GroupQuery struct {
	VersionID int64
	Deleted   *domain.Deleted
}

// ItemQuery 配置项查询条件
type ItemQuery struct {
	GroupID   int64
	VersionID int64
	Deleted   *domain.Deleted
}

// whereBuilder 拼接 WHERE 子句与位置参数（$1, $2 ...）
type whereBuilder struct {
	conds []string
	args  []any
}

// add cond 中的 %d 会被替换为下一个参数序号
func (w *whereBuilder) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *whereBuilder) empty() bool {
	return len(w.conds) == 0
}

func (w *whereBuilder) sql() string {
	if w.empty() {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func (q VersionQuery) build(w *whereBuilder) {
	if len(q.IDs) > 0 {
		w.add("id = ANY($%d)", pq.Array(q.IDs))
	}
	if q.ExcludeID > 0 {
		w.add("id <> $%d", q.ExcludeID)
	}
	if q.EnvironmentID > 0 {
		w.add("environment_id = $%d", q.EnvironmentID)
	}
	if len(q.EnvironmentIDs) > 0 {
		w.add("environment_id = ANY($%d)", pq.Array(q.EnvironmentIDs))
	}
	if q.ProjectID > 0 {
		w.add("project_id = $%d", q.ProjectID)
	}
	if len(q.ProjectIDs) > 0 {
		w.add("project_id = ANY($%d)", pq.Array(q.ProjectIDs))
	}
	if q.Name != "" {
		w.add("name = $%d", q.Name)
	}
	if q.Deleted != nil {
		w.add("deleted = $%d", int16(*q.Deleted))
	}
}

// Matches 内存实现使用，与 SQL 翻译保持同一语义
func (q VersionQuery) Matches(v *domain.Version) bool {
	if len(q.IDs) > 0 && !containsID(q.IDs, v.ID) {
		return false
	}
	if q.ExcludeID > 0 && v.ID == q.ExcludeID {
		return false
	}
	if q.EnvironmentID > 0 && v.EnvironmentID != q.EnvironmentID {
		return false
	}
	if len(q.EnvironmentIDs) > 0 && !containsID(q.EnvironmentIDs, v.EnvironmentID) {
		return false
	}
	if q.ProjectID > 0 && v.ProjectID != q.ProjectID {
		return false
	}
	if len(q.ProjectIDs) > 0 && !containsID(q.ProjectIDs, v.ProjectID) {
		return false
	}
	if q.Name != "" && v.Name != q.Name {
		return false
	}
	if q.Deleted != nil && v.Deleted != *q.Deleted {
		return false
	}
	return true
}

func (q GroupQuery) build(w *whereBuilder) {
	if q.VersionID > 0 {
		w.add("version_id = $%d", q.VersionID)
	}
	if q.Deleted != nil {
		w.add("deleted = $%d", int16(*q.Deleted))
	}
}

// Matches 内存实现使用
func (q GroupQuery) Matches(g *domain.ConfigGroup) bool {
	if q.VersionID > 0 && g.VersionID != q.VersionID {
		return false
	}
	if q.Deleted != nil && g.Deleted != *q.Deleted {
		return false
	}
	return true
}

func (q ItemQuery) build(w *whereBuilder) {
	if q.GroupID > 0 {
		w.add("group_id = $%d", q.GroupID)
	}
	if q.VersionID > 0 {
		w.add("version_id = $%d", q.VersionID)
	}
	if q.Deleted != nil {
		w.add("deleted = $%d", int16(*q.Deleted))
	}
}

// Matches 内存实现使用
func (q ItemQuery) Matches(it *domain.ConfigItem) bool {
	if q.GroupID > 0 && it.GroupID != q.GroupID {
		return false
	}
	if q.VersionID > 0 && it.VersionID != q.VersionID {
		return false
	}
	if q.Deleted != nil && it.Deleted != *q.Deleted {
		return false
	}
	return true
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
