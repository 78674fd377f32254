package domain

// Deleted 软删除标记
type Deleted int16

const (
	DeletedOK     Deleted = 0
	DeletedDelete Deleted = 1
)

// Ptr 便于在查询条件中引用
func (d Deleted) Ptr() *Deleted {
	return &d
}
