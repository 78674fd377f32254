package domain

// Product 产品线
type Product struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Deleted Deleted `json:"deleted"`
}

// Project 工程
type Project struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	ProductID int64   `json:"productId"`
	Deleted   Deleted `json:"deleted"`
}

// Environment 环境
type Environment struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	ProjectID int64   `json:"projectId"`
	ProductID int64   `json:"productId"`
	Deleted   Deleted `json:"deleted"`
}

// IsDeleted 是否已软删除
func (e *Environment) IsDeleted() bool {
	return e.Deleted == DeletedDelete
}

// User 登录用户
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Admin bool   `json:"admin"`
}
