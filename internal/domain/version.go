package domain

import "time"

// Version 配置版本（环境下的一组配置分组）
type Version struct {
	ID            int64     `json:"id"`
	EnvironmentID int64     `json:"environmentId"`
	ProjectID     int64     `json:"projectId"`
	ProductID     int64     `json:"productId"`
	Name          string    `json:"name"`
	Memo          string    `json:"memo"`
	CheckSum      string    `json:"checkSum"`
	CheckSumDate  time.Time `json:"checkSumDate"`
	Deleted       Deleted   `json:"deleted"`
	CreateTime    time.Time `json:"createTime"`
	UpdateTime    time.Time `json:"updateTime"`
}

// IsDeleted 是否已软删除
func (v *Version) IsDeleted() bool {
	return v.Deleted == DeletedDelete
}

// VersionPatch 版本的部分更新，nil 字段不更新
type VersionPatch struct {
	Name       *string
	Memo       *string
	Deleted    *Deleted
	UpdateTime time.Time
}

// ApiVersion 版本的缓存投影（不含审计字段）
type ApiVersion struct {
	VersionID     int64  `json:"versionId"`
	VersionName   string `json:"versionName"`
	EnvironmentID int64  `json:"environmentId"`
	ProjectID     int64  `json:"projectId"`
	CheckSum      string `json:"checkSum"`
}

// NewApiVersion 从存储行构造缓存投影
func NewApiVersion(v *Version) *ApiVersion {
	return &ApiVersion{
		VersionID:     v.ID,
		VersionName:   v.Name,
		EnvironmentID: v.EnvironmentID,
		ProjectID:     v.ProjectID,
		CheckSum:      v.CheckSum,
	}
}

// VersionNode 用户可访问的版本及其所属环境/工程/产品名称
type VersionNode struct {
	VersionID       int64  `json:"versionId"`
	VersionName     string `json:"versionName"`
	EnvironmentID   int64  `json:"environmentId"`
	EnvironmentName string `json:"environmentName"`
	ProjectID       int64  `json:"projectId"`
	ProjectName     string `json:"projectName"`
	ProductID       int64  `json:"productId"`
	ProductName     string `json:"productName"`
}
