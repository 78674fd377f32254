package domain

import "time"

// ConfigGroup 配置分组，冗余 environment/project/product 以便按层级查询
type ConfigGroup struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Memo          string    `json:"memo"`
	VersionID     int64     `json:"versionId"`
	EnvironmentID int64     `json:"environmentId"`
	ProjectID     int64     `json:"projectId"`
	ProductID     int64     `json:"productId"`
	Deleted       Deleted   `json:"deleted"`
	CreateTime    time.Time `json:"createTime"`
	UpdateTime    time.Time `json:"updateTime"`
}

// ConfigItem 配置项
type ConfigItem struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Val           string    `json:"val"`
	Memo          string    `json:"memo"`
	GroupID       int64     `json:"groupId"`
	VersionID     int64     `json:"versionId"`
	EnvironmentID int64     `json:"environmentId"`
	ProjectID     int64     `json:"projectId"`
	ProductID     int64     `json:"productId"`
	Deleted       Deleted   `json:"deleted"`
	CreateTime    time.Time `json:"createTime"`
	UpdateTime    time.Time `json:"updateTime"`
}
