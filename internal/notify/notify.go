// Package notify 在版本变更提交后向订阅方广播事件
package notify

import (
	"context"
	"time"
)

// EventType 版本事件类型
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// VersionEvent 版本生命周期事件；客户端据此判断配置是否漂移
type VersionEvent struct {
	Type          EventType `json:"type"`
	VersionID     int64     `json:"versionId"`
	VersionName   string    `json:"versionName"`
	EnvironmentID int64     `json:"environmentId"`
	ProjectID     int64     `json:"projectId"`
	CheckSum      string    `json:"checkSum,omitempty"`
	At            time.Time `json:"at"`
}

// Publisher 事件发布器
type Publisher interface {
	Publish(ctx context.Context, event VersionEvent) error
}

// NopPublisher 不发布任何事件
type NopPublisher struct{}

// Publish 丢弃事件
func (NopPublisher) Publish(context.Context, VersionEvent) error { return nil }
