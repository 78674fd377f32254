package notify

import (
	"context"

	rccredis "rcc-core/pkg/redis"

	"github.com/go-redis/redis/v8"
)

// StreamPublisher 发布到 Redis Stream
type StreamPublisher struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

// NewStreamPublisher 创建 Redis Stream 事件发布器
func NewStreamPublisher(client redis.Cmdable, stream string, maxLen int64) *StreamPublisher {
	if stream == "" {
		stream = "rcc:version-events"
	}
	return &StreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

// Publish 发布事件
func (p *StreamPublisher) Publish(ctx context.Context, event VersionEvent) error {
	_, err := rccredis.PublishJSONToStream(ctx, p.client, p.stream, p.maxLen, event)
	return err
}
