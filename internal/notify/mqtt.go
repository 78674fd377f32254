package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// mqttClient pkg/mqtt.Client 的发布子集
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	QoS() byte
}

// MQTTPublisher 发布到 <prefix>/versions/<environmentId>
type MQTTPublisher struct {
	client      mqttClient
	topicPrefix string
}

// NewMQTTPublisher 创建 MQTT 事件发布器
func NewMQTTPublisher(client mqttClient, topicPrefix string) *MQTTPublisher {
	if topicPrefix == "" {
		topicPrefix = "rcc"
	}
	return &MQTTPublisher{client: client, topicPrefix: topicPrefix}
}

// Topic 环境对应的主题
func (p *MQTTPublisher) Topic(environmentID int64) string {
	return p.topicPrefix + "/versions/" + strconv.FormatInt(environmentID, 10)
}

// Publish 发布事件
func (p *MQTTPublisher) Publish(ctx context.Context, event VersionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal version event: %w", err)
	}
	return p.client.Publish(p.Topic(event.EnvironmentID), p.client.QoS(), false, payload)
}
