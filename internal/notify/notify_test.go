package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMQTTClient struct {
	mock.Mock
}

func (m *mockMQTTClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	args := m.Called(topic, qos, retained, payload)
	return args.Error(0)
}

func (m *mockMQTTClient) QoS() byte {
	return 1
}

func TestMQTTPublisher_Publish(t *testing.T) {
	client := &mockMQTTClient{}
	client.On("Publish", "rcc/versions/5", byte(1), false, mock.MatchedBy(func(payload []byte) bool {
		var e VersionEvent
		return json.Unmarshal(payload, &e) == nil && e.VersionID == 9 && e.Type == EventDeleted
	})).Return(nil)

	p := NewMQTTPublisher(client, "")
	err := p.Publish(context.Background(), VersionEvent{Type: EventDeleted, VersionID: 9, EnvironmentID: 5, At: time.Now()})

	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestMQTTPublisher_PropagatesError(t *testing.T) {
	client := &mockMQTTClient{}
	client.On("Publish", "cfg/versions/1", byte(1), false, mock.Anything).Return(errors.New("broker down"))

	p := NewMQTTPublisher(client, "cfg")
	err := p.Publish(context.Background(), VersionEvent{EnvironmentID: 1})

	assert.EqualError(t, err, "broker down")
}

func TestStreamPublisher_Publish(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	p := NewStreamPublisher(client, "", 0)
	require.NoError(t, p.Publish(context.Background(), VersionEvent{Type: EventCreated, VersionID: 3, EnvironmentID: 5}))

	msgs, err := client.XRange(context.Background(), "rcc:version-events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	var e VersionEvent
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &e))
	assert.Equal(t, EventCreated, e.Type)
	assert.Equal(t, int64(3), e.VersionID)
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), VersionEvent{}))
}
