package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/drblury/notiflow/internal/runtime/errors"
	msgpkg "github.com/drblury/notiflow/internal/runtime/message"
	"github.com/drblury/notiflow/plugin"
)

type mockPublisher struct {
	topic string
	msgs  []*message.Message
}

func (m *mockPublisher) Publish(topic string, messages ...*message.Message) error {
	m.topic = topic
	m.msgs = append(m.msgs, messages...)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func stubFactory(t *testing.T, fn func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error)) {
	t.Helper()
	original := PublisherFactory
	t.Cleanup(func() { PublisherFactory = original })
	PublisherFactory = fn
}

func TestRegistered(t *testing.T) {
	assert.True(t, plugin.DefaultRegistry.Has(plugin.CapabilityDestination, Name))
}

func TestBuildPublishes(t *testing.T) {
	pub := &mockPublisher{}
	stubFactory(t, func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		assert.Equal(t, []string{"localhost:9092", "localhost:9093"}, cfg.Brokers)
		assert.IsType(t, kafka.DefaultMarshaler{}, cfg.Marshaler)
		return pub, nil
	})

	dest, err := plugin.DefaultRegistry.BuildDestination(context.Background(), Name, "events", plugin.Params{
		"brokers": []any{"localhost:9092", "localhost:9093"},
		"topic":   "alerts",
	}, nil)
	require.NoError(t, err)

	m, err := msgpkg.FromPairs("level", "ERROR")
	require.NoError(t, err)
	require.NoError(t, dest.SendMessages(context.Background(), []msgpkg.Entry{m}, "job", nil))
	assert.Equal(t, "alerts", pub.topic)
	assert.Len(t, pub.msgs, 1)
}

func TestBuildRequiresBrokers(t *testing.T) {
	_, err := Build(context.Background(), "events", plugin.Params{}, watermill.NopLogger{})
	assert.ErrorIs(t, err, errspkg.ErrInvalidParam)
}

func TestBuildFactoryError(t *testing.T) {
	stubFactory(t, func(kafka.PublisherConfig, watermill.LoggerAdapter) (message.Publisher, error) {
		return nil, errors.New("no brokers reachable")
	})
	_, err := Build(context.Background(), "events", plugin.Params{"brokers": "k:9092"}, watermill.NopLogger{})
	assert.ErrorContains(t, err, "no brokers reachable")
}
