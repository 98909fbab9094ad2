package http

import (
	"context"
	"io"
	nethttp "net/http"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-http/v2/pkg/http"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/drblury/notiflow/internal/runtime/errors"
	"github.com/drblury/notiflow/plugin"
)

type mockPublisher struct{}

func (mockPublisher) Publish(string, ...*message.Message) error { return nil }
func (mockPublisher) Close() error                              { return nil }

func captureConfig(t *testing.T) *http.PublisherConfig {
	t.Helper()
	original := PublisherFactory
	t.Cleanup(func() { PublisherFactory = original })

	got := &http.PublisherConfig{}
	PublisherFactory = func(cfg http.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		*got = cfg
		return mockPublisher{}, nil
	}
	return got
}

func TestBuildMarshalsRequests(t *testing.T) {
	got := captureConfig(t)

	_, err := Build(context.Background(), "hook", plugin.Params{
		"url":     "https://hooks.example.com/{topic}",
		"method":  "put",
		"headers": map[string]any{"Authorization": "Bearer abc"},
		"timeout": "3s",
	}, watermill.NopLogger{})
	require.NoError(t, err)
	require.NotNil(t, got.MarshalMessageFunc)
	assert.Equal(t, 3*time.Second, got.Client.Timeout)

	msg := message.NewMessage("id-1", []byte(`{"level":"ERROR"}`))
	msg.Metadata.Set("content_type", "application/json")

	req, err := got.MarshalMessageFunc("alerts", msg)
	require.NoError(t, err)
	assert.Equal(t, nethttp.MethodPut, req.Method)
	assert.Equal(t, "https://hooks.example.com/alerts", req.URL.String())
	assert.Equal(t, "Bearer abc", req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"level":"ERROR"}`, string(body))
}

func TestBuildDefaults(t *testing.T) {
	got := captureConfig(t)

	_, err := Build(context.Background(), "hook", plugin.Params{"url": "https://example.com/notify"}, watermill.NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, got.Client.Timeout)

	req, err := got.MarshalMessageFunc("ignored", message.NewMessage("id", []byte("x")))
	require.NoError(t, err)
	assert.Equal(t, nethttp.MethodPost, req.Method)
	assert.Equal(t, "https://example.com/notify", req.URL.String())
}

func TestBuildErrors(t *testing.T) {
	captureConfig(t)

	_, err := Build(context.Background(), "hook", plugin.Params{}, watermill.NopLogger{})
	assert.ErrorIs(t, err, errspkg.ErrInvalidParam)

	_, err = Build(context.Background(), "hook", plugin.Params{"url": "https://x", "method": "GET"}, watermill.NopLogger{})
	assert.ErrorIs(t, err, errspkg.ErrInvalidParam)

	_, err = Build(context.Background(), "hook", plugin.Params{"url": "https://x", "headers": "nope"}, watermill.NopLogger{})
	assert.ErrorIs(t, err, errspkg.ErrInvalidParam)
}

func TestRegistered(t *testing.T) {
	assert.True(t, plugin.DefaultRegistry.Has(plugin.CapabilityDestination, Name))
}
