// Package jetstream provides a destination that publishes notifications into a NATS JetStream
// stream and waits for the server acknowledgement of every message.
package jetstream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats.go"

	errspkg "github.com/drblury/notiflow/internal/runtime/errors"
	"github.com/drblury/notiflow/plugin"
	"github.com/drblury/notiflow/plugin/publish"
)

// Name is the name this destination registers under.
const Name = "jetstream"

const (
	// DefaultStream is the stream notifications are stored in when none is configured.
	DefaultStream = "NOTIFLOW"

	// DefaultMaxAge bounds how long the stream keeps notifications.
	DefaultMaxAge = 7 * 24 * time.Hour
)

// StreamContext is the part of nats.JetStreamContext the destination uses.
type StreamContext interface {
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	UpdateStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	PublishMsg(m *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// Connect allows overriding the connection for testing. The returned func closes the connection.
var Connect = func(url string) (StreamContext, func(), error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return js, nc.Close, nil
}

func init() {
	plugin.RegisterDestination(plugin.Builtin(Name), publish.Factory(Build))
}

// Config holds the JetStream destination settings.
type Config struct {
	URL string

	// Stream is the stream name; subjects are "<stream>.<topic>".
	Stream string

	Replicas int

	// Retention is "limits" (default), "interest" or "workqueue".
	Retention string

	MaxAge time.Duration
}

// ParseConfig reads url, stream, replicas, retention and max_age.
func ParseConfig(name string, params plugin.Params) (Config, error) {
	var cfg Config
	var err error
	if cfg.URL, err = params.StringOr("url", nats.DefaultURL); err != nil {
		return cfg, err
	}
	if cfg.Stream, err = params.StringOr("stream", DefaultStream); err != nil {
		return cfg, err
	}
	if cfg.Replicas, err = params.IntOr("replicas", 1); err != nil {
		return cfg, err
	}
	if cfg.Retention, err = params.StringOr("retention", "limits"); err != nil {
		return cfg, err
	}
	if _, err := retention(cfg.Retention); err != nil {
		return cfg, errspkg.InvalidParamError{Component: name, Param: "retention", Reason: err.Error()}
	}
	if cfg.MaxAge, err = params.DurationOr("max_age", DefaultMaxAge); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func retention(policy string) (nats.RetentionPolicy, error) {
	switch strings.ToLower(policy) {
	case "", "limits":
		return nats.LimitsPolicy, nil
	case "interest":
		return nats.InterestPolicy, nil
	case "workqueue":
		return nats.WorkQueuePolicy, nil
	}
	return 0, fmt.Errorf("unknown retention policy %q", policy)
}

// Build connects, ensures the stream exists and returns the publisher.
func Build(_ context.Context, name string, params plugin.Params, logger watermill.LoggerAdapter) (message.Publisher, error) {
	cfg, err := ParseConfig(name, params)
	if err != nil {
		return nil, err
	}
	return New(cfg, logger)
}

// Publisher publishes watermill messages as JetStream messages.
type Publisher struct {
	js     StreamContext
	close  func()
	config Config
	logger watermill.LoggerAdapter

	mu     sync.RWMutex
	closed bool
}

// New connects to the server and creates or updates the stream.
func New(cfg Config, logger watermill.LoggerAdapter) (*Publisher, error) {
	js, closeFn, err := Connect(cfg.URL)
	if err != nil {
		return nil, err
	}
	p := &Publisher{js: js, close: closeFn, config: cfg, logger: logger}
	if err := p.ensureStream(); err != nil {
		closeFn()
		return nil, fmt.Errorf("failed to ensure stream: %w", err)
	}
	return p, nil
}

func (p *Publisher) ensureStream() error {
	policy, err := retention(p.config.Retention)
	if err != nil {
		return err
	}
	streamCfg := &nats.StreamConfig{
		Name:      p.config.Stream,
		Subjects:  []string{p.config.Stream + ".>"},
		MaxAge:    p.config.MaxAge,
		Replicas:  p.config.Replicas,
		Retention: policy,
	}

	if _, err := p.js.AddStream(streamCfg); err == nil {
		return nil
	}
	if _, err := p.js.UpdateStream(streamCfg); err != nil {
		return err
	}
	p.logger.Info("JetStream stream updated", watermill.LogFields{"stream": p.config.Stream})
	return nil
}

// Publish sends every message and fails on the first missing acknowledgement.
func (p *Publisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errors.New("jetstream publisher is closed")
	}

	subject := p.config.Stream + "." + topic
	for _, msg := range messages {
		headers := nats.Header{}
		for k, v := range msg.Metadata {
			headers.Set(k, v)
		}
		headers.Set(nats.MsgIdHdr, msg.UUID)

		var opts []nats.PubOpt
		// Without a deadline the default ack wait of the JetStream context applies.
		if ctx := msg.Context(); ctx != nil {
			if _, ok := ctx.Deadline(); ok {
				opts = append(opts, nats.Context(ctx))
			}
		}
		if _, err := p.js.PublishMsg(&nats.Msg{Subject: subject, Data: msg.Payload, Header: headers}, opts...); err != nil {
			return fmt.Errorf("failed to publish to JetStream: %w", err)
		}
	}
	return nil
}

// Close closes the connection once.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.close()
	return nil
}
