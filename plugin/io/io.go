// Package io provides a destination that appends notifications to a file as JSON lines.
package io

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/notiflow/internal/runtime/jsoncodec"
	"github.com/drblury/notiflow/plugin"
	"github.com/drblury/notiflow/plugin/publish"
)

// Name is the name this destination registers under.
const Name = "io"

// DefaultFilePath is the default file path if none is specified.
const DefaultFilePath = "notifications.log"

// Stdout as the path writes to standard output instead of a file.
const Stdout = "-"

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(filePath string, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return &Publisher{filePath: filePath, logger: logger}, nil
}

func init() {
	plugin.RegisterDestination(plugin.Builtin(Name), publish.Factory(Build))
}

// Build creates the file publisher for the "path" parameter.
func Build(_ context.Context, _ string, params plugin.Params, logger watermill.LoggerAdapter) (message.Publisher, error) {
	filePath, err := params.StringOr("path", DefaultFilePath)
	if err != nil {
		return nil, err
	}
	return PublisherFactory(filePath, logger)
}

// Record is one line of the output file.
type Record struct {
	UUID     string            `json:"uuid"`
	Topic    string            `json:"topic"`
	Metadata map[string]string `json:"metadata"`
	Payload  string            `json:"payload"`
}

// Publisher appends messages to a file, opening it per call so external rotation is honoured.
type Publisher struct {
	filePath string
	logger   watermill.LoggerAdapter
	stdout   io.Writer
	mu       sync.Mutex
}

// Publish writes one line per message.
func (p *Publisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	w, closeFn, err := p.open()
	if err != nil {
		return err
	}
	defer closeFn()

	for _, msg := range messages {
		rec := Record{
			UUID:     msg.UUID,
			Topic:    topic,
			Metadata: msg.Metadata,
			Payload:  string(msg.Payload),
		}
		b, err := jsoncodec.Marshal(rec)
		if err != nil {
			return err
		}
		if _, err := w.Write(append(b, '\n')); err != nil {
			return fmt.Errorf("write %s: %w", p.filePath, err)
		}
	}
	return nil
}

func (p *Publisher) open() (io.Writer, func(), error) {
	if p.filePath == Stdout {
		if p.stdout != nil {
			return p.stdout, func() {}, nil
		}
		return os.Stdout, func() {}, nil
	}
	f, err := os.OpenFile(p.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, nil, err
	}
	return f, func() {
		if err := f.Close(); err != nil {
			p.logger.Error("Failed to close file", err, watermill.LogFields{"path": p.filePath})
		}
	}, nil
}

// Close closes the publisher.
func (p *Publisher) Close() error {
	return nil
}
