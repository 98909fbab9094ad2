// Package publish implements a destination that turns each batch entry into a Watermill message
// and hands it to a publisher. The broker destinations (kafka, nats, rabbitmq, aws, http, io,
// channel, jetstream) only differ in how they build that publisher.
package publish

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"golang.org/x/time/rate"

	"github.com/drblury/notiflow/internal/runtime/cloudevents"
	errspkg "github.com/drblury/notiflow/internal/runtime/errors"
	"github.com/drblury/notiflow/internal/runtime/ids"
	"github.com/drblury/notiflow/internal/runtime/jsoncodec"
	"github.com/drblury/notiflow/internal/runtime/metadata"
	msgpkg "github.com/drblury/notiflow/internal/runtime/message"
	"github.com/drblury/notiflow/internal/runtime/protocodec"
	"github.com/drblury/notiflow/plugin"
)

// Payload encodings selected with the "encoding" parameter.
const (
	EncodingJSON        = "json"
	EncodingText        = "text"
	EncodingProto       = "proto"
	EncodingCloudEvents = "cloudevents"
)

// Parameters shared by every publishing destination.
const (
	ParamTopic     = "topic"
	ParamEncoding  = "encoding"
	ParamMetadata  = "metadata"
	ParamRateLimit = "rate_limit"
	ParamBurst     = "burst"
)

var contentTypes = map[string]string{
	EncodingJSON:        "application/json",
	EncodingText:        "text/plain; charset=utf-8",
	EncodingProto:       "application/protobuf",
	EncodingCloudEvents: "application/cloudevents+json",
}

// Options controls how entries are published.
type Options struct {
	// Topic is where entries go unless a delivery passes its own "topic".
	Topic    string
	Encoding string
	// Metadata is attached to every published message.
	Metadata metadata.Metadata
	// RateLimit caps published messages per second. Zero disables throttling.
	RateLimit float64
	Burst     int
}

// ParseOptions reads the shared parameters. The topic defaults to the destination name.
func ParseOptions(name string, params plugin.Params) (Options, error) {
	var (
		opts Options
		err  error
	)
	if opts.Topic, err = params.StringOr(ParamTopic, name); err != nil {
		return opts, err
	}
	if opts.Encoding, err = params.StringOr(ParamEncoding, EncodingJSON); err != nil {
		return opts, err
	}
	opts.Encoding = strings.ToLower(opts.Encoding)
	if _, ok := contentTypes[opts.Encoding]; !ok {
		return opts, invalid(name, ParamEncoding, "must be one of json, text, proto, cloudevents")
	}
	md, err := params.StringMap(ParamMetadata)
	if err != nil {
		return opts, err
	}
	opts.Metadata = metadata.Metadata(md).Clone()
	if opts.RateLimit, err = params.FloatOr(ParamRateLimit, 0); err != nil {
		return opts, err
	}
	if opts.RateLimit < 0 {
		return opts, invalid(name, ParamRateLimit, "cannot be negative")
	}
	if opts.Burst, err = params.IntOr(ParamBurst, 1); err != nil {
		return opts, err
	}
	if opts.Burst < 1 {
		return opts, invalid(name, ParamBurst, "must be at least 1")
	}
	return opts, nil
}

// Destination publishes every entry of a batch as one message.
type Destination struct {
	name      string
	publisher message.Publisher
	opts      Options
	limiter   *rate.Limiter
	logger    watermill.LoggerAdapter

	closeOnce sync.Once
	closeErr  error
}

// New wraps publisher. The destination owns it and closes it on Close.
func New(name string, publisher message.Publisher, opts Options, logger watermill.LoggerAdapter) *Destination {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	if opts.Encoding == "" {
		opts.Encoding = EncodingJSON
	}
	if opts.Topic == "" {
		opts.Topic = name
	}
	d := &Destination{name: name, publisher: publisher, opts: opts, logger: logger}
	if opts.RateLimit > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(opts.Burst, 1))
	}
	return d
}

// Name returns the destination name.
func (d *Destination) Name() string { return d.name }

// Options returns the publishing options.
func (d *Destination) Options() Options { return d.opts }

// SendMessages publishes one message per entry. A "topic" in extra overrides the configured
// topic for this delivery. An empty batch publishes nothing.
func (d *Destination) SendMessages(ctx context.Context, entries []msgpkg.Entry, subject string, extra plugin.Params) error {
	if len(entries) == 0 {
		return nil
	}
	topic, err := extra.StringOr(ParamTopic, d.opts.Topic)
	if err != nil {
		return err
	}

	msgs := make([]*message.Message, 0, len(entries))
	for i, e := range entries {
		msg, err := d.encode(e, subject)
		if err != nil {
			return fmt.Errorf("encode entry %d: %w", i, err)
		}
		msg.SetContext(ctx)
		msgs = append(msgs, msg)
	}

	if d.limiter == nil {
		return d.publish(topic, msgs...)
	}
	for _, msg := range msgs {
		if err := d.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := d.publish(topic, msg); err != nil {
			return err
		}
	}
	return nil
}

func (d *Destination) publish(topic string, msgs ...*message.Message) error {
	if err := d.publisher.Publish(topic, msgs...); err != nil {
		return err
	}
	d.logger.Debug("Published notifications", watermill.LogFields{
		"destination": d.name,
		"topic":       topic,
		"count":       len(msgs),
	})
	return nil
}

func (d *Destination) encode(e msgpkg.Entry, subject string) (*message.Message, error) {
	payload, err := d.payload(e, subject)
	if err != nil {
		return nil, err
	}
	msg := message.NewMessage(ids.New(), payload)

	md := d.opts.Metadata.
		With(metadata.KeySubject, subject).
		With(metadata.KeyDestination, d.name).
		With(metadata.KeyContentType, contentTypes[d.opts.Encoding])
	if m, ok := e.(msgpkg.Message); ok {
		md = md.With(metadata.KeyLevel, m.Rank().String())
	}
	md.Apply(msg)
	return msg, nil
}

func (d *Destination) payload(e msgpkg.Entry, subject string) ([]byte, error) {
	switch d.opts.Encoding {
	case EncodingText:
		return []byte(e.String()), nil
	case EncodingProto:
		return protocodec.Marshal(e)
	case EncodingCloudEvents:
		evt := cloudevents.New(cloudevents.NotificationType, "notiflow/"+d.name, jsonData(e)).
			WithSubject(subject).
			WithDataContentType(contentTypes[EncodingJSON]).
			WithExtension(cloudevents.ExtDestination, d.name)
		if m, ok := e.(msgpkg.Message); ok {
			evt = evt.WithExtension(cloudevents.ExtLevel, m.Rank().String())
		}
		return evt.MarshalJSON()
	}
	return jsoncodec.Marshal(jsonData(e))
}

// jsonData is what a JSON payload carries: the ordered fields of a message, or {"text": ...}.
func jsonData(e msgpkg.Entry) any {
	if m, ok := e.(msgpkg.Message); ok {
		return m.Fields()
	}
	return map[string]string{protocodec.TextKey: e.String()}
}

// Close closes the publisher once.
func (d *Destination) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = d.publisher.Close()
	})
	return d.closeErr
}

func invalid(component, param, reason string) error {
	return errspkg.InvalidParamError{Component: component, Param: param, Reason: reason}
}

// PublisherBuilder builds the broker publisher of a destination from its parameters.
type PublisherBuilder func(ctx context.Context, name string, params plugin.Params, logger watermill.LoggerAdapter) (message.Publisher, error)

// Factory returns a destination factory that parses the shared options and publishes through
// the publisher build returns. Broker-specific keys are left for build to read.
func Factory(build PublisherBuilder) plugin.DestinationFactory {
	return func(ctx context.Context, name string, params plugin.Params, logger watermill.LoggerAdapter) (plugin.Destination, error) {
		opts, err := ParseOptions(name, params)
		if err != nil {
			return nil, err
		}
		pub, err := build(ctx, name, params.Without(ParamTopic, ParamEncoding, ParamMetadata, ParamRateLimit, ParamBurst), logger)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return New(name, pub, opts, logger), nil
	}
}
