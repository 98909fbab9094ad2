// Package nats provides a destination that publishes notifications on NATS Core subjects.
package nats

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/drblury/notiflow/plugin"
	"github.com/drblury/notiflow/plugin/publish"
)

// Name is the name this destination registers under.
const Name = "nats"

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return nats.NewPublisher(cfg, logger)
}

func init() {
	plugin.RegisterDestination(plugin.Builtin(Name), publish.Factory(Build))
}

// Build creates the NATS publisher for the "url" parameter, defaulting to a local server.
func Build(_ context.Context, _ string, params plugin.Params, logger watermill.LoggerAdapter) (message.Publisher, error) {
	url, err := params.StringOr("url", natsgo.DefaultURL)
	if err != nil {
		return nil, err
	}
	return PublisherFactory(
		nats.PublisherConfig{
			URL:       url,
			Marshaler: &nats.NATSMarshaler{},
		},
		logger,
	)
}
