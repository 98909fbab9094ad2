// Package kafka provides a destination that publishes notifications to Kafka topics.
package kafka

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/drblury/notiflow/internal/runtime/errors"
	"github.com/drblury/notiflow/plugin"
	"github.com/drblury/notiflow/plugin/publish"
)

// Name is the name this destination registers under.
const Name = "kafka"

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return kafka.NewPublisher(cfg, logger)
}

func init() {
	plugin.RegisterDestination(plugin.Builtin(Name), publish.Factory(Build))
}

// Build creates the Kafka publisher from the "brokers" parameter.
func Build(_ context.Context, name string, params plugin.Params, logger watermill.LoggerAdapter) (message.Publisher, error) {
	brokers, err := params.Strings("brokers")
	if err != nil {
		return nil, err
	}
	if len(brokers) == 0 {
		return nil, errspkg.InvalidParamError{Component: name, Param: "brokers", Reason: "is required"}
	}
	return PublisherFactory(
		kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.DefaultMarshaler{},
		},
		logger,
	)
}
