// Package plugin defines the capability contracts implemented by sources, destinations,
// formatters and filterers, and the registry that maps configuration names onto them.
// Built-in implementations live in sub-packages and register themselves from init();
// import plugin/plugins to pull them all in.
package plugin

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/drblury/notiflow/internal/runtime/message"
)

// Source produces messages from some origin, for example a SQL query.
type Source interface {
	Name() string
	// GetMessages returns the records for one job step. params holds the step's keys
	// (everything except the source name), e.g. a query string.
	GetMessages(ctx context.Context, params Params) ([]message.Message, error)
}

// Destination transmits a prepared batch. Filtering, level thresholds and formatting happen
// before SendMessages is called; entries are either message.Message values (no formatter was
// bound) or message.Text.
type Destination interface {
	Name() string
	SendMessages(ctx context.Context, entries []message.Entry, subject string, extra Params) error
}

// Formatter renders one message. Implementations must not keep state between calls.
type Formatter interface {
	Format(m message.Message) (string, error)
}

// Filterer decides whether a message proceeds. Implementations must not keep state between calls.
type Filterer interface {
	Filter(m message.Message) bool
}

// SourceFactory builds a named source from its declared parameters.
type SourceFactory func(ctx context.Context, name string, params Params, logger watermill.LoggerAdapter) (Source, error)

// DestinationFactory builds a named destination from its declared parameters.
type DestinationFactory func(ctx context.Context, name string, params Params, logger watermill.LoggerAdapter) (Destination, error)

// FormatterFactory builds a formatter. Formatters take no configuration.
type FormatterFactory func() Formatter

// FiltererFactory builds a filterer. Filterers take no configuration.
type FiltererFactory func() Filterer

// FormatterFunc adapts a function to Formatter.
type FormatterFunc func(m message.Message) (string, error)

func (f FormatterFunc) Format(m message.Message) (string, error) { return f(m) }

// FiltererFunc adapts a predicate to Filterer.
type FiltererFunc func(m message.Message) bool

func (f FiltererFunc) Filter(m message.Message) bool { return f(m) }
