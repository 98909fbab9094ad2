// Package delivery implements the filter, threshold, format and send sequence shared by every
// destination, and the fan-out of one batch across the receivers of a message group.
package delivery

import (
	"context"
	"fmt"

	errspkg "github.com/drblury/notiflow/internal/runtime/errors"
	"github.com/drblury/notiflow/internal/runtime/level"
	"github.com/drblury/notiflow/internal/runtime/message"
	"github.com/drblury/notiflow/plugin"
)

// Binding holds what is applied to a batch before it reaches a destination.
type Binding struct {
	// Level drops messages ranked below it. The zero value keeps everything.
	Level level.Level
	// Formatter renders each surviving message. Nil leaves messages unrendered.
	Formatter plugin.Formatter
	// Filterers must all accept a message for it to survive.
	Filterers []plugin.Filterer
}

// Filter keeps the messages accepted by every filterer and ranked at or above the threshold.
// Rendered text always survives.
func (b Binding) Filter(entries []message.Entry) []message.Entry {
	out := make([]message.Entry, 0, len(entries))
	for _, e := range entries {
		m, ok := e.(message.Message)
		if !ok {
			out = append(out, e)
			continue
		}
		if b.accepts(m) && m.Rank().Allows(b.Level) {
			out = append(out, m)
		}
	}
	return out
}

// accepts evaluates every filterer; the outcome does not depend on their order.
func (b Binding) accepts(m message.Message) bool {
	keep := true
	for _, f := range b.Filterers {
		if !f.Filter(m) {
			keep = false
		}
	}
	return keep
}

// Format renders each message with the bound formatter. Without a formatter the batch is
// returned as is; rendered text is never formatted twice.
func (b Binding) Format(entries []message.Entry) ([]message.Entry, error) {
	if b.Formatter == nil {
		return entries, nil
	}
	out := make([]message.Entry, len(entries))
	for i, e := range entries {
		m, ok := e.(message.Message)
		if !ok {
			out[i] = e
			continue
		}
		text, err := b.Formatter.Format(m)
		if err != nil {
			return nil, fmt.Errorf("format message %d: %w", i, err)
		}
		out[i] = message.Text(text)
	}
	return out, nil
}

// Prepare runs Filter then Format.
func (b Binding) Prepare(entries []message.Entry) ([]message.Entry, error) {
	return b.Format(b.Filter(entries))
}

// Endpoint is a destination together with the binding declared for it in the destinations
// section.
type Endpoint struct {
	Destination plugin.Destination
	Binding     Binding
}

// Name returns the destination name.
func (e Endpoint) Name() string { return e.Destination.Name() }

// Emit filters, thresholds and formats entries with the endpoint's binding and hands the result
// to the destination. Any failure is reported as a DeliveryError for this destination.
func (e Endpoint) Emit(ctx context.Context, entries []message.Entry, subject string, extra plugin.Params) error {
	prepared, err := e.Binding.Prepare(entries)
	if err != nil {
		return errspkg.NewDeliveryError(e.Name(), err)
	}
	if extra == nil {
		extra = plugin.Params{}
	}
	return errspkg.NewDeliveryError(e.Name(), e.Destination.SendMessages(ctx, prepared, subject, extra))
}
