package delivery

import (
	"fmt"

	"github.com/drblury/notiflow/internal/runtime/message"
	"github.com/drblury/notiflow/plugin"
)

// Receiver is one destination binding inside a message group.
type Receiver struct {
	// Dest names the destination the payload is for.
	Dest    string
	Binding Binding
	// Extra holds the remaining declared keys, passed through to SendMessages.
	Extra plugin.Params
}

// Delivery is the payload a receiver produced for one destination.
type Delivery struct {
	Destination string
	Subject     string
	Entries     []message.Entry
	Extra       plugin.Params
}

// Deliver filters and formats entries with the receiver's own binding.
func (r Receiver) Deliver(entries []message.Entry, subject string) (Delivery, error) {
	prepared, err := r.Binding.Prepare(entries)
	if err != nil {
		return Delivery{}, fmt.Errorf("receiver %q: %w", r.Dest, err)
	}
	return Delivery{
		Destination: r.Dest,
		Subject:     subject,
		Entries:     prepared,
		Extra:       r.Extra.Clone(),
	}, nil
}

// Group is a named, ordered set of receivers.
type Group struct {
	Name      string
	Receivers []Receiver
}

// Deliver produces one independent payload per receiver, in declaration order. It does not
// send anything.
func (g Group) Deliver(entries []message.Entry, subject string) ([]Delivery, error) {
	out := make([]Delivery, 0, len(g.Receivers))
	for _, r := range g.Receivers {
		d, err := r.Deliver(entries, subject)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", g.Name, err)
		}
		out = append(out, d)
	}
	return out, nil
}
