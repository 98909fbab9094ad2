// Package channel provides an in-memory destination backed by a Watermill Go channel pub/sub.
// Programs embedding notiflow subscribe to a channel destination by name to receive its
// notifications in-process.
package channel

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/drblury/notiflow/plugin"
	"github.com/drblury/notiflow/plugin/publish"
)

// Name is the name this destination registers under.
const Name = "channel"

// Factory allows overriding the channel creation for testing.
var Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(cfg, logger)
}

var (
	mu      sync.RWMutex
	pubSubs = map[string]*gochannel.GoChannel{}
)

func init() {
	plugin.RegisterDestination(plugin.Builtin(Name), publish.Factory(Build))
}

// Build creates the pub/sub for a destination and makes it available to Subscribe.
// Parameters: buffer (output channel buffer, default 0) and persistent (keep messages for
// late subscribers, default false).
func Build(_ context.Context, name string, params plugin.Params, logger watermill.LoggerAdapter) (message.Publisher, error) {
	buffer, err := params.IntOr("buffer", 0)
	if err != nil {
		return nil, err
	}
	persistent, err := params.BoolOr("persistent", false)
	if err != nil {
		return nil, err
	}

	ps := Factory(gochannel.Config{
		OutputChannelBuffer: int64(buffer),
		Persistent:          persistent,
	}, logger)

	mu.Lock()
	pubSubs[name] = ps
	mu.Unlock()
	return &publisher{name: name, GoChannel: ps}, nil
}

// Subscribe returns the notifications a channel destination publishes on topic. The topic
// defaults to the destination name unless configured otherwise.
func Subscribe(ctx context.Context, destination, topic string) (<-chan *message.Message, error) {
	mu.RLock()
	ps, ok := pubSubs[destination]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("channel destination %q is not configured", destination)
	}
	return ps.Subscribe(ctx, topic)
}

// publisher forgets its pub/sub on close so a reloaded configuration can reuse the name.
type publisher struct {
	name string
	*gochannel.GoChannel
}

func (p *publisher) Close() error {
	mu.Lock()
	if pubSubs[p.name] == p.GoChannel {
		delete(pubSubs, p.name)
	}
	mu.Unlock()
	return p.GoChannel.Close()
}
