// Package console provides a destination that prints notifications to standard output.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill"

	errspkg "github.com/drblury/notiflow/internal/runtime/errors"
	"github.com/drblury/notiflow/internal/runtime/message"
	"github.com/drblury/notiflow/plugin"
)

// Name is the name this destination registers under.
const Name = "console"

// LegacyName is the class name older configurations use for the console destination.
const LegacyName = "ClsService"

// Stdout and Stderr are the writers behind the "stream" parameter. Tests replace them.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

func init() {
	plugin.RegisterDestination(plugin.Builtin(Name), Factory)
	plugin.RegisterDestination(plugin.Builtin(LegacyName), Factory)
}

// Factory builds a console destination. The "stream" parameter selects stdout (default) or
// stderr.
func Factory(_ context.Context, name string, params plugin.Params, _ watermill.LoggerAdapter) (plugin.Destination, error) {
	stream, err := params.StringOr("stream", "stdout")
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(stream) {
	case "stdout":
		return New(name, Stdout), nil
	case "stderr":
		return New(name, Stderr), nil
	}
	return nil, errspkg.InvalidParamError{Component: name, Param: "stream", Reason: "must be stdout or stderr"}
}

// Destination writes each batch as a block headed by its subject.
type Destination struct {
	name string
	mu   sync.Mutex
	w    io.Writer
}

// New returns a console destination writing to w.
func New(name string, w io.Writer) *Destination {
	return &Destination{name: name, w: w}
}

func (d *Destination) Name() string { return d.name }

// SendMessages writes the block in one piece so concurrent jobs do not interleave lines.
func (d *Destination) SendMessages(_ context.Context, entries []message.Entry, subject string, _ plugin.Params) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	bw := bufio.NewWriter(d.w)
	fmt.Fprintln(bw, "Message from cls service:")
	fmt.Fprintf(bw, "Subject: %s\n", subject)
	for _, e := range entries {
		fmt.Fprintln(bw, e.String())
	}
	fmt.Fprint(bw, "\n\n")
	return bw.Flush()
}
