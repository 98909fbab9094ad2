package plugin

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill"

	errspkg "github.com/drblury/notiflow/internal/runtime/errors"
)

// BuiltinNamespace prefixes the names of shipped components. A name that is not registered as
// given is retried under this namespace, so configuration can say "console" instead of
// "notiflow.console".
const BuiltinNamespace = "notiflow"

// Builtin returns the qualified name of a shipped component.
func Builtin(name string) string {
	return BuiltinNamespace + "." + name
}

// Registry maps qualified component names to factories, one table per capability.
// Built-in packages register into DefaultRegistry from init(); extension modules receive the
// registry they should populate.
type Registry struct {
	mu           sync.RWMutex
	sources      map[string]SourceFactory
	destinations map[string]DestinationFactory
	formatters   map[string]FormatterFactory
	filterers    map[string]FiltererFactory
}

// DefaultRegistry is the global component registry.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sources:      make(map[string]SourceFactory),
		destinations: make(map[string]DestinationFactory),
		formatters:   make(map[string]FormatterFactory),
		filterers:    make(map[string]FiltererFactory),
	}
}

// Clone returns an independent copy, useful when a run adds extension modules without touching
// DefaultRegistry.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := NewRegistry()
	for k, v := range r.sources {
		c.sources[k] = v
	}
	for k, v := range r.destinations {
		c.destinations[k] = v
	}
	for k, v := range r.formatters {
		c.formatters[k] = v
	}
	for k, v := range r.filterers {
		c.filterers[k] = v
	}
	return c
}

// RegisterSource adds a source factory under a qualified name.
func (r *Registry) RegisterSource(name string, factory SourceFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[name] = factory
}

// RegisterDestination adds a destination factory under a qualified name.
func (r *Registry) RegisterDestination(name string, factory DestinationFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destinations[name] = factory
}

// RegisterFormatter adds a formatter factory under a qualified name.
func (r *Registry) RegisterFormatter(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formatters[name] = factory
}

// RegisterFilterer adds a filterer factory under a qualified name.
func (r *Registry) RegisterFilterer(name string, factory FiltererFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filterers[name] = factory
}

// BuildSource resolves className and constructs the source called name.
func (r *Registry) BuildSource(ctx context.Context, className, name string, params Params, logger watermill.LoggerAdapter) (Source, error) {
	r.mu.RLock()
	factory, ok := lookup(r.sources, className)
	r.mu.RUnlock()
	if !ok {
		return nil, errspkg.ComponentNotFoundError{Capability: CapabilitySource.String(), Name: className}
	}
	return factory(ctx, name, params.Clone(), nopIfNil(logger))
}

// BuildDestination resolves className and constructs the destination called name.
func (r *Registry) BuildDestination(ctx context.Context, className, name string, params Params, logger watermill.LoggerAdapter) (Destination, error) {
	r.mu.RLock()
	factory, ok := lookup(r.destinations, className)
	r.mu.RUnlock()
	if !ok {
		return nil, errspkg.ComponentNotFoundError{Capability: CapabilityDestination.String(), Name: className}
	}
	return factory(ctx, name, params.Clone(), nopIfNil(logger))
}

// Formatter resolves and constructs a formatter.
func (r *Registry) Formatter(name string) (Formatter, error) {
	r.mu.RLock()
	factory, ok := lookup(r.formatters, name)
	r.mu.RUnlock()
	if !ok {
		return nil, errspkg.ComponentNotFoundError{Capability: CapabilityFormatter.String(), Name: name}
	}
	return factory(), nil
}

// Filterer resolves and constructs a filterer.
func (r *Registry) Filterer(name string) (Filterer, error) {
	r.mu.RLock()
	factory, ok := lookup(r.filterers, name)
	r.mu.RUnlock()
	if !ok {
		return nil, errspkg.ComponentNotFoundError{Capability: CapabilityFilterer.String(), Name: name}
	}
	return factory(), nil
}

// Has reports whether name resolves for the capability.
func (r *Registry) Has(capability Capability, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch capability {
	case CapabilitySource:
		_, ok := lookup(r.sources, name)
		return ok
	case CapabilityDestination:
		_, ok := lookup(r.destinations, name)
		return ok
	case CapabilityFormatter:
		_, ok := lookup(r.formatters, name)
		return ok
	case CapabilityFilterer:
		_, ok := lookup(r.filterers, name)
		return ok
	}
	return false
}

// Names returns the sorted qualified names registered for the capability.
func (r *Registry) Names(capability Capability) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	switch capability {
	case CapabilitySource:
		names = keys(r.sources)
	case CapabilityDestination:
		names = keys(r.destinations)
	case CapabilityFormatter:
		names = keys(r.formatters)
	case CapabilityFilterer:
		names = keys(r.filterers)
	}
	sort.Strings(names)
	return names
}

// lookup tries the name as given, then under the built-in namespace.
func lookup[F any](table map[string]F, name string) (F, bool) {
	if f, ok := table[name]; ok {
		return f, true
	}
	if !strings.HasPrefix(name, BuiltinNamespace+".") {
		if f, ok := table[Builtin(name)]; ok {
			return f, true
		}
	}
	var zero F
	return zero, false
}

func keys[F any](table map[string]F) []string {
	out := make([]string, 0, len(table))
	for k := range table {
		out = append(out, k)
	}
	return out
}

func nopIfNil(logger watermill.LoggerAdapter) watermill.LoggerAdapter {
	if logger == nil {
		return watermill.NopLogger{}
	}
	return logger
}

// RegisterSource adds a source factory to the default registry.
func RegisterSource(name string, factory SourceFactory) {
	DefaultRegistry.RegisterSource(name, factory)
}

// RegisterDestination adds a destination factory to the default registry.
func RegisterDestination(name string, factory DestinationFactory) {
	DefaultRegistry.RegisterDestination(name, factory)
}

// RegisterFormatter adds a formatter factory to the default registry.
func RegisterFormatter(name string, factory FormatterFactory) {
	DefaultRegistry.RegisterFormatter(name, factory)
}

// RegisterFilterer adds a filterer factory to the default registry.
func RegisterFilterer(name string, factory FiltererFactory) {
	DefaultRegistry.RegisterFilterer(name, factory)
}
