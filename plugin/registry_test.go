package plugin

import (
	"context"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/drblury/notiflow/internal/runtime/errors"
	"github.com/drblury/notiflow/internal/runtime/message"
)

type mockSource struct {
	name   string
	params Params
}

func (m *mockSource) Name() string { return m.name }

func (m *mockSource) GetMessages(ctx context.Context, params Params) ([]message.Message, error) {
	return nil, nil
}

type mockDestination struct {
	name   string
	params Params
}

func (m *mockDestination) Name() string { return m.name }

func (m *mockDestination) SendMessages(ctx context.Context, entries []message.Entry, subject string, extra Params) error {
	return nil
}

func mockSourceFactory(ctx context.Context, name string, params Params, logger watermill.LoggerAdapter) (Source, error) {
	return &mockSource{name: name, params: params}, nil
}

func mockDestinationFactory(ctx context.Context, name string, params Params, logger watermill.LoggerAdapter) (Destination, error) {
	return &mockDestination{name: name, params: params}, nil
}

func TestNewRegistryIsEmpty(t *testing.T) {
	reg := NewRegistry()
	for _, c := range Capabilities {
		assert.Empty(t, reg.Names(c))
	}
}

func TestRegistry_BuildSourcePassesNameAndParams(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterSource("custom.Warehouse", mockSourceFactory)

	params := Params{"url": "sqlite3://:memory:"}
	src, err := reg.BuildSource(context.Background(), "custom.Warehouse", "warehouse", params, nil)
	require.NoError(t, err)

	mock := src.(*mockSource)
	assert.Equal(t, "warehouse", mock.Name())
	assert.Equal(t, params, mock.params)

	// factories receive a copy
	mock.params["url"] = "changed"
	assert.Equal(t, "sqlite3://:memory:", params["url"])
}

func TestRegistry_ShortNameFallsBackToBuiltinNamespace(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterDestination(Builtin("console"), mockDestinationFactory)

	dest, err := reg.BuildDestination(context.Background(), "console", "stdout", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "stdout", dest.Name())

	dest, err = reg.BuildDestination(context.Background(), "notiflow.console", "stdout", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "stdout", dest.Name())

	assert.True(t, reg.Has(CapabilityDestination, "console"))
	assert.False(t, reg.Has(CapabilitySource, "console"))
}

func TestRegistry_ExactNameWinsOverBuiltin(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterFormatter(Builtin("json"), func() Formatter {
		return FormatterFunc(func(message.Message) (string, error) { return "builtin", nil })
	})
	reg.RegisterFormatter("json", func() Formatter {
		return FormatterFunc(func(message.Message) (string, error) { return "custom", nil })
	})

	f, err := reg.Formatter("json")
	require.NoError(t, err)
	out, err := f.Format(message.Message{})
	require.NoError(t, err)
	assert.Equal(t, "custom", out)
}

func TestRegistry_ComponentNotFound(t *testing.T) {
	reg := NewRegistry()

	tests := []struct {
		capability Capability
		call       func() error
	}{
		{CapabilitySource, func() error {
			_, err := reg.BuildSource(context.Background(), "Foo", "foo", nil, nil)
			return err
		}},
		{CapabilityDestination, func() error {
			_, err := reg.BuildDestination(context.Background(), "Foo", "foo", nil, nil)
			return err
		}},
		{CapabilityFormatter, func() error {
			_, err := reg.Formatter("Foo")
			return err
		}},
		{CapabilityFilterer, func() error {
			_, err := reg.Filterer("Foo")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.capability.String(), func(t *testing.T) {
			err := tt.call()
			require.ErrorIs(t, err, errspkg.ErrComponentNotFound)

			var cnf errspkg.ComponentNotFoundError
			require.ErrorAs(t, err, &cnf)
			assert.Equal(t, "Foo", cnf.Name)
			assert.Equal(t, tt.capability.String(), cnf.Capability)
		})
	}
}

func TestRegistry_FormatterAndFiltererAreBuiltFresh(t *testing.T) {
	reg := NewRegistry()
	calls := 0
	reg.RegisterFilterer("count", func() Filterer {
		calls++
		return FiltererFunc(func(message.Message) bool { return true })
	})

	_, err := reg.Filterer("count")
	require.NoError(t, err)
	_, err = reg.Filterer("count")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRegistry_NamesAreSorted(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterSource("b", mockSourceFactory)
	reg.RegisterSource("a", mockSourceFactory)
	reg.RegisterSource("c", mockSourceFactory)

	assert.Equal(t, []string{"a", "b", "c"}, reg.Names(CapabilitySource))
	assert.Empty(t, reg.Names(Capability("unknown")))
}

func TestRegistry_CloneIsIndependent(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterSource("a", mockSourceFactory)

	clone := reg.Clone()
	clone.RegisterSource("b", mockSourceFactory)

	assert.Equal(t, []string{"a"}, reg.Names(CapabilitySource))
	assert.Equal(t, []string{"a", "b"}, clone.Names(CapabilitySource))
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup

	for i := range 10 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg.RegisterDestination(Builtin("d")+string(rune('a'+i)), mockDestinationFactory)
		}()
		go func() {
			defer wg.Done()
			_ = reg.Names(CapabilityDestination)
			_ = reg.Has(CapabilityDestination, "da")
		}()
	}
	wg.Wait()

	assert.Len(t, reg.Names(CapabilityDestination), 10)
}

func TestDefaultRegistryHelpers(t *testing.T) {
	orig := DefaultRegistry
	t.Cleanup(func() { DefaultRegistry = orig })
	DefaultRegistry = NewRegistry()

	RegisterSource("s", mockSourceFactory)
	RegisterDestination("d", mockDestinationFactory)
	RegisterFormatter("f", func() Formatter { return FormatterFunc(func(m message.Message) (string, error) { return m.String(), nil }) })
	RegisterFilterer("x", func() Filterer { return FiltererFunc(func(message.Message) bool { return false }) })

	assert.True(t, DefaultRegistry.Has(CapabilitySource, "s"))
	assert.True(t, DefaultRegistry.Has(CapabilityDestination, "d"))
	assert.True(t, DefaultRegistry.Has(CapabilityFormatter, "f"))
	assert.True(t, DefaultRegistry.Has(CapabilityFilterer, "x"))
}
