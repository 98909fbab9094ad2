package notiflow

import (
	"context"

	configpkg "github.com/drblury/notiflow/internal/runtime/config"
	"github.com/drblury/notiflow/internal/runtime/delivery"
	errspkg "github.com/drblury/notiflow/internal/runtime/errors"
	"github.com/drblury/notiflow/internal/runtime/jsoncodec"
	levelpkg "github.com/drblury/notiflow/internal/runtime/level"
	loggingpkg "github.com/drblury/notiflow/internal/runtime/logging"
	messagepkg "github.com/drblury/notiflow/internal/runtime/message"
	metadatapkg "github.com/drblury/notiflow/internal/runtime/metadata"
	runnerpkg "github.com/drblury/notiflow/internal/runtime/runner"
	"github.com/drblury/notiflow/plugin"
)

type (
	Config       = configpkg.Config
	ConfigOption = configpkg.Option
	Job          = configpkg.Job
	Target       = configpkg.Target
	SourceCall   = configpkg.SourceCall

	Runner       = runnerpkg.Runner
	RunnerOption = runnerpkg.Option
	JobResult    = runnerpkg.JobResult
	JobState     = runnerpkg.State
	JobContext   = runnerpkg.JobContext
	JobHooks     = runnerpkg.JobHooks
	Metrics      = runnerpkg.Metrics

	Level   = levelpkg.Level
	Message = messagepkg.Message
	Fields  = messagepkg.Fields
	Field   = messagepkg.Field
	Entry   = messagepkg.Entry
	Text    = messagepkg.Text

	Binding  = delivery.Binding
	Endpoint = delivery.Endpoint
	Group    = delivery.Group
	Receiver = delivery.Receiver

	Params      = plugin.Params
	Registry    = plugin.Registry
	Source      = plugin.Source
	Destination = plugin.Destination
	Formatter   = plugin.Formatter
	Filterer    = plugin.Filterer

	Metadata = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger
	LogOptions    = loggingpkg.Options

	ConfigValidationError    = errspkg.ConfigValidationError
	ComponentNotFoundError   = errspkg.ComponentNotFoundError
	UnknownLevelError        = errspkg.UnknownLevelError
	InvalidSourceOutputError = errspkg.InvalidSourceOutputError
	InvalidParamError        = errspkg.InvalidParamError
	DeliveryError            = errspkg.DeliveryError
	NotFoundError            = errspkg.NotFoundError
)

// Severity levels.
const (
	LevelNotSet   = levelpkg.NotSet
	LevelDebug    = levelpkg.Debug
	LevelInfo     = levelpkg.Info
	LevelWarning  = levelpkg.Warning
	LevelError    = levelpkg.Error
	LevelCritical = levelpkg.Critical
)

// Job states reported in JobResult.
const (
	JobIdle        = runnerpkg.StateIdle
	JobGathering   = runnerpkg.StateGathering
	JobDispatching = runnerpkg.StateDispatching
	JobDone        = runnerpkg.StateDone
	JobFailed      = runnerpkg.StateFailed
)

var (
	ParseConfig    = configpkg.Parse
	WithRegistry   = configpkg.WithRegistry
	WithLookupEnv  = configpkg.WithLookupEnv
	WithBaseDir    = configpkg.WithBaseDir
	WithLogger     = configpkg.WithLogger
	RequiredConfig = configpkg.RequiredSections

	WithRunnerLogger   = runnerpkg.WithLogger
	WithHooks          = runnerpkg.WithHooks
	WithMetrics        = runnerpkg.WithMetrics
	WithTracerProvider = runnerpkg.WithTracerProvider
	NewMetrics         = runnerpkg.NewMetrics
	LoggingHooks       = runnerpkg.LoggingHooks
	MetricsHooks       = runnerpkg.MetricsHooks
	WriteTextfile      = runnerpkg.WriteTextfile

	ParseLevel       = levelpkg.Parse
	NewMessage       = messagepkg.New
	NewFields        = messagepkg.NewFields
	FieldsFromMap    = messagepkg.FromMap
	MessageFromPairs = messagepkg.FromPairs

	DefaultRegistry     = plugin.DefaultRegistry
	NewRegistry         = plugin.NewRegistry
	RegisterSource      = plugin.RegisterSource
	RegisterDestination = plugin.RegisterDestination
	RegisterFormatter   = plugin.RegisterFormatter
	RegisterFilterer    = plugin.RegisterFilterer

	NewLogger            = loggingpkg.New
	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger

	NewMetadata = metadatapkg.New

	Marshal   = jsoncodec.Marshal
	Unmarshal = jsoncodec.Unmarshal

	ErrUnknownLevel        = errspkg.ErrUnknownLevel
	ErrComponentNotFound   = errspkg.ErrComponentNotFound
	ErrConfigInvalid       = errspkg.ErrConfigInvalid
	ErrJobNotFound         = errspkg.ErrJobNotFound
	ErrSourceNotFound      = errspkg.ErrSourceNotFound
	ErrDestinationNotFound = errspkg.ErrDestinationNotFound
	ErrGroupNotFound       = errspkg.ErrGroupNotFound
	ErrTargetNotFound      = errspkg.ErrTargetNotFound
	ErrInvalidSourceOutput = errspkg.ErrInvalidSourceOutput
	ErrDeliveryFailed      = errspkg.ErrDeliveryFailed
	ErrInvalidParam        = errspkg.ErrInvalidParam
)

// Load reads and instantiates the configuration at path. Call Validate on the result to
// check the required sections.
func Load(ctx context.Context, path string, opts ...ConfigOption) (*Config, error) {
	return configpkg.Load(ctx, path, opts...)
}

// NewRunner creates a job runner over cfg.
func NewRunner(cfg *Config, opts ...RunnerOption) (*Runner, error) {
	if cfg == nil {
		return nil, errspkg.ErrConfigRequired
	}
	return runnerpkg.New(cfg, opts...)
}

// Run loads the configuration at path and runs the named jobs, or every job when none are
// named. Components are closed before Run returns.
func Run(ctx context.Context, path string, jobs ...string) (results []JobResult, err error) {
	cfg, err := Load(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := cfg.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	r, err := NewRunner(cfg)
	if err != nil {
		return nil, err
	}
	return r.RunAll(ctx, jobs...)
}
