package runner

import (
	"context"
	"time"

	"github.com/drblury/notiflow/internal/runtime/logging"
)

// JobContext describes one job run to hooks.
type JobContext struct {
	// Job is the name of the job being run.
	Job string
	// RunID identifies this run; it is a ULID.
	RunID string
	// Context is the context the run executes under.
	Context context.Context
	// StartedAt is when the run left the idle state.
	StartedAt time.Time
	// Duration is how long the run took (only set in OnJobDone and OnJobError).
	Duration time.Duration
	// Gathered is the number of messages collected from sources so far.
	Gathered int
	// State is the state the run ended in, or the state it failed in for OnJobError.
	State State
}

// JobHooks defines callbacks for job lifecycle events.
// All hooks are optional - nil hooks are simply not called.
type JobHooks struct {
	// OnJobStart is called before the first source is queried.
	OnJobStart func(ctx JobContext)

	// OnJobDone is called after every send target was processed.
	OnJobDone func(ctx JobContext)

	// OnJobError is called when the run fails. State is where it failed.
	OnJobError func(ctx JobContext, err error)
}

// Merge combines two JobHooks, creating a new JobHooks that calls both.
// The hooks from 'other' are called after the hooks from 'h'.
func (h JobHooks) Merge(other JobHooks) JobHooks {
	return JobHooks{
		OnJobStart: chain(h.OnJobStart, other.OnJobStart),
		OnJobDone:  chain(h.OnJobDone, other.OnJobDone),
		OnJobError: chainError(h.OnJobError, other.OnJobError),
	}
}

func chain(a, b func(JobContext)) func(JobContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx JobContext) {
		a(ctx)
		b(ctx)
	}
}

func chainError(a, b func(JobContext, error)) func(JobContext, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx JobContext, err error) {
		a(ctx, err)
		b(ctx, err)
	}
}

// LoggingHooks returns hooks that log job lifecycle events.
func LoggingHooks(logger logging.ServiceLogger) JobHooks {
	return JobHooks{
		OnJobStart: func(ctx JobContext) {
			logger.Info("Job started", logging.LogFields{
				"job":    ctx.Job,
				"run_id": ctx.RunID,
			})
		},
		OnJobDone: func(ctx JobContext) {
			logger.Info("Job completed", logging.LogFields{
				"job":         ctx.Job,
				"run_id":      ctx.RunID,
				"gathered":    ctx.Gathered,
				"duration_ms": ctx.Duration.Milliseconds(),
				"state":       ctx.State.String(),
			})
		},
		OnJobError: func(ctx JobContext, err error) {
			logger.Error("Job failed", err, logging.LogFields{
				"job":         ctx.Job,
				"run_id":      ctx.RunID,
				"gathered":    ctx.Gathered,
				"duration_ms": ctx.Duration.Milliseconds(),
				"state":       ctx.State.String(),
			})
		},
	}
}

// MetricsHooks returns hooks that record job outcomes in m.
func MetricsHooks(m *Metrics) JobHooks {
	if m == nil {
		return JobHooks{}
	}
	return JobHooks{
		OnJobDone: func(ctx JobContext) {
			m.RecordJob(ctx.Job, StateDone, ctx.Duration)
		},
		OnJobError: func(ctx JobContext, err error) {
			m.RecordJob(ctx.Job, StateFailed, ctx.Duration)
		},
	}
}
