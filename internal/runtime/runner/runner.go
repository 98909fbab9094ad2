// Package runner executes jobs: it gathers messages from a job's sources and dispatches them to
// its send targets, one job at a time.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/drblury/notiflow/internal/runtime/config"
	"github.com/drblury/notiflow/internal/runtime/delivery"
	errspkg "github.com/drblury/notiflow/internal/runtime/errors"
	"github.com/drblury/notiflow/internal/runtime/ids"
	"github.com/drblury/notiflow/internal/runtime/logging"
	"github.com/drblury/notiflow/internal/runtime/message"
	"github.com/drblury/notiflow/plugin"
)

const tracerName = "github.com/drblury/notiflow/runner"

// Catalog is the read-only view of a loaded configuration the runner needs.
// *config.Config implements it.
type Catalog interface {
	Job(name string) (config.Job, bool)
	JobNames() []string
	Source(name string) (plugin.Source, bool)
	Destination(name string) (delivery.Endpoint, bool)
	Group(name string) (delivery.Group, bool)
}

// JobResult is the outcome of one job run.
type JobResult struct {
	Job       string
	RunID     string
	State     State
	Gathered  int
	StartedAt time.Time
	Duration  time.Duration
	Err       error
}

// Runner runs jobs against a catalog. Jobs run sequentially and every plugin call blocks.
type Runner struct {
	catalog Catalog
	logger  logging.ServiceLogger
	hooks   JobHooks
	metrics *Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// Option customises a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Lifecycle events are logged through LoggingHooks.
func WithLogger(l logging.ServiceLogger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithHooks adds lifecycle hooks; repeated calls are merged in order.
func WithHooks(h JobHooks) Option {
	return func(r *Runner) { r.hooks = r.hooks.Merge(h) }
}

// WithMetrics records job, source and delivery statistics in m.
func WithMetrics(m *Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithTracerProvider selects where spans go. The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Runner) { r.tracer = tp.Tracer(tracerName) }
}

// New creates a Runner over catalog.
func New(catalog Catalog, opts ...Option) (*Runner, error) {
	if catalog == nil {
		return nil, errspkg.ErrConfigRequired
	}
	r := &Runner{
		catalog: catalog,
		logger:  logging.NopLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(tracerName)
	}
	hooks := LoggingHooks(r.logger).Merge(MetricsHooks(r.metrics))
	r.hooks = hooks.Merge(r.hooks)
	return r, nil
}

// RunAll runs the named jobs in the given order, or every job in declaration order when names is
// empty. A failing job does not stop the ones after it; all failures are joined into the
// returned error.
func (r *Runner) RunAll(ctx context.Context, names ...string) ([]JobResult, error) {
	if len(names) == 0 {
		names = r.catalog.JobNames()
	}
	results := make([]JobResult, 0, len(names))
	var errs []error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("job %q: %w", name, err))
			results = append(results, JobResult{Job: name, State: StateFailed, Err: err})
			continue
		}
		res := r.RunSingleJob(ctx, name)
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("job %q: %w", name, res.Err))
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// RunSingleJob gathers the job's messages and dispatches them to its targets. The returned
// result's Err is set when the job ended in StateFailed.
func (r *Runner) RunSingleJob(ctx context.Context, name string) JobResult {
	res := JobResult{Job: name, State: StateIdle, RunID: ids.New(), StartedAt: r.now()}

	job, ok := r.catalog.Job(name)
	if !ok {
		res.State = StateFailed
		res.Err = errspkg.JobNotFound(name)
		r.hooks.onError(r.jobContext(ctx, res), res.Err)
		return res
	}

	ctx, span := r.tracer.Start(ctx, "job "+name, trace.WithAttributes(
		attribute.String("notiflow.job", name),
		attribute.String("notiflow.run_id", res.RunID),
	))
	defer span.End()

	r.hooks.onStart(r.jobContext(ctx, res))

	res.State = StateGathering
	batch, err := r.gather(ctx, job)
	res.Gathered = len(batch)
	if err == nil {
		res.State = StateDispatching
		err = r.dispatch(ctx, job, message.Entries(batch))
	}

	res.Duration = r.now().Sub(res.StartedAt)
	span.SetAttributes(attribute.Int("notiflow.gathered", res.Gathered))
	if err != nil {
		res.Err = err
		jc := r.jobContext(ctx, res)
		res.State = StateFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.hooks.onError(jc, err)
		return res
	}

	res.State = StateDone
	r.hooks.onDone(r.jobContext(ctx, res))
	return res
}

func (r *Runner) jobContext(ctx context.Context, res JobResult) JobContext {
	return JobContext{
		Job:       res.Job,
		RunID:     res.RunID,
		Context:   ctx,
		StartedAt: res.StartedAt,
		Duration:  res.Duration,
		Gathered:  res.Gathered,
		State:     res.State,
	}
}

// gather queries each source in declaration order and concatenates the results.
func (r *Runner) gather(ctx context.Context, job config.Job) ([]message.Message, error) {
	var batch []message.Message
	for _, call := range job.Sources {
		src, ok := r.catalog.Source(call.Service)
		if !ok {
			return batch, errspkg.SourceNotFound(call.Service)
		}
		msgs, err := r.query(ctx, job.Name, src, call)
		if err != nil {
			return batch, err
		}
		batch = append(batch, msgs...)
	}
	return batch, nil
}

func (r *Runner) query(ctx context.Context, job string, src plugin.Source, call config.SourceCall) ([]message.Message, error) {
	ctx, span := r.tracer.Start(ctx, "source "+call.Service, trace.WithAttributes(
		attribute.String("notiflow.source", call.Service),
	))
	defer span.End()

	msgs, err := src.GetMessages(ctx, call.Params.Clone())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("source %q: %w", call.Service, err)
	}
	span.SetAttributes(attribute.Int("notiflow.messages", len(msgs)))
	if r.metrics != nil {
		r.metrics.RecordGathered(job, call.Service, len(msgs))
	}
	r.logger.Debug("Messages gathered", logging.LogFields{
		"job":      job,
		"source":   call.Service,
		"messages": len(msgs),
	})
	return msgs, nil
}

// dispatch sends the batch to every target in declaration order. A message group name takes
// precedence over a destination with the same name.
func (r *Runner) dispatch(ctx context.Context, job config.Job, batch []message.Entry) error {
	for _, target := range job.Targets {
		if group, ok := r.catalog.Group(target.Name); ok {
			if err := r.dispatchGroup(ctx, job.Name, group, target, batch); err != nil {
				return err
			}
			continue
		}
		if ep, ok := r.catalog.Destination(target.Name); ok {
			if err := r.emit(ctx, job.Name, ep, batch, job.Name, target.Extra); err != nil {
				return err
			}
			continue
		}
		return errspkg.TargetNotFound(target.Name)
	}
	return nil
}

// dispatchGroup emits every receiver payload of group. Receivers are independent: a failed
// emit does not stop the remaining receivers, but fails the job afterwards.
func (r *Runner) dispatchGroup(ctx context.Context, job string, group delivery.Group, target config.Target, batch []message.Entry) error {
	payloads, err := group.Deliver(batch, job)
	if err != nil {
		return err
	}
	var errs []error
	for _, p := range payloads {
		ep, ok := r.catalog.Destination(p.Destination)
		if !ok {
			return errors.Join(append(errs, errspkg.DestinationNotFound(p.Destination))...)
		}
		if err := r.emit(ctx, job, ep, p.Entries, p.Subject, p.Extra.Merge(target.Extra)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) emit(ctx context.Context, job string, ep delivery.Endpoint, entries []message.Entry, subject string, extra plugin.Params) error {
	ctx, span := r.tracer.Start(ctx, "emit "+ep.Name(), trace.WithAttributes(
		attribute.String("notiflow.destination", ep.Name()),
		attribute.Int("notiflow.entries", len(entries)),
	))
	defer span.End()

	err := ep.Emit(ctx, entries, subject, extra)
	if r.metrics != nil {
		r.metrics.RecordDelivery(ep.Name(), err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Error("Delivery failed", err, logging.LogFields{"job": job, "destination": ep.Name()})
		return err
	}
	r.logger.Debug("Delivered", logging.LogFields{"job": job, "destination": ep.Name(), "entries": len(entries)})
	return nil
}

func (h JobHooks) onStart(ctx JobContext) {
	if h.OnJobStart != nil {
		h.OnJobStart(ctx)
	}
}

func (h JobHooks) onDone(ctx JobContext) {
	if h.OnJobDone != nil {
		h.OnJobDone(ctx)
	}
}

func (h JobHooks) onError(ctx JobContext, err error) {
	if h.OnJobError != nil {
		h.OnJobError(ctx, err)
	}
}
