package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/drblury/notiflow/internal/runtime/logging"
	"github.com/drblury/notiflow/internal/runtime/runner"
)

// observability holds the metric registry and tracer provider of one run.
type observability struct {
	registry       *prometheus.Registry
	metrics        *runner.Metrics
	tracerProvider trace.TracerProvider
	textfile       string
	server         *http.Server
	shutdowns      []func(context.Context) error
	logger         logging.ServiceLogger
}

func (a *app) observability(ctx context.Context, cmd *cobra.Command, logger logging.ServiceLogger) (*observability, error) {
	reg := prometheus.NewRegistry()

	o := &observability{
		registry:       reg,
		metrics:        runner.NewMetrics(reg),
		tracerProvider: noop.NewTracerProvider(),
		textfile:       a.v.GetString(keyMetricsTextfile),
		logger:         logger,
	}
	if err := o.metrics.Register(); err != nil {
		return nil, err
	}

	if a.v.GetBool(keyTrace) {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(cmd.ErrOrStderr()), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
		o.tracerProvider = tp
		o.shutdowns = append(o.shutdowns, tp.Shutdown)
	}

	if addr := a.v.GetString(keyMetricsAddr); addr != "" {
		if err := o.serve(ctx, addr); err != nil {
			return nil, errors.Join(err, o.shutdown(ctx))
		}
	}
	return o, nil
}

func (o *observability) serve(ctx context.Context, addr string) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{}))
	o.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := o.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			o.logger.Error("Metrics server stopped", err, logging.LogFields{"addr": addr})
		}
	}()
	o.logger.Info("Serving metrics", logging.LogFields{"addr": ln.Addr().String()})
	o.shutdowns = append(o.shutdowns, o.server.Shutdown)
	return nil
}

// shutdown writes the textfile, stops the metrics server and flushes spans.
func (o *observability) shutdown(ctx context.Context) error {
	var errs []error
	if o.textfile != "" {
		errs = append(errs, runner.WriteTextfile(o.textfile, o.registry))
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for _, fn := range o.shutdowns {
		errs = append(errs, fn(ctx))
	}
	return errors.Join(errs...)
}
