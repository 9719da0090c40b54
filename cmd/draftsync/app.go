package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	draftsync "github.com/goliatone/go-draftsync"
	"github.com/goliatone/go-draftsync/internal/config"
	"github.com/goliatone/go-draftsync/internal/logging"
	"github.com/goliatone/go-draftsync/pkg/activity"
	"github.com/goliatone/go-draftsync/pkg/course"
	"github.com/goliatone/go-draftsync/pkg/state"
)

// app holds the collaborators shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    state.Store
	registry *prometheus.Registry
	metrics  *draftsync.Metrics
	tracer   *sdktrace.TracerProvider
	closers  []func(context.Context) error
}

func newApp(cmd *cobra.Command, cc *commandContext) (*app, error) {
	cfg, err := cc.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}

	switch cfg.Store.Driver {
	case config.DriverSQLite:
		store, err := state.OpenSQLite(cmd.Context(), cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		a.store = store
		a.closers = append(a.closers, func(context.Context) error { return store.Close() })
	default:
		a.store = state.NewMemoryStore()
	}

	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		if a.metrics, err = draftsync.NewMetrics(a.registry, cfg.Metrics.Namespace); err != nil {
			return nil, errors.Join(err, a.close(cmd.Context()))
		}
	}

	if cfg.Tracing.Enabled {
		opts := []stdouttrace.Option{stdouttrace.WithWriter(cmd.ErrOrStderr())}
		if cfg.Tracing.Pretty {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		exporter, err := stdouttrace.New(opts...)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("tracing: %w", err), a.close(cmd.Context()))
		}
		a.tracer = sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
		a.closers = append(a.closers, a.tracer.Shutdown)
	}
	return a, nil
}

// coordinatorOptions wires rules, logging, metrics, tracing and activity
// reporting for a course wizard coordinator.
func (a *app) coordinatorOptions() ([]draftsync.Option, error) {
	rules := course.RuleSet{
		Engine:   a.cfg.Rules.Engine,
		Identity: a.cfg.Rules.Identity,
		Publish:  a.cfg.Rules.Publish,
	}
	opts, err := rules.Options(draftsync.WithEvaluatorLogger(draftsync.NewSlogEvaluatorLogger(a.logger)))
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		draftsync.WithLogger(a.logger),
		draftsync.WithObjectType("course"),
		draftsync.WithActivityHooks(activity.Hooks{activity.HookFunc(a.logActivity)}),
	)
	if a.metrics != nil {
		opts = append(opts, draftsync.WithMetrics(a.metrics))
	}
	if a.tracer != nil {
		opts = append(opts, draftsync.WithTracerProvider(a.tracer))
	}
	return opts, nil
}

func (a *app) logActivity(ctx context.Context, event activity.Event) error {
	a.logger.LogAttrs(ctx, slog.LevelInfo, "activity",
		slog.String("verb", event.Verb),
		slog.String("object_type", event.ObjectType),
		slog.String("object_id", event.ObjectID),
		slog.String("channel", event.Channel),
	)
	return nil
}

// writeMetrics prints the registry in the Prometheus text format. It does
// nothing when metrics are disabled.
func (a *app) writeMetrics(w io.Writer) error {
	if a.registry == nil {
		return nil
	}
	families, err := a.registry.Gather()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	encoder := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		if err := encoder.Encode(family); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}
	return nil
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// withApp builds the app, runs fn and releases resources afterwards.
func withApp(cmd *cobra.Command, cc *commandContext, fn func(*app) error) (err error) {
	a, err := newApp(cmd, cc)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.close(context.WithoutCancel(cmd.Context())))
	}()
	if err = fn(a); err != nil {
		return err
	}
	return a.writeMetrics(cmd.OutOrStdout())
}
