package draftsync

import (
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/goliatone/go-draftsync"

// Option configures a Coordinator.
type Option func(*coordinatorConfig)

type coordinatorConfig struct {
	identity   *Rule
	publish    *Rule
	logger     SaveLogger
	metrics    *Metrics
	tracer     trace.Tracer
	activity   activityConfig
	objectType string
}

func applyOptions(opts []Option) coordinatorConfig {
	cfg := coordinatorConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = noopSaveLogger{}
	}
	if cfg.tracer == nil {
		cfg.tracer = otel.Tracer(instrumentationName)
	}
	return cfg
}

// WithIdentityRule sets the rule a new draft must pass before its first save.
// Without one, any dirty session is saved.
func WithIdentityRule(rule *Rule) Option {
	return func(cfg *coordinatorConfig) {
		cfg.identity = rule
	}
}

// WithPublishRule sets the rule checked by Publish before calling the client.
func WithPublishRule(rule *Rule) Option {
	return func(cfg *coordinatorConfig) {
		cfg.publish = rule
	}
}

// WithSaveLogger records every coordinator decision.
func WithSaveLogger(logger SaveLogger) Option {
	return func(cfg *coordinatorConfig) {
		if logger == nil {
			cfg.logger = noopSaveLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithLogger is WithSaveLogger for a *slog.Logger.
func WithLogger(logger *slog.Logger) Option {
	return WithSaveLogger(NewSlogSaveLogger(logger))
}

// WithMetrics updates the given collectors.
func WithMetrics(metrics *Metrics) Option {
	return func(cfg *coordinatorConfig) {
		cfg.metrics = metrics
	}
}

// WithTracerProvider creates the coordinator tracer from provider instead of
// the global one.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(cfg *coordinatorConfig) {
		if provider != nil {
			cfg.tracer = provider.Tracer(instrumentationName)
		}
	}
}

// WithObjectType sets the object type used on activity events.
func WithObjectType(objectType string) Option {
	return func(cfg *coordinatorConfig) {
		cfg.objectType = strings.TrimSpace(objectType)
	}
}
