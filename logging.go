package draftsync

import (
	"context"
	"log/slog"
	"time"
)

// EvaluatorLogEvent describes a rule evaluation attempt for logging.
type EvaluatorLogEvent struct {
	Rule     string
	Engine   string
	Expr     string
	Trigger  string
	Duration time.Duration
	Err      error
}

// EvaluatorLogger records evaluator events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

// SaveLogEvent describes one RequestSave decision or persistence call.
type SaveLogEvent struct {
	Trigger    Trigger
	Status     Status
	ResourceID string
	Revision   uint64
	Duration   time.Duration
	Message    string
	Err        error
}

// SaveLogger records coordinator events.
type SaveLogger interface {
	LogSave(SaveLogEvent)
}

// SaveLoggerFunc adapts a function to SaveLogger.
type SaveLoggerFunc func(SaveLogEvent)

// LogSave implements SaveLogger.
func (f SaveLoggerFunc) LogSave(event SaveLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopSaveLogger struct{}

func (noopSaveLogger) LogSave(SaveLogEvent) {}

// NewSlogSaveLogger writes coordinator events to logger. Failures log at warn
// level, skips and drops at debug, everything else at info.
func NewSlogSaveLogger(logger *slog.Logger) SaveLogger {
	if logger == nil {
		return noopSaveLogger{}
	}
	return SaveLoggerFunc(func(event SaveLogEvent) {
		attrs := []slog.Attr{
			slog.String("trigger", event.Trigger.String()),
			slog.String("status", string(event.Status)),
			slog.Uint64("revision", event.Revision),
		}
		if event.ResourceID != "" {
			attrs = append(attrs, slog.String("resource_id", event.ResourceID))
		}
		if event.Duration > 0 {
			attrs = append(attrs, slog.Duration("duration", event.Duration))
		}
		if event.Err != nil {
			attrs = append(attrs, slog.String("error", event.Err.Error()))
		}
		msg := event.Message
		if msg == "" {
			msg = "draft save"
		}
		level := slog.LevelInfo
		switch {
		case event.Err != nil:
			level = slog.LevelWarn
		case event.Status == StatusSkipped || event.Status == StatusDropped:
			level = slog.LevelDebug
		}
		logger.LogAttrs(context.Background(), level, msg, attrs...)
	})
}

// NewSlogEvaluatorLogger writes rule evaluations to logger at debug level,
// or warn when the evaluation failed.
func NewSlogEvaluatorLogger(logger *slog.Logger) EvaluatorLogger {
	if logger == nil {
		return noopEvaluatorLogger{}
	}
	return EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		attrs := []slog.Attr{
			slog.String("rule", event.Rule),
			slog.String("engine", event.Engine),
			slog.String("trigger", event.Trigger),
			slog.Duration("duration", event.Duration),
		}
		level := slog.LevelDebug
		if event.Err != nil {
			level = slog.LevelWarn
			attrs = append(attrs, slog.String("error", event.Err.Error()))
		}
		logger.LogAttrs(context.Background(), level, "rule evaluated", attrs...)
	})
}
