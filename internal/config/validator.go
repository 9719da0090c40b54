package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError is a single invalid setting.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// Is reports ErrInvalid so callers do not need the concrete type.
func (e ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// ValidationErrors collects every invalid setting found by Validate.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidDrivers lists the supported store drivers.
func ValidDrivers() []string {
	return []string{DriverMemory, DriverSQLite}
}

// ValidEngines lists the supported rule engines.
func ValidEngines() []string {
	return []string{"expr", "cel", "js"}
}

// ValidLogLevels lists the accepted log levels.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats lists the accepted log formats.
func ValidLogFormats() []string {
	return []string{"text", "json"}
}

// Validate checks every section and returns all failures found.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors

	if c.Autosave.Enabled && c.Autosave.Interval <= 0 {
		errs = append(errs, ValidationError{
			Field:   "autosave.interval",
			Value:   c.Autosave.Interval,
			Message: "must be positive when autosave is enabled",
		})
	}

	if !slices.Contains(ValidDrivers(), c.Store.Driver) {
		errs = append(errs, ValidationError{
			Field:   "store.driver",
			Value:   c.Store.Driver,
			Message: fmt.Sprintf("must be one of %s", strings.Join(ValidDrivers(), ", ")),
		})
	}
	if c.Store.Driver == DriverSQLite && c.Store.Path == "" {
		errs = append(errs, ValidationError{
			Field:   "store.path",
			Value:   c.Store.Path,
			Message: "is required for the sqlite driver",
		})
	}

	if !slices.Contains(ValidEngines(), c.Rules.Engine) {
		errs = append(errs, ValidationError{
			Field:   "rules.engine",
			Value:   c.Rules.Engine,
			Message: fmt.Sprintf("must be one of %s", strings.Join(ValidEngines(), ", ")),
		})
	}

	if !slices.Contains(ValidLogLevels(), c.Log.Level) {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Value:   c.Log.Level,
			Message: fmt.Sprintf("must be one of %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if !slices.Contains(ValidLogFormats(), c.Log.Format) {
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Value:   c.Log.Format,
			Message: fmt.Sprintf("must be one of %s", strings.Join(ValidLogFormats(), ", ")),
		})
	}

	if c.Metrics.Enabled && strings.TrimSpace(c.Metrics.Namespace) == "" {
		errs = append(errs, ValidationError{
			Field:   "metrics.namespace",
			Value:   c.Metrics.Namespace,
			Message: "must not be empty when metrics are enabled",
		})
	}

	return errs
}
