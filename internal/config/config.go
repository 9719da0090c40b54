// Package config loads draftsync runtime settings from a config file and
// DRAFTSYNC_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// DRAFTSYNC_AUTOSAVE_INTERVAL.
const EnvPrefix = "DRAFTSYNC"

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config is the complete draftsync configuration.
type Config struct {
	Autosave AutosaveConfig `mapstructure:"autosave"`
	Store    StoreConfig    `mapstructure:"store"`
	Rules    RulesConfig    `mapstructure:"rules"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

// AutosaveConfig controls the periodic timer trigger.
type AutosaveConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// StoreConfig selects the persistence client.
type StoreConfig struct {
	// Driver is "memory" or "sqlite".
	Driver string `mapstructure:"driver"`
	// Path is the sqlite database file. ":memory:" is accepted.
	Path string `mapstructure:"path"`
}

// RulesConfig overrides the identity and publish rules. Empty expressions
// keep the course defaults for Engine.
type RulesConfig struct {
	Engine   string `mapstructure:"engine"`
	Identity string `mapstructure:"identity"`
	Publish  string `mapstructure:"publish"`
}

// LogConfig configures the slog logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig toggles the Prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// TracingConfig toggles the stdout span exporter.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Pretty  bool `mapstructure:"pretty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Autosave: AutosaveConfig{
			Enabled:  true,
			Interval: 10 * time.Second,
		},
		Store: StoreConfig{
			Driver: DriverMemory,
		},
		Rules: RulesConfig{
			Engine: "expr",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Namespace: "draftsync",
		},
	}
}

// SetDefaults registers the built-in values on v so every key is known to
// the environment lookup.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("autosave.enabled", defaults.Autosave.Enabled)
	v.SetDefault("autosave.interval", defaults.Autosave.Interval)

	v.SetDefault("store.driver", defaults.Store.Driver)
	v.SetDefault("store.path", defaults.Store.Path)

	v.SetDefault("rules.engine", defaults.Rules.Engine)
	v.SetDefault("rules.identity", defaults.Rules.Identity)
	v.SetDefault("rules.publish", defaults.Rules.Publish)

	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)

	v.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
	v.SetDefault("metrics.namespace", defaults.Metrics.Namespace)

	v.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	v.SetDefault("tracing.pretty", defaults.Tracing.Pretty)
}

// New returns a viper instance with defaults and environment overrides
// registered. path, when set, names the config file to read.
func New(path string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
	}
	return v
}

// Load reads path (optional), applies environment overrides and validates
// the result.
func Load(path string) (*Config, error) {
	v := New(path)
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the settings held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.normalize()
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errs
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.Store.Path = strings.TrimSpace(c.Store.Path)
	c.Rules.Engine = strings.ToLower(strings.TrimSpace(c.Rules.Engine))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
}

// AsError returns nil for an empty list so callers can return it directly.
func (e ValidationErrors) AsError() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e ValidationErrors) Unwrap() []error {
	out := make([]error, len(e))
	for i, err := range e {
		out[i] = err
	}
	return out
}

// ErrInvalid matches every ValidationError through errors.Is.
var ErrInvalid = errors.New("config: invalid value")
