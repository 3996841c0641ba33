package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/didar67/enterprise-log-file-analyzer/internal/model"
	"github.com/didar67/enterprise-log-file-analyzer/internal/pattern"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. LOG_ANALYZER_APP_DRY_RUN.
const EnvPrefix = "LOG_ANALYZER"

// Levels accepted by logging.log_level.
var Levels = []string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}

// ValidationError reports a missing or malformed configuration field.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// App holds the settings for the analyzed file and the analysis itself.
type App struct {
	LogFilePath     string         `mapstructure:"log_file_path"`
	DryRun          bool           `mapstructure:"dry_run"`
	AsyncChunkSize  int            `mapstructure:"async_chunk_size"`
	MaxLines        int            `mapstructure:"max_lines"`
	TimestampFormat string         `mapstructure:"timestamp_format"`
	Patterns        []pattern.Rule `mapstructure:"patterns"`
}

// Logging configures the rotating log file and its level.
type Logging struct {
	LogFile     string `mapstructure:"log_file"`
	LogLevel    string `mapstructure:"log_level"`
	MaxBytes    int64  `mapstructure:"max_bytes"`
	BackupCount int    `mapstructure:"backup_count"`
}

// Action configures the remediation command.
type Action struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// Server configures the HTTP listener used in watch mode.
type Server struct {
	Listen string `mapstructure:"listen"`
}

// Config is the validated application configuration.
type Config struct {
	App     App     `mapstructure:"app"`
	Logging Logging `mapstructure:"logging"`
	Action  Action  `mapstructure:"action"`
	Server  Server  `mapstructure:"server"`
}

// Load reads the YAML file at path, applies environment overrides and
// validates the result. Every failure is a *ValidationError.
func Load(path string) (*Config, error) {
	v := New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("cannot read %s", path), Err: err}
	}
	return FromViper(v)
}

// New returns a viper instance with defaults and env bindings in place.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.dry_run", false)
	v.SetDefault("app.async_chunk_size", 1024)
	v.SetDefault("app.max_lines", 0)
	v.SetDefault("action.timeout", time.Duration(0))
	v.SetDefault("server.listen", "")

	// AutomaticEnv only applies to keys viper already knows about.
	for _, key := range []string{"app.log_file_path", "logging.log_file", "logging.log_level", "logging.max_bytes", "logging.backup_count"} {
		_ = v.BindEnv(key)
	}
	return v
}

// FromViper decodes and validates a populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, &ValidationError{Reason: "cannot decode", Err: err}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	var errs []error
	fail := func(field, reason string) {
		errs = append(errs, &ValidationError{Field: field, Reason: reason})
	}

	if c.App.LogFilePath == "" {
		fail("app.log_file_path", "required")
	}
	if c.App.AsyncChunkSize <= 0 {
		fail("app.async_chunk_size", "must be greater than 0")
	}
	if c.App.MaxLines < 0 {
		fail("app.max_lines", "must be 0 or greater")
	}
	for i, r := range c.App.Patterns {
		if r.Expr == "" {
			fail(fmt.Sprintf("app.patterns[%d].expr", i), "required")
		}
		switch r.Severity {
		case "", model.SeverityWarning, model.SeverityCritical:
		default:
			fail(fmt.Sprintf("app.patterns[%d].severity", i), fmt.Sprintf("must be %q or %q", model.SeverityWarning, model.SeverityCritical))
		}
	}

	if c.Logging.LogFile == "" {
		fail("logging.log_file", "required")
	}
	if !slices.Contains(Levels, c.Logging.LogLevel) {
		fail("logging.log_level", "must be one of "+strings.Join(Levels, ", "))
	}
	if c.Logging.MaxBytes <= 0 {
		fail("logging.max_bytes", "must be greater than 0")
	}
	if c.Logging.BackupCount < 0 {
		fail("logging.backup_count", "must be 0 or greater")
	}

	if c.Action.Timeout < 0 {
		fail("action.timeout", "must not be negative")
	}

	return errors.Join(errs...)
}
