package log

import (
	"io"

	"github.com/rs/zerolog"
)

const (
	LoggerLevelTrace = "trace"
	LoggerLevelDebug = "debug"
	LoggerLevelInfo  = "info"
	LoggerLevelWarn  = "warn"
	LoggerLevelError = "error"
)

type Config struct {
	// HumanFriendly enable writes log in human-friendly format to Out
	HumanFriendly bool `envconfig:"optional" yaml:"human_friendly"`
	// NoColoredOutput forces logger to output things without
	// shell colorcodes.
	NoColoredOutput bool `envconfig:"optional" yaml:"no_colored_output"`
	// Show trace information (file name, line number, function name)?
	WithTrace bool `envconfig:"optional" yaml:"with_trace"`
	// Level is a logger's loglevel. Possible values: "DEBUG",
	// "INFO", "WARN", "ERROR", "FATAL", "TRACE".
	// Case-insensitive value.
	Level string `envconfig:"optional" yaml:"level"`
	// Output overrides stdout, tests use it.
	Output io.Writer `envconfig:"-" yaml:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		NoColoredOutput: true,
		HumanFriendly:   false,
		WithTrace:       false,
		Level:           zerolog.InfoLevel.String(),
	}
}

// SetDefault returns a copy of config with empty fields filled.
func (c *Config) SetDefault() *Config {
	if c == nil {
		return DefaultConfig()
	}

	cfgCopy := *c
	if cfgCopy.Level == "" {
		cfgCopy.Level = zerolog.InfoLevel.String()
	}

	return &cfgCopy
}
