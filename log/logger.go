package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
	"github.com/soldatov-s/go-dbpool/base"
)

type Logger struct {
	zerolog zerolog.Logger
	*base.MetricsStorage
}

func NewLogger(ctx context.Context, config *Config) (*Logger, error) {
	logger := &Logger{
		MetricsStorage: base.NewMetricsStorage(),
	}
	config = config.SetDefault()
	level, err := zerolog.ParseLevel(strings.ToLower(config.Level))
	if err != nil {
		return nil, errors.Wrap(err, "parse level")
	}

	zerolog.SetGlobalLevel(level)

	output := buildLoggerOutput(config)

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	l := zerolog.New(output).With().Timestamp().Logger()
	l = l.Hook(NewTracingHook(config.WithTrace))

	logger.zerolog = l
	if err := logger.buildMetrics(ctx); err != nil {
		return nil, errors.Wrap(err, "build metrics")
	}

	return logger, nil
}

func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zerolog
}

// GetLogger returns a child logger tagged with name and fields.
func (l *Logger) GetLogger(name string, fields ...*Field) *zerolog.Logger {
	c := l.zerolog.With().Str("name", name)
	for _, f := range fields {
		if f == nil {
			continue
		}
		c = c.Interface(f.Name, f.Value)
	}
	logger := c.Logger()

	return &logger
}

// WithContext stores the zerolog logger in ctx so zerolog.Ctx finds it.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return l.zerolog.WithContext(ctx)
}

func buildLoggerOutput(config *Config) io.Writer {
	out := config.Output
	if out == nil {
		out = os.Stdout
	}

	if !config.HumanFriendly {
		return out
	}

	output := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    config.NoColoredOutput,
		TimeFormat: time.RFC3339,
	}

	output.FormatLevel = func(i interface{}) string {
		var v string

		if ii, ok := i.(string); ok {
			ii = strings.ToUpper(ii)
			switch ii {
			case "DEBUG", "ERROR", "FATAL", "INFO", "WARN", "PANIC", "TRACE":
				v = fmt.Sprintf("%-5s", ii)
			default:
				v = ii
			}
		}

		return fmt.Sprintf("| %s |", v)
	}

	return output
}

func (l *Logger) buildMetrics(_ context.Context) error {
	fullName := "logger"

	warnsMetric, err := l.MetricsStorage.GetMetrics().AddCounter(fullName, "warns total", "How many warnings occurred.")
	if err != nil {
		return errors.Wrap(err, "add counter metric")
	}
	l.zerolog = l.zerolog.Hook(NewMetricWarnHook(warnsMetric))

	errorsMetric, err := l.MetricsStorage.GetMetrics().AddCounter(fullName, "errors total", "How many errors occurred.")
	if err != nil {
		return errors.Wrap(err, "add counter metric")
	}
	l.zerolog = l.zerolog.Hook(NewMetricErrorHook(errorsMetric))

	return nil
}
