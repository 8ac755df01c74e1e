package log

import (
	"context"

	"github.com/pkg/errors"
)

type contextKey string

const loggerItem contextKey = "logger"

var ErrDuplicateLogger = errors.New("duplicate logger in context")

// NewContext puts logger into ctx, both as *Logger and as the zerolog
// logger used by zerolog.Ctx.
func NewContext(ctx context.Context, logger *Logger) (context.Context, error) {
	if v, ok := ctx.Value(loggerItem).(*Logger); ok && v != nil {
		return nil, ErrDuplicateLogger
	}

	ctx = context.WithValue(ctx, loggerItem, logger)
	return logger.WithContext(ctx), nil
}

func NewContextByConfig(ctx context.Context, cfg *Config) (context.Context, error) {
	logger, err := NewLogger(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "new logger")
	}

	return NewContext(ctx, logger)
}

// FromContext returns the logger stored by NewContext or nil.
func FromContext(ctx context.Context) *Logger {
	logger, _ := ctx.Value(loggerItem).(*Logger)
	return logger
}
