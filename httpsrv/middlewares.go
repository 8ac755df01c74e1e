package httpsrv

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var ErrNotFoundZerolog = errors.New("not found zerolog")

func generator(ctx context.Context) string {
	id, err := uuid.NewRandom()
	if err != nil {
		zerolog.Ctx(ctx).Err(err).Msg("generate request id")
		return ""
	}
	return id.String()
}

func RequestID(ctx context.Context) echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Skipper: middleware.DefaultSkipper,
		Generator: func() string {
			return generator(ctx)
		},
	})
}

const zerologCtxKey = "zerolog"

// HydrationZerolog puts a logger with the request id into the echo context
// and into the request context.
func HydrationZerolog(ctx context.Context) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = c.Request().Header.Get(echo.HeaderXRequestID)
			}
			l := zerolog.Ctx(ctx).With().Str("request_id", requestID).Logger()
			c.Set(zerologCtxKey, &l)
			c.SetRequest(c.Request().WithContext(l.WithContext(c.Request().Context())))
			return next(c)
		}
	}
}

func GetZerologger(ec echo.Context) (*zerolog.Logger, error) {
	logger, ok := ec.Get(zerologCtxKey).(*zerolog.Logger)
	if !ok {
		return nil, ErrNotFoundZerolog
	}
	return logger, nil
}
