package httpsrv

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/soldatov-s/go-dbpool/base"
	"github.com/soldatov-s/go-dbpool/x/httpx"
	"golang.org/x/sync/errgroup"
)

const ProviderName = "echo"

var (
	ErrEmptyHTTPHandler  = errors.New("empty http handler")
	ErrUnknownHTTPMethod = errors.New("unknown http method")
	ErrNoErrorGroup      = errors.New("no error group")
)

// Enity is an echo HTTP server that serves the stats endpoints.
type Enity struct {
	*base.Enity
	*base.MetricsStorage
	config     *Config
	server     *echo.Echo
	errorGroup *errgroup.Group

	prometheusMiddleware echo.MiddlewareFunc
}

func DefaultMiddlewares(ctx context.Context) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		middleware.Recover(),
		RequestID(ctx),
		HydrationZerolog(ctx),
	}
}

// NewEnity creates the server. It is started in errGroup by Start.
func NewEnity(ctx context.Context, name string, config *Config, errGroup *errgroup.Group, middlewares ...echo.MiddlewareFunc) (*Enity, error) {
	if config == nil {
		return nil, base.ErrInvalidEnityOptions
	}

	if errGroup == nil {
		return nil, ErrNoErrorGroup
	}

	enity := &Enity{
		Enity:          base.NewEnity(&base.EnityDeps{ProviderName: ProviderName, Name: name}),
		MetricsStorage: base.NewMetricsStorage(),
		config:         config.SetDefault(),
		errorGroup:     errGroup,
	}

	if err := enity.buildMetrics(ctx); err != nil {
		return nil, errors.Wrap(err, "build metrics")
	}

	server := enity.config.NewEcho()
	server.Use(enity.prometheusMiddleware)
	server.Use(middlewares...)
	enity.server = server

	return enity, nil
}

func (e *Enity) GetConfig() *Config {
	return e.config
}

func (e *Enity) GetServer() *echo.Echo {
	return e.server
}

// Start starts HTTP server listening.
func (e *Enity) Start(ctx context.Context) error {
	logger := e.GetLogger(ctx)

	e.errorGroup.Go(func() error {
		logger.Info().Str("address", e.config.Address).Msg("starting server...")

		var err error
		if e.config.CertFile != "" && e.config.KeyFile != "" {
			err = e.server.StartTLS(e.config.Address, e.config.CertFile, e.config.KeyFile)
		} else {
			err = e.server.Start(e.config.Address)
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "start http server")
		}

		return nil
	})

	return nil
}

// Shutdown stops HTTP server listening.
func (e *Enity) Shutdown(ctx context.Context) error {
	if err := e.server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "shutdown http server")
	}

	return nil
}

func (e *Enity) RegisterEndpoint(method, endpoint string, handler http.Handler, m ...httpx.MiddleWareFunc) error {
	if handler == nil {
		return ErrEmptyHTTPHandler
	}

	echoHandler := echo.WrapHandler(handler)
	echoMiddleware := make([]echo.MiddlewareFunc, len(m))
	for i, v := range m {
		echoMiddleware[i] = echo.WrapMiddleware(v)
	}

	switch method {
	case http.MethodGet:
		e.server.GET(endpoint, echoHandler, echoMiddleware...)
	case http.MethodPost:
		e.server.POST(endpoint, echoHandler, echoMiddleware...)
	case http.MethodPut:
		e.server.PUT(endpoint, echoHandler, echoMiddleware...)
	case http.MethodDelete:
		e.server.DELETE(endpoint, echoHandler, echoMiddleware...)
	case http.MethodHead:
		e.server.HEAD(endpoint, echoHandler, echoMiddleware...)
	default:
		return errors.Wrap(ErrUnknownHTTPMethod, method)
	}

	return nil
}

func (e *Enity) buildMetrics(_ context.Context) error {
	fullName := e.GetFullName()

	reqCnt, err := e.GetMetrics().AddCounterVec(fullName, "requests total",
		"HTTP requests processed, partitioned by status code and method.", []string{"code", "method", "url"})
	if err != nil {
		return errors.Wrap(err, "add counter vec")
	}

	reqDur, err := e.GetMetrics().AddHistogramVec(fullName, "request duration seconds",
		"HTTP request latencies in seconds.", []string{"code", "method", "url"})
	if err != nil {
		return errors.Wrap(err, "add histogram vec")
	}

	e.prometheusMiddleware = func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Path() == "/metrics" {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				var httpError *echo.HTTPError
				if errors.As(err, &httpError) {
					status = httpError.Code
				}
				if status == 0 || status == http.StatusOK {
					status = http.StatusInternalServerError
				}
			}

			statusStr := strconv.Itoa(status)
			reqDur.WithLabelValues(statusStr, c.Request().Method, c.Path()).Observe(time.Since(start).Seconds())
			reqCnt.WithLabelValues(statusStr, c.Request().Method, c.Path()).Inc()

			return err
		}
	}

	return nil
}
