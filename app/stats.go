package app

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/soldatov-s/go-dbpool/x/httpx"
)

const (
	ReadyEndpoint   = "/health/ready"
	AliveEndpoint   = "/health/alive"
	MetricsEndpoint = "/metrics"
	StatusEndpoint  = "/status"
)

type HTTPServer interface {
	RegisterEndpoint(method, endpoint string, handler http.Handler, m ...httpx.MiddleWareFunc) error
}

type endpoint struct {
	path        string
	handler     http.Handler
	middlewares []httpx.MiddleWareFunc
}

func (m *Manager) StatusHandler(ctx context.Context, w http.ResponseWriter) {
	answ := httpx.ResultAnsw{Body: m.Status(ctx)}
	if err := answ.WriteJSON(w); err != nil {
		m.logger.Zerolog().Err(err).Msg("write status")
	}
}

func (m *Manager) statsEndpoints(ctx context.Context) []endpoint {
	return []endpoint{
		{
			path:    MetricsEndpoint,
			handler: promhttp.Handler(),
			middlewares: []httpx.MiddleWareFunc{func(h http.Handler) http.Handler {
				return m.PrometheusMiddleware(ctx, h)
			}},
		},
		{
			path: AliveEndpoint,
			handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				m.AliveCheckHandler(ctx, w)
			}),
		},
		{
			path: ReadyEndpoint,
			handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				m.ReadyCheckHandler(ctx, w)
			}),
		},
		{
			path: StatusEndpoint,
			handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				m.StatusHandler(r.Context(), w)
			}),
		},
	}
}

// startStatistic registers metrics and serves the stats endpoints on the
// stats HTTP enity.
func (m *Manager) startStatistic(ctx context.Context) error {
	m.mu.Lock()
	enity, ok := m.byName[m.statsHTTPEnityName]
	m.mu.Unlock()
	if !ok {
		return errors.Wrap(ErrNotFindStatsHTTP, m.statsHTTPEnityName)
	}

	httpSrv, ok := enity.(HTTPServer)
	if !ok {
		return ErrFailedTypeCastHTTPServer
	}

	if err := m.GetMetrics().Registrate(m.register); err != nil {
		return errors.Wrap(err, "registrate metrics")
	}

	if err := m.logger.GetMetrics().Registrate(m.register); err != nil {
		return errors.Wrap(err, "registrate logger metrics")
	}

	for _, e := range m.statsEndpoints(ctx) {
		if err := httpSrv.RegisterEndpoint(http.MethodGet, e.path, e.handler, e.middlewares...); err != nil {
			return errors.Wrapf(err, "registrate %s endpoint", e.path)
		}
	}

	docHandler, err := m.openAPIHandler(ctx)
	if err != nil {
		return err
	}

	if err := httpSrv.RegisterEndpoint(http.MethodGet, OpenAPIEndpoint, docHandler); err != nil {
		return errors.Wrapf(err, "registrate %s endpoint", OpenAPIEndpoint)
	}

	return nil
}
