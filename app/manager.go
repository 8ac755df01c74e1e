// Package app runs the enities of dbpoold: the pool registry and the stats
// HTTP server.
package app

import (
	"context"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/soldatov-s/go-dbpool/base"
	"github.com/soldatov-s/go-dbpool/log"
	"golang.org/x/sync/errgroup"
)

var (
	ErrAppendMetrics            = errors.New("failed to append metrics")
	ErrAliveHandlers            = errors.New("failed to append alive handlers")
	ErrReadyHandlers            = errors.New("failed to append ready handlers")
	ErrNotFindStatsHTTP         = errors.New("not find http server for stats")
	ErrFailedTypeCastHTTPServer = errors.New("failed typecast to http server")
)

type EnityMetricsGateway interface {
	GetMetrics() *base.MapMetricsOptions
}

type EnityAliveGateway interface {
	GetAliveHandlers() *base.MapCheckOptions
}

type EnityReadyGateway interface {
	GetReadyHandlers() *base.MapCheckOptions
}

// EnityStatusGateway is an enity that reports its state on the status endpoint.
type EnityStatusGateway interface {
	StatusReport(ctx context.Context) interface{}
}

//go:generate mockgen -destination=mock_enity_test.go -package=app_test . EnityGateway

type EnityGateway interface {
	Shutdown(ctx context.Context) error
	Start(ctx context.Context) error
	GetFullName() string
}

type ManagerDeps struct {
	Meta               *MetaDeps
	StatsHTTPEnityName string
	Logger             *log.Logger
	ErrorGroup         *errgroup.Group
}

// Manager starts enities in the order they were added and shuts them down
// in reverse order.
type Manager struct {
	*base.MetricsStorage
	*base.ReadyCheckStorage
	*base.AliveCheckStorage

	meta               *Meta
	statsHTTPEnityName string
	register           prometheus.Registerer
	logger             *log.Logger
	signals            []os.Signal
	errorGroup         *errgroup.Group

	mu      sync.Mutex
	enities []EnityGateway
	byName  map[string]EnityGateway
}

type ManagerOption func(*Manager)

func WithCustomRegister(register prometheus.Registerer) ManagerOption {
	return func(m *Manager) {
		m.register = register
	}
}

func NewManager(deps *ManagerDeps, opts ...ManagerOption) *Manager {
	meta := deps.Meta
	if meta == nil {
		meta = &MetaDeps{}
	}

	m := &Manager{
		MetricsStorage:     base.NewMetricsStorage(),
		AliveCheckStorage:  base.NewAliveCheckStorage(),
		ReadyCheckStorage:  base.NewReadyCheckStorage(),
		meta:               NewMeta(meta),
		statsHTTPEnityName: deps.StatsHTTPEnityName,
		register:           prometheus.DefaultRegisterer,
		logger:             deps.Logger,
		signals:            defaultSignals(),
		errorGroup:         deps.ErrorGroup,
		byName:             make(map[string]EnityGateway),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Manager) Meta() *Meta {
	return m.meta
}

// Add registers an enity together with its metrics and health checks.
func (m *Manager) Add(ctx context.Context, e EnityGateway) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := e.GetFullName()
	if _, ok := m.byName[name]; ok {
		return errors.Wrapf(base.ErrConflictName, "enity %q", name)
	}

	if v, ok := e.(EnityMetricsGateway); ok {
		if err := m.GetMetrics().Append(v.GetMetrics()); err != nil {
			return errors.Wrap(ErrAppendMetrics, err.Error())
		}
	}

	if v, ok := e.(EnityAliveGateway); ok {
		if err := m.GetAliveHandlers().Append(v.GetAliveHandlers()); err != nil {
			return errors.Wrap(ErrAliveHandlers, err.Error())
		}
	}

	if v, ok := e.(EnityReadyGateway); ok {
		if err := m.GetReadyHandlers().Append(v.GetReadyHandlers()); err != nil {
			return errors.Wrap(ErrReadyHandlers, err.Error())
		}
	}

	m.byName[name] = e
	m.enities = append(m.enities, e)

	return nil
}

func (m *Manager) snapshot() []EnityGateway {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EnityGateway(nil), m.enities...)
}

func (m *Manager) Start(ctx context.Context) error {
	for _, e := range m.snapshot() {
		if err := e.Start(ctx); err != nil {
			return errors.Wrapf(err, "start enity %q", e.GetFullName())
		}
	}

	if err := m.startStatistic(ctx); err != nil {
		return errors.Wrap(err, "start statistics")
	}

	return nil
}

func (m *Manager) Shutdown(ctx context.Context) error {
	enities := m.snapshot()
	for i := len(enities) - 1; i >= 0; i-- {
		if err := enities[i].Shutdown(ctx); err != nil {
			return errors.Wrapf(err, "shutdown enity %q", enities[i].GetFullName())
		}
	}
	return nil
}

// Status collects reports of every enity that has one, keyed by full name.
func (m *Manager) Status(ctx context.Context) map[string]interface{} {
	report := make(map[string]interface{})
	for _, e := range m.snapshot() {
		if v, ok := e.(EnityStatusGateway); ok {
			report[e.GetFullName()] = v.StatusReport(ctx)
		}
	}

	return report
}
