package pool

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/soldatov-s/go-dbpool/base"
	"github.com/soldatov-s/go-dbpool/database"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultPoolID is used by lookups that omit the pool id.
	DefaultPoolID = 0

	defaultMaintenanceInterval = 10 * time.Second
)

// Registry is a set of pools keyed by id and unique name.
type Registry struct {
	*base.Enity
	*base.MetricsStorage
	*base.ReadyCheckStorage

	catalog  *database.Catalog
	register prometheus.Registerer
	defaults Options
	interval time.Duration

	mu         sync.RWMutex
	pools      map[int]*Pool
	names      map[string]int
	poolChecks *base.MapCheckOptions

	maintenanceMu sync.Mutex
	cancel        context.CancelFunc
	group         *errgroup.Group
}

type RegistryOption func(r *Registry)

// WithDefaults sets the options every new pool starts from.
func WithDefaults(opts ...Option) RegistryOption {
	return func(r *Registry) {
		for _, opt := range opts {
			opt(&r.defaults)
		}
	}
}

func WithCatalog(c *database.Catalog) RegistryOption {
	return func(r *Registry) {
		r.catalog = c
	}
}

// WithRegisterer makes the registry register metrics of every pool it
// creates and unregister them on delete.
func WithRegisterer(register prometheus.Registerer) RegistryOption {
	return func(r *Registry) {
		r.register = register
	}
}

func WithMaintenanceInterval(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.interval = d
	}
}

func NewRegistry(ctx context.Context, opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		Enity:             base.NewEnity(&base.EnityDeps{ProviderName: ProviderName, Name: "registry"}),
		MetricsStorage:    base.NewMetricsStorage(),
		ReadyCheckStorage: base.NewReadyCheckStorage(),
		catalog:           database.DefaultCatalog,
		defaults:          DefaultOptions(),
		interval:          defaultMaintenanceInterval,
		pools:             make(map[int]*Pool),
		names:             make(map[string]int),
		poolChecks:        base.NewMapCheckOptions(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.interval <= 0 {
		r.interval = defaultMaintenanceInterval
	}

	defaults, err := applyOptions(r.defaults, nil)
	if err != nil {
		return nil, errors.Wrap(err, "registry defaults")
	}
	r.defaults = defaults

	if err := r.buildMetrics(ctx); err != nil {
		return nil, errors.Wrap(err, "build metrics")
	}

	if err := r.buildReadyHandlers(ctx); err != nil {
		return nil, errors.Wrap(err, "build ready handlers")
	}

	return r, nil
}

func (r *Registry) buildMetrics(_ context.Context) error {
	_, err := r.GetMetrics().AddMetricGauge(r.GetFullName(), "pools", "pools in registry",
		func(ctx context.Context) (float64, error) {
			pools := r.Pools()
			for _, p := range pools {
				if err := p.GetMetrics().Update(ctx); err != nil {
					return 0, errors.Wrapf(err, "pool %d", p.ID())
				}
			}
			return float64(len(pools)), nil
		})
	if err != nil {
		return errors.Wrap(err, "add pools gauge")
	}

	return nil
}

// buildReadyHandlers adds one check that runs the checks of the pools
// registered at the time of the call.
func (r *Registry) buildReadyHandlers(_ context.Context) error {
	return r.GetReadyHandlers().Add(&base.CheckOptions{
		Name: r.GetFullName(),
		CheckFunc: func(ctx context.Context) error {
			name, err := r.poolChecks.Run(ctx)
			if err != nil {
				return errors.Wrap(err, name)
			}
			return nil
		},
	})
}

func (r *Registry) logger(ctx context.Context) *zerolog.Logger {
	return r.GetLogger(ctx)
}

func (r *Registry) Defaults() Options {
	return r.defaults
}

// CreatePool adds a pool or updates the pool with the same id. An update
// renames the pool, replaces params when any are given and applies opts on
// top of the current options.
func (r *Registry) CreatePool(ctx context.Context, id int, name string, params database.Params, opts ...Option) (*Pool, error) {
	if name == "" {
		return nil, errors.Wrapf(ErrInvalidConfig, "pool %d: empty name", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.names[name]; ok && owner != id {
		return nil, errors.Wrapf(ErrInvalidConfig, "duplicate pool name %q", name)
	}

	if p, ok := r.pools[id]; ok {
		return p, r.updatePoolLocked(ctx, p, name, params, opts)
	}

	p, err := NewPool(ctx, id, name, r.catalog, append([]Option{WithOptions(r.defaults)}, opts...)...)
	if err != nil {
		return nil, err
	}
	p.registry = r

	if params.Len() > 0 {
		if err := p.SetConnectParams(ctx, params); err != nil {
			return nil, err
		}
	}

	if r.register != nil {
		if err := p.GetMetrics().Registrate(r.register); err != nil {
			p.GetMetrics().Unregistrate(r.register)
			return nil, errors.Wrapf(err, "pool %q", name)
		}
	}

	if err := r.poolChecks.Append(p.GetReadyHandlers()); err != nil {
		if r.register != nil {
			p.GetMetrics().Unregistrate(r.register)
		}
		return nil, errors.Wrapf(err, "pool %q", name)
	}

	r.pools[id] = p
	r.names[name] = id

	r.logger(ctx).Info().Int("pool_id", id).Str("pool_name", name).Msg("pool created")

	return p, nil
}

// updatePoolLocked changes nothing unless params and options are both valid.
func (r *Registry) updatePoolLocked(ctx context.Context, p *Pool, name string, params database.Params, opts []Option) error {
	if params.Len() > 0 {
		if err := p.checkParams(params); err != nil {
			return err
		}
	}

	if len(opts) > 0 {
		if err := p.SetOptions(opts...); err != nil {
			return err
		}
	}

	if params.Len() > 0 {
		if err := p.SetConnectParams(ctx, params); err != nil {
			return err
		}
	}

	if old := p.Name(); old != name {
		delete(r.names, old)
		r.names[name] = p.ID()
		p.rename(name)
		r.logger(ctx).Info().Int("pool_id", p.ID()).Str("old_name", old).Str("pool_name", name).Msg("pool renamed")
	}

	return nil
}

// DeletePool removes the pool and closes all its connections.
func (r *Registry) DeletePool(ctx context.Context, id int) error {
	r.mu.Lock()
	p, ok := r.pools[id]
	if !ok {
		r.mu.Unlock()
		return errors.Wrapf(ErrPoolNotFound, "id %d", id)
	}
	delete(r.pools, id)
	delete(r.names, p.Name())
	r.poolChecks.Remove(p.GetFullName())
	r.mu.Unlock()

	if r.register != nil {
		p.GetMetrics().Unregistrate(r.register)
	}

	r.logger(ctx).Info().Int("pool_id", id).Str("pool_name", p.Name()).Msg("pool deleted")

	return p.Close(ctx)
}

func (r *Registry) Get(id int) (*Pool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.pools[id]
	if !ok {
		return nil, errors.Wrapf(ErrPoolNotFound, "id %d", id)
	}

	return p, nil
}

func (r *Registry) GetByName(name string) (*Pool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.names[name]
	if !ok {
		return nil, errors.Wrapf(ErrPoolNotFound, "name %q", name)
	}

	return r.pools[id], nil
}

// Pools returns the pools ordered by id.
func (r *Registry) Pools() []*Pool {
	r.mu.RLock()
	pools := make([]*Pool, 0, len(r.pools))
	for _, p := range r.pools {
		pools = append(pools, p)
	}
	r.mu.RUnlock()

	sort.Slice(pools, func(i, j int) bool { return pools[i].ID() < pools[j].ID() })

	return pools
}

func (r *Registry) Acquire(ctx context.Context, id int, wait bool, timeout time.Duration) (*database.Database, error) {
	p, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	return p.Acquire(ctx, wait, timeout)
}

// AcquireDefault acquires from the pool with DefaultPoolID.
func (r *Registry) AcquireDefault(ctx context.Context, wait bool, timeout time.Duration) (*database.Database, error) {
	return r.Acquire(ctx, DefaultPoolID, wait, timeout)
}

func (r *Registry) AcquireByName(ctx context.Context, name string, wait bool, timeout time.Duration) (*database.Database, error) {
	p, err := r.GetByName(name)
	if err != nil {
		return nil, err
	}

	return p.Acquire(ctx, wait, timeout)
}

func (r *Registry) poolOf(db *database.Database) (*Pool, error) {
	if db == nil {
		return nil, errors.Wrap(ErrOwnershipMismatch, "nil connection")
	}

	p, ok := db.Owner().(*Pool)
	if !ok || p.registry != r {
		return nil, errors.Wrapf(ErrOwnershipMismatch, "connection %s is not from this registry", db.ID())
	}

	return p, nil
}

func (r *Registry) Release(ctx context.Context, db *database.Database) error {
	p, err := r.poolOf(db)
	if err != nil {
		return err
	}

	return p.Release(ctx, db)
}

func (r *Registry) Destroy(ctx context.Context, db *database.Database) error {
	p, err := r.poolOf(db)
	if err != nil {
		return err
	}

	return p.Destroy(ctx, db)
}

func (r *Registry) CheckPool(ctx context.Context, id int) error {
	p, err := r.Get(id)
	if err != nil {
		return err
	}

	p.Check(ctx)

	return nil
}

func (r *Registry) Status() map[int]Status {
	pools := r.Pools()
	st := make(map[int]Status, len(pools))
	for _, p := range pools {
		st[p.ID()] = p.Status()
	}

	return st
}

// StatusReport is served on the status endpoint of the app.
func (r *Registry) StatusReport(_ context.Context) interface{} {
	return r.Status()
}

// RunMaintenance checks every pool not yet checked for tick. Pools added
// while it runs are picked up by the same pass.
func (r *Registry) RunMaintenance(ctx context.Context, tick time.Time) {
	for ctx.Err() == nil {
		p := r.nextUnchecked(tick)
		if p == nil {
			return
		}
		p.Check(ctx)
	}
}

func (r *Registry) nextUnchecked(tick time.Time) *Pool {
	for _, p := range r.Pools() {
		if p.claimTick(tick) {
			return p
		}
	}

	return nil
}

func (r *Registry) maintain(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger(ctx).Info().Dur("interval", interval).Msg("maintenance started")

	for {
		select {
		case <-ctx.Done():
			r.logger(ctx).Info().Msg("maintenance stopped")
			return nil
		case <-ticker.C:
			r.RunMaintenance(ctx, nowFunc())
		}
	}
}

// StartMaintenance runs pool checks every interval until StopMaintenance.
// A zero interval takes the registry default. Calling it again while
// running does nothing.
func (r *Registry) StartMaintenance(ctx context.Context, interval time.Duration) {
	r.maintenanceMu.Lock()
	defer r.maintenanceMu.Unlock()

	if r.cancel != nil {
		return
	}

	if interval <= 0 {
		interval = r.interval
	}

	mctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(mctx)
	g.Go(func() error {
		return r.maintain(gctx, interval)
	})

	r.cancel = cancel
	r.group = g
	r.SetBackgroundRunning(true)
}

func (r *Registry) StopMaintenance() error {
	r.maintenanceMu.Lock()
	defer r.maintenanceMu.Unlock()

	if r.cancel == nil {
		return nil
	}

	r.cancel()
	err := r.group.Wait()
	r.cancel = nil
	r.group = nil
	r.SetBackgroundRunning(false)

	return err
}

func (r *Registry) MaintenanceRunning() bool {
	return r.BackgroundRunning()
}

// Start starts maintenance with the configured interval.
func (r *Registry) Start(ctx context.Context) error {
	r.StartMaintenance(ctx, r.interval)
	return nil
}

// Shutdown stops maintenance and deletes every pool.
func (r *Registry) Shutdown(ctx context.Context) error {
	return r.Close(ctx)
}

func (r *Registry) Close(ctx context.Context) error {
	if err := r.StopMaintenance(); err != nil {
		return errors.Wrap(err, "stop maintenance")
	}

	for _, p := range r.Pools() {
		if err := r.DeletePool(ctx, p.ID()); err != nil && !errors.Is(err, ErrPoolNotFound) {
			return errors.Wrapf(err, "delete pool %d", p.ID())
		}
	}

	return nil
}
