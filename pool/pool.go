package pool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/soldatov-s/go-dbpool/base"
	"github.com/soldatov-s/go-dbpool/database"
)

const (
	ProviderName = "dbpool"

	acquireRetryDelay = 10 * time.Millisecond
)

var nowFunc = time.Now

// conn is a pool slot. locked marks a free connection that is being pinged
// outside the pool lock, releasing marks a used one inside Release.
type conn struct {
	db        *database.Database
	locked    bool
	releasing bool
}

type poolStats struct {
	created          prometheus.Counter
	destroyed        prometheus.Counter
	evictedTimeout   prometheus.Counter
	evictedKeepAlive prometheus.Counter
	exhausted        prometheus.Counter
	acquireSeconds   prometheus.Histogram
}

// Pool keeps connections to one database configuration.
type Pool struct {
	*base.Enity
	*base.MetricsStorage
	*base.ReadyCheckStorage

	id       int
	catalog  *database.Catalog
	registry *Registry
	stats    poolStats

	mu          sync.Mutex
	name        string
	params      database.Params
	hash        string
	initialized bool
	closed      bool
	opts        Options
	free        []*conn
	used        map[*database.Database]*conn
	pending     int
	lastCheck   time.Time
	tick        time.Time
}

// NewPool creates an empty pool. Connection params are set separately, a nil
// catalog means database.DefaultCatalog.
func NewPool(ctx context.Context, id int, name string, catalog *database.Catalog, opts ...Option) (*Pool, error) {
	if name == "" {
		return nil, errors.Wrap(ErrInvalidConfig, "empty pool name")
	}

	o, err := applyOptions(DefaultOptions(), opts)
	if err != nil {
		return nil, errors.Wrapf(err, "pool %q", name)
	}

	if catalog == nil {
		catalog = database.DefaultCatalog
	}

	p := &Pool{
		Enity:             base.NewEnity(&base.EnityDeps{ProviderName: ProviderName, Name: fmt.Sprintf("pool_%d", id)}),
		MetricsStorage:    base.NewMetricsStorage(),
		ReadyCheckStorage: base.NewReadyCheckStorage(),
		id:                id,
		catalog:           catalog,
		name:              name,
		opts:              o,
		used:              make(map[*database.Database]*conn),
	}

	if err := p.buildMetrics(ctx); err != nil {
		return nil, errors.Wrap(err, "build metrics")
	}

	if err := p.buildReadyHandlers(ctx); err != nil {
		return nil, errors.Wrap(err, "build ready handlers")
	}

	return p, nil
}

func (p *Pool) ID() int {
	return p.id
}

func (p *Pool) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

func (p *Pool) rename(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.name = name
}

func (p *Pool) Options() Options {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opts
}

// SetOptions applies opts on top of the current options.
func (p *Pool) SetOptions(opts ...Option) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	o, err := applyOptions(p.opts, opts)
	if err != nil {
		return errors.Wrapf(err, "pool %q", p.name)
	}
	p.opts = o

	return nil
}

func (p *Pool) Params() database.Params {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.params.Clone()
}

func (p *Pool) Hash() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hash
}

func (p *Pool) Initialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized
}

func (p *Pool) LastCheck() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastCheck
}

// Counts returns the number of free and used connections.
func (p *Pool) Counts() (free, used int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free), len(p.used)
}

func (p *Pool) logger(ctx context.Context) *zerolog.Logger {
	l := p.GetLogger(ctx).With().Int("pool_id", p.id).Str("pool_name", p.Name()).Logger()
	return &l
}

// SetConnectParams replaces the configuration of the pool. Connections opened
// with the previous params are evicted when they come back or are checked.
// checkParams reports whether params name a driver type known to the catalog.
func (p *Pool) checkParams(params database.Params) error {
	typ := params.Type()
	if typ == "" {
		return errors.Wrapf(ErrInvalidConfig, "pool %q: missing %s", p.Name(), database.KeyType)
	}
	if !p.catalog.Has(typ) {
		return errors.Wrapf(database.ErrUnknownDriver, "pool %q: %s", p.Name(), typ)
	}
	return nil
}

func (p *Pool) SetConnectParams(ctx context.Context, params database.Params) error {
	if err := p.checkParams(params); err != nil {
		return err
	}
	typ := params.Type()

	params = params.Clone()
	hash := params.Hash()

	p.mu.Lock()
	changed := p.hash != hash
	p.params = params
	p.hash = hash
	p.initialized = true
	p.mu.Unlock()

	if changed {
		p.logger(ctx).Info().Str("type", typ).Str("hash", hash).Msg("connection params set")
	}

	return nil
}

// Acquire hands out a free connection or opens a new one. With wait it keeps
// retrying until timeout elapses, a zero timeout waits until ctx is done.
func (p *Pool) Acquire(ctx context.Context, wait bool, timeout time.Duration) (*database.Database, error) {
	start := time.Now()

	for {
		db, err := p.takeFree(ctx)
		if err != nil {
			return nil, err
		}
		if db != nil {
			p.stats.acquireSeconds.Observe(time.Since(start).Seconds())
			return db, nil
		}

		db, err = p.New(ctx)
		if err == nil {
			p.stats.acquireSeconds.Observe(time.Since(start).Seconds())
			return db, nil
		}

		if !wait || errors.Is(err, ErrClosed) || errors.Is(err, ErrNotInitialized) {
			return nil, err
		}

		if timeout > 0 && time.Since(start) >= timeout {
			return nil, database.Mark(ErrTimeout, errors.Wrapf(err, "waited %s", timeout))
		}

		t := time.NewTimer(acquireRetryDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, errors.Wrapf(ctx.Err(), "acquire from pool %q", p.Name())
		case <-t.C:
		}
	}
}

func (p *Pool) firstFreeLocked() *conn {
	for _, c := range p.free {
		if !c.locked {
			return c
		}
	}
	return nil
}

func (p *Pool) removeFreeLocked(c *conn) {
	for i, v := range p.free {
		if v == c {
			p.free = append(p.free[:i], p.free[i+1:]...)
			return
		}
	}
}

// takeFree moves the first healthy free connection to used. Connections that
// are stale or fail the ping are destroyed on the way.
func (p *Pool) takeFree(ctx context.Context) (*database.Database, error) {
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, errors.Wrapf(ErrClosed, "pool %q", p.name)
		}
		if !p.initialized {
			p.mu.Unlock()
			return nil, errors.Wrapf(ErrNotInitialized, "pool %q", p.name)
		}

		c := p.firstFreeLocked()
		if c == nil {
			p.mu.Unlock()
			return nil, nil
		}
		c.locked = true
		hash := p.hash
		p.mu.Unlock()

		if c.db.Hash() != hash {
			p.logger(ctx).Debug().Str("conn_id", c.db.ID()).Msg("drop connection with old params")
			p.discard(ctx, c, nil)
			continue
		}

		if err := c.db.Ping(ctx); err != nil {
			p.logger(ctx).Debug().Err(err).Str("conn_id", c.db.ID()).Msg("drop dead connection")
			p.discard(ctx, c, nil)
			continue
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			p.destroy(ctx, c.db, nil)
			return nil, errors.Wrapf(ErrClosed, "pool %q", p.Name())
		}
		p.removeFreeLocked(c)
		c.locked = false
		p.used[c.db] = c
		p.mu.Unlock()

		return c.db, nil
	}
}

// New opens a connection and registers it as used.
func (p *Pool) New(ctx context.Context) (*database.Database, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errors.Wrapf(ErrClosed, "pool %q", p.name)
	}
	if !p.initialized {
		p.mu.Unlock()
		return nil, errors.Wrapf(ErrNotInitialized, "pool %q", p.name)
	}

	total := len(p.free) + len(p.used) + p.pending
	if p.opts.Max > 0 && total >= p.opts.Max {
		name, limit := p.name, p.opts.Max
		p.mu.Unlock()
		p.stats.exhausted.Inc()
		return nil, errors.Wrapf(ErrPoolExhausted, "pool %q has %d of %d connections", name, total, limit)
	}

	p.pending++
	params := p.params
	p.mu.Unlock()

	db, err := p.connect(ctx, params)

	p.mu.Lock()
	p.pending--
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}
	if p.closed {
		p.mu.Unlock()
		p.destroy(ctx, db, nil)
		return nil, errors.Wrapf(ErrClosed, "pool %q", p.Name())
	}
	p.used[db] = &conn{db: db}
	p.mu.Unlock()

	p.stats.created.Inc()
	p.logger(ctx).Debug().Str("conn_id", db.ID()).Msg("connection opened")

	return db, nil
}

func (p *Pool) connect(ctx context.Context, params database.Params) (*database.Database, error) {
	drv, err := p.catalog.NewDriver(params.Type())
	if err != nil {
		return nil, errors.Wrapf(err, "pool %q", p.Name())
	}

	db := database.New(drv,
		database.WithOwner(p),
		database.WithClock(func() time.Time { return nowFunc() }),
	)
	if err := db.Connect(ctx, params); err != nil {
		return nil, errors.Wrapf(err, "pool %q", p.Name())
	}

	return db, nil
}

func (p *Pool) owns(db *database.Database) bool {
	return db != nil && db.Owner() == database.Owner(p)
}

// Release returns a used connection. An open transaction is rolled back, a
// connection that fails the ping or carries old params is destroyed.
func (p *Pool) Release(ctx context.Context, db *database.Database) error {
	if !p.owns(db) {
		return errors.Wrapf(ErrOwnershipMismatch, "release to pool %q", p.Name())
	}

	p.mu.Lock()
	c, ok := p.used[db]
	if !ok || c.releasing {
		p.mu.Unlock()
		return errors.Wrapf(ErrOwnershipMismatch, "connection %s is not in use in pool %q", db.ID(), p.Name())
	}
	c.releasing = true
	p.mu.Unlock()

	if db.Depth() > 0 {
		if err := db.RollbackToOutermost(ctx); err != nil {
			p.logger(ctx).Warn().Err(err).Str("conn_id", db.ID()).Msg("rollback on release")
		}
	}

	alive := db.Depth() == 0
	if alive {
		if err := db.Ping(ctx); err != nil {
			p.logger(ctx).Debug().Err(err).Str("conn_id", db.ID()).Msg("ping on release")
			alive = false
		}
	}

	p.mu.Lock()
	delete(p.used, db)
	c.releasing = false
	recycle := alive && !p.closed && db.Hash() == p.hash
	if recycle {
		p.free = append(p.free, c)
	}
	p.mu.Unlock()

	if !recycle {
		p.destroy(ctx, db, nil)
	}

	return nil
}

// Destroy closes a used connection instead of returning it.
func (p *Pool) Destroy(ctx context.Context, db *database.Database) error {
	if !p.owns(db) {
		return errors.Wrapf(ErrOwnershipMismatch, "destroy in pool %q", p.Name())
	}

	p.mu.Lock()
	c, ok := p.used[db]
	if !ok || c.releasing {
		p.mu.Unlock()
		return errors.Wrapf(ErrOwnershipMismatch, "connection %s is not in use in pool %q", db.ID(), p.Name())
	}
	delete(p.used, db)
	p.mu.Unlock()

	p.destroy(ctx, db, nil)

	return nil
}

func (p *Pool) discard(ctx context.Context, c *conn, evicted prometheus.Counter) {
	p.mu.Lock()
	p.removeFreeLocked(c)
	p.mu.Unlock()

	p.destroy(ctx, c.db, evicted)
}

func (p *Pool) destroy(ctx context.Context, db *database.Database, evicted prometheus.Counter) {
	if err := db.Disconnect(ctx); err != nil {
		p.logger(ctx).Warn().Err(err).Str("conn_id", db.ID()).Msg("disconnect")
	}

	p.stats.destroyed.Inc()
	if evicted != nil {
		evicted.Inc()
	}
}

// park moves a connection opened by New straight to free.
func (p *Pool) park(ctx context.Context, db *database.Database) {
	p.mu.Lock()
	c, ok := p.used[db]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(p.used, db)
	if p.closed {
		p.mu.Unlock()
		p.destroy(ctx, db, nil)
		return
	}
	p.free = append(p.free, c)
	p.mu.Unlock()
}

type eviction struct {
	c       *conn
	counter prometheus.Counter
}

// Check evicts idle and stale free connections, pings at most one free
// connection whose keepalive expired and adjusts the number of spares.
func (p *Pool) Check(ctx context.Context) {
	now := nowFunc()

	p.mu.Lock()
	p.lastCheck = now
	if p.closed || !p.initialized {
		p.mu.Unlock()
		return
	}

	var evictions []eviction
	keep := make([]*conn, 0, len(p.free))
	for _, c := range p.free {
		switch {
		case c.locked:
			keep = append(keep, c)
		case c.db.Hash() != p.hash:
			evictions = append(evictions, eviction{c: c})
		case p.opts.Timeout > 0 && c.db.LastUse().Add(p.opts.Timeout).Before(now):
			evictions = append(evictions, eviction{c: c, counter: p.stats.evictedTimeout})
		default:
			keep = append(keep, c)
		}
	}
	p.free = keep

	var stale *conn
	if p.opts.KeepAlive > 0 {
		for _, c := range p.free {
			if !c.locked && c.db.LastPing().Add(p.opts.KeepAlive).Before(now) {
				c.locked = true
				stale = c
				break
			}
		}
	}
	p.mu.Unlock()

	for _, e := range evictions {
		p.logger(ctx).Debug().
			Err(database.ErrStaleConnectionEvicted).
			Str("conn_id", e.c.db.ID()).
			Time("last_use", e.c.db.LastUse()).
			Msg("evict connection")
		p.destroy(ctx, e.c.db, e.counter)
	}

	if stale != nil {
		p.keepAlive(ctx, stale)
	}

	p.adjustSpares(ctx)
}

func (p *Pool) keepAlive(ctx context.Context, c *conn) {
	if err := c.db.Ping(ctx); err != nil {
		p.logger(ctx).Debug().Err(err).Str("conn_id", c.db.ID()).Msg("keepalive failed")
		p.discard(ctx, c, p.stats.evictedKeepAlive)
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.destroy(ctx, c.db, nil)
		return
	}
	c.locked = false
	p.mu.Unlock()
}

// adjustSpares closes the longest idle spares above MaxSpare without going
// under Min, then grows the pool towards MinSpare and Min.
func (p *Pool) adjustSpares(ctx context.Context) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}

	total := len(p.free) + len(p.used) + p.pending

	var trim []*conn
	if p.opts.MaxSpare > 0 && len(p.free) > p.opts.MaxSpare {
		excess := len(p.free) - p.opts.MaxSpare
		if p.opts.Min > 0 && total-excess < p.opts.Min {
			excess = total - p.opts.Min
		}

		idle := make([]*conn, 0, len(p.free))
		for _, c := range p.free {
			if !c.locked {
				idle = append(idle, c)
			}
		}
		sort.SliceStable(idle, func(i, j int) bool {
			return idle[i].db.LastUse().Before(idle[j].db.LastUse())
		})
		if excess > len(idle) {
			excess = len(idle)
		}
		if excess > 0 {
			trim = idle[:excess]
			for _, c := range trim {
				p.removeFreeLocked(c)
			}
			total -= excess
		}
	}

	need := 0
	if p.opts.MinSpare > 0 && len(p.free) < p.opts.MinSpare {
		need = p.opts.MinSpare - len(p.free)
	}
	if p.opts.Min > 0 && total+need < p.opts.Min {
		need = p.opts.Min - total
	}
	if need > 0 && need < p.opts.Grow {
		need = p.opts.Grow
	}
	if p.opts.Max > 0 && total+need > p.opts.Max {
		need = p.opts.Max - total
	}
	p.mu.Unlock()

	for _, c := range trim {
		p.logger(ctx).Debug().Str("conn_id", c.db.ID()).Msg("close spare connection")
		p.destroy(ctx, c.db, nil)
	}

	for i := 0; i < need; i++ {
		db, err := p.New(ctx)
		if err != nil {
			p.logger(ctx).Warn().Err(err).Msg("grow pool")
			return
		}
		p.park(ctx, db)
	}
}

// claimTick marks the pool as checked for tick and reports whether it was
// not yet.
func (p *Pool) claimTick(tick time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.tick.Before(tick) {
		return false
	}
	p.tick = tick

	return true
}

// Close destroys every connection. Connections being pinged or released are
// destroyed by whoever holds them.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true

	victims := make([]*database.Database, 0, len(p.free)+len(p.used))
	for _, c := range p.free {
		if !c.locked {
			victims = append(victims, c.db)
		}
	}
	for db, c := range p.used {
		if !c.releasing {
			victims = append(victims, db)
		}
	}
	p.free = nil
	p.used = make(map[*database.Database]*conn)
	p.mu.Unlock()

	for _, db := range victims {
		p.destroy(ctx, db, nil)
	}

	p.logger(ctx).Info().Int("closed", len(victims)).Msg("pool closed")

	return nil
}
