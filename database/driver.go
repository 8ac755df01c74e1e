package database

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

//go:generate mockgen -destination=mock_database/mock_driver.go -package=mock_database . Driver

// Driver talks to one database product over a single backend connection.
// A Driver is used by one goroutine at a time.
type Driver interface {
	Connect(ctx context.Context, params Params) error
	// Disconnect releases the backend connection. Disconnecting twice is not an error.
	Disconnect(ctx context.Context) error
	Execute(ctx context.Context, query string) error
	Query(ctx context.Context, query string) (ResultSet, error)
	Ping(ctx context.Context) error
	Escape(s string) string
	InsertID() (int64, error)
	AffectedRows() (int64, error)

	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Savepoint(ctx context.Context, name string) error
	ReleaseSavepoint(ctx context.Context, name string) error
	RollbackToSavepoint(ctx context.Context, name string) error

	Type() string
	// IsConnectionGone reports whether err means the backend connection was lost
	// and a reconnect may succeed.
	IsConnectionGone(err error) bool
}

// Factory builds a Driver bound to the runtime of its type.
type Factory func(rt *Runtime) Driver

// Catalog maps driver types to factories and their shared runtimes.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]catalogEntry
}

type catalogEntry struct {
	factory Factory
	runtime *Runtime
}

// DefaultCatalog is the catalog drivers register into from their init functions.
var DefaultCatalog = NewCatalog()

func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]catalogEntry)}
}

// RegisterOption tunes the runtime of a registered driver type.
type RegisterOption func(rt *Runtime)

// WithRuntimeHooks sets functions run when the first driver of the type
// connects and when the last one disconnects.
func WithRuntimeHooks(init, teardown func() error) RegisterOption {
	return func(rt *Runtime) {
		rt.init = init
		rt.teardown = teardown
	}
}

// Register adds a driver type to the catalog. Registering a type twice panics.
func (c *Catalog) Register(typ string, factory Factory, opts ...RegisterOption) {
	if factory == nil {
		panic("database: Register factory is nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.entries[typ]; dup {
		panic("database: Register called twice for driver " + typ)
	}
	rt := NewRuntime(typ)
	for _, opt := range opts {
		opt(rt)
	}
	c.entries[typ] = catalogEntry{factory: factory, runtime: rt}
}

// Has reports whether typ is registered.
func (c *Catalog) Has(typ string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[typ]
	return ok
}

// NewDriver builds a driver of the given type.
func (c *Catalog) NewDriver(typ string) (Driver, error) {
	c.mu.RLock()
	e, ok := c.entries[typ]
	c.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownDriver, "%q", typ)
	}
	return e.factory(e.runtime), nil
}

// Runtime returns the shared runtime of typ or nil.
func (c *Catalog) Runtime(typ string) *Runtime {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[typ].runtime
}

// Types lists the registered driver types.
func (c *Catalog) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	types := make([]string, 0, len(c.entries))
	for t := range c.entries {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Register adds a driver type to DefaultCatalog.
func Register(typ string, factory Factory, opts ...RegisterOption) {
	DefaultCatalog.Register(typ, factory, opts...)
}

// NewDriver builds a driver from DefaultCatalog.
func NewDriver(typ string) (Driver, error) {
	return DefaultCatalog.NewDriver(typ)
}

// Runtime is process state shared by all drivers of one type. The first
// Acquire runs the init hook, the last Release runs the teardown hook.
type Runtime struct {
	name     string
	mu       sync.Mutex
	refs     int
	init     func() error
	teardown func() error
}

func NewRuntime(name string) *Runtime {
	return &Runtime{name: name}
}

func (r *Runtime) Name() string {
	return r.name
}

func (r *Runtime) Acquire() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refs == 0 && r.init != nil {
		if err := r.init(); err != nil {
			return errors.Wrapf(err, "init %s runtime", r.name)
		}
	}
	r.refs++
	return nil
}

func (r *Runtime) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refs == 0 {
		return nil
	}
	r.refs--
	if r.refs == 0 && r.teardown != nil {
		if err := r.teardown(); err != nil {
			return errors.Wrapf(err, "teardown %s runtime", r.name)
		}
	}
	return nil
}

// Refs returns the number of drivers holding the runtime.
func (r *Runtime) Refs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refs
}
