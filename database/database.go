package database

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/soldatov-s/go-dbpool/database"

// Owner is the pool a Database belongs to. It is used only to validate
// release and destroy calls.
type Owner interface {
	GetFullName() string
}

// Option configures a Database.
type Option func(d *Database)

// WithClock replaces time.Now for the last use and last ping bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(d *Database) {
		d.now = now
	}
}

// WithOwner sets the owning pool.
func WithOwner(owner Owner) Option {
	return func(d *Database) {
		d.owner = owner
	}
}

// Database is one logical connection. I/O goes to the Driver, the Database
// keeps the bookkeeping the pool needs.
type Database struct {
	id     string
	driver Driver
	owner  Owner
	now    func() time.Time
	tracer trace.Tracer

	mu        sync.Mutex
	connected bool
	params    Params
	hash      string
	lastUse   time.Time
	lastPing  time.Time
	depth     int
	lastErr   error
}

func New(driver Driver, opts ...Option) *Database {
	d := &Database{
		id:     uuid.New().String(),
		driver: driver,
		now:    time.Now,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Database) ID() string {
	return d.id
}

func (d *Database) Type() string {
	return d.driver.Type()
}

func (d *Database) Owner() Owner {
	return d.owner
}

// Driver returns the backend driver.
func (d *Database) Driver() Driver {
	return d.driver
}

func (d *Database) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// Hash returns the hash of the params of the last successful connect.
func (d *Database) Hash() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hash
}

func (d *Database) LastUse() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastUse
}

func (d *Database) LastPing() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastPing
}

// Depth returns the transaction nesting level.
func (d *Database) Depth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.depth
}

func (d *Database) LastError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

func (d *Database) setErr(err error) {
	d.mu.Lock()
	d.lastErr = err
	d.mu.Unlock()
}

func (d *Database) touch(use bool) {
	now := d.now()
	d.mu.Lock()
	d.lastPing = now
	if use {
		d.lastUse = now
	}
	d.mu.Unlock()
}

func (d *Database) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("db.system", d.driver.Type()),
		attribute.String("db.connection_id", d.id),
	)
	return d.tracer.Start(ctx, "database."+op, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}

func (d *Database) endSpan(span trace.Span, err error) {
	if err != nil {
		d.setErr(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Connect opens the backend connection with a copy of params. A connected
// Database is disconnected first.
func (d *Database) Connect(ctx context.Context, params Params) (err error) {
	ctx, span := d.startSpan(ctx, "connect")
	defer func() { d.endSpan(span, err) }()

	if d.Connected() {
		if derr := d.Disconnect(ctx); derr != nil {
			zerolog.Ctx(ctx).Warn().Err(derr).Str("connection_id", d.id).Msg("disconnect before connect")
		}
	}

	params = params.Clone()
	if cerr := d.driver.Connect(ctx, params); cerr != nil {
		// drop whatever the driver managed to set up
		if derr := d.driver.Disconnect(ctx); derr != nil {
			zerolog.Ctx(ctx).Debug().Err(derr).Str("connection_id", d.id).Msg("disconnect after failed connect")
		}
		d.mu.Lock()
		d.connected = false
		d.mu.Unlock()
		return Mark(ErrConnectFailed, errors.Wrapf(cerr, "connect %s", d.driver.Type()))
	}

	now := d.now()
	d.mu.Lock()
	d.connected = true
	d.params = params
	d.hash = params.Hash()
	d.lastUse = now
	d.lastPing = now
	d.depth = 0
	d.lastErr = nil
	d.mu.Unlock()
	return nil
}

// Reconnect is a no-op for a live connection, otherwise it connects again
// with the stored params.
func (d *Database) Reconnect(ctx context.Context) error {
	if d.Connected() && d.Ping(ctx) == nil {
		return nil
	}
	if err := d.Disconnect(ctx); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("connection_id", d.id).Msg("disconnect dead connection")
	}

	d.mu.Lock()
	params := d.params
	d.mu.Unlock()
	if params.Len() == 0 {
		return errors.Wrap(ErrNotConnected, "reconnect without params")
	}
	return d.Connect(ctx, params)
}

// Disconnect closes the backend connection. It is a no-op when not connected.
func (d *Database) Disconnect(ctx context.Context) error {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return nil
	}
	d.connected = false
	d.depth = 0
	d.mu.Unlock()

	if err := d.driver.Disconnect(ctx); err != nil {
		d.setErr(err)
		return errors.Wrap(err, "disconnect")
	}
	return nil
}

// withRetry runs op once more after a reconnect when the driver reports the
// connection as gone. Inside a transaction the error is returned as is.
func (d *Database) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	err := op(ctx)
	if err == nil || d.Depth() > 0 || !d.driver.IsConnectionGone(err) {
		return err
	}

	zerolog.Ctx(ctx).Debug().Err(err).Str("connection_id", d.id).Msg("connection gone, reconnecting")
	if rerr := d.Reconnect(ctx); rerr != nil {
		return errors.Wrapf(err, "reconnect failed: %v", rerr)
	}
	return op(ctx)
}

func (d *Database) Execute(ctx context.Context, query string) (err error) {
	ctx, span := d.startSpan(ctx, "execute", attribute.String("db.statement", query))
	defer func() { d.endSpan(span, err) }()

	if !d.Connected() {
		return ErrNotConnected
	}
	err = d.withRetry(ctx, func(ctx context.Context) error {
		return d.driver.Execute(ctx, query)
	})
	if err != nil {
		return errors.Wrap(err, "execute")
	}
	d.touch(true)
	return nil
}

// Query runs a statement that returns rows. With the buffered param set the
// result is read into memory before returning.
func (d *Database) Query(ctx context.Context, query string) (rs ResultSet, err error) {
	ctx, span := d.startSpan(ctx, "query", attribute.String("db.statement", query))
	defer func() { d.endSpan(span, err) }()

	if !d.Connected() {
		return nil, ErrNotConnected
	}
	err = d.withRetry(ctx, func(ctx context.Context) error {
		var qerr error
		rs, qerr = d.driver.Query(ctx, query)
		return qerr
	})
	if err != nil {
		return nil, errors.Wrap(err, "query")
	}
	d.touch(true)

	d.mu.Lock()
	buffered := d.params.Bool(KeyBuffered)
	d.mu.Unlock()
	if buffered {
		if rs, err = Buffer(rs); err != nil {
			return nil, errors.Wrap(err, "query")
		}
	}
	span.SetAttributes(attribute.Int("db.rows", rs.RowCount()))
	return rs, nil
}

func (d *Database) Ping(ctx context.Context) error {
	if !d.Connected() {
		return ErrNotConnected
	}
	if err := d.driver.Ping(ctx); err != nil {
		d.setErr(err)
		return errors.Wrap(err, "ping")
	}
	d.touch(false)
	return nil
}

func (d *Database) Escape(s string) string {
	return d.driver.Escape(s)
}

func (d *Database) InsertID() (int64, error) {
	return d.driver.InsertID()
}

func (d *Database) AffectedRows() (int64, error) {
	return d.driver.AffectedRows()
}

func savepointName(depth int) string {
	return "sp_" + strconv.Itoa(depth)
}

// Begin opens a transaction, or a savepoint when one is already open.
func (d *Database) Begin(ctx context.Context) error {
	if !d.Connected() {
		return ErrNotConnected
	}
	depth := d.Depth()

	var err error
	if depth == 0 {
		err = d.driver.Begin(ctx)
	} else {
		err = d.driver.Savepoint(ctx, savepointName(depth))
	}
	if err != nil {
		d.setErr(err)
		return errors.Wrapf(err, "begin at depth %d", depth)
	}

	d.mu.Lock()
	d.depth = depth + 1
	d.mu.Unlock()
	d.touch(true)
	return nil
}

// Commit commits the transaction at depth 1 and releases the innermost
// savepoint above it. Depth is not checked for balance.
func (d *Database) Commit(ctx context.Context) error {
	if !d.Connected() {
		return ErrNotConnected
	}
	depth := d.Depth()

	var err error
	if depth <= 1 {
		err = d.driver.Commit(ctx)
	} else {
		err = d.driver.ReleaseSavepoint(ctx, savepointName(depth-1))
	}
	if err != nil {
		d.setErr(err)
		return errors.Wrapf(err, "commit at depth %d", depth)
	}

	d.setDepth(depth - 1)
	d.touch(true)
	return nil
}

// Rollback undoes the innermost level.
func (d *Database) Rollback(ctx context.Context) error {
	if !d.Connected() {
		return ErrNotConnected
	}
	depth := d.Depth()

	var err error
	if depth <= 1 {
		err = d.driver.Rollback(ctx)
	} else {
		err = d.driver.RollbackToSavepoint(ctx, savepointName(depth-1))
	}
	if err != nil {
		d.setErr(err)
		return errors.Wrapf(err, "rollback at depth %d", depth)
	}

	d.setDepth(depth - 1)
	d.touch(true)
	return nil
}

// RollbackToOutermost rolls back the real transaction, whatever the depth.
func (d *Database) RollbackToOutermost(ctx context.Context) error {
	depth := d.Depth()
	if depth == 0 {
		return nil
	}
	if !d.Connected() {
		return ErrNotConnected
	}
	if err := d.driver.Rollback(ctx); err != nil {
		d.setErr(err)
		return errors.Wrapf(err, "rollback from depth %d", depth)
	}
	d.setDepth(0)
	d.touch(true)
	return nil
}

func (d *Database) setDepth(depth int) {
	if depth < 0 {
		depth = 0
	}
	d.mu.Lock()
	d.depth = depth
	d.mu.Unlock()
}
