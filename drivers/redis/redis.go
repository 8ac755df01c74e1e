// Package redis registers the "redis" driver type backed by go-redis.
// Statements are command lines such as `SET key "a value"`.
package redis

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/soldatov-s/go-dbpool/database"
)

const (
	Type        = "redis"
	defaultPort = "6379"
	valueField  = "value"
)

func init() {
	database.Register(Type, New)
}

func New(rt *database.Runtime) database.Driver {
	return &Driver{rt: rt}
}

// Driver holds one dedicated redis connection.
type Driver struct {
	rt       *database.Runtime
	client   *redis.Client
	conn     *redis.Conn
	affected int64
	acquired bool
}

// Options maps params onto go-redis client options.
func Options(params database.Params) (*redis.Options, error) {
	db, err := params.Int(database.KeyDBName, 0)
	if err != nil {
		return nil, err
	}

	opts := &redis.Options{
		Username:     params.Value(database.KeyUser),
		Password:     params.Value(database.KeyPassword),
		DB:           db,
		PoolSize:     1,
		MinIdleConns: 0,
		MaxRetries:   -1,
	}

	host := params.ValueOr(database.KeyHost, "localhost")
	if params.Value(database.KeyInterface) == "unix" {
		opts.Network = "unix"
		opts.Addr = host
	} else {
		opts.Network = "tcp"
		opts.Addr = net.JoinHostPort(host, params.ValueOr(database.KeyPort, defaultPort))
	}
	return opts, nil
}

func (d *Driver) Type() string {
	return Type
}

func (d *Driver) Connect(ctx context.Context, params database.Params) error {
	opts, err := Options(params)
	if err != nil {
		return err
	}

	if d.rt != nil && !d.acquired {
		if err := d.rt.Acquire(); err != nil {
			return err
		}
		d.acquired = true
	}

	d.client = redis.NewClient(opts)
	d.conn = d.client.Conn(ctx)
	return d.conn.Ping(ctx).Err()
}

func (d *Driver) Disconnect(ctx context.Context) error {
	var result error
	if d.conn != nil {
		if err := d.conn.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			result = errors.Wrap(err, "close connection")
		}
		d.conn = nil
	}
	if d.client != nil {
		if err := d.client.Close(); err != nil && result == nil && !errors.Is(err, redis.ErrClosed) {
			result = errors.Wrap(err, "close client")
		}
		d.client = nil
	}
	if d.acquired {
		d.acquired = false
		if err := d.rt.Release(); err != nil && result == nil {
			result = err
		}
	}
	return result
}

func (d *Driver) do(ctx context.Context, args ...interface{}) (interface{}, error) {
	if d.conn == nil {
		return nil, database.ErrNotConnected
	}
	cmd := redis.NewCmd(ctx, args...)
	if err := d.conn.Process(ctx, cmd); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	val, err := cmd.Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return val, err
}

func (d *Driver) run(ctx context.Context, line string) (interface{}, error) {
	args, err := SplitCommand(line)
	if err != nil {
		return nil, err
	}
	iargs := make([]interface{}, len(args))
	for i, a := range args {
		iargs[i] = a
	}
	return d.do(ctx, iargs...)
}

func (d *Driver) Execute(ctx context.Context, query string) error {
	val, err := d.run(ctx, query)
	if err != nil {
		return err
	}
	d.affected = 0
	if n, ok := val.(int64); ok {
		d.affected = n
	}
	return nil
}

// Query returns the reply as a one column result, one row per array element.
func (d *Driver) Query(ctx context.Context, query string) (database.ResultSet, error) {
	val, err := d.run(ctx, query)
	if err != nil {
		return nil, err
	}
	return Result(val)
}

// Result converts a redis reply to a buffered result.
func Result(val interface{}) (*database.BufferedResultSet, error) {
	var items []interface{}
	switch v := val.(type) {
	case nil:
	case []interface{}:
		items = v
	default:
		items = []interface{}{v}
	}

	typ := database.FieldString
	if len(items) > 0 {
		if _, ok := items[0].(int64); ok {
			typ = database.FieldInteger
		}
	}

	rs := database.NewBufferedResultSet()
	if err := rs.SetFieldCount(1); err != nil {
		return nil, err
	}
	if err := rs.SetFieldName(0, valueField, typ); err != nil {
		return nil, err
	}
	for _, item := range items {
		if err := rs.NewRow(); err != nil {
			return nil, err
		}
		var err error
		switch v := item.(type) {
		case nil:
			err = rs.StoreNull(0)
		case int64:
			err = rs.StoreInt(0, v)
		case string:
			err = rs.StoreField(0, []byte(v))
		default:
			err = rs.StoreField(0, []byte(fmt.Sprint(v)))
		}
		if err != nil {
			return nil, err
		}
	}
	if err := rs.BuildIndex(); err != nil {
		return nil, err
	}
	return rs, nil
}

func (d *Driver) Ping(ctx context.Context) error {
	if d.conn == nil {
		return database.ErrNotConnected
	}
	return d.conn.Ping(ctx).Err()
}

func (d *Driver) Escape(s string) string {
	return Quote(s)
}

func (d *Driver) InsertID() (int64, error) {
	return 0, errors.Wrap(database.ErrNotSupported, "insert id on redis")
}

// AffectedRows is the integer reply of the last executed command.
func (d *Driver) AffectedRows() (int64, error) {
	return d.affected, nil
}

func (d *Driver) Begin(ctx context.Context) error {
	_, err := d.do(ctx, "MULTI")
	return err
}

func (d *Driver) Commit(ctx context.Context) error {
	_, err := d.do(ctx, "EXEC")
	return err
}

func (d *Driver) Rollback(ctx context.Context) error {
	_, err := d.do(ctx, "DISCARD")
	return err
}

func (d *Driver) Savepoint(ctx context.Context, name string) error {
	return errors.Wrap(database.ErrNotSupported, "redis savepoints")
}

func (d *Driver) ReleaseSavepoint(ctx context.Context, name string) error {
	return errors.Wrap(database.ErrNotSupported, "redis savepoints")
}

func (d *Driver) RollbackToSavepoint(ctx context.Context, name string) error {
	return errors.Wrap(database.ErrNotSupported, "redis savepoints")
}

func (d *Driver) IsConnectionGone(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, redis.ErrClosed) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
