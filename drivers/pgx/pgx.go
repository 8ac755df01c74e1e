// Package pgx registers the "pgsql" driver type backed by a single pgx connection.
package pgx

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"
	"github.com/soldatov-s/go-dbpool/database"
)

const (
	Type        = "pgsql"
	defaultPort = "5432"
)

func init() {
	database.Register(Type, New)
}

func New(rt *database.Runtime) database.Driver {
	return &Driver{rt: rt}
}

// Driver runs every statement with the simple protocol, so values arrive as text.
type Driver struct {
	rt       *database.Runtime
	conn     *pgx.Conn
	tag      pgconn.CommandTag
	executed bool
	acquired bool
}

// ConnString renders params as a keyword/value connection string.
func ConnString(params database.Params) string {
	kv := []string{
		"host=" + quote(params.ValueOr(database.KeyHost, "localhost")),
		"port=" + quote(params.ValueOr(database.KeyPort, defaultPort)),
		"sslmode=" + quote(params.ValueOr("sslmode", "disable")),
		"connect_timeout=" + quote(params.ValueOr("timeout", "10")),
	}
	if v := params.Value(database.KeyUser); v != "" {
		kv = append(kv, "user="+quote(v))
	}
	if v, ok := params.Get(database.KeyPassword); ok {
		kv = append(kv, "password="+quote(v))
	}
	if v := params.Value(database.KeyDBName); v != "" {
		kv = append(kv, "dbname="+quote(v))
	}
	if v := params.Value(database.KeyCharset); v != "" {
		kv = append(kv, "client_encoding="+quote(v))
	}
	return strings.Join(kv, " ")
}

func quote(v string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
}

func (d *Driver) Type() string {
	return Type
}

func (d *Driver) Connect(ctx context.Context, params database.Params) error {
	cfg, err := pgx.ParseConfig(ConnString(params))
	if err != nil {
		return errors.Wrap(err, "parse config")
	}
	cfg.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	if d.rt != nil && !d.acquired {
		if err := d.rt.Acquire(); err != nil {
			return err
		}
		d.acquired = true
	}

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return err
	}
	d.conn = conn
	return nil
}

func (d *Driver) Disconnect(ctx context.Context) error {
	var result error
	if d.conn != nil {
		if err := d.conn.Close(ctx); err != nil {
			result = errors.Wrap(err, "close connection")
		}
		d.conn = nil
	}
	d.executed = false
	if d.acquired {
		d.acquired = false
		if err := d.rt.Release(); err != nil && result == nil {
			result = err
		}
	}
	return result
}

func (d *Driver) Execute(ctx context.Context, query string) error {
	if d.conn == nil {
		return database.ErrNotConnected
	}
	tag, err := d.conn.Exec(ctx, query)
	if err != nil {
		return err
	}
	d.tag = tag
	d.executed = true
	return nil
}

func (d *Driver) Query(ctx context.Context, query string) (database.ResultSet, error) {
	if d.conn == nil {
		return nil, database.ErrNotConnected
	}
	rows, err := d.conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	descs := rows.FieldDescriptions()
	fields := database.NewFields(len(descs))
	for i, fd := range descs {
		if err := fields.Set(i, fd.Name, FieldType(fd.DataTypeOID)); err != nil {
			rows.Close()
			return nil, err
		}
	}

	next := func() ([]string, []bool, error) {
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return nil, nil, err
			}
			return nil, nil, io.EOF
		}
		raw := rows.RawValues()
		values := make([]string, len(raw))
		nulls := make([]bool, len(raw))
		for i, v := range raw {
			values[i] = string(v)
			nulls[i] = v == nil
		}
		return values, nulls, nil
	}
	closer := func() error {
		rows.Close()
		return rows.Err()
	}
	return database.NewSequentialResultSet(fields, next, closer), nil
}

func (d *Driver) Ping(ctx context.Context) error {
	if d.conn == nil {
		return database.ErrNotConnected
	}
	return d.conn.Ping(ctx)
}

func (d *Driver) Escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// InsertID is not available, use RETURNING.
func (d *Driver) InsertID() (int64, error) {
	return 0, errors.Wrap(database.ErrNotSupported, "insert id on postgres")
}

func (d *Driver) AffectedRows() (int64, error) {
	if !d.executed {
		return 0, errors.New("no statement executed")
	}
	return d.tag.RowsAffected(), nil
}

func (d *Driver) exec(ctx context.Context, sql string) error {
	if d.conn == nil {
		return database.ErrNotConnected
	}
	_, err := d.conn.Exec(ctx, sql)
	return err
}

func (d *Driver) Begin(ctx context.Context) error {
	return d.exec(ctx, "BEGIN")
}

func (d *Driver) Commit(ctx context.Context) error {
	return d.exec(ctx, "COMMIT")
}

func (d *Driver) Rollback(ctx context.Context) error {
	return d.exec(ctx, "ROLLBACK")
}

func (d *Driver) Savepoint(ctx context.Context, name string) error {
	return d.exec(ctx, fmt.Sprintf("SAVEPOINT %s", pgx.Identifier{name}.Sanitize()))
}

func (d *Driver) ReleaseSavepoint(ctx context.Context, name string) error {
	return d.exec(ctx, fmt.Sprintf("RELEASE SAVEPOINT %s", pgx.Identifier{name}.Sanitize()))
}

func (d *Driver) RollbackToSavepoint(ctx context.Context, name string) error {
	return d.exec(ctx, fmt.Sprintf("ROLLBACK TO SAVEPOINT %s", pgx.Identifier{name}.Sanitize()))
}

func (d *Driver) IsConnectionGone(err error) bool {
	if err == nil {
		return false
	}
	if d.conn == nil || d.conn.IsClosed() {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || pgconn.Timeout(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "57P01"
	}
	return false
}

// FieldType maps a postgres type OID.
func FieldType(oid uint32) database.FieldType {
	switch oid {
	case pgtype.Int2OID, pgtype.Int4OID, pgtype.Int8OID, pgtype.OIDOID:
		return database.FieldInteger
	case pgtype.NumericOID, pgtype.Float4OID, pgtype.Float8OID:
		return database.FieldDecimal
	case pgtype.BitOID, pgtype.VarbitOID:
		return database.FieldBit
	case pgtype.TimestamptzOID:
		return database.FieldTimestamp
	case pgtype.TimestampOID:
		return database.FieldDateTime
	case pgtype.DateOID:
		return database.FieldDate
	case pgtype.TimeOID:
		return database.FieldTime
	case pgtype.TextOID, pgtype.VarcharOID, pgtype.BPCharOID, pgtype.NameOID,
		pgtype.UUIDOID, pgtype.JSONOID, pgtype.JSONBOID:
		return database.FieldString
	case pgtype.ByteaOID:
		return database.FieldBinary
	default:
		return database.FieldUnknown
	}
}
