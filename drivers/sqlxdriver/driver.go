// Package sqlxdriver implements database.Driver over a single database/sql
// connection. Products plug in through a Dialect.
package sqlxdriver

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"net"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/soldatov-s/go-dbpool/database"
)

var ErrNoResult = errors.New("no statement executed")

// Driver keeps one open connection. A result must be closed before the next
// statement runs on the same Driver.
type Driver struct {
	dialect Dialect
	rt      *database.Runtime

	db       *sqlx.DB
	conn     *sqlx.Conn
	result   sql.Result
	acquired bool
}

func New(rt *database.Runtime, dialect Dialect) *Driver {
	return &Driver{rt: rt, dialect: dialect}
}

func (d *Driver) Type() string {
	return d.dialect.Type()
}

func (d *Driver) Connect(ctx context.Context, params database.Params) error {
	dsn, err := d.dialect.DSN(params)
	if err != nil {
		return errors.Wrap(err, "compose dsn")
	}

	if d.rt != nil && !d.acquired {
		if err := d.rt.Acquire(); err != nil {
			return err
		}
		d.acquired = true
	}

	db, err := sqlx.Open(d.dialect.DriverName(), dsn)
	if err != nil {
		return errors.Wrap(err, "open")
	}
	// one backend connection per Driver
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	d.db = db

	conn, err := db.Connx(ctx)
	if err != nil {
		return errors.Wrap(err, "establish connection")
	}
	d.conn = conn

	if err := conn.PingContext(ctx); err != nil {
		return errors.Wrap(err, "ping")
	}
	return nil
}

func (d *Driver) Disconnect(ctx context.Context) error {
	var result error
	if d.conn != nil {
		if err := d.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			result = errors.Wrap(err, "close connection")
		}
		d.conn = nil
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil && result == nil {
			result = errors.Wrap(err, "close db")
		}
		d.db = nil
	}
	d.result = nil
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
	res, err := d.conn.ExecContext(ctx, query)
	if err != nil {
		return err
	}
	d.result = res
	return nil
}

func (d *Driver) Query(ctx context.Context, query string) (database.ResultSet, error) {
	if d.conn == nil {
		return nil, database.ErrNotConnected
	}
	rows, err := d.conn.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	rs, err := newCursor(rows, d.dialect)
	if err != nil {
		_ = rows.Close()
		return nil, err
	}
	return rs, nil
}

func (d *Driver) Ping(ctx context.Context) error {
	if d.conn == nil {
		return database.ErrNotConnected
	}
	return d.conn.PingContext(ctx)
}

func (d *Driver) Escape(s string) string {
	return d.dialect.Escape(s)
}

func (d *Driver) InsertID() (int64, error) {
	if d.result == nil {
		return 0, ErrNoResult
	}
	id, err := d.result.LastInsertId()
	if err != nil {
		return 0, database.Mark(database.ErrNotSupported, err)
	}
	return id, nil
}

func (d *Driver) AffectedRows() (int64, error) {
	if d.result == nil {
		return 0, ErrNoResult
	}
	n, err := d.result.RowsAffected()
	if err != nil {
		return 0, database.Mark(database.ErrNotSupported, err)
	}
	return n, nil
}

func (d *Driver) tx(ctx context.Context, pick func(tx *TxStatements) string, name string) error {
	stmts := d.dialect.Transactions()
	if stmts == nil {
		return errors.Wrapf(database.ErrNotSupported, "%s transactions", d.dialect.Type())
	}
	if d.conn == nil {
		return database.ErrNotConnected
	}
	_, err := d.conn.ExecContext(ctx, pick(stmts)+name)
	return err
}

func (d *Driver) Begin(ctx context.Context) error {
	return d.tx(ctx, func(tx *TxStatements) string { return tx.Begin }, "")
}

func (d *Driver) Commit(ctx context.Context) error {
	return d.tx(ctx, func(tx *TxStatements) string { return tx.Commit }, "")
}

func (d *Driver) Rollback(ctx context.Context) error {
	return d.tx(ctx, func(tx *TxStatements) string { return tx.Rollback }, "")
}

func (d *Driver) Savepoint(ctx context.Context, name string) error {
	return d.tx(ctx, func(tx *TxStatements) string { return tx.Savepoint }, name)
}

func (d *Driver) ReleaseSavepoint(ctx context.Context, name string) error {
	return d.tx(ctx, func(tx *TxStatements) string { return tx.ReleaseSavepoint }, name)
}

func (d *Driver) RollbackToSavepoint(ctx context.Context, name string) error {
	return d.tx(ctx, func(tx *TxStatements) string { return tx.RollbackToSavepoint }, name)
}

// IsConnectionGone covers database/sql's own signals, network errors and
// whatever the dialect adds.
func (d *Driver) IsConnectionGone(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return d.dialect.IsConnectionGone(err)
}
