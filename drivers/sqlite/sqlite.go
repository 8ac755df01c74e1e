// Package sqlite registers the "sqlite" driver type backed by mattn/go-sqlite3.
package sqlite

import (
	"database/sql"
	"net/url"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/soldatov-s/go-dbpool/database"
	"github.com/soldatov-s/go-dbpool/drivers/sqlxdriver"
)

const (
	Type               = "sqlite"
	defaultBusyTimeout = "5000"
)

func init() {
	database.Register(Type, New, database.WithRuntimeHooks(logVersion, nil))
}

func New(rt *database.Runtime) database.Driver {
	return sqlxdriver.New(rt, Dialect{})
}

func logVersion() error {
	version, number, source := sqlite3.Version()
	zlog.Debug().Str("driver", Type).Str("version", version).Int("version_number", number).Str("source_id", source).Msg("sqlite library loaded")
	return nil
}

type Dialect struct{}

func (Dialect) Type() string       { return Type }
func (Dialect) DriverName() string { return "sqlite3" }

// DSN opens dbname as a file URI, an empty dbname is an in-memory database.
func (Dialect) DSN(params database.Params) (string, error) {
	name := params.ValueOr(database.KeyDBName, ":memory:")
	q := url.Values{}
	q.Set("_busy_timeout", params.ValueOr("busy_timeout", defaultBusyTimeout))
	if params.Bool("foreign_keys") {
		q.Set("_foreign_keys", "1")
	}
	return "file:" + name + "?" + q.Encode(), nil
}

func (Dialect) Escape(s string) string {
	return sqlxdriver.QuoteEscaper.Replace(s)
}

var typeTable = map[string]database.FieldType{
	"INTEGER":   database.FieldInteger,
	"INT":       database.FieldInteger,
	"BIGINT":    database.FieldInteger,
	"SMALLINT":  database.FieldInteger,
	"TINYINT":   database.FieldInteger,
	"BOOLEAN":   database.FieldInteger,
	"REAL":      database.FieldDecimal,
	"NUMERIC":   database.FieldDecimal,
	"DECIMAL":   database.FieldDecimal,
	"FLOAT":     database.FieldDecimal,
	"DOUBLE":    database.FieldDecimal,
	"DATE":      database.FieldDate,
	"TIME":      database.FieldTime,
	"DATETIME":  database.FieldDateTime,
	"TIMESTAMP": database.FieldTimestamp,
	"TEXT":      database.FieldString,
	"VARCHAR":   database.FieldString,
	"CHAR":      database.FieldString,
	"CLOB":      database.FieldString,
	"BLOB":      database.FieldBinary,
}

func (Dialect) FieldType(ct *sql.ColumnType) database.FieldType {
	return sqlxdriver.LookupType(ct.DatabaseTypeName(), typeTable, nil)
}

// IsConnectionGone is false for anything the file engine reports itself.
func (Dialect) IsConnectionGone(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrCantOpen || sqliteErr.Code == sqlite3.ErrNotADB
	}
	return strings.Contains(err.Error(), "database is closed")
}

func (Dialect) Transactions() *sqlxdriver.TxStatements {
	return sqlxdriver.StandardTx
}
