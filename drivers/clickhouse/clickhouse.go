// Package clickhouse registers the "clickhouse" driver type backed by
// ClickHouse/clickhouse-go.
package clickhouse

import (
	"database/sql"
	"net"
	"net/url"

	"github.com/ClickHouse/clickhouse-go"
	"github.com/pkg/errors"
	"github.com/soldatov-s/go-dbpool/database"
	"github.com/soldatov-s/go-dbpool/drivers/sqlxdriver"
)

const (
	Type        = "clickhouse"
	defaultPort = "9000"

	// NETWORK_ERROR, SOCKET_TIMEOUT and ALL_CONNECTION_TRIES_FAILED
	codeNetworkError   = 210
	codeSocketTimeout  = 209
	codeAllTriesFailed = 279
)

func init() {
	database.Register(Type, New)
}

func New(rt *database.Runtime) database.Driver {
	return sqlxdriver.New(rt, Dialect{})
}

type Dialect struct{}

func (Dialect) Type() string       { return Type }
func (Dialect) DriverName() string { return "clickhouse" }

func (Dialect) DSN(params database.Params) (string, error) {
	q := url.Values{}
	if user := params.Value(database.KeyUser); user != "" {
		q.Set("username", user)
	}
	if pw := params.Value(database.KeyPassword); pw != "" {
		q.Set("password", pw)
	}
	if db := params.Value(database.KeyDBName); db != "" {
		q.Set("database", db)
	}
	q.Set("read_timeout", params.ValueOr("timeout", "10"))
	q.Set("write_timeout", params.ValueOr("timeout", "10"))
	if params.Bool("debug") {
		q.Set("debug", "true")
	}

	u := url.URL{
		Scheme:   "tcp",
		Host:     net.JoinHostPort(params.ValueOr(database.KeyHost, "localhost"), params.ValueOr(database.KeyPort, defaultPort)),
		RawQuery: q.Encode(),
	}
	return u.String(), nil
}

func (Dialect) Escape(s string) string {
	return sqlxdriver.BackslashEscaper.Replace(s)
}

var typeTable = map[string]database.FieldType{
	"DATE":        database.FieldDate,
	"DATE32":      database.FieldDate,
	"DATETIME":    database.FieldDateTime,
	"DATETIME64":  database.FieldDateTime,
	"STRING":      database.FieldString,
	"FIXEDSTRING": database.FieldString,
	"UUID":        database.FieldString,
	"IPV4":        database.FieldString,
	"IPV6":        database.FieldString,
}

var typePrefixes = []sqlxdriver.TypePrefix{
	{Prefix: "INT", Type: database.FieldInteger},
	{Prefix: "UINT", Type: database.FieldInteger},
	{Prefix: "FLOAT", Type: database.FieldDecimal},
	{Prefix: "DECIMAL", Type: database.FieldDecimal},
	{Prefix: "ENUM", Type: database.FieldEnum},
}

func (Dialect) FieldType(ct *sql.ColumnType) database.FieldType {
	return sqlxdriver.LookupType(ct.DatabaseTypeName(), typeTable, typePrefixes)
}

func (Dialect) IsConnectionGone(err error) bool {
	var exc *clickhouse.Exception
	if !errors.As(err, &exc) {
		return false
	}
	switch exc.Code {
	case codeNetworkError, codeSocketTimeout, codeAllTriesFailed:
		return true
	}
	return false
}

// Transactions is nil, ClickHouse has none.
func (Dialect) Transactions() *sqlxdriver.TxStatements {
	return nil
}
