// Package pq registers the "postgres" driver type backed by lib/pq.
package pq

import (
	"database/sql"
	"net"
	"net/url"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/soldatov-s/go-dbpool/database"
	"github.com/soldatov-s/go-dbpool/drivers/sqlxdriver"
)

const (
	Type               = "postgres"
	defaultPort        = "5432"
	defaultSSLMode     = "disable"
	defaultConnTimeout = "10"
)

func init() {
	database.Register(Type, New)
}

func New(rt *database.Runtime) database.Driver {
	return sqlxdriver.New(rt, Dialect{})
}

type Dialect struct{}

func (Dialect) Type() string       { return Type }
func (Dialect) DriverName() string { return "postgres" }

// DSN builds a postgres:// URL. With interface=unix host is the socket directory.
func (Dialect) DSN(params database.Params) (string, error) {
	u := url.URL{
		Scheme: "postgres",
		Path:   "/" + params.Value(database.KeyDBName),
	}
	if user := params.Value(database.KeyUser); user != "" {
		if pw, ok := params.Get(database.KeyPassword); ok {
			u.User = url.UserPassword(user, pw)
		} else {
			u.User = url.User(user)
		}
	}

	q := url.Values{}
	host := params.ValueOr(database.KeyHost, "localhost")
	if params.Value(database.KeyInterface) == "unix" {
		q.Set("host", host)
	} else {
		u.Host = net.JoinHostPort(host, params.ValueOr(database.KeyPort, defaultPort))
	}
	q.Set("sslmode", params.ValueOr("sslmode", defaultSSLMode))
	q.Set("connect_timeout", params.ValueOr("timeout", defaultConnTimeout))
	if charset := params.Value(database.KeyCharset); charset != "" {
		q.Set("client_encoding", charset)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (Dialect) Escape(s string) string {
	return sqlxdriver.QuoteEscaper.Replace(s)
}

var typeTable = map[string]database.FieldType{
	"INT2":        database.FieldInteger,
	"INT4":        database.FieldInteger,
	"INT8":        database.FieldInteger,
	"OID":         database.FieldInteger,
	"NUMERIC":     database.FieldDecimal,
	"FLOAT4":      database.FieldDecimal,
	"FLOAT8":      database.FieldDecimal,
	"MONEY":       database.FieldDecimal,
	"BIT":         database.FieldBit,
	"VARBIT":      database.FieldBit,
	"TIMESTAMPTZ": database.FieldTimestamp,
	"TIMESTAMP":   database.FieldDateTime,
	"DATE":        database.FieldDate,
	"TIME":        database.FieldTime,
	"TIMETZ":      database.FieldTime,
	"TEXT":        database.FieldString,
	"VARCHAR":     database.FieldString,
	"BPCHAR":      database.FieldString,
	"NAME":        database.FieldString,
	"UUID":        database.FieldString,
	"JSON":        database.FieldString,
	"JSONB":       database.FieldString,
	"BYTEA":       database.FieldBinary,
}

func (Dialect) FieldType(ct *sql.ColumnType) database.FieldType {
	return sqlxdriver.LookupType(ct.DatabaseTypeName(), typeTable, nil)
}

// IsConnectionGone matches connection exception class 08 and admin shutdown.
func (Dialect) IsConnectionGone(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code.Class() == "08" || pqErr.Code == "57P01"
}

func (Dialect) Transactions() *sqlxdriver.TxStatements {
	return sqlxdriver.StandardTx
}
