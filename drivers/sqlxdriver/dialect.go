package sqlxdriver

import (
	"database/sql"
	"strings"

	"github.com/soldatov-s/go-dbpool/database"
)

// Dialect is what a database product adds on top of the shared sqlx driver.
type Dialect interface {
	// Type is the value of the type param that selects the dialect.
	Type() string
	// DriverName is the database/sql driver to open.
	DriverName() string
	DSN(params database.Params) (string, error)
	Escape(s string) string
	FieldType(ct *sql.ColumnType) database.FieldType
	IsConnectionGone(err error) bool
	// Transactions returns nil when the product has no transactions.
	Transactions() *TxStatements
}

// TxStatements is the SQL used for transactions. Savepoint statements are
// prefixes the savepoint name is appended to.
type TxStatements struct {
	Begin               string
	Commit              string
	Rollback            string
	Savepoint           string
	ReleaseSavepoint    string
	RollbackToSavepoint string
}

// StandardTx is ANSI transaction SQL with savepoints.
var StandardTx = &TxStatements{
	Begin:               "BEGIN",
	Commit:              "COMMIT",
	Rollback:            "ROLLBACK",
	Savepoint:           "SAVEPOINT ",
	ReleaseSavepoint:    "RELEASE SAVEPOINT ",
	RollbackToSavepoint: "ROLLBACK TO SAVEPOINT ",
}

// TypeName upper-cases a column type name and strips its arguments,
// so VARCHAR(32) becomes VARCHAR and Nullable(Int32) becomes INT32.
func TypeName(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	for _, wrapper := range []string{"NULLABLE(", "LOWCARDINALITY("} {
		if strings.HasPrefix(name, wrapper) && strings.HasSuffix(name, ")") {
			name = name[len(wrapper) : len(name)-1]
		}
	}
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	if i := strings.IndexByte(name, ' '); i >= 0 && !strings.HasPrefix(name, "DOUBLE") {
		name = name[:i]
	}
	return name
}

// LookupType maps a column type name through table, falling back to prefix
// matches in order.
func LookupType(name string, table map[string]database.FieldType, prefixes []TypePrefix) database.FieldType {
	name = TypeName(name)
	if t, ok := table[name]; ok {
		return t
	}
	for _, p := range prefixes {
		if strings.HasPrefix(name, p.Prefix) {
			return p.Type
		}
	}
	return database.FieldUnknown
}

type TypePrefix struct {
	Prefix string
	Type   database.FieldType
}

// QuoteEscaper doubles single quotes, enough for standard conforming strings.
var QuoteEscaper = strings.NewReplacer("'", "''")

// BackslashEscaper escapes the way MySQL and ClickHouse string literals need.
var BackslashEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"'", "\\'",
	"\"", "\\\"",
	"\x00", "\\0",
	"\n", "\\n",
	"\r", "\\r",
	"\x1a", "\\Z",
)
