// Package mysql registers the "mysql" driver type backed by go-sql-driver/mysql.
package mysql

import (
	"database/sql"
	"fmt"
	stdlog "log"
	"net"
	"os"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/soldatov-s/go-dbpool/database"
	"github.com/soldatov-s/go-dbpool/drivers/sqlxdriver"
)

const (
	Type        = "mysql"
	defaultPort = "3306"
)

func init() {
	database.Register(Type, New, database.WithRuntimeHooks(installLogger, restoreLogger))
}

func New(rt *database.Runtime) database.Driver {
	return sqlxdriver.New(rt, Dialect{})
}

// driverLogger routes go-sql-driver/mysql messages to zerolog.
type driverLogger struct{}

func (driverLogger) Print(v ...interface{}) {
	zlog.Warn().Str("driver", Type).Msg(fmt.Sprint(v...))
}

func installLogger() error {
	return mysql.SetLogger(driverLogger{})
}

func restoreLogger() error {
	return mysql.SetLogger(stdlog.New(os.Stderr, "[mysql] ", stdlog.Ldate|stdlog.Ltime|stdlog.Lshortfile))
}

type Dialect struct{}

func (Dialect) Type() string       { return Type }
func (Dialect) DriverName() string { return "mysql" }

// DSN understands interface=unix with the socket path in host, charset,
// packetsize and a connect timeout in seconds.
func (Dialect) DSN(params database.Params) (string, error) {
	cfg := mysql.NewConfig()
	cfg.User = params.Value(database.KeyUser)
	cfg.Passwd = params.Value(database.KeyPassword)
	cfg.DBName = params.Value(database.KeyDBName)

	host := params.ValueOr(database.KeyHost, "localhost")
	if params.Value(database.KeyInterface) == "unix" {
		cfg.Net = "unix"
		cfg.Addr = host
	} else {
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(host, params.ValueOr(database.KeyPort, defaultPort))
	}

	if charset := params.Value(database.KeyCharset); charset != "" {
		cfg.Params = map[string]string{"charset": charset}
	}

	packetSize, err := params.Int("packetsize", 0)
	if err != nil {
		return "", err
	}
	if packetSize > 0 {
		cfg.MaxAllowedPacket = packetSize
	}

	timeout, err := params.Int("timeout", 10)
	if err != nil {
		return "", err
	}
	cfg.Timeout = time.Duration(timeout) * time.Second

	return cfg.FormatDSN(), nil
}

func (Dialect) Escape(s string) string {
	return sqlxdriver.BackslashEscaper.Replace(s)
}

var typeTable = map[string]database.FieldType{
	"TINYINT":   database.FieldInteger,
	"SMALLINT":  database.FieldInteger,
	"MEDIUMINT": database.FieldInteger,
	"INT":       database.FieldInteger,
	"BIGINT":    database.FieldInteger,
	"YEAR":      database.FieldInteger,
	"DECIMAL":   database.FieldDecimal,
	"FLOAT":     database.FieldDecimal,
	"DOUBLE":    database.FieldDecimal,
	"BIT":       database.FieldBit,
	"TIMESTAMP": database.FieldTimestamp,
	"DATE":      database.FieldDate,
	"TIME":      database.FieldTime,
	"DATETIME":  database.FieldDateTime,
	"CHAR":      database.FieldString,
	"VARCHAR":   database.FieldString,
	"TEXT":      database.FieldString,
	"JSON":      database.FieldString,
	"ENUM":      database.FieldEnum,
	"SET":       database.FieldEnum,
	"BINARY":    database.FieldBinary,
	"VARBINARY": database.FieldBinary,
	"GEOMETRY":  database.FieldBinary,
}

var typePrefixes = []sqlxdriver.TypePrefix{
	{Prefix: "UNSIGNED", Type: database.FieldInteger},
	{Prefix: "TINYTEXT", Type: database.FieldString},
	{Prefix: "MEDIUMTEXT", Type: database.FieldString},
	{Prefix: "LONGTEXT", Type: database.FieldString},
	{Prefix: "TINYBLOB", Type: database.FieldBinary},
	{Prefix: "MEDIUMBLOB", Type: database.FieldBinary},
	{Prefix: "LONGBLOB", Type: database.FieldBinary},
	{Prefix: "BLOB", Type: database.FieldBinary},
}

func (Dialect) FieldType(ct *sql.ColumnType) database.FieldType {
	return sqlxdriver.LookupType(ct.DatabaseTypeName(), typeTable, typePrefixes)
}

// Client side codes for a lost server and the server codes for a killed connection.
var goneCodes = map[uint16]bool{
	1053: true, // server shutdown in progress
	1927: true, // connection was killed
	2006: true, // server has gone away
	2013: true, // lost connection during query
}

func (Dialect) IsConnectionGone(err error) bool {
	if errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return goneCodes[myErr.Number]
	}
	return false
}

func (Dialect) Transactions() *sqlxdriver.TxStatements {
	return &sqlxdriver.TxStatements{
		Begin:               "START TRANSACTION",
		Commit:              "COMMIT",
		Rollback:            "ROLLBACK",
		Savepoint:           "SAVEPOINT ",
		ReleaseSavepoint:    "RELEASE SAVEPOINT ",
		RollbackToSavepoint: "ROLLBACK TO SAVEPOINT ",
	}
}
