// Package mongo registers the "mongodb" driver type backed by the official
// mongo driver. Statements are database commands in extended JSON, for
// example {"find": "users", "filter": {"age": {"$gt": 18}}}.
package mongo

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/soldatov-s/go-dbpool/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	Type        = "mongodb"
	defaultPort = "27017"
)

// cursorCommands reply with a cursor instead of a single document.
var cursorCommands = map[string]bool{
	"find":            true,
	"aggregate":       true,
	"listCollections": true,
	"listIndexes":     true,
}

func init() {
	database.Register(Type, New)
}

func New(rt *database.Runtime) database.Driver {
	return &Driver{rt: rt}
}

type Driver struct {
	rt       *database.Runtime
	client   *mongo.Client
	db       *mongo.Database
	affected int64
	acquired bool
}

// URI builds a mongodb:// connection string from params.
func URI(params database.Params) string {
	u := url.URL{
		Scheme: "mongodb",
		Host:   net.JoinHostPort(params.ValueOr(database.KeyHost, "localhost"), params.ValueOr(database.KeyPort, defaultPort)),
		Path:   "/",
	}
	if user := params.Value(database.KeyUser); user != "" {
		u.User = url.UserPassword(user, params.Value(database.KeyPassword))
	}
	q := url.Values{}
	if v := params.Value("authsource"); v != "" {
		q.Set("authSource", v)
	}
	if v := params.Value("replicaset"); v != "" {
		q.Set("replicaSet", v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (d *Driver) Type() string {
	return Type
}

func (d *Driver) Connect(ctx context.Context, params database.Params) error {
	timeout, err := params.Int("timeout", 10)
	if err != nil {
		return err
	}

	if d.rt != nil && !d.acquired {
		if err := d.rt.Acquire(); err != nil {
			return err
		}
		d.acquired = true
	}

	opts := options.Client().
		ApplyURI(URI(params)).
		SetMaxPoolSize(1).
		SetMinPoolSize(0).
		SetConnectTimeout(time.Duration(timeout) * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return err
	}
	d.client = client
	d.db = client.Database(params.ValueOr(database.KeyDBName, "test"))

	return client.Ping(ctx, readpref.Primary())
}

func (d *Driver) Disconnect(ctx context.Context) error {
	var result error
	if d.client != nil {
		if err := d.client.Disconnect(ctx); err != nil && !errors.Is(err, mongo.ErrClientDisconnected) {
			result = errors.Wrap(err, "disconnect client")
		}
		d.client = nil
		d.db = nil
	}
	if d.acquired {
		d.acquired = false
		if err := d.rt.Release(); err != nil && result == nil {
			result = err
		}
	}
	return result
}

// ParseCommand reads an extended JSON command document, keeping key order.
func ParseCommand(query string) (bson.D, error) {
	var cmd bson.D
	if err := bson.UnmarshalExtJSON([]byte(query), false, &cmd); err != nil {
		return nil, errors.Wrap(err, "parse command")
	}
	if len(cmd) == 0 {
		return nil, errors.New("empty command")
	}
	return cmd, nil
}

func (d *Driver) Execute(ctx context.Context, query string) error {
	if d.db == nil {
		return database.ErrNotConnected
	}
	cmd, err := ParseCommand(query)
	if err != nil {
		return err
	}
	raw, err := d.db.RunCommand(ctx, cmd).Raw()
	if err != nil {
		return err
	}
	d.affected = 0
	if rv, err := raw.LookupErr("n"); err == nil {
		d.affected = intValue(rv)
	}
	return nil
}

func (d *Driver) Query(ctx context.Context, query string) (database.ResultSet, error) {
	if d.db == nil {
		return nil, database.ErrNotConnected
	}
	cmd, err := ParseCommand(query)
	if err != nil {
		return nil, err
	}

	if !cursorCommands[cmd[0].Key] {
		raw, err := d.db.RunCommand(ctx, cmd).Raw()
		if err != nil {
			return nil, err
		}
		return DocumentResult(raw)
	}

	cursor, err := d.db.RunCommandCursor(ctx, cmd)
	if err != nil {
		return nil, err
	}
	rs, err := cursorResult(ctx, cursor)
	if err != nil {
		_ = cursor.Close(ctx)
		return nil, err
	}
	return rs, nil
}

// cursorResult takes the columns from the first document. Keys missing in
// later documents read as NULL, extra keys are dropped.
func cursorResult(ctx context.Context, cursor *mongo.Cursor) (*database.SequentialResultSet, error) {
	var first bson.Raw
	if cursor.Next(ctx) {
		first = cursor.Current
	} else if err := cursor.Err(); err != nil {
		return nil, err
	}

	fields, err := documentFields(first)
	if err != nil {
		return nil, err
	}

	pending := first
	next := func() ([]string, []bool, error) {
		doc := pending
		pending = nil
		if doc == nil {
			if !cursor.Next(ctx) {
				if err := cursor.Err(); err != nil {
					return nil, nil, err
				}
				return nil, nil, io.EOF
			}
			doc = cursor.Current
		}
		values, nulls := documentRow(fields, doc)
		return values, nulls, nil
	}
	return database.NewSequentialResultSet(fields, next, func() error {
		return cursor.Close(ctx)
	}), nil
}

// DocumentResult turns a single reply document into a one row result.
func DocumentResult(doc bson.Raw) (*database.BufferedResultSet, error) {
	fields, err := documentFields(doc)
	if err != nil {
		return nil, err
	}

	rs := database.NewBufferedResultSet()
	if err := rs.SetFieldCount(fields.FieldCount()); err != nil {
		return nil, err
	}
	for i := 0; i < fields.FieldCount(); i++ {
		name, _ := fields.FieldName(i)
		typ, _ := fields.FieldType(i)
		if err := rs.SetFieldName(i, name, typ); err != nil {
			return nil, err
		}
	}

	if doc != nil {
		if err := rs.NewRow(); err != nil {
			return nil, err
		}
		values, nulls := documentRow(fields, doc)
		for i, v := range values {
			if nulls[i] {
				continue
			}
			if err := rs.StoreField(i, []byte(v)); err != nil {
				return nil, err
			}
		}
	}
	if err := rs.BuildIndex(); err != nil {
		return nil, err
	}
	return rs, nil
}

func documentFields(doc bson.Raw) (*database.Fields, error) {
	if doc == nil {
		return database.NewFields(0), nil
	}
	elems, err := doc.Elements()
	if err != nil {
		return nil, errors.Wrap(err, "read document")
	}
	fields := database.NewFields(len(elems))
	for i, e := range elems {
		if err := fields.Set(i, e.Key(), FieldType(e.Value().Type)); err != nil {
			return nil, err
		}
	}
	return fields, nil
}

func documentRow(fields *database.Fields, doc bson.Raw) ([]string, []bool) {
	n := fields.FieldCount()
	values := make([]string, n)
	nulls := make([]bool, n)
	for i := 0; i < n; i++ {
		name, _ := fields.FieldName(i)
		rv, err := doc.LookupErr(name)
		if err != nil || rv.Type == bsontype.Null || rv.Type == bsontype.Undefined {
			nulls[i] = true
			continue
		}
		values[i] = FormatValue(rv)
	}
	return values, nulls
}

// FieldType maps a BSON type.
func FieldType(t bsontype.Type) database.FieldType {
	switch t {
	case bsontype.Int32, bsontype.Int64:
		return database.FieldInteger
	case bsontype.Double, bsontype.Decimal128:
		return database.FieldDecimal
	case bsontype.Boolean:
		return database.FieldBit
	case bsontype.DateTime, bsontype.Timestamp:
		return database.FieldTimestamp
	case bsontype.String, bsontype.ObjectID, bsontype.Symbol, bsontype.EmbeddedDocument, bsontype.Array:
		return database.FieldString
	case bsontype.Binary:
		return database.FieldBinary
	default:
		return database.FieldUnknown
	}
}

// FormatValue renders scalars plainly and documents as extended JSON.
func FormatValue(rv bson.RawValue) string {
	switch rv.Type {
	case bsontype.String:
		return rv.StringValue()
	case bsontype.Int32, bsontype.Int64:
		return strconv.FormatInt(intValue(rv), 10)
	case bsontype.Double:
		return strconv.FormatFloat(rv.Double(), 'f', -1, 64)
	case bsontype.Boolean:
		if rv.Boolean() {
			return "1"
		}
		return "0"
	case bsontype.DateTime:
		return time.UnixMilli(rv.DateTime()).UTC().Format(time.RFC3339Nano)
	case bsontype.ObjectID:
		return rv.ObjectID().Hex()
	case bsontype.Decimal128:
		return rv.Decimal128().String()
	case bsontype.Binary:
		_, data := rv.Binary()
		return string(data)
	default:
		return rv.String()
	}
}

func intValue(rv bson.RawValue) int64 {
	switch rv.Type {
	case bsontype.Int32:
		return int64(rv.Int32())
	case bsontype.Int64:
		return rv.Int64()
	case bsontype.Double:
		return int64(rv.Double())
	default:
		return 0
	}
}

func (d *Driver) Ping(ctx context.Context) error {
	if d.client == nil {
		return database.ErrNotConnected
	}
	return d.client.Ping(ctx, readpref.Primary())
}

// Escape returns s as the body of a JSON string literal.
func (d *Driver) Escape(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return s
	}
	return string(b[1 : len(b)-1])
}

func (d *Driver) InsertID() (int64, error) {
	return 0, errors.Wrap(database.ErrNotSupported, "insert id on mongodb")
}

// AffectedRows is the n field of the last executed command reply.
func (d *Driver) AffectedRows() (int64, error) {
	return d.affected, nil
}

func (d *Driver) Begin(ctx context.Context) error {
	return errors.Wrap(database.ErrNotSupported, "mongodb transactions")
}

func (d *Driver) Commit(ctx context.Context) error {
	return errors.Wrap(database.ErrNotSupported, "mongodb transactions")
}

func (d *Driver) Rollback(ctx context.Context) error {
	return errors.Wrap(database.ErrNotSupported, "mongodb transactions")
}

func (d *Driver) Savepoint(ctx context.Context, name string) error {
	return errors.Wrap(database.ErrNotSupported, "mongodb transactions")
}

func (d *Driver) ReleaseSavepoint(ctx context.Context, name string) error {
	return errors.Wrap(database.ErrNotSupported, "mongodb transactions")
}

func (d *Driver) RollbackToSavepoint(ctx context.Context, name string) error {
	return errors.Wrap(database.ErrNotSupported, "mongodb transactions")
}

func (d *Driver) IsConnectionGone(err error) bool {
	if err == nil {
		return false
	}
	return mongo.IsNetworkError(err) || errors.Is(err, mongo.ErrClientDisconnected)
}
