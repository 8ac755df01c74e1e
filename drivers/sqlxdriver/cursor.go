package sqlxdriver

import (
	"database/sql"
	"io"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/soldatov-s/go-dbpool/database"
)

func newCursor(rows *sqlx.Rows, dialect Dialect) (*database.SequentialResultSet, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, errors.Wrap(err, "column types")
	}

	fields := database.NewFields(len(types))
	for i, ct := range types {
		if err := fields.Set(i, ct.Name(), dialect.FieldType(ct)); err != nil {
			return nil, err
		}
	}

	scan := make([]sql.NullString, len(types))
	dest := make([]interface{}, len(types))
	for i := range scan {
		dest[i] = &scan[i]
	}

	next := func() ([]string, []bool, error) {
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return nil, nil, err
			}
			return nil, nil, io.EOF
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, errors.Wrap(err, "scan row")
		}
		values := make([]string, len(scan))
		nulls := make([]bool, len(scan))
		for i := range scan {
			values[i] = scan[i].String
			nulls[i] = !scan[i].Valid
		}
		return values, nulls, nil
	}

	return database.NewSequentialResultSet(fields, next, rows.Close), nil
}
