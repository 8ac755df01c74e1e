package database

import (
	"io"

	"github.com/pkg/errors"
)

// NextRow asks a fetch call for the row after the cursor.
const NextRow = -1

// UnknownRowCount is reported by results that have not been consumed yet.
const UnknownRowCount = -1

// FieldType is a backend independent column type tag.
type FieldType int

const (
	FieldUnknown FieldType = iota
	FieldInteger
	FieldDecimal
	FieldBit
	FieldTimestamp
	FieldDate
	FieldTime
	FieldDateTime
	FieldString
	FieldBinary
	FieldEnum
)

var fieldTypeNames = [...]string{
	FieldUnknown:   "unknown",
	FieldInteger:   "integer",
	FieldDecimal:   "decimal",
	FieldBit:       "bit",
	FieldTimestamp: "timestamp",
	FieldDate:      "date",
	FieldTime:      "time",
	FieldDateTime:  "datetime",
	FieldString:    "string",
	FieldBinary:    "binary",
	FieldEnum:      "enum",
}

func (t FieldType) String() string {
	if t < 0 || int(t) >= len(fieldTypeNames) {
		return fieldTypeNames[FieldUnknown]
	}
	return fieldTypeNames[t]
}

// ResultSet is a cursor over the output of a query.
// Fetch calls return io.EOF after the last row.
type ResultSet interface {
	// RowCount returns UnknownRowCount until the backend knows the total.
	RowCount() int
	FieldCount() int
	FieldName(i int) (string, error)
	FieldIndex(name string) (int, error)
	FieldType(i int) (FieldType, error)
	FieldTypeByName(name string) (FieldType, error)
	// FetchRow returns the values of row, or of the next row for NextRow.
	FetchRow(row int) ([]string, error)
	FetchMap(row int) (map[string]string, error)
	// Null reports whether field i of the last fetched row was NULL.
	Null(i int) bool
	Seek(row int) error
	Close() error
}

// Fields holds column metadata shared by result implementations.
type Fields struct {
	names []string
	types []FieldType
	index map[string]int
}

// NewFields allocates metadata for n columns.
func NewFields(n int) *Fields {
	f := &Fields{}
	f.reset(n)
	return f
}

func (f *Fields) reset(n int) {
	f.names = make([]string, n)
	f.types = make([]FieldType, n)
	f.index = make(map[string]int, n)
}

// Set names column i. The first column with a given name wins lookups.
func (f *Fields) Set(i int, name string, typ FieldType) error {
	if i < 0 || i >= len(f.names) {
		return errors.Wrapf(ErrFieldOutOfRange, "field %d of %d", i, len(f.names))
	}
	if old := f.names[i]; old != "" && f.index[old] == i {
		delete(f.index, old)
	}
	f.names[i] = name
	f.types[i] = typ
	if _, ok := f.index[name]; !ok {
		f.index[name] = i
	}
	return nil
}

func (f *Fields) FieldCount() int {
	return len(f.names)
}

func (f *Fields) FieldName(i int) (string, error) {
	if i < 0 || i >= len(f.names) {
		return "", errors.Wrapf(ErrFieldOutOfRange, "field %d of %d", i, len(f.names))
	}
	return f.names[i], nil
}

func (f *Fields) FieldIndex(name string) (int, error) {
	i, ok := f.index[name]
	if !ok {
		return -1, errors.Wrap(ErrUnknownField, name)
	}
	return i, nil
}

func (f *Fields) FieldType(i int) (FieldType, error) {
	if i < 0 || i >= len(f.types) {
		return FieldUnknown, errors.Wrapf(ErrFieldOutOfRange, "field %d of %d", i, len(f.types))
	}
	return f.types[i], nil
}

func (f *Fields) FieldTypeByName(name string) (FieldType, error) {
	i, err := f.FieldIndex(name)
	if err != nil {
		return FieldUnknown, err
	}
	return f.types[i], nil
}

func (f *Fields) toMap(values []string) map[string]string {
	m := make(map[string]string, len(values))
	// iterate backwards so the first of duplicated names wins
	for i := len(values) - 1; i >= 0; i-- {
		m[f.names[i]] = values[i]
	}
	return m
}

// NextFunc reads the next row from a backend cursor. It returns io.EOF after the last row.
// nulls may be nil when the backend has no NULLs to report.
type NextFunc func() (values []string, nulls []bool, err error)

// SequentialResultSet adapts a forward-only backend cursor to ResultSet.
type SequentialResultSet struct {
	*Fields
	next   NextFunc
	closer func() error

	pos    int
	nulls  []bool
	done   bool
	closed bool
}

// NewSequentialResultSet wraps a backend cursor. closer may be nil.
func NewSequentialResultSet(fields *Fields, next NextFunc, closer func() error) *SequentialResultSet {
	return &SequentialResultSet{Fields: fields, next: next, closer: closer}
}

// RowCount is known only once the cursor hit the end.
func (s *SequentialResultSet) RowCount() int {
	if !s.done {
		return UnknownRowCount
	}
	return s.pos
}

func (s *SequentialResultSet) FetchRow(row int) ([]string, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if row != NextRow && row != s.pos {
		return nil, errors.Wrapf(ErrSeekUnsupported, "row %d requested at row %d", row, s.pos)
	}
	if s.done {
		return nil, io.EOF
	}

	values, nulls, err := s.next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.done = true
			return nil, io.EOF
		}
		return nil, err
	}
	s.nulls = nulls
	s.pos++
	return values, nil
}

func (s *SequentialResultSet) FetchMap(row int) (map[string]string, error) {
	values, err := s.FetchRow(row)
	if err != nil {
		return nil, err
	}
	return s.toMap(values), nil
}

func (s *SequentialResultSet) Null(i int) bool {
	return i >= 0 && i < len(s.nulls) && s.nulls[i]
}

// Seek succeeds only for the row the cursor is already on.
func (s *SequentialResultSet) Seek(row int) error {
	if row != s.pos {
		return errors.Wrapf(ErrSeekUnsupported, "seek to %d at row %d", row, s.pos)
	}
	return nil
}

func (s *SequentialResultSet) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.closer != nil {
		return s.closer()
	}
	return nil
}
