package database

import (
	"encoding/binary"
	"io"
	"math"
	"strconv"

	"github.com/pkg/errors"
)

type cellKind uint8

const (
	cellNull cellKind = iota
	cellRaw
	cellInt
	cellUint
	cellFloat
)

type cell struct {
	kind cellKind
	data []byte
}

// BufferedResultSet keeps a whole result in memory. Rows are appended with
// NewRow and StoreField, then BuildIndex seals the result for random access.
type BufferedResultSet struct {
	*Fields

	arena  arena
	cells  []cell
	rows   int
	index  []int
	sealed bool

	cursor int
	nulls  []bool
	closed bool
}

func NewBufferedResultSet() *BufferedResultSet {
	return &BufferedResultSet{Fields: NewFields(0)}
}

// SetFieldCount declares the number of columns. It must precede the first row.
func (b *BufferedResultSet) SetFieldCount(n int) error {
	if b.sealed || b.rows > 0 {
		return errors.Wrap(ErrResultSealed, "set field count")
	}
	if n < 0 {
		return errors.Wrapf(ErrFieldOutOfRange, "field count %d", n)
	}
	b.Fields.reset(n)
	return nil
}

func (b *BufferedResultSet) SetFieldName(i int, name string, typ FieldType) error {
	if b.sealed {
		return errors.Wrap(ErrResultSealed, "set field name")
	}
	return b.Fields.Set(i, name, typ)
}

// NewRow starts a row with every field NULL.
func (b *BufferedResultSet) NewRow() error {
	if b.sealed {
		return errors.Wrap(ErrResultSealed, "new row")
	}
	for i := 0; i < b.FieldCount(); i++ {
		b.cells = append(b.cells, cell{})
	}
	b.rows++
	return nil
}

func (b *BufferedResultSet) current(i int) (*cell, error) {
	if b.sealed {
		return nil, errors.Wrap(ErrResultSealed, "store field")
	}
	if b.rows == 0 {
		return nil, errors.Wrap(ErrRowOutOfRange, "store field before first row")
	}
	n := b.FieldCount()
	if i < 0 || i >= n {
		return nil, errors.Wrapf(ErrFieldOutOfRange, "field %d of %d", i, n)
	}
	return &b.cells[(b.rows-1)*n+i], nil
}

// StoreField stores a textual or raw value of the current row. nil stores NULL.
// Integer and Decimal columns are kept in binary form only when formatting the
// number gives back the same text. Bit values are kept as received, drivers
// that know the numeric value use StoreUint.
func (b *BufferedResultSet) StoreField(i int, value []byte) error {
	c, err := b.current(i)
	if err != nil {
		return err
	}
	if value == nil {
		*c = cell{}
		return nil
	}

	s := string(value)
	switch b.types[i] {
	case FieldInteger:
		if v, err := strconv.ParseInt(s, 10, 64); err == nil && strconv.FormatInt(v, 10) == s {
			b.setInt(c, v)
			return nil
		}
		if v, err := strconv.ParseUint(s, 10, 64); err == nil && strconv.FormatUint(v, 10) == s {
			b.setUint(c, v)
			return nil
		}
	case FieldDecimal:
		if v, err := strconv.ParseFloat(s, 64); err == nil && strconv.FormatFloat(v, 'f', -1, 64) == s {
			b.setFloat(c, v)
			return nil
		}
	}

	*c = cell{kind: cellRaw, data: b.arena.copy(value)}
	return nil
}

func (b *BufferedResultSet) StoreNull(i int) error {
	c, err := b.current(i)
	if err != nil {
		return err
	}
	*c = cell{}
	return nil
}

func (b *BufferedResultSet) StoreInt(i int, v int64) error {
	c, err := b.current(i)
	if err != nil {
		return err
	}
	b.setInt(c, v)
	return nil
}

func (b *BufferedResultSet) StoreUint(i int, v uint64) error {
	c, err := b.current(i)
	if err != nil {
		return err
	}
	b.setUint(c, v)
	return nil
}

func (b *BufferedResultSet) StoreFloat(i int, v float64) error {
	c, err := b.current(i)
	if err != nil {
		return err
	}
	b.setFloat(c, v)
	return nil
}

func (b *BufferedResultSet) setInt(c *cell, v int64) {
	b.setUint(c, uint64(v))
	c.kind = cellInt
}

func (b *BufferedResultSet) setUint(c *cell, v uint64) {
	data := b.arena.alloc(8)
	binary.LittleEndian.PutUint64(data, v)
	*c = cell{kind: cellUint, data: data}
}

func (b *BufferedResultSet) setFloat(c *cell, v float64) {
	b.setUint(c, math.Float64bits(v))
	c.kind = cellFloat
}

// BuildIndex seals the result and enables random access.
func (b *BufferedResultSet) BuildIndex() error {
	if b.sealed {
		return errors.Wrap(ErrResultSealed, "build index")
	}
	n := b.FieldCount()
	b.index = make([]int, b.rows)
	for r := range b.index {
		b.index[r] = r * n
	}
	b.sealed = true
	b.cursor = 0
	return nil
}

func (b *BufferedResultSet) RowCount() int {
	return b.rows
}

// MemoryUsage returns the bytes held by the arena.
func (b *BufferedResultSet) MemoryUsage() int {
	return b.arena.size
}

func (b *BufferedResultSet) FetchRow(row int) ([]string, error) {
	if b.closed {
		return nil, ErrClosed
	}
	if !b.sealed {
		return nil, ErrResultNotIndexed
	}
	if row == NextRow {
		row = b.cursor
	}
	if row < 0 {
		return nil, errors.Wrapf(ErrRowOutOfRange, "row %d", row)
	}
	if row >= b.rows {
		return nil, io.EOF
	}

	n := b.FieldCount()
	cells := b.cells[b.index[row] : b.index[row]+n]
	values := make([]string, n)
	if cap(b.nulls) < n {
		b.nulls = make([]bool, n)
	}
	b.nulls = b.nulls[:n]
	for i := range cells {
		values[i] = formatCell(cells[i])
		b.nulls[i] = cells[i].kind == cellNull
	}
	b.cursor = row + 1
	return values, nil
}

func formatCell(c cell) string {
	switch c.kind {
	case cellNull:
		return ""
	case cellInt:
		return strconv.FormatInt(int64(binary.LittleEndian.Uint64(c.data)), 10)
	case cellUint:
		return strconv.FormatUint(binary.LittleEndian.Uint64(c.data), 10)
	case cellFloat:
		return strconv.FormatFloat(math.Float64frombits(binary.LittleEndian.Uint64(c.data)), 'f', -1, 64)
	default:
		return string(c.data)
	}
}

func (b *BufferedResultSet) FetchMap(row int) (map[string]string, error) {
	values, err := b.FetchRow(row)
	if err != nil {
		return nil, err
	}
	return b.toMap(values), nil
}

func (b *BufferedResultSet) Null(i int) bool {
	return i >= 0 && i < len(b.nulls) && b.nulls[i]
}

// Seek moves the cursor; seeking to RowCount positions it at the end.
func (b *BufferedResultSet) Seek(row int) error {
	if !b.sealed {
		return ErrResultNotIndexed
	}
	if row < 0 || row > b.rows {
		return errors.Wrapf(ErrRowOutOfRange, "seek to %d of %d", row, b.rows)
	}
	b.cursor = row
	return nil
}

// Close drops all buffered rows.
func (b *BufferedResultSet) Close() error {
	b.closed = true
	b.arena.release()
	b.cells = nil
	b.index = nil
	b.nulls = nil
	return nil
}

// Buffer reads rs to the end into memory and closes it.
func Buffer(rs ResultSet) (buf *BufferedResultSet, err error) {
	if b, ok := rs.(*BufferedResultSet); ok {
		return b, nil
	}
	defer func() {
		if cerr := rs.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close buffered source")
		}
	}()

	b := NewBufferedResultSet()
	if err := b.SetFieldCount(rs.FieldCount()); err != nil {
		return nil, err
	}
	for i := 0; i < rs.FieldCount(); i++ {
		name, err := rs.FieldName(i)
		if err != nil {
			return nil, err
		}
		typ, err := rs.FieldType(i)
		if err != nil {
			return nil, err
		}
		if err := b.SetFieldName(i, name, typ); err != nil {
			return nil, err
		}
	}

	for {
		values, err := rs.FetchRow(NextRow)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "buffer row")
		}
		if err := b.NewRow(); err != nil {
			return nil, err
		}
		for i, v := range values {
			if rs.Null(i) {
				continue
			}
			if err := b.StoreField(i, []byte(v)); err != nil {
				return nil, err
			}
		}
	}

	if err := b.BuildIndex(); err != nil {
		return nil, err
	}
	return b, nil
}
