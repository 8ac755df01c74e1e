package database_test

import (
	"io"
	"strconv"
	"testing"

	"github.com/soldatov-s/go-dbpool/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingResult(n int) *database.SequentialResultSet {
	fields := database.NewFields(2)
	_ = fields.Set(0, "n", database.FieldInteger)
	_ = fields.Set(1, "n", database.FieldString)

	i := 0
	return database.NewSequentialResultSet(fields, func() ([]string, []bool, error) {
		if i == n {
			return nil, nil, io.EOF
		}
		i++
		return []string{strconv.Itoa(i), "dup"}, nil, nil
	}, nil)
}

func TestSequentialResultSet(t *testing.T) {
	rs := countingResult(2)
	assert.Equal(t, database.UnknownRowCount, rs.RowCount())

	// the first of duplicated names wins
	idx, err := rs.FieldIndex("n")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	m, err := rs.FetchMap(0)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"n": "1"}, m)

	_, err = rs.FetchRow(0)
	assert.ErrorIs(t, err, database.ErrSeekUnsupported)
	assert.ErrorIs(t, rs.Seek(0), database.ErrSeekUnsupported)
	require.NoError(t, rs.Seek(1))

	values, err := rs.FetchRow(database.NextRow)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "dup"}, values)

	_, err = rs.FetchRow(database.NextRow)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, rs.RowCount())

	_, err = rs.FieldName(5)
	assert.ErrorIs(t, err, database.ErrFieldOutOfRange)
	_, err = rs.FieldIndex("missing")
	assert.ErrorIs(t, err, database.ErrUnknownField)

	require.NoError(t, rs.Close())
	require.NoError(t, rs.Close())
}
