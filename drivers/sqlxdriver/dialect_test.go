package sqlxdriver_test

import (
	"testing"

	"github.com/soldatov-s/go-dbpool/database"
	"github.com/soldatov-s/go-dbpool/drivers/sqlxdriver"
	"github.com/stretchr/testify/assert"
)

func TestTypeName(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
	}{
		{in: "varchar(32)", expected: "VARCHAR"},
		{in: "Nullable(Int32)", expected: "INT32"},
		{in: "LowCardinality(String)", expected: "STRING"},
		{in: "UNSIGNED BIGINT", expected: "UNSIGNED"},
		{in: "DOUBLE PRECISION", expected: "DOUBLE PRECISION"},
		{in: " int4 ", expected: "INT4"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.expected, sqlxdriver.TypeName(tc.in))
		})
	}
}

func TestLookupType(t *testing.T) {
	table := map[string]database.FieldType{"TEXT": database.FieldString}
	prefixes := []sqlxdriver.TypePrefix{{Prefix: "INT", Type: database.FieldInteger}}

	assert.Equal(t, database.FieldString, sqlxdriver.LookupType("text", table, prefixes))
	assert.Equal(t, database.FieldInteger, sqlxdriver.LookupType("Int64", table, prefixes))
	assert.Equal(t, database.FieldUnknown, sqlxdriver.LookupType("GEOGRAPHY", table, prefixes))
}

func TestEscapers(t *testing.T) {
	assert.Equal(t, "it''s", sqlxdriver.QuoteEscaper.Replace("it's"))
	assert.Equal(t, `it\'s \"x\" a\\b\n`, sqlxdriver.BackslashEscaper.Replace("it's \"x\" a\\b\n"))
}
