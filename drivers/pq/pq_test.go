package pq_test

import (
	"net/url"
	"testing"

	"github.com/lib/pq"
	"github.com/soldatov-s/go-dbpool/database"
	dbpq "github.com/soldatov-s/go-dbpool/drivers/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn, err := dbpq.Dialect{}.DSN(database.NewParams(
		"type", "postgres", "host", "pg", "user", "app", "password", "p@ss", "dbname", "shop", "charset", "UTF8",
	))
	require.NoError(t, err)

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "pg:5432", u.Host)
	assert.Equal(t, "/shop", u.Path)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss", pw)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.Equal(t, "10", u.Query().Get("connect_timeout"))
	assert.Equal(t, "UTF8", u.Query().Get("client_encoding"))
}

func TestDSNUnixSocket(t *testing.T) {
	dsn, err := dbpq.Dialect{}.DSN(database.NewParams(
		"type", "postgres", "interface", "unix", "host", "/var/run/postgresql", "dbname", "shop", "sslmode", "require",
	))
	require.NoError(t, err)

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Empty(t, u.Host)
	assert.Equal(t, "/var/run/postgresql", u.Query().Get("host"))
	assert.Equal(t, "require", u.Query().Get("sslmode"))
}

func TestIsConnectionGone(t *testing.T) {
	d := dbpq.Dialect{}
	assert.True(t, d.IsConnectionGone(&pq.Error{Code: "08006"}))
	assert.True(t, d.IsConnectionGone(&pq.Error{Code: "57P01"}))
	assert.False(t, d.IsConnectionGone(&pq.Error{Code: "23505"}))
	assert.Equal(t, "it''s", d.Escape("it's"))
}
