package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/soldatov-s/go-dbpool/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(app.StatusEndpoint, func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write([]byte(`{"result":{"dbpool_registry":{"1":{"id":1,"name":"primary"}}}}`))
		require.NoError(t, err)
	})
	mux.HandleFunc(app.ReadyEndpoint, func(w http.ResponseWriter, r *http.Request) {})

	server := httptest.NewServer(mux)
	defer server.Close()

	c := NewClient(server.URL + "/")
	require.NoError(t, c.Ready(context.Background()))

	st, err := c.Status(context.Background())
	require.NoError(t, err)
	require.Contains(t, st, "dbpool_registry")
	assert.JSONEq(t, `{"1":{"id":1,"name":"primary"}}`, string(st["dbpool_registry"]))
}

func TestClientNotReady(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	err := NewClient(server.URL).Ready(context.Background())
	require.ErrorIs(t, err, ErrRemoteStatus)
}

func TestClientNotExistServer(t *testing.T) {
	st, err := NewClient("http://localhost:9999").Status(context.Background())

	require.Error(t, err)
	require.Nil(t, st)
}
