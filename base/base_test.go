package base

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapMetricsOptions(t *testing.T) {
	ctx := context.Background()
	e := NewEnity(&EnityDeps{ProviderName: "dbpool", Name: "pool_1"})
	m := NewMapMetricsOptions()

	value := 3.0
	gauge, err := m.AddMetricGauge(e.GetFullName(), "free", "free connections", func(context.Context) (float64, error) {
		return value, nil
	})
	require.NoError(t, err)
	counter, err := m.AddCounter(e.GetFullName(), "created total", "created connections")
	require.NoError(t, err)

	_, err = m.AddCounter(e.GetFullName(), "created total", "again")
	require.ErrorIs(t, err, ErrConflictName)

	reg := prometheus.NewRegistry()
	require.NoError(t, m.Registrate(reg))
	require.NoError(t, m.Update(ctx))
	counter.Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.ElementsMatch(t, []string{"dbpool_pool_1_free", "dbpool_pool_1_created_total"}, names)
	assert.NotNil(t, gauge)

	m.Unregistrate(reg)
	families, err = reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}

func TestMapMetricsOptionsUpdateError(t *testing.T) {
	m := NewMapMetricsOptions()
	_, err := m.AddMetricGauge("dbpool_registry", "pools", "pools", func(context.Context) (float64, error) {
		return 0, errors.New("boom")
	})
	require.NoError(t, err)
	require.Error(t, m.Update(context.Background()))
}

func TestMapCheckOptions(t *testing.T) {
	tests := []struct {
		name    string
		options *CheckOptions
		wantErr error
	}{
		{
			name:    "nil options",
			wantErr: ErrOptionsIsNil,
		},
		{
			name:    "empty name",
			options: &CheckOptions{CheckFunc: func(context.Context) error { return nil }},
			wantErr: ErrEmptyOptionsName,
		},
		{
			name:    "nil func",
			options: &CheckOptions{Name: "check"},
			wantErr: ErrFuncIsNil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, NewMapCheckOptions().Add(tt.options), tt.wantErr)
		})
	}
}

func TestReadyCheckHandler(t *testing.T) {
	ctx := context.Background()
	s := NewReadyCheckStorage()
	failing := errors.New("pool exhausted")

	require.NoError(t, s.GetReadyHandlers().Add(&CheckOptions{Name: "a", CheckFunc: func(context.Context) error { return nil }}))

	rec := httptest.NewRecorder()
	s.ReadyCheckHandler(ctx, rec)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"result":{"status":"OK","checks":1}}`, rec.Body.String())

	require.NoError(t, s.GetReadyHandlers().Add(&CheckOptions{Name: "b", CheckFunc: func(context.Context) error { return failing }}))

	rec = httptest.NewRecorder()
	s.ReadyCheckHandler(ctx, rec)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"B"`)

	s.GetReadyHandlers().Remove("b")
	name, err := s.GetReadyHandlers().Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, name)
}
