package pool

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/soldatov-s/go-dbpool/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, srv *fakeServer, opts ...RegistryOption) *Registry {
	t.Helper()

	ctx := context.Background()
	r, err := NewRegistry(ctx, append([]RegistryOption{WithCatalog(newFakeCatalog(srv))}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close(ctx) })
	return r
}

func TestRegistryDuplicateName(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, &fakeServer{})

	_, err := r.CreatePool(ctx, 1, "primary", fakeParams("db1"))
	require.NoError(t, err)

	_, err = r.CreatePool(ctx, 2, "primary", fakeParams("db2"))
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = r.Get(2)
	require.ErrorIs(t, err, ErrPoolNotFound)
	assert.Len(t, r.Pools(), 1)
}

func TestRegistryCreatePool(t *testing.T) {
	tests := []struct {
		name    string
		id      int
		pool    string
		params  database.Params
		wantErr error
	}{
		{
			name:    "empty name",
			id:      5,
			params:  fakeParams("db"),
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "unknown type",
			id:      5,
			pool:    "other",
			params:  database.NewParams(database.KeyType, "nope"),
			wantErr: database.ErrUnknownDriver,
		},
		{
			name:   "without params",
			id:     5,
			pool:   "lazy",
			params: database.NewParams(),
		},
		{
			name:   "new pool",
			id:     5,
			pool:   "replica",
			params: fakeParams("db2"),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			r := newTestRegistry(t, &fakeServer{})

			p, err := r.CreatePool(ctx, tt.id, tt.pool, tt.params)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, r.Pools())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, p.ID())
			assert.Equal(t, tt.params.Len() > 0, p.Initialized())

			got, err := r.GetByName(tt.pool)
			require.NoError(t, err)
			assert.Same(t, p, got)
		})
	}
}

func TestRegistryMergePool(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, &fakeServer{}, WithDefaults(WithMax(4)))

	p, err := r.CreatePool(ctx, 1, "primary", fakeParams("db1"))
	require.NoError(t, err)
	assert.Equal(t, 4, p.Options().Max)
	_, err = r.CreatePool(ctx, 2, "replica", fakeParams("db2"), WithMax(8))
	require.NoError(t, err)

	db, err := r.Acquire(ctx, 1, false, 0)
	require.NoError(t, err)
	oldHash := p.Hash()

	// same id renames and replaces params
	merged, err := r.CreatePool(ctx, 1, "main", fakeParams("db3"), WithMin(1))
	require.NoError(t, err)
	assert.Same(t, p, merged)
	assert.Equal(t, "main", p.Name())
	assert.NotEqual(t, oldHash, p.Hash())
	assert.Equal(t, 1, p.Options().Min)
	assert.Equal(t, 4, p.Options().Max)

	_, err = r.GetByName("primary")
	require.ErrorIs(t, err, ErrPoolNotFound)
	got, err := r.GetByName("main")
	require.NoError(t, err)
	assert.Same(t, p, got)

	// a merge with an unknown type leaves the pool untouched
	hash := p.Hash()
	_, err = r.CreatePool(ctx, 1, "main", database.NewParams(database.KeyType, "nope"), WithMax(16), WithMin(3))
	require.ErrorIs(t, err, database.ErrUnknownDriver)
	assert.Equal(t, 4, p.Options().Max)
	assert.Equal(t, 1, p.Options().Min)
	assert.Equal(t, hash, p.Hash())

	// renaming onto another pool's name fails
	_, err = r.CreatePool(ctx, 1, "replica", database.NewParams())
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, "main", p.Name())

	require.NoError(t, r.Release(ctx, db))
	assert.False(t, db.Connected())
}

func TestRegistryAcquire(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, &fakeServer{})

	_, err := r.AcquireDefault(ctx, false, 0)
	require.ErrorIs(t, err, ErrPoolNotFound)

	_, err = r.CreatePool(ctx, DefaultPoolID, "default", fakeParams("db0"))
	require.NoError(t, err)
	_, err = r.CreatePool(ctx, 3, "reports", fakeParams("db3"))
	require.NoError(t, err)

	db, err := r.AcquireDefault(ctx, false, 0)
	require.NoError(t, err)
	owner, ok := db.Owner().(*Pool)
	require.True(t, ok)
	assert.Equal(t, DefaultPoolID, owner.ID())
	require.NoError(t, r.Release(ctx, db))

	db, err = r.AcquireByName(ctx, "reports", false, 0)
	require.NoError(t, err)
	owner, ok = db.Owner().(*Pool)
	require.True(t, ok)
	assert.Equal(t, 3, owner.ID())
	require.NoError(t, r.Destroy(ctx, db))

	_, err = r.Acquire(ctx, 42, false, 0)
	require.ErrorIs(t, err, ErrPoolNotFound)
	_, err = r.AcquireByName(ctx, "missing", false, 0)
	require.ErrorIs(t, err, ErrPoolNotFound)
}

func TestRegistryForeignConnection(t *testing.T) {
	ctx := context.Background()
	srv := &fakeServer{}
	r1 := newTestRegistry(t, srv)
	r2 := newTestRegistry(t, srv)

	_, err := r1.CreatePool(ctx, 1, "one", fakeParams("db"))
	require.NoError(t, err)
	_, err = r2.CreatePool(ctx, 1, "one", fakeParams("db"))
	require.NoError(t, err)

	db, err := r1.Acquire(ctx, 1, false, 0)
	require.NoError(t, err)

	require.ErrorIs(t, r2.Release(ctx, db), ErrOwnershipMismatch)
	require.ErrorIs(t, r2.Destroy(ctx, db), ErrOwnershipMismatch)
	require.ErrorIs(t, r2.Release(ctx, nil), ErrOwnershipMismatch)

	standalone := newTestPool(t, srv)
	other, err := standalone.Acquire(ctx, false, 0)
	require.NoError(t, err)
	require.ErrorIs(t, r1.Release(ctx, other), ErrOwnershipMismatch)

	require.NoError(t, r1.Release(ctx, db))
}

func TestRegistryDeletePool(t *testing.T) {
	ctx := context.Background()
	srv := &fakeServer{}
	r := newTestRegistry(t, srv)

	_, err := r.CreatePool(ctx, 1, "primary", fakeParams("db"))
	require.NoError(t, err)

	db, err := r.Acquire(ctx, 1, false, 0)
	require.NoError(t, err)

	require.NoError(t, r.DeletePool(ctx, 1))
	require.ErrorIs(t, r.DeletePool(ctx, 1), ErrPoolNotFound)
	assert.False(t, db.Connected())

	open, _, _ := srv.stats()
	assert.Zero(t, open)

	// the name is free again
	_, err = r.CreatePool(ctx, 2, "primary", fakeParams("db"))
	require.NoError(t, err)
}

func TestRegistryStatus(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, &fakeServer{})

	_, err := r.CreatePool(ctx, 1, "primary", fakeParams("db1"))
	require.NoError(t, err)
	_, err = r.CreatePool(ctx, 2, "replica", fakeParams("db2"))
	require.NoError(t, err)

	db, err := r.Acquire(ctx, 2, false, 0)
	require.NoError(t, err)

	st := r.Status()
	require.Len(t, st, 2)
	assert.Equal(t, "primary", st[1].Name)
	assert.Equal(t, 0, st[1].UsedCount)
	assert.Equal(t, 1, st[2].UsedCount)

	report, ok := r.StatusReport(ctx).(map[int]Status)
	require.True(t, ok)
	assert.Len(t, report, 2)

	require.NoError(t, r.Release(ctx, db))

	name, err := r.GetReadyHandlers().Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestRegistryMetrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	r := newTestRegistry(t, &fakeServer{}, WithRegisterer(reg))

	_, err := r.CreatePool(ctx, 1, "primary", fakeParams("db1"))
	require.NoError(t, err)
	db, err := r.Acquire(ctx, 1, false, 0)
	require.NoError(t, err)
	require.NoError(t, r.GetMetrics().Update(ctx))

	families, err := reg.Gather()
	require.NoError(t, err)
	values := make(map[string]float64)
	for _, f := range families {
		m := f.GetMetric()[0]
		switch {
		case m.GetGauge() != nil:
			values[f.GetName()] = m.GetGauge().GetValue()
		case m.GetCounter() != nil:
			values[f.GetName()] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(1), values["dbpool_pool_1_used"])
	assert.Equal(t, float64(1), values["dbpool_pool_1_total"])
	assert.Equal(t, float64(1), values["dbpool_pool_1_created_total"])

	require.NoError(t, r.Release(ctx, db))
	require.NoError(t, r.DeletePool(ctx, 1))

	families, err = reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}

func TestRegistryRunMaintenance(t *testing.T) {
	ctx := context.Background()
	clock := setClock(t)
	r := newTestRegistry(t, &fakeServer{})

	p1, err := r.CreatePool(ctx, 1, "primary", fakeParams("db1"))
	require.NoError(t, err)
	p2, err := r.CreatePool(ctx, 2, "replica", fakeParams("db2"))
	require.NoError(t, err)

	tick := clock.Now()
	r.RunMaintenance(ctx, tick)
	assert.Equal(t, tick, p1.LastCheck())
	assert.Equal(t, tick, p2.LastCheck())

	// the same tick checks nothing again
	clock.Advance(time.Second)
	r.RunMaintenance(ctx, tick)
	assert.Equal(t, tick, p1.LastCheck())
	assert.Equal(t, tick, p2.LastCheck())

	next := clock.Now()
	r.RunMaintenance(ctx, next)
	assert.Equal(t, next, p1.LastCheck())
	assert.Equal(t, next, p2.LastCheck())

	require.NoError(t, r.CheckPool(ctx, 1))
	require.ErrorIs(t, r.CheckPool(ctx, 9), ErrPoolNotFound)
}

func TestRegistryMaintenanceLoop(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, &fakeServer{}, WithMaintenanceInterval(10*time.Millisecond))

	p, err := r.CreatePool(ctx, 1, "primary", fakeParams("db1"), WithMinSpare(2))
	require.NoError(t, err)

	assert.False(t, r.MaintenanceRunning())
	require.NoError(t, r.Start(ctx))
	r.StartMaintenance(ctx, 0)
	assert.True(t, r.MaintenanceRunning())

	require.Eventually(t, func() bool {
		free, _ := p.Counts()
		return free == 2 && !p.LastCheck().IsZero()
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, r.StopMaintenance())
	require.NoError(t, r.StopMaintenance())
	assert.False(t, r.MaintenanceRunning())

	require.NoError(t, r.Shutdown(ctx))
	assert.Empty(t, r.Pools())
}
