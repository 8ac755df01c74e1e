package pool

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/soldatov-s/go-dbpool/database"
	"github.com/soldatov-s/go-dbpool/database/mock_database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{
			name: "defaults",
		},
		{
			name:    "min above max",
			opts:    []Option{WithMin(3), WithMax(2)},
			wantErr: true,
		},
		{
			name: "unbounded max",
			opts: []Option{WithMin(3), WithMax(0)},
		},
		{
			name:    "min spare above max spare",
			opts:    []Option{WithMinSpare(4), WithMaxSpare(2)},
			wantErr: true,
		},
		{
			name:    "min spare above max",
			opts:    []Option{WithMinSpare(4), WithMax(2)},
			wantErr: true,
		},
		{
			name: "negative values are clamped",
			opts: []Option{WithMin(-1), WithGrow(-5), WithTimeout(-time.Second)},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			o, err := applyOptions(DefaultOptions(), tt.opts)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.GreaterOrEqual(t, o.Grow, 1)
			assert.GreaterOrEqual(t, o.Min, 0)
			assert.GreaterOrEqual(t, o.Timeout, time.Duration(0))
		})
	}
}

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	assert.Equal(t, 1, o.Grow)
	assert.Equal(t, 300*time.Second, o.Timeout)
	assert.Equal(t, 60*time.Second, o.KeepAlive)
	assert.Zero(t, o.Max)
}

func TestPoolNotInitialized(t *testing.T) {
	ctx := context.Background()
	p, err := NewPool(ctx, 1, "test", newFakeCatalog(&fakeServer{}))
	require.NoError(t, err)

	_, err = p.Acquire(ctx, true, time.Second)
	require.ErrorIs(t, err, ErrNotInitialized)

	err = p.SetConnectParams(ctx, database.NewParams(database.KeyHost, "h"))
	require.ErrorIs(t, err, ErrInvalidConfig)

	err = p.SetConnectParams(ctx, database.NewParams(database.KeyType, "nope"))
	require.ErrorIs(t, err, database.ErrUnknownDriver)
	assert.False(t, p.Initialized())

	_, err = NewPool(ctx, 2, "", nil)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestPoolExhausted(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t, &fakeServer{}, WithMax(2))

	db1, err := p.Acquire(ctx, false, 0)
	require.NoError(t, err)
	db2, err := p.Acquire(ctx, false, 0)
	require.NoError(t, err)
	require.NotSame(t, db1, db2)

	_, err = p.Acquire(ctx, false, 0)
	require.ErrorIs(t, err, ErrPoolExhausted)

	require.NoError(t, p.Release(ctx, db1))

	db3, err := p.Acquire(ctx, false, 0)
	require.NoError(t, err)
	assert.Same(t, db1, db3)

	free, used := p.Counts()
	assert.Equal(t, 0, free)
	assert.Equal(t, 2, used)
}

func TestPoolAcquireTimeout(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t, &fakeServer{}, WithMax(1))

	_, err := p.Acquire(ctx, false, 0)
	require.NoError(t, err)

	start := time.Now()
	_, err = p.Acquire(ctx, true, 50*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
	require.ErrorIs(t, err, ErrPoolExhausted)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestPoolAcquireCanceled(t *testing.T) {
	p := newTestPool(t, &fakeServer{}, WithMax(1))

	_, err := p.Acquire(context.Background(), false, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = p.Acquire(ctx, true, 0)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPoolAcquireWaitsForRelease(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t, &fakeServer{}, WithMax(1))

	db, err := p.Acquire(ctx, false, 0)
	require.NoError(t, err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = p.Release(ctx, db)
	}()

	got, err := p.Acquire(ctx, true, 5*time.Second)
	require.NoError(t, err)
	assert.Same(t, db, got)
}

func TestPoolConnectFailed(t *testing.T) {
	ctx := context.Background()
	srv := &fakeServer{down: true}
	p := newTestPool(t, srv)

	_, err := p.Acquire(ctx, false, 0)
	require.ErrorIs(t, err, database.ErrConnectFailed)
	require.ErrorIs(t, err, errFakeDown)

	free, used := p.Counts()
	assert.Zero(t, free+used)
}

func TestPoolDeadFreeConnectionReplaced(t *testing.T) {
	ctx := context.Background()
	srv := &fakeServer{}
	p := newTestPool(t, srv)

	db, err := p.Acquire(ctx, false, 0)
	require.NoError(t, err)
	require.NoError(t, p.Release(ctx, db))

	srv.setPingFail(true)
	got, err := p.Acquire(ctx, false, 0)
	require.NoError(t, err)
	assert.NotSame(t, db, got)
	assert.False(t, db.Connected())

	open, connects, _ := srv.stats()
	assert.Equal(t, 1, open)
	assert.Equal(t, 2, connects)
}

func TestPoolReleaseOwnership(t *testing.T) {
	ctx := context.Background()
	srv := &fakeServer{}
	p1 := newTestPool(t, srv)
	p2 := newTestPool(t, srv)

	db, err := p1.Acquire(ctx, false, 0)
	require.NoError(t, err)

	require.ErrorIs(t, p2.Release(ctx, db), ErrOwnershipMismatch)
	require.ErrorIs(t, p2.Destroy(ctx, db), ErrOwnershipMismatch)
	require.ErrorIs(t, p2.Release(ctx, nil), ErrOwnershipMismatch)

	free, used := p1.Counts()
	assert.Equal(t, 0, free)
	assert.Equal(t, 1, used)

	require.NoError(t, p1.Release(ctx, db))
	require.ErrorIs(t, p1.Release(ctx, db), ErrOwnershipMismatch)
	require.ErrorIs(t, p1.Destroy(ctx, db), ErrOwnershipMismatch)

	free, used = p1.Counts()
	assert.Equal(t, 1, free)
	assert.Equal(t, 0, used)
	assert.True(t, db.Connected())
}

func TestPoolDestroy(t *testing.T) {
	ctx := context.Background()
	srv := &fakeServer{}
	p := newTestPool(t, srv)

	db, err := p.Acquire(ctx, false, 0)
	require.NoError(t, err)
	require.NoError(t, p.Destroy(ctx, db))
	assert.False(t, db.Connected())

	free, used := p.Counts()
	assert.Zero(t, free+used)
	open, _, _ := srv.stats()
	assert.Zero(t, open)
}

func TestPoolReleaseRollsBackTransaction(t *testing.T) {
	ctx := context.Background()
	srv := &fakeServer{}
	p := newTestPool(t, srv)

	db, err := p.Acquire(ctx, false, 0)
	require.NoError(t, err)
	require.NoError(t, db.Begin(ctx))
	require.NoError(t, db.Begin(ctx))
	require.Equal(t, 2, db.Depth())

	require.NoError(t, p.Release(ctx, db))
	assert.Equal(t, 0, db.Depth())

	_, _, rollbacks := srv.stats()
	assert.Equal(t, 1, rollbacks)

	free, _ := p.Counts()
	assert.Equal(t, 1, free)
}

func TestPoolReleaseDeadConnection(t *testing.T) {
	ctx := context.Background()
	srv := &fakeServer{}
	p := newTestPool(t, srv)

	db, err := p.Acquire(ctx, false, 0)
	require.NoError(t, err)

	srv.setPingFail(true)
	require.NoError(t, p.Release(ctx, db))
	assert.False(t, db.Connected())

	free, used := p.Counts()
	assert.Zero(t, free+used)
}

func TestPoolParamsChange(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t, &fakeServer{})
	oldHash := p.Hash()

	require.NoError(t, p.SetConnectParams(ctx, fakeParams("db1")))
	assert.Equal(t, oldHash, p.Hash())

	db, err := p.Acquire(ctx, false, 0)
	require.NoError(t, err)
	assert.Equal(t, oldHash, db.Hash())

	require.NoError(t, p.SetConnectParams(ctx, fakeParams("db2")))
	newHash := p.Hash()
	require.NotEqual(t, oldHash, newHash)

	require.NoError(t, p.Release(ctx, db))
	assert.False(t, db.Connected())
	free, used := p.Counts()
	assert.Zero(t, free+used)

	fresh, err := p.Acquire(ctx, false, 0)
	require.NoError(t, err)
	assert.NotSame(t, db, fresh)
	assert.Equal(t, newHash, fresh.Hash())
}

func TestPoolStaleFreeConnectionNotReturned(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t, &fakeServer{})

	db, err := p.Acquire(ctx, false, 0)
	require.NoError(t, err)
	require.NoError(t, p.Release(ctx, db))

	require.NoError(t, p.SetConnectParams(ctx, fakeParams("db2")))

	fresh, err := p.Acquire(ctx, false, 0)
	require.NoError(t, err)
	assert.NotSame(t, db, fresh)
	assert.False(t, db.Connected())
}

func TestPoolCheckTimeout(t *testing.T) {
	ctx := context.Background()
	clock := setClock(t)
	p := newTestPool(t, &fakeServer{}, WithTimeout(time.Second))

	db, err := p.Acquire(ctx, false, 0)
	require.NoError(t, err)
	require.NoError(t, p.Release(ctx, db))

	p.Check(ctx)
	free, _ := p.Counts()
	require.Equal(t, 1, free)

	clock.Advance(2 * time.Second)
	p.Check(ctx)

	free, used := p.Counts()
	assert.Zero(t, free)
	assert.Zero(t, used)
	assert.False(t, db.Connected())
	assert.Equal(t, clock.Now(), p.LastCheck())

	got, err := p.Acquire(ctx, false, 0)
	require.NoError(t, err)
	assert.NotSame(t, db, got)
}

func TestPoolCheckKeepAlive(t *testing.T) {
	ctx := context.Background()
	clock := setClock(t)
	srv := &fakeServer{}
	p := newTestPool(t, srv, WithKeepAlive(time.Minute), WithTimeout(0))

	db1, err := p.Acquire(ctx, false, 0)
	require.NoError(t, err)
	db2, err := p.Acquire(ctx, false, 0)
	require.NoError(t, err)
	require.NoError(t, p.Release(ctx, db1))
	require.NoError(t, p.Release(ctx, db2))

	clock.Advance(2 * time.Minute)
	srv.setPingFail(true)

	// one ping per check
	p.Check(ctx)
	free, _ := p.Counts()
	assert.Equal(t, 1, free)

	p.Check(ctx)
	free, _ = p.Counts()
	assert.Equal(t, 0, free)

	srv.setPingFail(false)
	db3, err := p.Acquire(ctx, false, 0)
	require.NoError(t, err)
	require.NoError(t, p.Release(ctx, db3))

	clock.Advance(2 * time.Minute)
	p.Check(ctx)
	free, _ = p.Counts()
	assert.Equal(t, 1, free)
	assert.Equal(t, clock.Now(), db3.LastPing())
}

func TestPoolCheckSpares(t *testing.T) {
	ctx := context.Background()
	setClock(t)
	p := newTestPool(t, &fakeServer{},
		WithMin(2), WithMax(5), WithMinSpare(1), WithMaxSpare(2), WithTimeout(0), WithKeepAlive(0))

	p.Check(ctx)
	free, used := p.Counts()
	assert.Equal(t, 2, free)
	assert.Zero(t, used)

	dbs := make([]*database.Database, 0, 4)
	for i := 0; i < 4; i++ {
		db, err := p.Acquire(ctx, false, 0)
		require.NoError(t, err)
		dbs = append(dbs, db)
	}

	// all busy, grows one spare
	p.Check(ctx)
	free, used = p.Counts()
	assert.Equal(t, 1, free)
	assert.Equal(t, 4, used)

	for _, db := range dbs {
		require.NoError(t, p.Release(ctx, db))
	}

	p.Check(ctx)
	free, used = p.Counts()
	assert.Equal(t, 2, free)
	assert.Zero(t, used)
}

func TestPoolCheckGrowStep(t *testing.T) {
	ctx := context.Background()
	setClock(t)
	p := newTestPool(t, &fakeServer{}, WithMinSpare(1), WithGrow(3), WithMax(2))

	p.Check(ctx)
	free, _ := p.Counts()
	assert.Equal(t, 2, free)
}

func TestPoolConcurrentAcquire(t *testing.T) {
	const (
		maxConns = 3
		workers  = 16
		rounds   = 20
	)

	ctx := context.Background()
	srv := &fakeServer{}
	p := newTestPool(t, srv, WithMax(maxConns))

	var (
		inUse sync.Map
		wg    sync.WaitGroup
		errs  = make(chan error, workers)
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				db, err := p.Acquire(ctx, true, 10*time.Second)
				if err != nil {
					errs <- err
					return
				}
				if _, loaded := inUse.LoadOrStore(db, struct{}{}); loaded {
					errs <- errors.New("connection handed out twice")
					return
				}

				free, used := p.Counts()
				if free+used > maxConns {
					errs <- errors.Errorf("%d connections above max", free+used)
					return
				}

				inUse.Delete(db)
				if err := p.Release(ctx, db); err != nil {
					errs <- err
					return
				}
			}
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	srv.mu.Lock()
	assert.LessOrEqual(t, srv.maxOpen, maxConns)
	srv.mu.Unlock()
}

func TestPoolClose(t *testing.T) {
	ctx := context.Background()
	srv := &fakeServer{}
	p := newTestPool(t, srv)

	db1, err := p.Acquire(ctx, false, 0)
	require.NoError(t, err)
	db2, err := p.Acquire(ctx, false, 0)
	require.NoError(t, err)
	require.NoError(t, p.Release(ctx, db2))

	require.NoError(t, p.Close(ctx))
	require.NoError(t, p.Close(ctx))

	assert.False(t, db1.Connected())
	assert.False(t, db2.Connected())
	open, _, _ := srv.stats()
	assert.Zero(t, open)

	_, err = p.Acquire(ctx, false, 0)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, p.Release(ctx, db1), ErrOwnershipMismatch)
}

func TestPoolStatus(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t, &fakeServer{}, WithMax(4))

	db1, err := p.Acquire(ctx, false, 0)
	require.NoError(t, err)
	db2, err := p.Acquire(ctx, false, 0)
	require.NoError(t, err)
	require.NoError(t, p.Release(ctx, db2))

	st := p.Status()
	assert.Equal(t, 1, st.ID)
	assert.Equal(t, "test", st.Name)
	assert.Equal(t, fakeType, st.Type)
	assert.Equal(t, p.Hash(), st.Hash)
	assert.Equal(t, 1, st.FreeCount)
	assert.Equal(t, 1, st.UsedCount)
	require.Len(t, st.Connections, 2)
	assert.Equal(t, ConnFree, st.Connections[0].Status)
	assert.Equal(t, db2.ID(), st.Connections[0].ID)
	assert.Equal(t, ConnUsed, st.Connections[1].Status)
	assert.Equal(t, db1.ID(), st.Connections[1].ID)

	data, err := json.Marshal(st)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.EqualValues(t, 1, decoded["freeCount"])
	options, ok := decoded["options"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "5m0s", options["timeout"])
	assert.EqualValues(t, 4, options["max"])
}

func TestPoolReadyCheck(t *testing.T) {
	ctx := context.Background()
	srv := &fakeServer{}
	p := newTestPool(t, srv)

	name, err := p.GetReadyHandlers().Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, name)

	free, _ := p.Counts()
	assert.Equal(t, 1, free)

	require.NoError(t, p.Close(ctx))
	name, err = p.GetReadyHandlers().Run(ctx)
	require.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, p.GetFullName(), name)
}

func TestPoolWithMockDriver(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	drv := mock_database.NewMockDriver(ctrl)
	drv.EXPECT().Type().Return("mock").AnyTimes()
	drv.EXPECT().IsConnectionGone(gomock.Any()).Return(false).AnyTimes()

	catalog := database.NewCatalog()
	catalog.Register("mock", func(_ *database.Runtime) database.Driver { return drv })

	p, err := NewPool(ctx, 7, "mocked", catalog)
	require.NoError(t, err)
	require.NoError(t, p.SetConnectParams(ctx, database.NewParams(database.KeyType, "mock")))

	gomock.InOrder(
		drv.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(nil),
		drv.EXPECT().Ping(gomock.Any()).Return(nil),
		drv.EXPECT().Ping(gomock.Any()).Return(errors.New("broken pipe")),
		drv.EXPECT().Disconnect(gomock.Any()).Return(nil),
	)

	db, err := p.Acquire(ctx, false, 0)
	require.NoError(t, err)
	assert.Same(t, p, db.Owner())
	require.NoError(t, p.Release(ctx, db))

	// free connection fails the ping and is replaced
	drv.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(nil)
	got, err := p.Acquire(ctx, false, 0)
	require.NoError(t, err)
	assert.NotSame(t, db, got)

	drv.EXPECT().Disconnect(gomock.Any()).Return(nil)
	require.NoError(t, p.Close(ctx))
}
