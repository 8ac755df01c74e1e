package pool

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/soldatov-s/go-dbpool/database"
)

const fakeType = "fake"

var errFakeDown = errors.New("fake server is down")

// fakeServer is the backend shared by all fake drivers of a test.
type fakeServer struct {
	mu        sync.Mutex
	down      bool
	pingFail  bool
	open      int
	connects  int
	maxOpen   int
	rollbacks int
}

func (s *fakeServer) setDown(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = v
}

func (s *fakeServer) setPingFail(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingFail = v
}

func (s *fakeServer) stats() (open, connects, rollbacks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open, s.connects, s.rollbacks
}

type fakeDriver struct {
	srv       *fakeServer
	connected bool
}

func (d *fakeDriver) Connect(_ context.Context, _ database.Params) error {
	d.srv.mu.Lock()
	defer d.srv.mu.Unlock()

	if d.srv.down {
		return errFakeDown
	}
	d.connected = true
	d.srv.open++
	d.srv.connects++
	if d.srv.open > d.srv.maxOpen {
		d.srv.maxOpen = d.srv.open
	}
	return nil
}

func (d *fakeDriver) Disconnect(_ context.Context) error {
	d.srv.mu.Lock()
	defer d.srv.mu.Unlock()

	if d.connected {
		d.connected = false
		d.srv.open--
	}
	return nil
}

func (d *fakeDriver) Execute(_ context.Context, _ string) error { return nil }

func (d *fakeDriver) Query(_ context.Context, _ string) (database.ResultSet, error) {
	return nil, database.ErrNotSupported
}

func (d *fakeDriver) Ping(_ context.Context) error {
	d.srv.mu.Lock()
	defer d.srv.mu.Unlock()

	if d.srv.down || d.srv.pingFail {
		return errFakeDown
	}
	return nil
}

func (d *fakeDriver) Escape(s string) string { return s }
func (d *fakeDriver) InsertID() (int64, error) { return 0, nil }
func (d *fakeDriver) AffectedRows() (int64, error) { return 0, nil }
func (d *fakeDriver) Begin(_ context.Context) error { return nil }
func (d *fakeDriver) Commit(_ context.Context) error { return nil }

func (d *fakeDriver) Rollback(_ context.Context) error {
	d.srv.mu.Lock()
	defer d.srv.mu.Unlock()
	d.srv.rollbacks++
	return nil
}

func (d *fakeDriver) Savepoint(_ context.Context, _ string) error { return nil }
func (d *fakeDriver) ReleaseSavepoint(_ context.Context, _ string) error { return nil }
func (d *fakeDriver) RollbackToSavepoint(_ context.Context, _ string) error { return nil }
func (d *fakeDriver) Type() string { return fakeType }
func (d *fakeDriver) IsConnectionGone(err error) bool { return errors.Is(err, errFakeDown) }

func newFakeCatalog(srv *fakeServer) *database.Catalog {
	c := database.NewCatalog()
	c.Register(fakeType, func(_ *database.Runtime) database.Driver {
		return &fakeDriver{srv: srv}
	})
	return c
}

func fakeParams(host string) database.Params {
	return database.NewParams(database.KeyType, fakeType, database.KeyHost, host)
}

// testClock replaces nowFunc for the duration of a test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func setClock(t *testing.T) *testClock {
	t.Helper()

	c := &testClock{now: time.Unix(1_700_000_000, 0)}
	old := nowFunc
	nowFunc = c.Now
	t.Cleanup(func() { nowFunc = old })
	return c
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestPool(t *testing.T, srv *fakeServer, opts ...Option) *Pool {
	t.Helper()

	ctx := context.Background()
	p, err := NewPool(ctx, 1, "test", newFakeCatalog(srv), opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.SetConnectParams(ctx, fakeParams("db1")); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = p.Close(ctx) })
	return p
}
