package base

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/soldatov-s/go-dbpool/x/httpx"
)

// checkStorage holds named checks and answers them over HTTP.
type checkStorage struct {
	checks *MapCheckOptions
}

func newCheckStorage() checkStorage {
	return checkStorage{checks: NewMapCheckOptions()}
}

func (s *checkStorage) serve(ctx context.Context, w http.ResponseWriter) {
	name, err := s.checks.Run(ctx)
	if err != nil {
		httpx.WriteErrAnswer(ctx, w, err, name)
		return
	}

	answ := httpx.ResultAnsw{Body: httpx.CheckResult{Status: httpx.StatusOK, Checks: s.checks.Len()}}
	if err := answ.WriteJSON(w); err != nil {
		zerolog.Ctx(ctx).Err(err).Msg("write check answer")
	}
}

// AliveCheckStorage answers /health/alive. A failed alive check means the
// process should be restarted.
type AliveCheckStorage struct {
	alive checkStorage
}

func NewAliveCheckStorage() *AliveCheckStorage {
	return &AliveCheckStorage{alive: newCheckStorage()}
}

func (s *AliveCheckStorage) GetAliveHandlers() *MapCheckOptions {
	return s.alive.checks
}

func (s *AliveCheckStorage) AliveCheckHandler(ctx context.Context, w http.ResponseWriter) {
	s.alive.serve(ctx, w)
}

// ReadyCheckStorage answers /health/ready. Pools add a check that they can
// hand out a connection.
type ReadyCheckStorage struct {
	ready checkStorage
}

func NewReadyCheckStorage() *ReadyCheckStorage {
	return &ReadyCheckStorage{ready: newCheckStorage()}
}

func (s *ReadyCheckStorage) GetReadyHandlers() *MapCheckOptions {
	return s.ready.checks
}

func (s *ReadyCheckStorage) ReadyCheckHandler(ctx context.Context, w http.ResponseWriter) {
	s.ready.serve(ctx, w)
}
