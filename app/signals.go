package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
)

func defaultSignals() []os.Signal {
	return []os.Signal{syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT}
}

func WithCustomSignals(signals ...os.Signal) ManagerOption {
	return func(m *Manager) {
		m.signals = signals
	}
}

// ErrSignal ends the run loop when the process was asked to stop.
type ErrSignal struct {
	Signal os.Signal
}

func (e ErrSignal) Error() string {
	return fmt.Sprintf("got error signal %s", e.Signal.String())
}

// OSSignalWaiter shuts the manager down on the first of the watched signals.
func (m *Manager) OSSignalWaiter(ctx context.Context) error {
	logger := m.logger.Zerolog()
	closeSignal := make(chan os.Signal, 1)
	signal.Notify(closeSignal, m.signals...)

	m.errorGroup.Go(func() error {
		defer signal.Stop(closeSignal)

		select {
		case s := <-closeSignal:
			logger.Info().Str("signal", s.String()).Msg("shutting down")
			if err := m.Shutdown(ctx); err != nil {
				return errors.Wrap(err, "shutdown app")
			}
			return ErrSignal{Signal: s}
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	return nil
}

// Loop waits for every goroutine of the error group. A stop signal is not an
// error.
func (m *Manager) Loop(ctx context.Context) error {
	err := m.errorGroup.Wait()
	if err == nil {
		return nil
	}

	errSig := ErrSignal{}
	if errors.As(err, &errSig) {
		m.logger.Zerolog().Info().Msg("exited by exit signal")
		return nil
	}

	return errors.Wrap(err, "exited with error")
}
