package pool

import (
	"context"

	"github.com/pkg/errors"
	"github.com/soldatov-s/go-dbpool/base"
)

func (p *Pool) buildMetrics(_ context.Context) error {
	fullName := p.GetFullName()
	metrics := p.GetMetrics()

	if _, err := metrics.AddMetricGauge(fullName, "free", "free connections", func(ctx context.Context) (float64, error) {
		free, _ := p.Counts()
		return float64(free), nil
	}); err != nil {
		return errors.Wrap(err, "add free gauge")
	}

	if _, err := metrics.AddMetricGauge(fullName, "used", "used connections", func(ctx context.Context) (float64, error) {
		_, used := p.Counts()
		return float64(used), nil
	}); err != nil {
		return errors.Wrap(err, "add used gauge")
	}

	if _, err := metrics.AddMetricGauge(fullName, "total", "free and used connections", func(ctx context.Context) (float64, error) {
		free, used := p.Counts()
		return float64(free + used), nil
	}); err != nil {
		return errors.Wrap(err, "add total gauge")
	}

	var err error
	if p.stats.created, err = metrics.AddCounter(fullName, "created total", "connections opened"); err != nil {
		return errors.Wrap(err, "add created counter")
	}
	if p.stats.destroyed, err = metrics.AddCounter(fullName, "destroyed total", "connections closed"); err != nil {
		return errors.Wrap(err, "add destroyed counter")
	}
	if p.stats.evictedTimeout, err = metrics.AddCounter(fullName, "evicted timeout total", "idle connections evicted"); err != nil {
		return errors.Wrap(err, "add evicted timeout counter")
	}
	if p.stats.evictedKeepAlive, err = metrics.AddCounter(fullName, "evicted keepalive total", "connections failed keepalive"); err != nil {
		return errors.Wrap(err, "add evicted keepalive counter")
	}
	if p.stats.exhausted, err = metrics.AddCounter(fullName, "exhausted total", "connections refused at max"); err != nil {
		return errors.Wrap(err, "add exhausted counter")
	}
	if p.stats.acquireSeconds, err = metrics.AddHistogram(fullName, "acquire seconds", "time to acquire a connection"); err != nil {
		return errors.Wrap(err, "add acquire histogram")
	}

	return nil
}

// buildReadyHandlers adds a check that borrows and returns one connection.
func (p *Pool) buildReadyHandlers(_ context.Context) error {
	return p.GetReadyHandlers().Add(&base.CheckOptions{
		Name: p.GetFullName(),
		CheckFunc: func(ctx context.Context) error {
			db, err := p.Acquire(ctx, false, 0)
			if err != nil {
				return errors.Wrap(err, "acquire")
			}
			return p.Release(ctx, db)
		},
	})
}
