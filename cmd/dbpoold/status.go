package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/soldatov-s/go-dbpool/config"
	"github.com/soldatov-s/go-dbpool/log"
	"github.com/soldatov-s/go-dbpool/pool"
	"github.com/soldatov-s/go-dbpool/services"
	"github.com/spf13/cobra"
)

var (
	nowFunc              = time.Now
	statusAcquireTimeout = 10 * time.Second
	remoteURL            string
)

type statusReport struct {
	Pools  map[int]pool.Status `json:"pools"`
	Errors map[string]string   `json:"errors,omitempty"`
}

// status acquires and releases one connection from every pool and prints
// the registry status. With --remote it asks a running daemon instead.
func status(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *log.Logger) error {
	if remoteURL != "" {
		return remoteStatus(ctx, cmd)
	}

	registry, err := buildRegistry(ctx, cfg, nil)
	if err != nil {
		return errors.Wrap(err, "build registry")
	}
	defer func() {
		if err := registry.Close(ctx); err != nil {
			logger.Zerolog().Err(err).Msg("close registry")
		}
	}()

	report := checkPools(ctx, registry)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return errors.Wrap(err, "encode status")
	}

	if len(report.Errors) > 0 {
		return errors.Errorf("%d of %d pools failed", len(report.Errors), len(report.Pools))
	}

	return nil
}

func remoteStatus(ctx context.Context, cmd *cobra.Command) error {
	client := services.NewClient(remoteURL)

	st, err := client.Status(ctx)
	if err != nil {
		return errors.Wrap(err, "fetch remote status")
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(st); err != nil {
		return errors.Wrap(err, "encode status")
	}

	return client.Ready(ctx)
}

func checkPools(ctx context.Context, registry *pool.Registry) statusReport {
	report := statusReport{Errors: make(map[string]string)}

	for _, p := range registry.Pools() {
		db, err := p.Acquire(ctx, true, statusAcquireTimeout)
		if err == nil {
			err = p.Release(ctx, db)
		}
		if err != nil {
			report.Errors[p.Name()] = err.Error()
		}
	}

	report.Pools = registry.Status()

	return report
}
