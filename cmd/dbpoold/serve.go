package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/soldatov-s/go-dbpool/app"
	"github.com/soldatov-s/go-dbpool/config"
	"github.com/soldatov-s/go-dbpool/httpsrv"
	"github.com/soldatov-s/go-dbpool/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serve(ctx context.Context, _ *cobra.Command, cfg *config.Config, logger *log.Logger) error {
	runner, ctx := errgroup.WithContext(ctx)

	registry, err := buildRegistry(ctx, cfg, prometheus.DefaultRegisterer)
	if err != nil {
		return errors.Wrap(err, "build registry")
	}

	srv, err := httpsrv.NewEnity(ctx, "stats", &cfg.HTTP, runner, httpsrv.DefaultMiddlewares(ctx)...)
	if err != nil {
		return errors.Wrap(err, "create http server")
	}

	manager := app.NewManager(&app.ManagerDeps{
		Meta: &app.MetaDeps{
			Name:        appName,
			Builded:     builded,
			Hash:        hash,
			Version:     version,
			Description: "database connection pools",
		},
		StatsHTTPEnityName: srv.GetFullName(),
		Logger:             logger,
		ErrorGroup:         runner,
	})

	if err := manager.Add(ctx, registry); err != nil {
		return errors.Wrap(err, "add registry")
	}
	if err := manager.Add(ctx, srv); err != nil {
		return errors.Wrap(err, "add http server")
	}

	logger.GetLogger(appName, log.F("build", manager.Meta().BuildInfo())).Info().
		Int("pools", len(cfg.Pools)).
		Msg("starting")

	// open the minimum connections before the first tick
	registry.RunMaintenance(ctx, nowFunc())

	if err := manager.Start(ctx); err != nil {
		return errors.Wrap(err, "start")
	}

	if err := manager.OSSignalWaiter(ctx); err != nil {
		return errors.Wrap(err, "wait signals")
	}

	return manager.Loop(ctx)
}
