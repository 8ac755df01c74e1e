package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/soldatov-s/go-dbpool/app"
	"github.com/soldatov-s/go-dbpool/config"
	"github.com/soldatov-s/go-dbpool/log"
	"github.com/soldatov-s/go-dbpool/pool"
	"github.com/spf13/cobra"

	_ "github.com/soldatov-s/go-dbpool/drivers/clickhouse"
	_ "github.com/soldatov-s/go-dbpool/drivers/mongo"
	_ "github.com/soldatov-s/go-dbpool/drivers/mysql"
	_ "github.com/soldatov-s/go-dbpool/drivers/pgx"
	_ "github.com/soldatov-s/go-dbpool/drivers/pq"
	_ "github.com/soldatov-s/go-dbpool/drivers/redis"
	_ "github.com/soldatov-s/go-dbpool/drivers/sqlite"
)

// Set by -ldflags.
var (
	version = "0.0.0"
	builded = "unknown"
	hash    = "unknown"
)

const appName = "dbpoold"

type runFunc func(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *log.Logger) error

func main() {
	var cfgPath, envPrefix string

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "database connection pools with health checks and stats",
		Version: version,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to YAML config")
	rootCmd.PersistentFlags().StringVar(&envPrefix, "env-prefix", config.DefaultEnvPrefix, "prefix of environment overrides")

	wrap := func(f runFunc) func(cmd *cobra.Command, args []string) {
		return func(cmd *cobra.Command, _ []string) {
			cfg, err := config.Load(cfgPath, envPrefix)
			if err != nil {
				fmt.Fprintln(os.Stderr, "load config:", err)
				os.Exit(1)
			}

			ctx := cmd.Context()
			logger, err := log.NewLogger(ctx, &cfg.Logger)
			if err != nil {
				fmt.Fprintln(os.Stderr, "create logger:", err)
				os.Exit(1)
			}
			ctx = logger.Zerolog().WithContext(ctx)

			if err := f(ctx, cmd, cfg, logger); err != nil {
				logger.Zerolog().Err(err).Str("command", cmd.Name()).Msg("command failed")
				os.Exit(1)
			}
		}
	}

	statusCmd := app.CreateStatusCmd(wrap(status))
	statusCmd.Flags().StringVar(&remoteURL, "remote", "", "base URL of a running dbpoold stats server")

	rootCmd.AddCommand(
		app.CreateServeCmd(wrap(serve)),
		statusCmd,
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRegistry creates the registry and every configured pool.
func buildRegistry(ctx context.Context, cfg *config.Config, register prometheus.Registerer) (*pool.Registry, error) {
	opts := cfg.RegistryOptions()
	if register != nil {
		opts = append(opts, pool.WithRegisterer(register))
	}

	registry, err := pool.NewRegistry(ctx, opts...)
	if err != nil {
		return nil, err
	}

	for i := range cfg.Pools {
		pc := &cfg.Pools[i]
		if _, err := registry.CreatePool(ctx, pc.ID, pc.Name, pc.Params, pc.Options()...); err != nil {
			_ = registry.Close(ctx)
			return nil, err
		}
	}

	return registry, nil
}
