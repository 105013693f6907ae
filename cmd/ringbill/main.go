// Command ringbill runs the call billing service: the HTTP API, the
// background billing worker, schema migrations and development seeding.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"os"

	"github.com/bwmarrin/snowflake"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ringbill/ringbill/internal/billingdashboard"
	"github.com/ringbill/ringbill/internal/billingsettings"
	"github.com/ringbill/ringbill/internal/call"
	"github.com/ringbill/ringbill/internal/clock"
	"github.com/ringbill/ringbill/internal/config"
	"github.com/ringbill/ringbill/internal/dispute"
	"github.com/ringbill/ringbill/internal/events"
	"github.com/ringbill/ringbill/internal/migration"
	"github.com/ringbill/ringbill/internal/observability"
	"github.com/ringbill/ringbill/internal/pricingrule"
	"github.com/ringbill/ringbill/internal/ratelimit"
	"github.com/ringbill/ringbill/internal/rating"
	"github.com/ringbill/ringbill/internal/scheduler"
	"github.com/ringbill/ringbill/internal/seed"
	"github.com/ringbill/ringbill/internal/server"
	"github.com/ringbill/ringbill/pkg/db"
)

func main() {
	root := &cobra.Command{
		Use:   "ringbill",
		Short: "Call pricing and qualification engine",
	}
	root.AddCommand(
		serveCmd(),
		workerCmd(),
		migrateCmd(),
		seedCmd(),
	)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// baseModule is everything shared by the API server and the worker.
func baseModule() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		db.Module,
		clock.Module,
		fx.Provide(
			newSnowflakeNode,
			events.NewOutbox,
		),
		billingsettings.Module,
		pricingrule.Module,
		call.Module,
		rating.Module,
		dispute.Module,
		billingdashboard.Module,
		fx.Invoke(runMigrations),
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the billing HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := fx.New(
				baseModule(),
				ratelimit.Module,
				server.Module,
				fx.Invoke(bootstrap),
			)
			app.Run()
			return app.Err()
		},
	}
}

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the auto-bill sweep and retention jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := fx.New(
				baseModule(),
				scheduler.Module,
			)
			app.Run()
			return app.Err()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			sqlDB, err := sql.Open("postgres", cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			return migration.RunMigrations(sqlDB)
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the default organization and API key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var runErr error
			app := fx.New(
				baseModule(),
				fx.Invoke(func(database *gorm.DB, node *snowflake.Node, log *zap.Logger) {
					runErr = seed.EnsureDefaultOrg(cmd.Context(), database, node, log)
				}),
				fx.NopLogger,
			)
			ctx := cmd.Context()
			if err := app.Start(ctx); err != nil {
				return err
			}
			if err := app.Stop(ctx); err != nil {
				return err
			}
			return runErr
		},
	}
}

func runMigrations(database *gorm.DB, log *zap.Logger) error {
	sqlDB, err := database.DB()
	if err != nil {
		return err
	}
	if err := migration.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Info("schema migrations applied")
	return nil
}

func bootstrap(lc fx.Lifecycle, cfg config.Config, database *gorm.DB, node *snowflake.Node, log *zap.Logger) {
	if !cfg.Bootstrap.EnsureDefaultOrg || cfg.IsProduction() {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return seed.EnsureDefaultOrg(ctx, database, node, log)
		},
	})
}

// newSnowflakeNode derives a stable node ID from the hostname so replicas in
// the same deployment generate disjoint IDs.
func newSnowflakeNode() (*snowflake.Node, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "ringbill"
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(hostname))
	return snowflake.NewNode(int64(h.Sum32() % 1024))
}
