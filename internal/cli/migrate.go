package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun/migrate"
	"testmaker-service/internal/config"
	"testmaker-service/internal/infra/postgres"
	pgmigrations "testmaker-service/internal/infra/postgres/migrations"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var rollback bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			if rollback {
				return rollbackMigrations(cmd.Context(), cfg, log)
			}
			return runMigrations(cmd.Context(), cfg, log)
		},
	}
	cmd.Flags().BoolVar(&rollback, "rollback", false, "roll back the last migration group")
	return cmd
}

func newMigrator(ctx context.Context, cfg config.Config) (*migrate.Migrator, func(), error) {
	if cfg.Postgres.URL == "" {
		return nil, nil, fmt.Errorf("postgres url not configured")
	}
	db := postgres.Open(cfg.Postgres.URL)
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return migrator, func() { _ = db.Close() }, nil
}

func runMigrations(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	migrator, closeDB, err := newMigrator(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		log.Info("no new migrations")
		return nil
	}
	log.Info("migrations applied", "group", group.String())
	return nil
}

func rollbackMigrations(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	migrator, closeDB, err := newMigrator(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	group, err := migrator.Rollback(ctx)
	if err != nil {
		return err
	}
	log.Info("migrations rolled back", "group", group.String())
	return nil
}
