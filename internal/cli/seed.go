package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"testmaker-service/internal/app"
	"testmaker-service/internal/config"
)

// DefaultSamples is the number of generated quizzes the seed command creates.
const DefaultSamples = 47

// NewSeedCmd fills an empty database with sample users and quizzes.
func NewSeedCmd(configPath *string) *cobra.Command {
	var samples int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the database with sample users and quizzes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			if cfg.Postgres.URL == "" {
				log.Warn("no postgres url configured, seeding a throwaway in-memory store")
			} else if err := runMigrations(cmd.Context(), cfg, log); err != nil {
				return err
			}
			b, err := openBackend(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer b.Close()
			_, err = seed(cmd.Context(), b, samples, log)
			return err
		},
	}
	cmd.Flags().IntVar(&samples, "samples", DefaultSamples, "number of generated sample quizzes")
	return cmd
}

func seed(ctx context.Context, b *backend, samples int, log *slog.Logger) (app.SeedReport, error) {
	return app.NewSeeder(b.repos, log).Seed(ctx, samples)
}
