package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"testmaker-service/internal/app"
	"testmaker-service/internal/config"
	"testmaker-service/internal/scoring"
	transport "testmaker-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	var (
		seedData bool
		samples  int
	)
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the quiz API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port, seedData, samples)
		},
	}
	cmd.Flags().BoolVar(&seedData, "seed", false, "seed sample quizzes before serving")
	cmd.Flags().IntVar(&samples, "samples", DefaultSamples, "number of generated sample quizzes when seeding")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag string, seedData bool, samples int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	fallback, ok := scoring.ParseFallback(cfg.Scoring.Fallback)
	if !ok {
		return errors.New("scoring.fallback must be none or nearest, got " + cfg.Scoring.Fallback)
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	// The in-memory store starts empty; it always gets at least the admin account.
	if b.inMemory && !seedData {
		samples = 0
	}
	if seedData || b.inMemory {
		if _, err := seed(ctx, b, samples, log); err != nil {
			return err
		}
	}

	author, err := app.ResolveDefaultAuthor(ctx, b.repos.Users, cfg.Quiz.DefaultAuthorID, cfg.Quiz.DefaultAuthorName)
	if err != nil {
		return err
	}
	log.Info("default author resolved", "user_id", author)

	service := app.NewQuizService(b.repos, author,
		app.WithScoringFallback(fallback),
		app.WithPageSize(cfg.Quiz.PageSize),
		app.WithLogger(log),
	)
	api := transport.NewAPI(service, log)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      api.Handler(cfg.Server.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting testmaker service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
