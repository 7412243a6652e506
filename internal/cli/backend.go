package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"testmaker-service/internal/app"
	"testmaker-service/internal/config"
	"testmaker-service/internal/infra/memory"
	"testmaker-service/internal/infra/postgres"
	rediscache "testmaker-service/internal/infra/redis"
	"testmaker-service/internal/logger"
)

// backend is the set of repositories selected by config plus the handles to close.
type backend struct {
	repos    app.Repositories
	inMemory bool
	closers  []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	return logger.New(os.Stdout, logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
}

// openBackend uses Postgres when postgres.url is set, otherwise an in-memory store. Quiz reads
// go through Redis when redis.addr is set, otherwise through an in-process cache.
func openBackend(ctx context.Context, cfg config.Config, log *slog.Logger) (*backend, error) {
	b := &backend{}

	if cfg.Postgres.URL != "" {
		db := postgres.Open(cfg.Postgres.URL)
		b.closers = append(b.closers, func() { _ = db.Close() })
		if err := db.PingContext(ctx); err != nil {
			b.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("connect pgx pool: %w", err)
		}
		b.closers = append(b.closers, pool.Close)

		b.repos = app.FromStore(postgres.NewStore(db))
		b.repos.Feed = postgres.NewQuizFeed(pool)
		log.Info("using postgres backend")
	} else {
		b.repos = app.FromStore(memory.NewStore())
		b.inMemory = true
		log.Info("using in-memory backend")
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, quiz reads fall through to the store", "addr", cfg.Redis.Addr, "error", err)
		}
		b.repos.Quizzes = rediscache.NewQuizCache(client, b.repos.Quizzes, config.TTLDuration(cfg.Redis.TTL, quizTTL))
	} else {
		b.repos.Quizzes = memory.NewQuizCache(b.repos.Quizzes, quizTTL)
	}
	return b, nil
}
