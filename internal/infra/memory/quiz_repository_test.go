package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"testmaker-service/internal/domain"
)

func TestQuizCacheCaches(t *testing.T) {
	ctx := context.Background()
	store, quizID := storeWithQuiz(t)
	counting := &countingRepository{QuizRepository: store}
	cache := NewQuizCache(counting, time.Minute)

	if _, err := cache.GetQuiz(ctx, quizID); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if counting.gets != 1 {
		t.Fatalf("expected store once, got %d", counting.gets)
	}

	if _, err := cache.GetQuiz(ctx, quizID); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if counting.gets != 1 {
		t.Fatalf("expected cache hit, store calls %d", counting.gets)
	}
}

func TestQuizCacheDropsEntryOnWrite(t *testing.T) {
	ctx := context.Background()
	store, quizID := storeWithQuiz(t)
	cache := NewQuizCache(store, time.Minute)

	if _, err := cache.GetQuiz(ctx, quizID); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if _, err := cache.UpdateQuiz(ctx, domain.Quiz{ID: quizID, Title: "Renamed"}); err != nil {
		t.Fatalf("update quiz: %v", err)
	}
	got, err := cache.GetQuiz(ctx, quizID)
	if err != nil {
		t.Fatalf("get quiz after update: %v", err)
	}
	if got.Title != "Renamed" {
		t.Fatalf("expected fresh title, got %q", got.Title)
	}

	if err := cache.DeleteQuiz(ctx, quizID); err != nil {
		t.Fatalf("delete quiz: %v", err)
	}
	if _, err := cache.GetQuiz(ctx, quizID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestQuizCacheExpires(t *testing.T) {
	ctx := context.Background()
	store, quizID := storeWithQuiz(t)
	counting := &countingRepository{QuizRepository: store}
	cache := NewQuizCache(counting, time.Minute)
	now := time.Now()
	cache.clock = func() time.Time { return now }

	_, _ = cache.GetQuiz(ctx, quizID)
	now = now.Add(2 * time.Minute)
	_, _ = cache.GetQuiz(ctx, quizID)
	if counting.gets != 2 {
		t.Fatalf("expected reload after ttl, store calls %d", counting.gets)
	}
}

func TestQuizCacheIgnoresLoadRacingAWrite(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		name  string
		write func(cache *QuizCache, id int64) error
		check func(t *testing.T, quiz domain.Quiz, err error)
	}{
		{
			name: "update",
			write: func(cache *QuizCache, id int64) error {
				_, err := cache.UpdateQuiz(ctx, domain.Quiz{ID: id, Title: "new"})
				return err
			},
			check: func(t *testing.T, quiz domain.Quiz, err error) {
				if err != nil || quiz.Title != "new" {
					t.Fatalf("expected updated title, got %q (%v)", quiz.Title, err)
				}
			},
		},
		{
			name: "delete",
			write: func(cache *QuizCache, id int64) error {
				return cache.DeleteQuiz(ctx, id)
			},
			check: func(t *testing.T, quiz domain.Quiz, err error) {
				if !errors.Is(err, domain.ErrNotFound) {
					t.Fatalf("expected deleted quiz to stay gone, got %+v (%v)", quiz, err)
				}
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			store, quizID := storeWithQuiz(t)
			paused := &pausingRepository{
				QuizRepository: store,
				loaded:         make(chan struct{}),
				release:        make(chan struct{}),
			}
			cache := NewQuizCache(paused, time.Minute)

			done := make(chan error, 1)
			go func() {
				_, err := cache.GetQuiz(ctx, quizID)
				done <- err
			}()
			<-paused.loaded

			if err := tc.write(cache, quizID); err != nil {
				t.Fatalf("write: %v", err)
			}
			close(paused.release)
			if err := <-done; err != nil {
				t.Fatalf("racing load: %v", err)
			}

			quiz, err := cache.GetQuiz(ctx, quizID)
			tc.check(t, quiz, err)
		})
	}
}

// pausingRepository blocks the first GetQuiz after the row was read.
type pausingRepository struct {
	QuizRepository
	once    sync.Once
	loaded  chan struct{}
	release chan struct{}
}

func (r *pausingRepository) GetQuiz(ctx context.Context, id int64) (domain.Quiz, error) {
	quiz, err := r.QuizRepository.GetQuiz(ctx, id)
	r.once.Do(func() {
		close(r.loaded)
		<-r.release
	})
	return quiz, err
}

type countingRepository struct {
	QuizRepository
	gets int
}

func (r *countingRepository) GetQuiz(ctx context.Context, id int64) (domain.Quiz, error) {
	r.gets++
	return r.QuizRepository.GetQuiz(ctx, id)
}

func storeWithQuiz(t *testing.T) (*Store, int64) {
	t.Helper()
	ctx := context.Background()
	store := NewStore()
	author, err := store.InsertUser(ctx, domain.User{UserName: "Admin", Email: "admin@testmakerfree.com"})
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	quiz, err := store.InsertQuiz(ctx, domain.Quiz{UserID: author.ID, Title: "Light or Dark?"})
	if err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
	return store, quiz.ID
}
