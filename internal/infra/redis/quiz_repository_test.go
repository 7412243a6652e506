package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"testmaker-service/internal/domain"
	"testmaker-service/internal/infra/memory"
)

func TestQuizCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store, quizID := storeWithQuiz(t)
	counting := &countingRepository{QuizRepository: store}
	cache := NewQuizCache(newClient(mr), counting, time.Minute)

	got, err := cache.GetQuiz(context.Background(), quizID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if counting.gets != 1 {
		t.Fatalf("expected store called once, got %d", counting.gets)
	}
	if !mr.Exists("quiz:1") {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL("quiz:1"); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("expected ttl within jitter, got %v", ttl)
	}

	// Second call should hit cache, store not incremented.
	again, err := cache.GetQuiz(context.Background(), quizID)
	if err != nil {
		t.Fatalf("get quiz again: %v", err)
	}
	if counting.gets != 1 {
		t.Fatalf("expected cache hit, store calls=%d", counting.gets)
	}
	if again.Title != got.Title || !again.CreatedDate.Equal(got.CreatedDate) {
		t.Fatalf("cached quiz differs: %+v vs %+v", again, got)
	}
}

func TestQuizCacheInvalidatesOnWrite(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store, quizID := storeWithQuiz(t)
	cache := NewQuizCache(newClient(mr), store, time.Minute)

	if _, err := cache.GetQuiz(ctx, quizID); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if _, err := cache.UpdateQuiz(ctx, domain.Quiz{ID: quizID, Title: "Renamed"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if mr.Exists("quiz:1") {
		t.Fatalf("expected key dropped after update")
	}
	got, _ := cache.GetQuiz(ctx, quizID)
	if got.Title != "Renamed" {
		t.Fatalf("expected fresh title, got %q", got.Title)
	}

	if err := cache.DeleteQuiz(ctx, quizID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := cache.GetQuiz(ctx, quizID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestQuizCacheFallsBackWhenRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := newClient(mr)
	mr.Close()

	store, quizID := storeWithQuiz(t)
	cache := NewQuizCache(client, store, time.Minute)
	if _, err := cache.GetQuiz(context.Background(), quizID); err != nil {
		t.Fatalf("expected store fallback, got %v", err)
	}
}

func TestQuizCacheSkipsLoadThatRacedAWrite(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store, quizID := storeWithQuiz(t)
	paused := &pausingRepository{
		QuizRepository: store,
		loaded:         make(chan struct{}),
		release:        make(chan struct{}),
	}
	cache := NewQuizCache(newClient(mr), paused, time.Minute)

	done := make(chan error, 1)
	go func() {
		_, err := cache.GetQuiz(ctx, quizID)
		done <- err
	}()
	<-paused.loaded

	if _, err := cache.UpdateQuiz(ctx, domain.Quiz{ID: quizID, Title: "new"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	close(paused.release)
	if err := <-done; err != nil {
		t.Fatalf("racing load: %v", err)
	}
	if mr.Exists("quiz:1") {
		t.Fatalf("expected the racing load not to be cached")
	}
	if v, _ := mr.Get("quiz:1:v"); v != "2" {
		t.Fatalf("expected version bumped before and after the write, got %q", v)
	}

	got, err := cache.GetQuiz(ctx, quizID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if got.Title != "new" {
		t.Fatalf("expected updated title, got %q", got.Title)
	}

	if err := cache.DeleteQuiz(ctx, quizID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := cache.GetQuiz(ctx, quizID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
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

func storeWithQuiz(t *testing.T) (*memory.Store, int64) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	author, err := store.InsertUser(ctx, domain.User{UserName: "Admin", Email: "admin@testmakerfree.com"})
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	quiz, err := store.InsertQuiz(ctx, domain.Quiz{UserID: author.ID, Title: "GenX, GenY or GenZ?"})
	if err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
	return store, quiz.ID
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
