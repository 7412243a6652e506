package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"testmaker-service/internal/domain"
)

// QuizRepository is the subset of app.QuizRepository the cache decorates.
type QuizRepository interface {
	GetQuiz(ctx context.Context, id int64) (domain.Quiz, error)
	InsertQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	UpdateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	DeleteQuiz(ctx context.Context, id int64) error
}

// QuizCache caches quizzes in process with TTL to avoid repeated store hits.
// Writes go through to the backing repository and drop the cached entry. Each id carries a
// write version, bumped before and after every write; a load only fills the cache when the
// version did not move while it ran.
type QuizCache struct {
	next  QuizRepository
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand

	mu       sync.RWMutex
	cache    map[int64]cachedQuiz
	versions map[int64]uint64
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizCache(next QuizRepository, ttl time.Duration) *QuizCache {
	return &QuizCache{
		next:     next,
		ttl:      ttl,
		clock:    time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:    make(map[int64]cachedQuiz),
		versions: make(map[int64]uint64),
	}
}

func (c *QuizCache) GetQuiz(ctx context.Context, id int64) (domain.Quiz, error) {
	if quiz, ok := c.lookup(id); ok {
		return quiz, nil
	}

	version := c.version(id)
	key := strconv.FormatInt(id, 10) + "@" + strconv.FormatUint(version, 10)
	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if quiz, ok := c.lookup(id); ok {
			return quiz, nil
		}

		quiz, err := c.next.GetQuiz(ctx, id)
		if err != nil {
			return domain.Quiz{}, err
		}

		c.mu.Lock()
		if c.versions[id] == version {
			c.cache[id] = cachedQuiz{
				quiz:      quiz,
				expiresAt: c.clock().Add(c.ttlWithJitter()),
			}
		}
		c.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *QuizCache) InsertQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	return c.next.InsertQuiz(ctx, quiz)
}

func (c *QuizCache) UpdateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	c.invalidate(quiz.ID)
	defer c.invalidate(quiz.ID)
	return c.next.UpdateQuiz(ctx, quiz)
}

func (c *QuizCache) DeleteQuiz(ctx context.Context, id int64) error {
	c.invalidate(id)
	defer c.invalidate(id)
	return c.next.DeleteQuiz(ctx, id)
}

func (c *QuizCache) lookup(id int64) (domain.Quiz, bool) {
	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.cache[id]; ok && entry.expiresAt.After(now) {
		return entry.quiz, true
	}
	return domain.Quiz{}, false
}

func (c *QuizCache) version(id int64) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.versions[id]
}

// invalidate drops the entry and bumps the version so in-flight loads do not refill it.
func (c *QuizCache) invalidate(id int64) {
	c.mu.Lock()
	delete(c.cache, id)
	c.versions[id]++
	c.mu.Unlock()
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
