package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"testmaker-service/internal/domain"
)

// QuizRepository is the repository the cache sits in front of.
type QuizRepository interface {
	GetQuiz(ctx context.Context, id int64) (domain.Quiz, error)
	InsertQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	UpdateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	DeleteQuiz(ctx context.Context, id int64) error
}

// QuizCache keeps quizzes in Redis and falls back to the backing repository on a miss.
// Quizzes are stored as JSON: SET quiz:{id} {json} EX ttl
// Every write bumps quiz:{id}:v before and after it runs and drops the key. A load only
// stores its copy when quiz:{id}:v is unchanged, checked under WATCH.
type QuizCache struct {
	client *redis.Client
	next   QuizRepository
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

var errStale = errors.New("quiz changed while loading")

func NewQuizCache(client *redis.Client, next QuizRepository, ttl time.Duration) *QuizCache {
	return &QuizCache{
		client: client,
		next:   next,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuizCache) GetQuiz(ctx context.Context, id int64) (domain.Quiz, error) {
	if quiz, ok := c.cached(ctx, id); ok {
		return quiz, nil
	}

	version, err := c.version(ctx, c.client, id)
	if err != nil {
		// Redis is unavailable; serve from the store without caching.
		return c.next.GetQuiz(ctx, id)
	}

	result, err, _ := c.sf.Do(strconv.FormatInt(id, 10)+"@"+version, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := c.cached(ctx, id); ok {
			return quiz, nil
		}

		quiz, err := c.next.GetQuiz(ctx, id)
		if err != nil {
			return domain.Quiz{}, err
		}
		c.store(ctx, quiz, version)
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
	c.invalidate(ctx, quiz.ID)
	defer c.invalidate(ctx, quiz.ID)
	return c.next.UpdateQuiz(ctx, quiz)
}

func (c *QuizCache) DeleteQuiz(ctx context.Context, id int64) error {
	c.invalidate(ctx, id)
	defer c.invalidate(ctx, id)
	return c.next.DeleteQuiz(ctx, id)
}

// cached treats any Redis failure as a miss so the store stays authoritative.
func (c *QuizCache) cached(ctx context.Context, id int64) (domain.Quiz, bool) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

// store writes the quiz only if no write started since version was read.
func (c *QuizCache) store(ctx context.Context, quiz domain.Quiz, version string) {
	data, err := json.Marshal(quiz)
	if err != nil {
		return
	}
	_ = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := c.version(ctx, tx, quiz.ID)
		if err != nil {
			return err
		}
		if current != version {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key(quiz.ID), data, c.ttlWithJitter())
			return nil
		})
		return err
	}, c.versionKey(quiz.ID))
}

func (c *QuizCache) version(ctx context.Context, cmd redis.Cmdable, id int64) (string, error) {
	v, err := cmd.Get(ctx, c.versionKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return v, err
}

// invalidate ignores Redis failures; a stale entry expires with its TTL.
func (c *QuizCache) invalidate(ctx context.Context, id int64) {
	_, _ = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.versionKey(id))
		pipe.Del(ctx, c.key(id))
		return nil
	})
}

func (c *QuizCache) key(id int64) string {
	return "quiz:" + strconv.FormatInt(id, 10)
}

func (c *QuizCache) versionKey(id int64) string {
	return c.key(id) + ":v"
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
