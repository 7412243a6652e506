package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"testmaker-service/internal/domain"
)

// Store is an in-memory implementation of app.Store. A single mutex makes every
// operation, cascades included, atomic.
type Store struct {
	clock func() time.Time

	mu        sync.RWMutex
	users     map[string]domain.User
	quizzes   map[int64]domain.Quiz
	questions map[int64]domain.Question
	answers   map[int64]domain.Answer
	results   map[int64]domain.Result
	seq       struct{ quiz, question, answer, result int64 }
}

func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock allows deterministic timestamps in tests.
func NewStoreWithClock(now func() time.Time) *Store {
	return &Store{
		clock:     now,
		users:     make(map[string]domain.User),
		quizzes:   make(map[int64]domain.Quiz),
		questions: make(map[int64]domain.Question),
		answers:   make(map[int64]domain.Answer),
		results:   make(map[int64]domain.Result),
	}
}

func (s *Store) GetUser(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return domain.User{}, domain.NotFound(domain.EntityUser, id)
}

func (s *Store) GetUserByName(_ context.Context, userName string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.UserName, userName) {
			return u, nil
		}
	}
	return domain.User{}, domain.NotFound(domain.EntityUser, userName)
}

func (s *Store) InsertUser(_ context.Context, user domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.UserName, user.UserName) {
			return domain.User{}, domain.Invalid("user name %q is taken", user.UserName)
		}
	}
	user.ID = uuid.NewString()
	user.Stamp(s.clock())
	s.users[user.ID] = user
	return user, nil
}

func (s *Store) UpdateUser(_ context.Context, user domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[user.ID]
	if !ok {
		return domain.User{}, domain.NotFound(domain.EntityUser, user.ID)
	}
	cur.Apply(user, s.clock())
	s.users[cur.ID] = cur
	return cur, nil
}

// DeleteUser removes the user with their quizzes and everything below them. The cascade
// runs below any QuizCache, so cached copies of those quizzes live until their TTL; no
// HTTP route deletes users.
func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return domain.NotFound(domain.EntityUser, id)
	}
	for qid, q := range s.quizzes {
		if q.UserID == id {
			s.deleteQuizLocked(qid)
		}
	}
	delete(s.users, id)
	return nil
}

func (s *Store) GetQuiz(_ context.Context, id int64) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if q, ok := s.quizzes[id]; ok {
		return q, nil
	}
	return domain.Quiz{}, domain.NotFound(domain.EntityQuiz, id)
}

func (s *Store) InsertQuiz(_ context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[quiz.UserID]; !ok {
		return domain.Quiz{}, domain.NotFound(domain.EntityUser, quiz.UserID)
	}
	s.seq.quiz++
	quiz.ID = s.seq.quiz
	quiz.Stamp(s.clock())
	s.quizzes[quiz.ID] = quiz
	return quiz, nil
}

func (s *Store) UpdateQuiz(_ context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.quizzes[quiz.ID]
	if !ok {
		return domain.Quiz{}, domain.NotFound(domain.EntityQuiz, quiz.ID)
	}
	cur.Apply(quiz, s.clock())
	s.quizzes[cur.ID] = cur
	return cur, nil
}

func (s *Store) DeleteQuiz(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[id]; !ok {
		return domain.NotFound(domain.EntityQuiz, id)
	}
	s.deleteQuizLocked(id)
	return nil
}

func (s *Store) deleteQuizLocked(id int64) {
	for qid, q := range s.questions {
		if q.QuizID == id {
			s.deleteQuestionLocked(qid)
		}
	}
	for rid, r := range s.results {
		if r.QuizID == id {
			delete(s.results, rid)
		}
	}
	delete(s.quizzes, id)
}

func (s *Store) LatestQuizzes(_ context.Context, limit int) ([]domain.Quiz, error) {
	return s.sortedQuizzes(limit, func(a, b domain.Quiz) bool {
		if !a.CreatedDate.Equal(b.CreatedDate) {
			return a.CreatedDate.After(b.CreatedDate)
		}
		return a.ID > b.ID
	}), nil
}

func (s *Store) QuizzesByTitle(_ context.Context, limit int) ([]domain.Quiz, error) {
	return s.sortedQuizzes(limit, func(a, b domain.Quiz) bool {
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ID < b.ID
	}), nil
}

func (s *Store) QuizIDs(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.quizzes))
	for id := range s.quizzes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *Store) sortedQuizzes(limit int, less func(a, b domain.Quiz) bool) []domain.Quiz {
	s.mu.RLock()
	out := make([]domain.Quiz, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		out = append(out, q)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Store) GetQuestion(_ context.Context, id int64) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if q, ok := s.questions[id]; ok {
		return q, nil
	}
	return domain.Question{}, domain.NotFound(domain.EntityQuestion, id)
}

func (s *Store) ListQuestions(_ context.Context, quizID int64) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0)
	for _, q := range s.questions {
		if q.QuizID == quizID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) InsertQuestion(_ context.Context, question domain.Question) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[question.QuizID]; !ok {
		return domain.Question{}, domain.NotFound(domain.EntityQuiz, question.QuizID)
	}
	s.seq.question++
	question.ID = s.seq.question
	question.Stamp(s.clock())
	s.questions[question.ID] = question
	return question, nil
}

func (s *Store) UpdateQuestion(_ context.Context, question domain.Question) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.questions[question.ID]
	if !ok {
		return domain.Question{}, domain.NotFound(domain.EntityQuestion, question.ID)
	}
	if _, ok := s.quizzes[question.QuizID]; !ok {
		return domain.Question{}, domain.NotFound(domain.EntityQuiz, question.QuizID)
	}
	cur.Apply(question, s.clock())
	s.questions[cur.ID] = cur
	return cur, nil
}

func (s *Store) DeleteQuestion(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return domain.NotFound(domain.EntityQuestion, id)
	}
	s.deleteQuestionLocked(id)
	return nil
}

func (s *Store) deleteQuestionLocked(id int64) {
	for aid, a := range s.answers {
		if a.QuestionID == id {
			delete(s.answers, aid)
		}
	}
	delete(s.questions, id)
}

func (s *Store) GetAnswer(_ context.Context, id int64) (domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.answers[id]; ok {
		return a, nil
	}
	return domain.Answer{}, domain.NotFound(domain.EntityAnswer, id)
}

func (s *Store) ListAnswers(_ context.Context, questionID int64) ([]domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Answer, 0)
	for _, a := range s.answers {
		if a.QuestionID == questionID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) InsertAnswer(_ context.Context, answer domain.Answer) (domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[answer.QuestionID]; !ok {
		return domain.Answer{}, domain.NotFound(domain.EntityQuestion, answer.QuestionID)
	}
	s.seq.answer++
	answer.ID = s.seq.answer
	answer.Stamp(s.clock())
	s.answers[answer.ID] = answer
	return answer, nil
}

func (s *Store) UpdateAnswer(_ context.Context, answer domain.Answer) (domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.answers[answer.ID]
	if !ok {
		return domain.Answer{}, domain.NotFound(domain.EntityAnswer, answer.ID)
	}
	if _, ok := s.questions[answer.QuestionID]; !ok {
		return domain.Answer{}, domain.NotFound(domain.EntityQuestion, answer.QuestionID)
	}
	cur.Apply(answer, s.clock())
	s.answers[cur.ID] = cur
	return cur, nil
}

func (s *Store) DeleteAnswer(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.answers[id]; !ok {
		return domain.NotFound(domain.EntityAnswer, id)
	}
	delete(s.answers, id)
	return nil
}

func (s *Store) GetResult(_ context.Context, id int64) (domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.results[id]; ok {
		return r, nil
	}
	return domain.Result{}, domain.NotFound(domain.EntityResult, id)
}

func (s *Store) ListResults(_ context.Context, quizID int64) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Result, 0)
	for _, r := range s.results {
		if r.QuizID == quizID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) InsertResult(_ context.Context, result domain.Result) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[result.QuizID]; !ok {
		return domain.Result{}, domain.NotFound(domain.EntityQuiz, result.QuizID)
	}
	s.seq.result++
	result.ID = s.seq.result
	result.Stamp(s.clock())
	s.results[result.ID] = result
	return result, nil
}

func (s *Store) UpdateResult(_ context.Context, result domain.Result) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.results[result.ID]
	if !ok {
		return domain.Result{}, domain.NotFound(domain.EntityResult, result.ID)
	}
	if _, ok := s.quizzes[result.QuizID]; !ok {
		return domain.Result{}, domain.NotFound(domain.EntityQuiz, result.QuizID)
	}
	cur.Apply(result, s.clock())
	s.results[cur.ID] = cur
	return cur, nil
}

func (s *Store) DeleteResult(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[id]; !ok {
		return domain.NotFound(domain.EntityResult, id)
	}
	delete(s.results, id)
	return nil
}
