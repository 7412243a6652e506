package app

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"

	"testmaker-service/internal/domain"
	"testmaker-service/internal/logger"
	"testmaker-service/internal/scoring"
)

// DefaultPageSize is used by the listing use cases when the caller gives no size.
const DefaultPageSize = 10

// QuizService contains the quiz authoring and scoring use cases.
type QuizService struct {
	users     UserRepository
	quizzes   QuizRepository
	feed      QuizFeed
	questions QuestionRepository
	answers   AnswerRepository
	results   ResultRepository

	defaultAuthor string
	source        SourceFunc
	fallback      scoring.Fallback
	pageSize      int
	log           *slog.Logger
}

// Option customizes a QuizService.
type Option func(*QuizService)

// WithRandSource replaces the time-seeded source used by RandomQuizzes.
func WithRandSource(fn SourceFunc) Option {
	return func(s *QuizService) { s.source = fn }
}

// WithScoringFallback sets the policy used when no result range contains a score.
func WithScoringFallback(f scoring.Fallback) Option {
	return func(s *QuizService) { s.fallback = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *QuizService) { s.log = l }
}

// WithPageSize sets the listing size used when a caller gives none. Non-positive sizes are ignored.
func WithPageSize(n int) Option {
	return func(s *QuizService) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// NewQuizService wires the repositories; every created quiz is attributed to defaultAuthor.
func NewQuizService(repos Repositories, defaultAuthor string, opts ...Option) *QuizService {
	s := &QuizService{
		users:         repos.Users,
		quizzes:       repos.Quizzes,
		feed:          repos.Feed,
		questions:     repos.Questions,
		answers:       repos.Answers,
		results:       repos.Results,
		defaultAuthor: defaultAuthor,
		source:        timeSource,
		fallback:      scoring.FallbackNone,
		pageSize:      DefaultPageSize,
		log:           logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *QuizService) PageSize() int {
	return s.pageSize
}

// DefaultAuthor returns the user id new quizzes are attributed to.
func (s *QuizService) DefaultAuthor() string {
	return s.defaultAuthor
}

func (s *QuizService) GetQuiz(ctx context.Context, id int64) (domain.Quiz, error) {
	return s.quizzes.GetQuiz(ctx, id)
}

// CreateQuiz stores a new quiz owned by the default author.
func (s *QuizService) CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	if !quiz.IsValid() {
		return domain.Quiz{}, domain.Invalid("quiz title is required and view count must not be negative")
	}
	quiz.ID = 0
	quiz.UserID = s.defaultAuthor
	created, err := s.quizzes.InsertQuiz(ctx, quiz)
	if err != nil {
		return domain.Quiz{}, err
	}
	s.log.Info("quiz created", "quiz_id", created.ID, "user_id", created.UserID)
	return created, nil
}

// UpdateQuiz validates only the writable fields; ViewCount is server-owned and ignored.
func (s *QuizService) UpdateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	quiz.ViewCount = 0
	if !quiz.IsValid() {
		return domain.Quiz{}, domain.Invalid("quiz %d: title is required", quiz.ID)
	}
	updated, err := s.quizzes.UpdateQuiz(ctx, quiz)
	if err != nil {
		return domain.Quiz{}, err
	}
	s.log.Info("quiz updated", "quiz_id", updated.ID)
	return updated, nil
}

func (s *QuizService) DeleteQuiz(ctx context.Context, id int64) error {
	if err := s.quizzes.DeleteQuiz(ctx, id); err != nil {
		return err
	}
	s.log.Info("quiz deleted", "quiz_id", id)
	return nil
}

// LatestQuizzes returns up to n quizzes, newest first.
func (s *QuizService) LatestQuizzes(ctx context.Context, n int) ([]domain.Quiz, error) {
	if n <= 0 {
		return []domain.Quiz{}, nil
	}
	return s.feed.LatestQuizzes(ctx, n)
}

// QuizzesByTitle returns up to n quizzes ordered by title A to Z.
func (s *QuizService) QuizzesByTitle(ctx context.Context, n int) ([]domain.Quiz, error) {
	if n <= 0 {
		return []domain.Quiz{}, nil
	}
	return s.feed.QuizzesByTitle(ctx, n)
}

// RandomQuizzes returns up to n distinct quizzes drawn uniformly at random.
func (s *QuizService) RandomQuizzes(ctx context.Context, n int) ([]domain.Quiz, error) {
	if n <= 0 {
		return []domain.Quiz{}, nil
	}
	ids, err := s.feed.QuizIDs(ctx)
	if err != nil {
		return nil, err
	}
	picked := sampleIDs(ids, n, rand.New(s.source()))
	quizzes := make([]domain.Quiz, 0, len(picked))
	for _, id := range picked {
		quiz, err := s.quizzes.GetQuiz(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			// deleted between listing and loading
			continue
		}
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, nil
}

func (s *QuizService) GetQuestion(ctx context.Context, id int64) (domain.Question, error) {
	return s.questions.GetQuestion(ctx, id)
}

// ListQuestions returns the questions of a quiz; an unknown quiz yields an empty list.
func (s *QuizService) ListQuestions(ctx context.Context, quizID int64) ([]domain.Question, error) {
	return s.questions.ListQuestions(ctx, quizID)
}

func (s *QuizService) CreateQuestion(ctx context.Context, question domain.Question) (domain.Question, error) {
	if !question.IsValid() {
		return domain.Question{}, domain.Invalid("question text is required")
	}
	question.ID = 0
	created, err := s.questions.InsertQuestion(ctx, question)
	if err != nil {
		return domain.Question{}, err
	}
	s.log.Info("question created", "question_id", created.ID, "quiz_id", created.QuizID)
	return created, nil
}

func (s *QuizService) UpdateQuestion(ctx context.Context, question domain.Question) (domain.Question, error) {
	if !question.IsValid() {
		return domain.Question{}, domain.Invalid("question %d: text is required", question.ID)
	}
	updated, err := s.questions.UpdateQuestion(ctx, question)
	if err != nil {
		return domain.Question{}, err
	}
	s.log.Info("question updated", "question_id", updated.ID)
	return updated, nil
}

func (s *QuizService) DeleteQuestion(ctx context.Context, id int64) error {
	if err := s.questions.DeleteQuestion(ctx, id); err != nil {
		return err
	}
	s.log.Info("question deleted", "question_id", id)
	return nil
}

func (s *QuizService) GetAnswer(ctx context.Context, id int64) (domain.Answer, error) {
	return s.answers.GetAnswer(ctx, id)
}

func (s *QuizService) ListAnswers(ctx context.Context, questionID int64) ([]domain.Answer, error) {
	return s.answers.ListAnswers(ctx, questionID)
}

func (s *QuizService) CreateAnswer(ctx context.Context, answer domain.Answer) (domain.Answer, error) {
	if !answer.IsValid() {
		return domain.Answer{}, domain.Invalid("answer text is required")
	}
	answer.ID = 0
	created, err := s.answers.InsertAnswer(ctx, answer)
	if err != nil {
		return domain.Answer{}, err
	}
	s.log.Info("answer created", "answer_id", created.ID, "question_id", created.QuestionID)
	return created, nil
}

func (s *QuizService) UpdateAnswer(ctx context.Context, answer domain.Answer) (domain.Answer, error) {
	if !answer.IsValid() {
		return domain.Answer{}, domain.Invalid("answer %d: text is required", answer.ID)
	}
	updated, err := s.answers.UpdateAnswer(ctx, answer)
	if err != nil {
		return domain.Answer{}, err
	}
	s.log.Info("answer updated", "answer_id", updated.ID)
	return updated, nil
}

func (s *QuizService) DeleteAnswer(ctx context.Context, id int64) error {
	if err := s.answers.DeleteAnswer(ctx, id); err != nil {
		return err
	}
	s.log.Info("answer deleted", "answer_id", id)
	return nil
}

func (s *QuizService) GetResult(ctx context.Context, id int64) (domain.Result, error) {
	return s.results.GetResult(ctx, id)
}

func (s *QuizService) ListResults(ctx context.Context, quizID int64) ([]domain.Result, error) {
	return s.results.ListResults(ctx, quizID)
}

func (s *QuizService) CreateResult(ctx context.Context, result domain.Result) (domain.Result, error) {
	if !result.IsValid() {
		return domain.Result{}, domain.Invalid("result text is required and MinValue must not exceed MaxValue")
	}
	result.ID = 0
	created, err := s.results.InsertResult(ctx, result)
	if err != nil {
		return domain.Result{}, err
	}
	s.log.Info("result created", "result_id", created.ID, "quiz_id", created.QuizID)
	return created, nil
}

func (s *QuizService) UpdateResult(ctx context.Context, result domain.Result) (domain.Result, error) {
	if !result.IsValid() {
		return domain.Result{}, domain.Invalid("result %d: text is required and MinValue must not exceed MaxValue", result.ID)
	}
	updated, err := s.results.UpdateResult(ctx, result)
	if err != nil {
		return domain.Result{}, err
	}
	s.log.Info("result updated", "result_id", updated.ID)
	return updated, nil
}

func (s *QuizService) DeleteResult(ctx context.Context, id int64) error {
	if err := s.results.DeleteResult(ctx, id); err != nil {
		return err
	}
	s.log.Info("result deleted", "result_id", id)
	return nil
}

// Evaluate sums the values of the selected answers and matches the total against the
// quiz's results. At most one answer per question may be selected, and every answer
// must belong to a question of the quiz.
func (s *QuizService) Evaluate(ctx context.Context, quizID int64, answerIDs []int64) (domain.Evaluation, error) {
	if _, err := s.quizzes.GetQuiz(ctx, quizID); err != nil {
		return domain.Evaluation{}, err
	}

	selected := make([]domain.Answer, 0, len(answerIDs))
	answered := make(map[int64]int64, len(answerIDs))
	for _, id := range answerIDs {
		answer, err := s.answers.GetAnswer(ctx, id)
		if err != nil {
			return domain.Evaluation{}, err
		}
		question, err := s.questions.GetQuestion(ctx, answer.QuestionID)
		if err != nil {
			return domain.Evaluation{}, err
		}
		if question.QuizID != quizID {
			return domain.Evaluation{}, domain.Invalid("answer %d belongs to quiz %d, not %d", id, question.QuizID, quizID)
		}
		if prev, ok := answered[question.ID]; ok {
			return domain.Evaluation{}, domain.Invalid("answers %d and %d both answer question %d", prev, id, question.ID)
		}
		answered[question.ID] = id
		selected = append(selected, answer)
	}

	results, err := s.results.ListResults(ctx, quizID)
	if err != nil {
		return domain.Evaluation{}, err
	}

	score := scoring.Total(selected)
	result, err := scoring.Resolve(results, score, s.fallback)
	if err != nil {
		var nm *domain.NoMatchError
		if errors.As(err, &nm) {
			nm.QuizID = quizID
		}
		s.log.Warn("no result matches score", "quiz_id", quizID, "score", score)
		return domain.Evaluation{}, err
	}
	return domain.Evaluation{QuizID: quizID, Score: score, Result: result}, nil
}

// CreateUser registers a quiz author. The id is assigned by the store.
func (s *QuizService) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	if !user.IsValid() {
		return domain.User{}, domain.Invalid("user name and email are required")
	}
	user.ID = ""
	created, err := s.users.InsertUser(ctx, user)
	if err != nil {
		return domain.User{}, err
	}
	s.log.Info("user created", "user_id", created.ID, "user_name", created.UserName)
	return created, nil
}

func (s *QuizService) GetUser(ctx context.Context, id string) (domain.User, error) {
	return s.users.GetUser(ctx, id)
}
