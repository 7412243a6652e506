package app

import (
	"context"

	"testmaker-service/internal/domain"
)

// UserRepository stores quiz authors. DeleteUser removes the user's quizzes too.
type UserRepository interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
	GetUserByName(ctx context.Context, userName string) (domain.User, error)
	InsertUser(ctx context.Context, user domain.User) (domain.User, error)
	UpdateUser(ctx context.Context, user domain.User) (domain.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// QuizRepository stores quizzes. DeleteQuiz cascades to questions, answers and results
// in one transaction.
type QuizRepository interface {
	GetQuiz(ctx context.Context, id int64) (domain.Quiz, error)
	InsertQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	UpdateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	DeleteQuiz(ctx context.Context, id int64) error
}

// QuizFeed serves the read-only quiz listings.
type QuizFeed interface {
	LatestQuizzes(ctx context.Context, limit int) ([]domain.Quiz, error)
	QuizzesByTitle(ctx context.Context, limit int) ([]domain.Quiz, error)
	QuizIDs(ctx context.Context) ([]int64, error)
}

// QuestionRepository stores questions. DeleteQuestion cascades to answers.
type QuestionRepository interface {
	GetQuestion(ctx context.Context, id int64) (domain.Question, error)
	ListQuestions(ctx context.Context, quizID int64) ([]domain.Question, error)
	InsertQuestion(ctx context.Context, question domain.Question) (domain.Question, error)
	UpdateQuestion(ctx context.Context, question domain.Question) (domain.Question, error)
	DeleteQuestion(ctx context.Context, id int64) error
}

type AnswerRepository interface {
	GetAnswer(ctx context.Context, id int64) (domain.Answer, error)
	ListAnswers(ctx context.Context, questionID int64) ([]domain.Answer, error)
	InsertAnswer(ctx context.Context, answer domain.Answer) (domain.Answer, error)
	UpdateAnswer(ctx context.Context, answer domain.Answer) (domain.Answer, error)
	DeleteAnswer(ctx context.Context, id int64) error
}

type ResultRepository interface {
	GetResult(ctx context.Context, id int64) (domain.Result, error)
	ListResults(ctx context.Context, quizID int64) ([]domain.Result, error)
	InsertResult(ctx context.Context, result domain.Result) (domain.Result, error)
	UpdateResult(ctx context.Context, result domain.Result) (domain.Result, error)
	DeleteResult(ctx context.Context, id int64) error
}

// Store is a complete persistence backend.
type Store interface {
	UserRepository
	QuizRepository
	QuizFeed
	QuestionRepository
	AnswerRepository
	ResultRepository
}

// Repositories lets callers mix backends, e.g. a cached quiz repository over a SQL store.
type Repositories struct {
	Users     UserRepository
	Quizzes   QuizRepository
	Feed      QuizFeed
	Questions QuestionRepository
	Answers   AnswerRepository
	Results   ResultRepository
}

// FromStore uses one backend for every repository.
func FromStore(s Store) Repositories {
	return Repositories{
		Users:     s,
		Quizzes:   s,
		Feed:      s,
		Questions: s,
		Answers:   s,
		Results:   s,
	}
}
