package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"testmaker-service/internal/domain"
)

// Open returns a bun handle over pgdriver for the given DSN.
func Open(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// Store is the relational implementation of app.Store. Every mutation, cascades included,
// runs in a single transaction.
type Store struct {
	db    *bun.DB
	clock func() time.Time
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db, clock: now}
}

// timestamptz keeps microseconds; truncating keeps stored and returned values equal.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	err := s.db.NewSelect().Model(&u).Where("id = ?", id).Scan(ctx)
	return u, check(err, domain.EntityUser, id)
}

func (s *Store) GetUserByName(ctx context.Context, userName string) (domain.User, error) {
	var u domain.User
	err := s.db.NewSelect().Model(&u).Where("lower(user_name) = lower(?)", userName).Scan(ctx)
	return u, check(err, domain.EntityUser, userName)
}

func (s *Store) InsertUser(ctx context.Context, user domain.User) (domain.User, error) {
	user.ID = uuid.NewString()
	user.Stamp(s.clock())
	if _, err := s.db.NewInsert().Model(&user).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.Invalid("user name %q is taken", user.UserName)
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *Store) UpdateUser(ctx context.Context, user domain.User) (domain.User, error) {
	var cur domain.User
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(&cur).Where("id = ?", user.ID).For("UPDATE").Scan(ctx); err != nil {
			return check(err, domain.EntityUser, user.ID)
		}
		cur.Apply(user, s.clock())
		_, err := tx.NewUpdate().Model(&cur).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	return cur, nil
}

// DeleteUser removes the user with their quizzes and everything below them. The cascade
// runs below any QuizCache, so cached copies of those quizzes live until their TTL; no
// HTTP route deletes users.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		quizzes := tx.NewSelect().Model((*domain.Quiz)(nil)).Column("id").Where("user_id = ?", id)
		if err := deleteQuizChildren(ctx, tx, quizzes); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*domain.Quiz)(nil)).Where("user_id = ?", id).Exec(ctx); err != nil {
			return fmt.Errorf("delete quizzes of user %s: %w", id, err)
		}
		res, err := tx.NewDelete().Model((*domain.User)(nil)).Where("id = ?", id).Exec(ctx)
		return affected(res, err, domain.EntityUser, id)
	})
}

func (s *Store) GetQuiz(ctx context.Context, id int64) (domain.Quiz, error) {
	var q domain.Quiz
	err := s.db.NewSelect().Model(&q).Where("id = ?", id).Scan(ctx)
	return q, check(err, domain.EntityQuiz, id)
}

func (s *Store) InsertQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	quiz.ID = 0
	quiz.Stamp(s.clock())
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := mustExist(ctx, tx, (*domain.User)(nil), domain.EntityUser, quiz.UserID); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(&quiz).Returning("*").Exec(ctx)
		return err
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func (s *Store) UpdateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	var cur domain.Quiz
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(&cur).Where("id = ?", quiz.ID).For("UPDATE").Scan(ctx); err != nil {
			return check(err, domain.EntityQuiz, quiz.ID)
		}
		cur.Apply(quiz, s.clock())
		_, err := tx.NewUpdate().Model(&cur).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return cur, nil
}

func (s *Store) DeleteQuiz(ctx context.Context, id int64) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		quizzes := tx.NewSelect().Model((*domain.Quiz)(nil)).Column("id").Where("id = ?", id)
		if err := deleteQuizChildren(ctx, tx, quizzes); err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*domain.Quiz)(nil)).Where("id = ?", id).Exec(ctx)
		return affected(res, err, domain.EntityQuiz, id)
	})
}

// deleteQuizChildren removes answers, questions and results of the quizzes selected by quizIDs.
func deleteQuizChildren(ctx context.Context, tx bun.Tx, quizIDs *bun.SelectQuery) error {
	questions := tx.NewSelect().Model((*domain.Question)(nil)).Column("id").Where("quiz_id IN (?)", quizIDs)
	if _, err := tx.NewDelete().Model((*domain.Answer)(nil)).Where("question_id IN (?)", questions).Exec(ctx); err != nil {
		return fmt.Errorf("delete answers: %w", err)
	}
	if _, err := tx.NewDelete().Model((*domain.Question)(nil)).Where("quiz_id IN (?)", quizIDs).Exec(ctx); err != nil {
		return fmt.Errorf("delete questions: %w", err)
	}
	if _, err := tx.NewDelete().Model((*domain.Result)(nil)).Where("quiz_id IN (?)", quizIDs).Exec(ctx); err != nil {
		return fmt.Errorf("delete results: %w", err)
	}
	return nil
}

func (s *Store) LatestQuizzes(ctx context.Context, limit int) ([]domain.Quiz, error) {
	out := make([]domain.Quiz, 0)
	err := s.db.NewSelect().Model(&out).OrderExpr("created_date DESC, id DESC").Limit(limit).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest quizzes: %w", err)
	}
	return out, nil
}

func (s *Store) QuizzesByTitle(ctx context.Context, limit int) ([]domain.Quiz, error) {
	out := make([]domain.Quiz, 0)
	err := s.db.NewSelect().Model(&out).OrderExpr("title ASC, id ASC").Limit(limit).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("quizzes by title: %w", err)
	}
	return out, nil
}

func (s *Store) QuizIDs(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0)
	err := s.db.NewSelect().Model((*domain.Quiz)(nil)).Column("id").OrderExpr("id ASC").Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("quiz ids: %w", err)
	}
	return ids, nil
}

func (s *Store) GetQuestion(ctx context.Context, id int64) (domain.Question, error) {
	var q domain.Question
	err := s.db.NewSelect().Model(&q).Where("id = ?", id).Scan(ctx)
	return q, check(err, domain.EntityQuestion, id)
}

func (s *Store) ListQuestions(ctx context.Context, quizID int64) ([]domain.Question, error) {
	out := make([]domain.Question, 0)
	if err := s.db.NewSelect().Model(&out).Where("quiz_id = ?", quizID).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list questions of quiz %d: %w", quizID, err)
	}
	return out, nil
}

func (s *Store) InsertQuestion(ctx context.Context, question domain.Question) (domain.Question, error) {
	question.ID = 0
	question.Stamp(s.clock())
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := mustExist(ctx, tx, (*domain.Quiz)(nil), domain.EntityQuiz, question.QuizID); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(&question).Returning("*").Exec(ctx)
		return err
	})
	if err != nil {
		return domain.Question{}, err
	}
	return question, nil
}

func (s *Store) UpdateQuestion(ctx context.Context, question domain.Question) (domain.Question, error) {
	var cur domain.Question
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(&cur).Where("id = ?", question.ID).For("UPDATE").Scan(ctx); err != nil {
			return check(err, domain.EntityQuestion, question.ID)
		}
		if err := mustExist(ctx, tx, (*domain.Quiz)(nil), domain.EntityQuiz, question.QuizID); err != nil {
			return err
		}
		cur.Apply(question, s.clock())
		_, err := tx.NewUpdate().Model(&cur).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return domain.Question{}, err
	}
	return cur, nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*domain.Answer)(nil)).Where("question_id = ?", id).Exec(ctx); err != nil {
			return fmt.Errorf("delete answers of question %d: %w", id, err)
		}
		res, err := tx.NewDelete().Model((*domain.Question)(nil)).Where("id = ?", id).Exec(ctx)
		return affected(res, err, domain.EntityQuestion, id)
	})
}

func (s *Store) GetAnswer(ctx context.Context, id int64) (domain.Answer, error) {
	var a domain.Answer
	err := s.db.NewSelect().Model(&a).Where("id = ?", id).Scan(ctx)
	return a, check(err, domain.EntityAnswer, id)
}

func (s *Store) ListAnswers(ctx context.Context, questionID int64) ([]domain.Answer, error) {
	out := make([]domain.Answer, 0)
	if err := s.db.NewSelect().Model(&out).Where("question_id = ?", questionID).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list answers of question %d: %w", questionID, err)
	}
	return out, nil
}

func (s *Store) InsertAnswer(ctx context.Context, answer domain.Answer) (domain.Answer, error) {
	answer.ID = 0
	answer.Stamp(s.clock())
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := mustExist(ctx, tx, (*domain.Question)(nil), domain.EntityQuestion, answer.QuestionID); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(&answer).Returning("*").Exec(ctx)
		return err
	})
	if err != nil {
		return domain.Answer{}, err
	}
	return answer, nil
}

func (s *Store) UpdateAnswer(ctx context.Context, answer domain.Answer) (domain.Answer, error) {
	var cur domain.Answer
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(&cur).Where("id = ?", answer.ID).For("UPDATE").Scan(ctx); err != nil {
			return check(err, domain.EntityAnswer, answer.ID)
		}
		if err := mustExist(ctx, tx, (*domain.Question)(nil), domain.EntityQuestion, answer.QuestionID); err != nil {
			return err
		}
		cur.Apply(answer, s.clock())
		_, err := tx.NewUpdate().Model(&cur).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return domain.Answer{}, err
	}
	return cur, nil
}

func (s *Store) DeleteAnswer(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*domain.Answer)(nil)).Where("id = ?", id).Exec(ctx)
	return affected(res, err, domain.EntityAnswer, id)
}

func (s *Store) GetResult(ctx context.Context, id int64) (domain.Result, error) {
	var r domain.Result
	err := s.db.NewSelect().Model(&r).Where("id = ?", id).Scan(ctx)
	return r, check(err, domain.EntityResult, id)
}

func (s *Store) ListResults(ctx context.Context, quizID int64) ([]domain.Result, error) {
	out := make([]domain.Result, 0)
	if err := s.db.NewSelect().Model(&out).Where("quiz_id = ?", quizID).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list results of quiz %d: %w", quizID, err)
	}
	return out, nil
}

func (s *Store) InsertResult(ctx context.Context, result domain.Result) (domain.Result, error) {
	result.ID = 0
	result.Stamp(s.clock())
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := mustExist(ctx, tx, (*domain.Quiz)(nil), domain.EntityQuiz, result.QuizID); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(&result).Returning("*").Exec(ctx)
		return err
	})
	if err != nil {
		return domain.Result{}, err
	}
	return result, nil
}

func (s *Store) UpdateResult(ctx context.Context, result domain.Result) (domain.Result, error) {
	var cur domain.Result
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(&cur).Where("id = ?", result.ID).For("UPDATE").Scan(ctx); err != nil {
			return check(err, domain.EntityResult, result.ID)
		}
		if err := mustExist(ctx, tx, (*domain.Quiz)(nil), domain.EntityQuiz, result.QuizID); err != nil {
			return err
		}
		cur.Apply(result, s.clock())
		_, err := tx.NewUpdate().Model(&cur).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return domain.Result{}, err
	}
	return cur, nil
}

func (s *Store) DeleteResult(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*domain.Result)(nil)).Where("id = ?", id).Exec(ctx)
	return affected(res, err, domain.EntityResult, id)
}

func mustExist(ctx context.Context, tx bun.Tx, model interface{}, entity string, id any) error {
	ok, err := tx.NewSelect().Model(model).Where("id = ?", id).Exists(ctx)
	if err != nil {
		return fmt.Errorf("lookup %s %v: %w", entity, id, err)
	}
	if !ok {
		return domain.NotFound(entity, id)
	}
	return nil
}

func check(err error, entity string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound(entity, id)
	}
	return fmt.Errorf("load %s %v: %w", entity, id, err)
}

func affected(res sql.Result, err error, entity string, id any) error {
	if err != nil {
		return fmt.Errorf("delete %s %v: %w", entity, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFound(entity, id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}
