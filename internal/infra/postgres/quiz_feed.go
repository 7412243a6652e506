package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"testmaker-service/internal/domain"
)

const quizColumns = `id, user_id, title, coalesce(description, ''), coalesce(text, ''), coalesce(notes, ''),
	type, flags, view_count, created_date, last_modified_date`

// QuizFeed serves the read-only quiz listings straight from a pgx pool.
type QuizFeed struct {
	pool *pgxpool.Pool
}

func NewQuizFeed(pool *pgxpool.Pool) *QuizFeed {
	return &QuizFeed{pool: pool}
}

func (f *QuizFeed) LatestQuizzes(ctx context.Context, limit int) ([]domain.Quiz, error) {
	rows, err := f.pool.Query(ctx, `SELECT `+quizColumns+` FROM quizzes ORDER BY created_date DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("latest quizzes: %w", err)
	}
	return scanQuizzes(rows)
}

func (f *QuizFeed) QuizzesByTitle(ctx context.Context, limit int) ([]domain.Quiz, error) {
	rows, err := f.pool.Query(ctx, `SELECT `+quizColumns+` FROM quizzes ORDER BY title ASC, id ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("quizzes by title: %w", err)
	}
	return scanQuizzes(rows)
}

func (f *QuizFeed) QuizIDs(ctx context.Context) ([]int64, error) {
	rows, err := f.pool.Query(ctx, `SELECT id FROM quizzes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("quiz ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan quiz id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanQuizzes(rows pgx.Rows) ([]domain.Quiz, error) {
	defer rows.Close()

	quizzes := make([]domain.Quiz, 0)
	for rows.Next() {
		var q domain.Quiz
		if err := rows.Scan(&q.ID, &q.UserID, &q.Title, &q.Description, &q.Text, &q.Notes,
			&q.Type, &q.Flags, &q.ViewCount, &q.CreatedDate, &q.LastModifiedDate); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		quizzes = append(quizzes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return quizzes, nil
}
