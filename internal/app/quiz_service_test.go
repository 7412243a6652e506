package app_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"testmaker-service/internal/app"
	"testmaker-service/internal/domain"
	"testmaker-service/internal/infra/memory"
	"testmaker-service/internal/scoring"
)

func TestCreateQuizRoundTrip(t *testing.T) {
	ctx := context.Background()
	service, author := newTestService(t)

	created, err := service.CreateQuiz(ctx, domain.Quiz{ID: 77, UserID: "someone-else", Title: "T", Description: "D"})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if created.ID == 77 || created.UserID != author {
		t.Fatalf("server-owned fields not enforced: %+v", created)
	}

	got, err := service.GetQuiz(ctx, created.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if got.Title != "T" || got.Description != "D" {
		t.Fatalf("unexpected quiz %+v", got)
	}
	if got.CreatedDate.IsZero() || !got.CreatedDate.Equal(got.LastModifiedDate) {
		t.Fatalf("expected createdDate == lastModifiedDate, got %v / %v", got.CreatedDate, got.LastModifiedDate)
	}
}

func TestCreateRejectsInvalidPayload(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	if _, err := service.CreateQuiz(ctx, domain.Quiz{}); !errors.Is(err, domain.ErrInvalidPayload) {
		t.Fatalf("expected invalid payload for missing title, got %v", err)
	}
	quiz := mustQuiz(t, service, "Q")
	if _, err := service.CreateResult(ctx, domain.Result{QuizID: quiz.ID, Text: "R", MinValue: 5, MaxValue: 1}); !errors.Is(err, domain.ErrInvalidPayload) {
		t.Fatalf("expected invalid payload for inverted range, got %v", err)
	}
	if _, err := service.CreateQuestion(ctx, domain.Question{QuizID: 999, Text: "?"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown quiz, got %v", err)
	}
}

func TestUpdateIsIdempotentAndMonotonic(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := memory.NewStoreWithClock(func() time.Time { return now })
	service := serviceOver(t, store)
	quiz := mustQuiz(t, service, "Before")

	payload := domain.Quiz{ID: quiz.ID, Title: "After", Description: "same", Notes: "n"}
	now = now.Add(time.Second)
	first, err := service.UpdateQuiz(ctx, payload)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	now = now.Add(time.Second)
	second, err := service.UpdateQuiz(ctx, payload)
	if err != nil {
		t.Fatalf("update again: %v", err)
	}
	if first.Title != second.Title || first.Description != second.Description || first.Notes != second.Notes {
		t.Fatalf("stored fields differ: %+v vs %+v", first, second)
	}
	if second.LastModifiedDate.Before(first.LastModifiedDate) {
		t.Fatalf("lastModifiedDate went backwards")
	}
	if !second.CreatedDate.Equal(quiz.CreatedDate) {
		t.Fatalf("createdDate changed on update")
	}

	if _, err := service.UpdateQuiz(ctx, domain.Quiz{ID: 12345, Title: "x"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateQuizIgnoresViewCount(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)
	quiz := mustQuiz(t, service, "Before")

	updated, err := service.UpdateQuiz(ctx, domain.Quiz{ID: quiz.ID, Title: "After", ViewCount: -1})
	if err != nil {
		t.Fatalf("negative view count on update should be ignored, got %v", err)
	}
	if updated.Title != "After" || updated.ViewCount != quiz.ViewCount {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if _, err := service.UpdateQuiz(ctx, domain.Quiz{ID: quiz.ID, ViewCount: 5}); !errors.Is(err, domain.ErrInvalidPayload) {
		t.Fatalf("expected missing title to stay invalid, got %v", err)
	}
}

func TestDeleteQuizCascades(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)
	quiz, questions, answers, results := buildQuiz(t, service)

	if err := service.DeleteQuiz(ctx, quiz.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(questions)+len(answers)+len(results) != 10 {
		t.Fatalf("fixture should hold 2+6+2 children")
	}
	for _, id := range questions {
		if _, err := service.GetQuestion(ctx, id); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("question %d: expected not found, got %v", id, err)
		}
	}
	for _, id := range answers {
		if _, err := service.GetAnswer(ctx, id); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("answer %d: expected not found, got %v", id, err)
		}
	}
	for _, id := range results {
		if _, err := service.GetResult(ctx, id); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("result %d: expected not found, got %v", id, err)
		}
	}
	if err := service.DeleteQuiz(ctx, quiz.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestEvaluate(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)
	quiz, _, answers, results := buildQuiz(t, service)

	// answers are [q1: 0,1,2] [q2: 0,1,2]; results cover [0,2] and [3,4].
	eval, err := service.Evaluate(ctx, quiz.ID, []int64{answers[2], answers[4]})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if eval.Score != 3 || eval.Result.ID != results[1] {
		t.Fatalf("expected score 3 in result %d, got %+v", results[1], eval)
	}

	eval, err = service.Evaluate(ctx, quiz.ID, []int64{answers[0]})
	if err != nil || eval.Score != 0 || eval.Result.ID != results[0] {
		t.Fatalf("expected score 0 in first result, got %+v (%v)", eval, err)
	}

	if _, err := service.Evaluate(ctx, quiz.ID, []int64{answers[0], answers[1]}); !errors.Is(err, domain.ErrInvalidPayload) {
		t.Fatalf("expected two answers to one question to be rejected, got %v", err)
	}
	if _, err := service.Evaluate(ctx, quiz.ID, []int64{9999}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected unknown answer to be not found, got %v", err)
	}
	if _, err := service.Evaluate(ctx, 9999, nil); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected unknown quiz to be not found, got %v", err)
	}

	other, _, otherAnswers, _ := buildQuiz(t, service)
	if _, err := service.Evaluate(ctx, quiz.ID, []int64{otherAnswers[0]}); !errors.Is(err, domain.ErrInvalidPayload) {
		t.Fatalf("expected answer of quiz %d to be rejected, got %v", other.ID, err)
	}
}

func TestEvaluateNoMatch(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	service := serviceOver(t, store)
	quiz, _, answers, results := buildQuiz(t, service)
	if err := service.DeleteResult(ctx, results[1]); err != nil {
		t.Fatalf("delete result: %v", err)
	}

	_, err := service.Evaluate(ctx, quiz.ID, []int64{answers[2], answers[5]})
	var nm *domain.NoMatchError
	if !errors.As(err, &nm) || nm.Score != 4 || nm.QuizID != quiz.ID {
		t.Fatalf("expected no-match for score 4, got %v", err)
	}

	author, _ := store.GetUserByName(ctx, app.AdminUserName)
	lenient := app.NewQuizService(app.FromStore(store), author.ID, app.WithScoringFallback(scoring.FallbackNearest))
	eval, err := lenient.Evaluate(ctx, quiz.ID, []int64{answers[2], answers[5]})
	if err != nil || eval.Result.ID != results[0] {
		t.Fatalf("expected nearest fallback to result %d, got %+v (%v)", results[0], eval, err)
	}
}

func TestListings(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := memory.NewStoreWithClock(func() time.Time { return now })
	service := serviceOver(t, store)
	for _, title := range []string{"b", "c", "a", "e", "d"} {
		now = now.Add(time.Minute)
		mustQuiz(t, service, title)
	}

	latest, err := service.LatestQuizzes(ctx, 2)
	if err != nil || len(latest) != 2 || latest[0].Title != "d" || latest[1].Title != "e" {
		t.Fatalf("unexpected latest %+v (%v)", latest, err)
	}
	byTitle, err := service.QuizzesByTitle(ctx, 3)
	if err != nil || len(byTitle) != 3 || byTitle[0].Title != "a" || byTitle[2].Title != "c" {
		t.Fatalf("unexpected by title %+v (%v)", byTitle, err)
	}
	none, err := service.LatestQuizzes(ctx, 0)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty listing, got %+v (%v)", none, err)
	}
}

func TestRandomQuizzesSamplesWithoutReplacement(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	author := seedAdmin(t, store)
	service := app.NewQuizService(app.FromStore(store), author,
		app.WithRandSource(func() rand.Source { return rand.NewSource(42) }))
	for i := 0; i < 8; i++ {
		mustQuiz(t, service, "quiz")
	}

	first, err := service.RandomQuizzes(ctx, 5)
	if err != nil {
		t.Fatalf("random: %v", err)
	}
	if len(first) != 5 {
		t.Fatalf("expected 5 quizzes, got %d", len(first))
	}
	seen := map[int64]bool{}
	for _, q := range first {
		if seen[q.ID] {
			t.Fatalf("quiz %d drawn twice", q.ID)
		}
		seen[q.ID] = true
	}

	second, _ := service.RandomQuizzes(ctx, 5)
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("same seed should give the same sample")
		}
	}

	all, _ := service.RandomQuizzes(ctx, 100)
	if len(all) != 8 {
		t.Fatalf("expected sample capped at 8, got %d", len(all))
	}
}

func TestRandomQuizzesIsUniform(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	author := seedAdmin(t, store)
	seed := int64(0)
	service := app.NewQuizService(app.FromStore(store), author,
		app.WithRandSource(func() rand.Source { seed++; return rand.NewSource(seed) }))
	for i := 0; i < 4; i++ {
		mustQuiz(t, service, "quiz")
	}

	counts := map[int64]int{}
	const draws = 4000
	for i := 0; i < draws; i++ {
		picked, err := service.RandomQuizzes(ctx, 1)
		if err != nil || len(picked) != 1 {
			t.Fatalf("draw %d: %+v (%v)", i, picked, err)
		}
		counts[picked[0].ID]++
	}
	for id, n := range counts {
		if n < draws/4-200 || n > draws/4+200 {
			t.Fatalf("quiz %d drawn %d times out of %d", id, n, draws)
		}
	}
}

func TestResolveDefaultAuthor(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	admin := seedAdmin(t, store)

	id, err := app.ResolveDefaultAuthor(ctx, store, "", "")
	if err != nil || id != admin {
		t.Fatalf("expected admin by name, got %q (%v)", id, err)
	}
	id, err = app.ResolveDefaultAuthor(ctx, store, admin, "ignored")
	if err != nil || id != admin {
		t.Fatalf("expected configured id, got %q (%v)", id, err)
	}
	if _, err := app.ResolveDefaultAuthor(ctx, store, "missing", ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown id, got %v", err)
	}
}

func newTestService(t *testing.T) (*app.QuizService, string) {
	t.Helper()
	store := memory.NewStore()
	service := serviceOver(t, store)
	return service, service.DefaultAuthor()
}

func serviceOver(t *testing.T, store *memory.Store) *app.QuizService {
	t.Helper()
	return app.NewQuizService(app.FromStore(store), seedAdmin(t, store))
}

func seedAdmin(t *testing.T, store *memory.Store) string {
	t.Helper()
	admin, err := store.InsertUser(context.Background(), domain.User{UserName: app.AdminUserName, Email: "admin@testmakerfree.com"})
	if err != nil {
		t.Fatalf("insert admin: %v", err)
	}
	return admin.ID
}

func mustQuiz(t *testing.T, service *app.QuizService, title string) domain.Quiz {
	t.Helper()
	quiz, err := service.CreateQuiz(context.Background(), domain.Quiz{Title: title})
	if err != nil {
		t.Fatalf("create quiz %q: %v", title, err)
	}
	return quiz
}

// buildQuiz creates a quiz with 2 questions of 3 answers (values 0..2) and results [0,2], [3,4].
func buildQuiz(t *testing.T, service *app.QuizService) (domain.Quiz, []int64, []int64, []int64) {
	t.Helper()
	ctx := context.Background()
	quiz := mustQuiz(t, service, "Which character are you?")
	var questions, answers, results []int64
	for i := 0; i < 2; i++ {
		q, err := service.CreateQuestion(ctx, domain.Question{QuizID: quiz.ID, Text: "Pick one"})
		if err != nil {
			t.Fatalf("create question: %v", err)
		}
		questions = append(questions, q.ID)
		for v := 0; v < 3; v++ {
			a, err := service.CreateAnswer(ctx, domain.Answer{QuestionID: q.ID, Text: "choice", Value: v})
			if err != nil {
				t.Fatalf("create answer: %v", err)
			}
			answers = append(answers, a.ID)
		}
	}
	for _, r := range [][2]int{{0, 2}, {3, 4}} {
		res, err := service.CreateResult(ctx, domain.Result{QuizID: quiz.ID, Text: "bucket", MinValue: r[0], MaxValue: r[1]})
		if err != nil {
			t.Fatalf("create result: %v", err)
		}
		results = append(results, res.ID)
	}
	return quiz, questions, answers, results
}

func TestPageSizeOption(t *testing.T) {
	store := memory.NewStore()
	author := seedAdmin(t, store)
	if got := app.NewQuizService(app.FromStore(store), author).PageSize(); got != app.DefaultPageSize {
		t.Fatalf("expected default page size, got %d", got)
	}
	if got := app.NewQuizService(app.FromStore(store), author, app.WithPageSize(3)).PageSize(); got != 3 {
		t.Fatalf("expected page size 3, got %d", got)
	}
	if got := app.NewQuizService(app.FromStore(store), author, app.WithPageSize(-1)).PageSize(); got != app.DefaultPageSize {
		t.Fatalf("expected non-positive size to be ignored, got %d", got)
	}
}
