package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"testmaker-service/internal/domain"
	"testmaker-service/internal/logger"
)

// AdminUserName is the account sample quizzes are attributed to.
const AdminUserName = "Admin"

// SeedReport summarizes what Seed inserted.
type SeedReport struct {
	Admin     domain.User
	Users     int
	Quizzes   int
	Questions int
	Answers   int
	Results   int
}

// Seeder fills an empty store with an admin account, a few sample authors and sample quizzes.
type Seeder struct {
	repos Repositories
	log   *slog.Logger
}

func NewSeeder(repos Repositories, log *slog.Logger) *Seeder {
	if log == nil {
		log = logger.Discard()
	}
	return &Seeder{repos: repos, log: log}
}

// Seed is idempotent: users are only created when the admin is missing and quizzes only
// when the store holds none. samples is the number of generated quizzes, each with
// 3 questions of 3 answers and 3 results.
func (sd *Seeder) Seed(ctx context.Context, samples int) (SeedReport, error) {
	var report SeedReport

	admin, err := sd.repos.Users.GetUserByName(ctx, AdminUserName)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		admin, err = sd.seedUsers(ctx, &report)
		if err != nil {
			return report, err
		}
	case err != nil:
		return report, err
	}
	report.Admin = admin

	ids, err := sd.repos.Feed.QuizIDs(ctx)
	if err != nil {
		return report, err
	}
	if len(ids) > 0 {
		sd.log.Info("seed skipped quizzes, store is not empty", "quizzes", len(ids))
		return report, nil
	}

	for i := 1; i <= samples; i++ {
		if err := sd.seedSampleQuiz(ctx, &report, i, admin.ID, samples-i, 3, 3, 3); err != nil {
			return report, err
		}
	}
	for _, quiz := range showcaseQuizzes(admin.ID) {
		if _, err := sd.repos.Quizzes.InsertQuiz(ctx, quiz); err != nil {
			return report, fmt.Errorf("seed quiz %q: %w", quiz.Title, err)
		}
		report.Quizzes++
	}
	sd.log.Info("seed completed",
		"users", report.Users, "quizzes", report.Quizzes, "questions", report.Questions,
		"answers", report.Answers, "results", report.Results)
	return report, nil
}

func (sd *Seeder) seedUsers(ctx context.Context, report *SeedReport) (domain.User, error) {
	admin, err := sd.repos.Users.InsertUser(ctx, domain.User{UserName: AdminUserName, Email: "admin@testmakerfree.com"})
	if err != nil {
		return domain.User{}, fmt.Errorf("seed admin: %w", err)
	}
	report.Users++
	for _, name := range []string{"Ryan", "Solice", "Vodan"} {
		user := domain.User{UserName: name, Email: fmt.Sprintf("%s@testmakerfree.com", strings.ToLower(name))}
		if _, err := sd.repos.Users.InsertUser(ctx, user); err != nil {
			return domain.User{}, fmt.Errorf("seed user %s: %w", name, err)
		}
		report.Users++
	}
	return admin, nil
}

func (sd *Seeder) seedSampleQuiz(ctx context.Context, report *SeedReport, num int, authorID string, viewCount, questions, answersPerQuestion, results int) error {
	quiz, err := sd.repos.Quizzes.InsertQuiz(ctx, domain.Quiz{
		UserID:      authorID,
		Title:       fmt.Sprintf("Quiz %d Title", num),
		Description: fmt.Sprintf("This is a sample description for quiz %d", num),
		Text:        "This is a sample quiz created by the seeder for testing purposes. All the questions, answers and results are auto-generated as well.",
		ViewCount:   viewCount,
	})
	if err != nil {
		return fmt.Errorf("seed quiz %d: %w", num, err)
	}
	report.Quizzes++

	for i := 0; i < questions; i++ {
		question, err := sd.repos.Questions.InsertQuestion(ctx, domain.Question{
			QuizID: quiz.ID,
			Text:   "This is a sample question created by the seeder for testing purposes. All the child answers are auto-generated as well.",
		})
		if err != nil {
			return fmt.Errorf("seed question for quiz %d: %w", quiz.ID, err)
		}
		report.Questions++
		for j := 0; j < answersPerQuestion; j++ {
			if _, err := sd.repos.Answers.InsertAnswer(ctx, domain.Answer{
				QuestionID: question.ID,
				Text:       "This is a sample answer created by the seeder for testing purposes.",
				Value:      j,
			}); err != nil {
				return fmt.Errorf("seed answer for question %d: %w", question.ID, err)
			}
			report.Answers++
		}
	}

	// Totals range over [0, questions*(answersPerQuestion-1)]; split it into contiguous buckets.
	maxTotal := questions * (answersPerQuestion - 1)
	for i, r := range partition(maxTotal, results) {
		if _, err := sd.repos.Results.InsertResult(ctx, domain.Result{
			QuizID:   quiz.ID,
			Text:     fmt.Sprintf("This is sample result %d created by the seeder for testing purposes.", i+1),
			MinValue: r[0],
			MaxValue: r[1],
		}); err != nil {
			return fmt.Errorf("seed result for quiz %d: %w", quiz.ID, err)
		}
		report.Results++
	}
	return nil
}

// partition splits [0, max] into n contiguous ranges, the last one absorbing the remainder.
func partition(max, n int) [][2]int {
	if n <= 0 {
		return nil
	}
	span := max + 1
	if n > span {
		n = span
	}
	width := span / n
	out := make([][2]int, 0, n)
	lo := 0
	for i := 0; i < n; i++ {
		hi := lo + width - 1
		if i == n-1 {
			hi = max
		}
		out = append(out, [2]int{lo, hi})
		lo = hi + 1
	}
	return out
}

func showcaseQuizzes(authorID string) []domain.Quiz {
	return []domain.Quiz{
		{
			UserID: authorID,
			Title:  "Are you more Light or Dark side of the Force?",
			Text: "Choose wisely you must, young padawan: this test will prove if your will is strong enough " +
				"to adhere to the principles of the light side of the Force or if you're fated to embrace the dark side.",
			ViewCount: 2343,
		},
		{
			UserID:      authorID,
			Title:       "GenX, GenY or GenZ?",
			Description: "Find out what decade most represents you",
			Text: "Do you feel comfortable in your generation? What year should you have been born in? " +
				"Here's a bunch of questions that will help you to find out!",
			ViewCount: 4180,
		},
		{
			UserID:      authorID,
			Title:       "Which Shingeki No Kyojin character are you?",
			Description: "Attack On Titan personality test",
			Text: "Do you relentlessly seek revenge like Eren? Are you willing to put your life on the stake " +
				"to protect your friends like Mikasa? Unveil your true self with this Attack On Titan personality test!",
			ViewCount: 5203,
		},
	}
}
