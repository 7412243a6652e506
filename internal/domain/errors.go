package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced id is absent.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPayload covers null, malformed or structurally invalid input.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrNoMatchingResult means no result range of a quiz contains the taker's score.
	ErrNoMatchingResult = errors.New("no matching result")
)

// Entity names used in not-found messages.
const (
	EntityUser     = "User"
	EntityQuiz     = "Quiz"
	EntityQuestion = "Question"
	EntityAnswer   = "Answer"
	EntityResult   = "Result"
)

// NotFoundError names the entity and id that could not be found.
type NotFoundError struct {
	Entity string
	ID     any
}

// NotFound builds a *NotFoundError that matches ErrNotFound.
func NotFound(entity string, id any) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%sId %v has not been found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NoMatchError reports the score that fell outside every result range.
type NoMatchError struct {
	QuizID int64
	Score  int
}

func (e *NoMatchError) Error() string {
	if e.QuizID == 0 {
		return fmt.Sprintf("no result matches score %d", e.Score)
	}
	return fmt.Sprintf("no result of QuizId %d matches score %d", e.QuizID, e.Score)
}

func (e *NoMatchError) Unwrap() error {
	return ErrNoMatchingResult
}

// Invalid wraps ErrInvalidPayload with a reason for logs.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidPayload, fmt.Sprintf(format, args...))
}
