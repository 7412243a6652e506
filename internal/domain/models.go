package domain

import (
	"time"

	"github.com/uptrace/bun"
)

// User owns quizzes. Id and UserName never change after creation.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u" json:"-"`

	ID               string    `bun:"id,pk" json:"Id"`
	UserName         string    `bun:"user_name,notnull,unique" json:"UserName" validate:"required,max=128"`
	Email            string    `bun:"email,notnull" json:"Email" validate:"required,email"`
	DisplayName      string    `bun:"display_name" json:"DisplayName"`
	Notes            string    `bun:"notes" json:"Notes"`
	Type             int       `bun:"type,notnull" json:"Type"`
	Flags            int       `bun:"flags,notnull" json:"Flags"`
	CreatedDate      time.Time `bun:"created_date,notnull" json:"CreatedDate"`
	LastModifiedDate time.Time `bun:"last_modified_date,notnull" json:"LastModifiedDate"`
}

// Quiz is a named collection of questions and candidate results.
type Quiz struct {
	bun.BaseModel `bun:"table:quizzes,alias:qz" json:"-"`

	ID               int64     `bun:"id,pk,autoincrement" json:"Id"`
	UserID           string    `bun:"user_id,notnull" json:"UserId"`
	Title            string    `bun:"title,notnull" json:"Title" validate:"required"`
	Description      string    `bun:"description" json:"Description"`
	Text             string    `bun:"text" json:"Text"`
	Notes            string    `bun:"notes" json:"Notes"`
	Type             int       `bun:"type,notnull" json:"Type"`
	Flags            int       `bun:"flags,notnull" json:"Flags"`
	ViewCount        int       `bun:"view_count,notnull" json:"ViewCount" validate:"gte=0"`
	CreatedDate      time.Time `bun:"created_date,notnull" json:"CreatedDate"`
	LastModifiedDate time.Time `bun:"last_modified_date,notnull" json:"LastModifiedDate"`
}

// Question is a single prompt within a quiz.
type Question struct {
	bun.BaseModel `bun:"table:questions,alias:qs" json:"-"`

	ID               int64     `bun:"id,pk,autoincrement" json:"Id"`
	QuizID           int64     `bun:"quiz_id,notnull" json:"QuizId"`
	Text             string    `bun:"text,notnull" json:"Text" validate:"required"`
	Notes            string    `bun:"notes" json:"Notes"`
	Type             int       `bun:"type,notnull" json:"Type"`
	Flags            int       `bun:"flags,notnull" json:"Flags"`
	CreatedDate      time.Time `bun:"created_date,notnull" json:"CreatedDate"`
	LastModifiedDate time.Time `bun:"last_modified_date,notnull" json:"LastModifiedDate"`
}

// Answer is one selectable choice; Value is added to the taker's total when selected.
type Answer struct {
	bun.BaseModel `bun:"table:answers,alias:a" json:"-"`

	ID               int64     `bun:"id,pk,autoincrement" json:"Id"`
	QuestionID       int64     `bun:"question_id,notnull" json:"QuestionId"`
	Text             string    `bun:"text,notnull" json:"Text" validate:"required"`
	Value            int       `bun:"value,notnull" json:"Value"`
	Notes            string    `bun:"notes" json:"Notes"`
	Type             int       `bun:"type,notnull" json:"Type"`
	Flags            int       `bun:"flags,notnull" json:"Flags"`
	CreatedDate      time.Time `bun:"created_date,notnull" json:"CreatedDate"`
	LastModifiedDate time.Time `bun:"last_modified_date,notnull" json:"LastModifiedDate"`
}

// Result is an outcome bucket valid for total scores within [MinValue, MaxValue].
type Result struct {
	bun.BaseModel `bun:"table:results,alias:r" json:"-"`

	ID               int64     `bun:"id,pk,autoincrement" json:"Id"`
	QuizID           int64     `bun:"quiz_id,notnull" json:"QuizId"`
	Text             string    `bun:"text,notnull" json:"Text" validate:"required"`
	MinValue         int       `bun:"min_value,notnull" json:"MinValue" validate:"ltefield=MaxValue"`
	MaxValue         int       `bun:"max_value,notnull" json:"MaxValue"`
	Notes            string    `bun:"notes" json:"Notes"`
	Type             int       `bun:"type,notnull" json:"Type"`
	Flags            int       `bun:"flags,notnull" json:"Flags"`
	CreatedDate      time.Time `bun:"created_date,notnull" json:"CreatedDate"`
	LastModifiedDate time.Time `bun:"last_modified_date,notnull" json:"LastModifiedDate"`
}

// Evaluation is the outcome of scoring a set of selected answers.
type Evaluation struct {
	QuizID int64  `json:"QuizId"`
	Score  int    `json:"Score"`
	Result Result `json:"Result"`
}
