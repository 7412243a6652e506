package domain

import "time"

// The Stamp methods set both timestamps of a row about to be inserted.
// The Apply methods copy the client-writable fields of src and re-stamp LastModifiedDate;
// ids, owners and CreatedDate are left untouched.

func (u *User) Stamp(now time.Time) {
	u.CreatedDate = now
	u.LastModifiedDate = now
}

func (u *User) Apply(src User, now time.Time) {
	u.Email = src.Email
	u.DisplayName = src.DisplayName
	u.Notes = src.Notes
	u.Type = src.Type
	u.Flags = src.Flags
	u.LastModifiedDate = now
}

func (q *Quiz) Stamp(now time.Time) {
	q.CreatedDate = now
	q.LastModifiedDate = now
}

func (q *Quiz) Apply(src Quiz, now time.Time) {
	q.Title = src.Title
	q.Description = src.Description
	q.Text = src.Text
	q.Notes = src.Notes
	q.Type = src.Type
	q.Flags = src.Flags
	q.LastModifiedDate = now
}

func (q *Question) Stamp(now time.Time) {
	q.CreatedDate = now
	q.LastModifiedDate = now
}

func (q *Question) Apply(src Question, now time.Time) {
	q.QuizID = src.QuizID
	q.Text = src.Text
	q.Notes = src.Notes
	q.Type = src.Type
	q.Flags = src.Flags
	q.LastModifiedDate = now
}

func (a *Answer) Stamp(now time.Time) {
	a.CreatedDate = now
	a.LastModifiedDate = now
}

func (a *Answer) Apply(src Answer, now time.Time) {
	a.QuestionID = src.QuestionID
	a.Text = src.Text
	a.Value = src.Value
	a.Notes = src.Notes
	a.Type = src.Type
	a.Flags = src.Flags
	a.LastModifiedDate = now
}

func (r *Result) Stamp(now time.Time) {
	r.CreatedDate = now
	r.LastModifiedDate = now
}

func (r *Result) Apply(src Result, now time.Time) {
	r.QuizID = src.QuizID
	r.Text = src.Text
	r.MinValue = src.MinValue
	r.MaxValue = src.MaxValue
	r.Notes = src.Notes
	r.Type = src.Type
	r.Flags = src.Flags
	r.LastModifiedDate = now
}
