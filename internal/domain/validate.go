package domain

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// IsValid reports whether required fields are set and the user name fits its column.
func (u User) IsValid() bool { return validate.Struct(u) == nil }

// IsValid reports whether the quiz has a title and a non-negative view count.
func (q Quiz) IsValid() bool { return validate.Struct(q) == nil }

func (q Question) IsValid() bool { return validate.Struct(q) == nil }

func (a Answer) IsValid() bool { return validate.Struct(a) == nil }

// IsValid also checks MinValue <= MaxValue.
func (r Result) IsValid() bool { return validate.Struct(r) == nil }
