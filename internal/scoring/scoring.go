// Package scoring maps a taker's total score to one result bucket of a quiz.
// Everything here is pure: the outcome depends only on the result set and the score.
package scoring

import (
	"sort"

	"testmaker-service/internal/domain"
)

// Fallback decides what happens when no result range contains the score.
type Fallback string

const (
	// FallbackNone surfaces ErrNoMatchingResult to the caller.
	FallbackNone Fallback = "none"
	// FallbackNearest picks the result whose range boundary is closest to the score.
	FallbackNearest Fallback = "nearest"
)

// ParseFallback accepts "", "none" and "nearest".
func ParseFallback(raw string) (Fallback, bool) {
	switch Fallback(raw) {
	case "", FallbackNone:
		return FallbackNone, true
	case FallbackNearest:
		return FallbackNearest, true
	}
	return FallbackNone, false
}

// Total sums the values of the selected answers.
func Total(answers []domain.Answer) int {
	total := 0
	for _, a := range answers {
		total += a.Value
	}
	return total
}

// Match returns the first result, ordered by MinValue then Id, whose range contains score.
// Overlapping ranges resolve to the smaller MinValue, then the smaller Id.
func Match(results []domain.Result, score int) (domain.Result, error) {
	for _, r := range ordered(results) {
		if r.MinValue <= score && score <= r.MaxValue {
			return r, nil
		}
	}
	return domain.Result{}, &domain.NoMatchError{Score: score}
}

// Nearest returns the result with the smallest distance between score and its range.
// Ties keep Match's ordering. It fails only when results is empty.
func Nearest(results []domain.Result, score int) (domain.Result, error) {
	sorted := ordered(results)
	if len(sorted) == 0 {
		return domain.Result{}, &domain.NoMatchError{Score: score}
	}
	best := sorted[0]
	bestDist := distance(best, score)
	for _, r := range sorted[1:] {
		if d := distance(r, score); d < bestDist {
			best, bestDist = r, d
		}
	}
	return best, nil
}

// Resolve applies Match and, when allowed by the fallback, Nearest.
func Resolve(results []domain.Result, score int, fallback Fallback) (domain.Result, error) {
	r, err := Match(results, score)
	if err == nil || fallback != FallbackNearest {
		return r, err
	}
	return Nearest(results, score)
}

func ordered(results []domain.Result) []domain.Result {
	sorted := make([]domain.Result, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].MinValue != sorted[j].MinValue {
			return sorted[i].MinValue < sorted[j].MinValue
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

func distance(r domain.Result, score int) int {
	switch {
	case score < r.MinValue:
		return r.MinValue - score
	case score > r.MaxValue:
		return score - r.MaxValue
	}
	return 0
}
