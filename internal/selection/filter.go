package selection

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidFilter = errors.New("invalid answer filter")

type AnswerFilter string

const (
	FilterAll        AnswerFilter = "all"
	FilterAnswered   AnswerFilter = "answered"
	FilterUnanswered AnswerFilter = "unanswered"
	FilterCorrect    AnswerFilter = "correct"
	FilterIncorrect  AnswerFilter = "incorrect"
	FilterBookmarked AnswerFilter = "bookmarked"
)

var Filters = []AnswerFilter{
	FilterAll,
	FilterAnswered,
	FilterUnanswered,
	FilterCorrect,
	FilterIncorrect,
	FilterBookmarked,
}

// ParseAnswerFilter maps a request value to a filter. Empty means all.
func ParseAnswerFilter(v string) (AnswerFilter, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return FilterAll, nil
	}
	for _, f := range Filters {
		if string(f) == v {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFilter, v)
}
