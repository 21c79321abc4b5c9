package question

import (
	"fmt"
	"slices"
	"strings"
)

const (
	minQuestionTextLen = 5
	minExplanationLen  = 10
	minOptions         = 2
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every shape violation found on a question.
// errors.Is(err, ErrValidation) holds for it.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Validate checks field shape first and the correct-answer invariant second,
// so a malformed question never reports the invariant alone.
func Validate(q Question) error {
	var fields []FieldError
	if len(q.QuestionText) < minQuestionTextLen {
		fields = append(fields, FieldError{Field: "questionText", Message: fmt.Sprintf("must be at least %d characters", minQuestionTextLen)})
	}
	if len(q.Options) < minOptions {
		fields = append(fields, FieldError{Field: "options", Message: fmt.Sprintf("must have at least %d options", minOptions)})
	}
	for i, opt := range q.Options {
		if opt == "" {
			fields = append(fields, FieldError{Field: fmt.Sprintf("options[%d]", i), Message: "must not be empty"})
		}
	}
	if q.CorrectAnswer == "" {
		fields = append(fields, FieldError{Field: "correctAnswer", Message: "a correct answer must be selected"})
	}
	if q.SubjectID == "" {
		fields = append(fields, FieldError{Field: "subjectId", Message: "a subject must be selected"})
	}
	if len(q.Explanation) < minExplanationLen {
		fields = append(fields, FieldError{Field: "explanation", Message: fmt.Sprintf("must be at least %d characters", minExplanationLen)})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}

	if !slices.Contains(q.Options, q.CorrectAnswer) {
		return ErrCorrectAnswerNotInOptions
	}
	return nil
}

func normalize(q Question) Question {
	q.SubjectID = strings.TrimSpace(q.SubjectID)
	q.QuestionText = strings.TrimSpace(q.QuestionText)
	q.CorrectAnswer = strings.TrimSpace(q.CorrectAnswer)
	q.Explanation = strings.TrimSpace(q.Explanation)
	if q.Options != nil {
		opts := make([]string, len(q.Options))
		for i, o := range q.Options {
			opts[i] = strings.TrimSpace(o)
		}
		q.Options = opts
	}
	return q
}
