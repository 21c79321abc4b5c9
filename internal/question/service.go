package question

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrValidation                = errors.New("validation failed")
	ErrCorrectAnswerNotInOptions = errors.New("correct answer must be one of the options")
	ErrSubjectNotFound           = errors.New("subject not found")
	ErrQuestionNotFound          = errors.New("question not found")
	ErrDuplicateSubject          = errors.New("subject with this name already exists")
	ErrUnknownSubject            = errors.New("unknown subject")
)

type Subject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Question struct {
	ID            string   `json:"id"`
	SubjectID     string   `json:"subjectId"`
	QuestionText  string   `json:"questionText"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// Clone returns a copy that shares no slice memory with q.
func (q Question) Clone() Question {
	q.Options = slices.Clone(q.Options)
	return q
}

type CreateQuestionInput struct {
	SubjectID     string
	QuestionText  string
	Options       []string
	CorrectAnswer string
	Explanation   string
}

// UpdateQuestionInput carries a partial update; nil fields keep the stored value.
type UpdateQuestionInput struct {
	SubjectID     *string
	QuestionText  *string
	Options       []string
	CorrectAnswer *string
	Explanation   *string
}

// Store is the persistence contract for subjects and questions.
// Implementations live under internal/store.
type Store interface {
	ListSubjects(ctx context.Context) ([]Subject, error)
	GetSubject(ctx context.Context, id string) (*Subject, error)
	PutSubject(ctx context.Context, s Subject) error
	DeleteSubject(ctx context.Context, id string) (bool, error)

	ListQuestions(ctx context.Context) ([]Question, error)
	GetQuestion(ctx context.Context, id string) (*Question, error)
	PutQuestion(ctx context.Context, q Question) error
	// PutQuestions stores the whole batch or nothing.
	PutQuestions(ctx context.Context, qs []Question) error
	DeleteQuestion(ctx context.Context, id string) (bool, error)
	DeleteQuestionsBySubject(ctx context.Context, subjectID string) (int, error)
}

type Service struct {
	store Store
	newID func() string
}

func NewService(store Store) *Service {
	return &Service{store: store, newID: uuid.NewString}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// SubjectID derives the slug used as a subject's id.
func SubjectID(name string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

func (s *Service) ListSubjects(ctx context.Context) ([]Subject, error) {
	items, err := s.store.ListSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return items, nil
}

func (s *Service) CreateSubject(ctx context.Context, name string) (*Subject, error) {
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return nil, &ValidationError{Fields: []FieldError{{Field: "name", Message: "subject name must be at least 2 characters"}}}
	}
	id := SubjectID(name)

	existing, err := s.store.ListSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	for _, it := range existing {
		if it.ID == id || strings.EqualFold(it.Name, name) {
			return nil, ErrDuplicateSubject
		}
	}

	subject := Subject{ID: id, Name: name}
	if err := s.store.PutSubject(ctx, subject); err != nil {
		return nil, fmt.Errorf("create subject: %w", err)
	}
	return &subject, nil
}

// DeleteSubject removes the subject and every question filed under it.
// It reports whether anything was deleted.
func (s *Service) DeleteSubject(ctx context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, ErrValidation
	}

	removed, err := s.store.DeleteQuestionsBySubject(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete subject questions: %w", err)
	}
	deleted, err := s.store.DeleteSubject(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete subject: %w", err)
	}
	return deleted || removed > 0, nil
}

func (s *Service) ListQuestions(ctx context.Context) ([]Question, error) {
	items, err := s.store.ListQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return items, nil
}

// ListQuestionsBySubjects returns the questions whose subject is in subjectIDs,
// in repository order.
func (s *Service) ListQuestionsBySubjects(ctx context.Context, subjectIDs []string) ([]Question, error) {
	if len(subjectIDs) == 0 {
		return []Question{}, nil
	}
	all, err := s.ListQuestions(ctx)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]struct{}, len(subjectIDs))
	for _, id := range subjectIDs {
		wanted[id] = struct{}{}
	}
	out := make([]Question, 0, len(all))
	for _, q := range all {
		if _, ok := wanted[q.SubjectID]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *Service) GetQuestion(ctx context.Context, id string) (*Question, error) {
	q, err := s.store.GetQuestion(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, ErrQuestionNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

func (s *Service) CreateQuestion(ctx context.Context, in CreateQuestionInput) (*Question, error) {
	q := normalize(Question{
		ID:            s.newID(),
		SubjectID:     in.SubjectID,
		QuestionText:  in.QuestionText,
		Options:       in.Options,
		CorrectAnswer: in.CorrectAnswer,
		Explanation:   in.Explanation,
	})
	if err := Validate(q); err != nil {
		return nil, err
	}
	if err := s.ensureSubject(ctx, q.SubjectID); err != nil {
		return nil, err
	}

	if err := s.store.PutQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return &q, nil
}

func (s *Service) UpdateQuestion(ctx context.Context, id string, in UpdateQuestionInput) (*Question, error) {
	current, err := s.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := current.Clone()
	if in.SubjectID != nil {
		merged.SubjectID = *in.SubjectID
	}
	if in.QuestionText != nil {
		merged.QuestionText = *in.QuestionText
	}
	if in.Options != nil {
		merged.Options = in.Options
	}
	if in.CorrectAnswer != nil {
		merged.CorrectAnswer = *in.CorrectAnswer
	}
	if in.Explanation != nil {
		merged.Explanation = *in.Explanation
	}
	merged = normalize(merged)

	if err := Validate(merged); err != nil {
		return nil, err
	}
	if merged.SubjectID != current.SubjectID {
		if err := s.ensureSubject(ctx, merged.SubjectID); err != nil {
			return nil, err
		}
	}

	if err := s.store.PutQuestion(ctx, merged); err != nil {
		return nil, fmt.Errorf("update question: %w", err)
	}
	return &merged, nil
}

func (s *Service) DeleteQuestion(ctx context.Context, id string) (bool, error) {
	deleted, err := s.store.DeleteQuestion(ctx, strings.TrimSpace(id))
	if err != nil {
		return false, fmt.Errorf("delete question: %w", err)
	}
	return deleted, nil
}

func (s *Service) ensureSubject(ctx context.Context, subjectID string) error {
	if _, err := s.store.GetSubject(ctx, subjectID); err != nil {
		if errors.Is(err, ErrSubjectNotFound) {
			return ErrSubjectNotFound
		}
		return fmt.Errorf("load subject: %w", err)
	}
	return nil
}
