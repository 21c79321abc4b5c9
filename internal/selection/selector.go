package selection

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"quizmaster/internal/ledger"
	"quizmaster/internal/question"
)

var ErrNoQuestionsAvailable = errors.New("no questions available for the selected subjects and filter")

type questionSource interface {
	ListQuestionsBySubjects(ctx context.Context, subjectIDs []string) ([]question.Question, error)
}

type ledgerSource interface {
	GetAnswers(ctx context.Context, userID string) ([]ledger.Entry, error)
	Bookmarks(ctx context.Context, userID string) ([]string, error)
}

type Counts map[AnswerFilter]int

type Selector struct {
	questions questionSource
	ledger    ledgerSource
	shuffle   func(n int, swap func(i, j int))
}

type Option func(*Selector)

// WithShuffle replaces the random permutation, e.g. with a seeded one in tests.
func WithShuffle(fn func(n int, swap func(i, j int))) Option {
	return func(s *Selector) {
		if fn != nil {
			s.shuffle = fn
		}
	}
}

func NewSelector(questions questionSource, answers ledgerSource, opts ...Option) *Selector {
	s := &Selector{questions: questions, ledger: answers, shuffle: rand.Shuffle}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type partition struct {
	all        []question.Question
	answered   []question.Question
	unanswered []question.Question
	correct    []question.Question
	incorrect  []question.Question
	bookmarked []question.Question
}

func (p partition) get(f AnswerFilter) []question.Question {
	switch f {
	case FilterAnswered:
		return p.answered
	case FilterUnanswered:
		return p.unanswered
	case FilterCorrect:
		return p.correct
	case FilterIncorrect:
		return p.incorrect
	case FilterBookmarked:
		return p.bookmarked
	default:
		return p.all
	}
}

func (s *Selector) partition(ctx context.Context, subjectIDs []string, userID string, withUser bool) (partition, error) {
	qs, err := s.questions.ListQuestionsBySubjects(ctx, subjectIDs)
	if err != nil {
		return partition{}, fmt.Errorf("load subject questions: %w", err)
	}
	p := partition{all: qs}
	if !withUser {
		return p, nil
	}

	entries, err := s.ledger.GetAnswers(ctx, userID)
	if err != nil {
		return partition{}, fmt.Errorf("load answers: %w", err)
	}
	marks, err := s.ledger.Bookmarks(ctx, userID)
	if err != nil {
		return partition{}, fmt.Errorf("load bookmarks: %w", err)
	}

	// Entries for questions outside the selected subjects never match below.
	outcome := make(map[string]bool, len(entries))
	for _, e := range entries {
		outcome[e.QuestionID] = e.IsCorrect
	}
	marked := make(map[string]struct{}, len(marks))
	for _, id := range marks {
		marked[id] = struct{}{}
	}

	for _, q := range qs {
		if ok, seen := outcome[q.ID]; seen {
			p.answered = append(p.answered, q)
			if ok {
				p.correct = append(p.correct, q)
			} else {
				p.incorrect = append(p.incorrect, q)
			}
		} else {
			p.unanswered = append(p.unanswered, q)
		}
		if _, ok := marked[q.ID]; ok {
			p.bookmarked = append(p.bookmarked, q)
		}
	}
	return p, nil
}

// Counts returns the pool size for every filter. No subjects means all zeros.
func (s *Selector) Counts(ctx context.Context, subjectIDs []string, userID string) (Counts, error) {
	out := make(Counts, len(Filters))
	for _, f := range Filters {
		out[f] = 0
	}
	if len(subjectIDs) == 0 {
		return out, nil
	}

	userID = strings.TrimSpace(userID)
	p, err := s.partition(ctx, subjectIDs, userID, userID != "")
	if err != nil {
		return nil, err
	}
	for _, f := range Filters {
		if userID == "" {
			// Matches Filter: no user means no filtering.
			out[f] = len(p.all)
			continue
		}
		out[f] = len(p.get(f))
	}
	return out, nil
}

// Filter returns the subject questions matching f, in repository order.
func (s *Selector) Filter(ctx context.Context, subjectIDs []string, f AnswerFilter, userID string) ([]question.Question, error) {
	userID = strings.TrimSpace(userID)
	withUser := f != FilterAll && userID != ""
	p, err := s.partition(ctx, subjectIDs, userID, withUser)
	if err != nil {
		return nil, err
	}
	if !withUser {
		return p.all, nil
	}
	return p.get(f), nil
}

// QuizQuestions draws a shuffled quiz. numQuestions <= 0 keeps the whole pool.
func (s *Selector) QuizQuestions(ctx context.Context, subjectIDs []string, f AnswerFilter, userID string, numQuestions int) ([]question.Question, error) {
	pool, err := s.Filter(ctx, subjectIDs, f, userID)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, ErrNoQuestionsAvailable
	}

	out := make([]question.Question, len(pool))
	for i, q := range pool {
		out[i] = q.Clone()
	}
	s.shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if numQuestions > 0 && numQuestions < len(out) {
		out = out[:numQuestions]
	}
	return out, nil
}
