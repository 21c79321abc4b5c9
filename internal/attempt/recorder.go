package attempt

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"quizmaster/internal/question"

	"github.com/google/uuid"
)

var (
	ErrAttemptNotFound = errors.New("attempt not found")
	ErrInvalidAttempt  = errors.New("invalid attempt")
)

// AttemptQuestion is a frozen copy of a question plus the answer given.
// UserAnswer is "" when the question was left unanswered.
type AttemptQuestion struct {
	question.Question
	UserAnswer string `json:"userAnswer"`
}

type Attempt struct {
	ID         string            `json:"id"`
	UserID     string            `json:"userId"`
	Timestamp  int64             `json:"timestamp"`
	Score      int               `json:"score"`
	SubjectIDs []string          `json:"subjectIds"`
	Questions  []AttemptQuestion `json:"questions"`
}

// Clone returns a deep copy so stored attempts stay immutable.
func (a Attempt) Clone() Attempt {
	a.SubjectIDs = slices.Clone(a.SubjectIDs)
	qs := make([]AttemptQuestion, len(a.Questions))
	for i, q := range a.Questions {
		qs[i] = AttemptQuestion{Question: q.Question.Clone(), UserAnswer: q.UserAnswer}
	}
	a.Questions = qs
	return a
}

// Store keeps attempts. ListAttempts returns most recent first.
type Store interface {
	InsertAttempt(ctx context.Context, a Attempt) error
	ListAttempts(ctx context.Context, userID string) ([]Attempt, error)
	GetAttempt(ctx context.Context, id string) (*Attempt, error)
}

type Recorder struct {
	store Store
	now   func() time.Time
	newID func() (uuid.UUID, error)
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: time.Now, newID: uuid.NewV7}
}

// SaveAttempt scores the session, snapshots every question and persists the
// result as a new immutable attempt.
func (r *Recorder) SaveAttempt(ctx context.Context, userID string, subjectIDs []string, questions []question.Question, answers []*string) (*Attempt, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidAttempt)
	}

	id, err := r.newID()
	if err != nil {
		return nil, fmt.Errorf("generate attempt id: %w", err)
	}

	tally := Score(questions, answers)
	snapshot := make([]AttemptQuestion, len(questions))
	for i, q := range questions {
		given := ""
		if i < len(answers) && answers[i] != nil {
			given = *answers[i]
		}
		snapshot[i] = AttemptQuestion{Question: q.Clone(), UserAnswer: given}
	}

	a := Attempt{
		ID:         id.String(),
		UserID:     userID,
		Timestamp:  r.now().UnixMilli(),
		Score:      Percent(tally.Correct, tally.Total),
		SubjectIDs: slices.Clone(subjectIDs),
		Questions:  snapshot,
	}
	if a.SubjectIDs == nil {
		a.SubjectIDs = []string{}
	}

	if err := r.store.InsertAttempt(ctx, a); err != nil {
		return nil, fmt.Errorf("save attempt: %w", err)
	}
	return &a, nil
}

func (r *Recorder) History(ctx context.Context, userID string) ([]Attempt, error) {
	items, err := r.store.ListAttempts(ctx, strings.TrimSpace(userID))
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return items, nil
}

func (r *Recorder) Get(ctx context.Context, id string) (*Attempt, error) {
	a, err := r.store.GetAttempt(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, ErrAttemptNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return a, nil
}
