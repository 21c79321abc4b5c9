package session

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"quizmaster/internal/attempt"
	"quizmaster/internal/question"
	"quizmaster/internal/selection"
)

var (
	ErrNoSession        = errors.New("no quiz session")
	ErrNotInProgress    = errors.New("quiz is not in progress")
	ErrAlreadySubmitted = errors.New("question already submitted")
	ErrInvalidAnswer    = errors.New("answer must be one of the question options")
	ErrInvalidConfig    = errors.New("invalid quiz configuration")
	ErrEmptyQuiz        = errors.New("quiz has no questions")
)

const (
	DefaultTimerMinutes = 10
	MinTimerMinutes     = 1
	MaxTimerMinutes     = 180
)

type Phase string

const (
	PhaseConfiguring Phase = "configuring"
	PhaseInProgress  Phase = "in_progress"
	PhaseFinished    Phase = "finished"
)

type Config struct {
	SubjectIDs   []string               `json:"subjectIds"`
	Filter       selection.AnswerFilter `json:"filter"`
	NumQuestions int                    `json:"numQuestions"`
	ExamMode     bool                   `json:"examMode"`
	TimerMinutes int                    `json:"timerMinutes"`
}

func (c Config) validate() error {
	if len(c.SubjectIDs) == 0 {
		return fmt.Errorf("%w: select at least one subject", ErrInvalidConfig)
	}
	if c.NumQuestions < 0 {
		return fmt.Errorf("%w: numQuestions must not be negative", ErrInvalidConfig)
	}
	if c.ExamMode && (c.TimerMinutes < MinTimerMinutes || c.TimerMinutes > MaxTimerMinutes) {
		return fmt.Errorf("%w: timer must be between %d and %d minutes", ErrInvalidConfig, MinTimerMinutes, MaxTimerMinutes)
	}
	return nil
}

// State is one user's quiz. Methods mutate it in place; callers serialize
// access.
type State struct {
	Phase        Phase
	Config       Config
	Questions    []question.Question
	CurrentIndex int
	Answers      []*string
	Submitted    []bool
	Correct      int
	Incorrect    int
	StartedAt    time.Time
	Deadline     time.Time
	AttemptID    string
}

func NewState() *State {
	s := &State{}
	s.Reset()
	return s
}

// Reset returns to Configuring defaults.
func (s *State) Reset() {
	*s = State{
		Phase:  PhaseConfiguring,
		Config: Config{Filter: selection.FilterAll, TimerMinutes: DefaultTimerMinutes},
	}
}

// Configure stores cfg and discards anything drawn so far.
func (s *State) Configure(cfg Config) error {
	if cfg.Filter == "" {
		cfg.Filter = selection.FilterAll
	}
	if cfg.TimerMinutes == 0 {
		cfg.TimerMinutes = DefaultTimerMinutes
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	s.Reset()
	cfg.SubjectIDs = slices.Clone(cfg.SubjectIDs)
	s.Config = cfg
	return nil
}

// SetQuestions starts the quiz. Per-question slices are resized to qs.
func (s *State) SetQuestions(qs []question.Question, now time.Time) error {
	if len(qs) == 0 {
		return ErrEmptyQuiz
	}
	s.Questions = make([]question.Question, len(qs))
	for i, q := range qs {
		s.Questions[i] = q.Clone()
	}
	s.Answers = make([]*string, len(qs))
	s.Submitted = make([]bool, len(qs))
	s.CurrentIndex = 0
	s.Correct, s.Incorrect = 0, 0
	s.AttemptID = ""
	s.StartedAt = now
	s.Deadline = time.Time{}
	if s.Config.ExamMode {
		s.Deadline = now.Add(time.Duration(s.Config.TimerMinutes) * time.Minute)
	}
	s.Phase = PhaseInProgress
	return nil
}

// StartWithQuestions configures and starts a quiz over a fixed question list,
// as used when redoing an earlier attempt.
func (s *State) StartWithQuestions(qs []question.Question, subjectIDs []string, examMode bool, timerMinutes int, now time.Time) error {
	if err := s.Configure(Config{
		SubjectIDs:   subjectIDs,
		Filter:       selection.FilterAll,
		NumQuestions: len(qs),
		ExamMode:     examMode,
		TimerMinutes: timerMinutes,
	}); err != nil {
		return err
	}
	return s.SetQuestions(qs, now)
}

func (s *State) Current() (question.Question, bool) {
	if s.Phase != PhaseInProgress || s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Questions) {
		return question.Question{}, false
	}
	return s.Questions[s.CurrentIndex], true
}

// RecordAnswer stores answer for the current question and reports whether it
// is correct. Practice mode submits immediately and refuses a second answer;
// exam mode keeps the latest answer unsubmitted until the quiz ends.
func (s *State) RecordAnswer(answer string) (bool, error) {
	q, ok := s.Current()
	if !ok {
		return false, ErrNotInProgress
	}
	if !slices.Contains(q.Options, answer) {
		return false, ErrInvalidAnswer
	}

	i := s.CurrentIndex
	correct := attempt.IsCorrect(q, answer)
	if s.Config.ExamMode {
		s.Answers[i] = &answer
		return correct, nil
	}

	if s.Submitted[i] {
		return false, ErrAlreadySubmitted
	}
	s.Answers[i] = &answer
	s.Submitted[i] = true
	if correct {
		s.Correct++
	} else {
		s.Incorrect++
	}
	return correct, nil
}

// Next advances the index. On the last question it finishes the quiz and
// reports finished=true.
func (s *State) Next() (bool, error) {
	if s.Phase != PhaseInProgress {
		return false, ErrNotInProgress
	}
	if s.CurrentIndex < len(s.Questions)-1 {
		s.CurrentIndex++
		return false, nil
	}
	s.End()
	return true, nil
}

func (s *State) Previous() error {
	if s.Phase != PhaseInProgress {
		return ErrNotInProgress
	}
	if s.CurrentIndex > 0 {
		s.CurrentIndex--
	}
	return nil
}

// End scores the quiz and marks every question submitted. Manual finish,
// End Quiz and timer expiry all go through here.
func (s *State) End() attempt.Tally {
	t := attempt.Score(s.Questions, s.Answers)
	s.Correct, s.Incorrect = t.Correct, t.Incorrect
	for i := range s.Submitted {
		s.Submitted[i] = true
	}
	s.Phase = PhaseFinished
	return t
}

func (s *State) Remaining(now time.Time) time.Duration {
	if !s.Config.ExamMode || s.Deadline.IsZero() {
		return 0
	}
	if d := s.Deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}

func (s *State) Expired(now time.Time) bool {
	return s.Phase == PhaseInProgress && s.Config.ExamMode && s.Remaining(now) == 0
}

func (s *State) Score() int {
	return attempt.Percent(s.Correct, len(s.Questions))
}
