package session

import (
	"slices"
	"time"

	"quizmaster/internal/attempt"
)

// QuestionView is a question as the player may see it: the correct answer
// and explanation stay hidden until the question is submitted.
type QuestionView struct {
	ID            string   `json:"id"`
	SubjectID     string   `json:"subjectId"`
	QuestionText  string   `json:"questionText"`
	Options       []string `json:"options"`
	UserAnswer    *string  `json:"userAnswer"`
	Submitted     bool     `json:"submitted"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
	IsCorrect     *bool    `json:"isCorrect,omitempty"`
}

type View struct {
	Phase           Phase          `json:"phase"`
	Config          Config         `json:"config"`
	CurrentIndex    int            `json:"currentIndex"`
	Total           int            `json:"total"`
	Questions       []QuestionView `json:"questions"`
	Correct         int            `json:"correct"`
	Incorrect       int            `json:"incorrect"`
	StartedAt       int64          `json:"startedAt,omitempty"`
	Deadline        int64          `json:"deadline,omitempty"`
	RemainingMillis int64          `json:"remainingMillis"`
	Score           *int           `json:"score,omitempty"`
	Feedback        string         `json:"feedback,omitempty"`
	AttemptID       string         `json:"attemptId,omitempty"`
}

func (s *State) Snapshot(now time.Time) View {
	v := View{
		Phase:        s.Phase,
		Config:       s.Config,
		CurrentIndex: s.CurrentIndex,
		Total:        len(s.Questions),
		Questions:    make([]QuestionView, len(s.Questions)),
		Correct:      s.Correct,
		Incorrect:    s.Incorrect,
		AttemptID:    s.AttemptID,
	}
	v.Config.SubjectIDs = slices.Clone(s.Config.SubjectIDs)
	if !s.StartedAt.IsZero() {
		v.StartedAt = s.StartedAt.UnixMilli()
	}
	if !s.Deadline.IsZero() {
		v.Deadline = s.Deadline.UnixMilli()
		if s.Phase == PhaseInProgress {
			v.RemainingMillis = s.Remaining(now).Milliseconds()
		}
	}

	for i, q := range s.Questions {
		qv := QuestionView{
			ID:           q.ID,
			SubjectID:    q.SubjectID,
			QuestionText: q.QuestionText,
			Options:      slices.Clone(q.Options),
		}
		if i < len(s.Answers) && s.Answers[i] != nil {
			a := *s.Answers[i]
			qv.UserAnswer = &a
		}
		if i < len(s.Submitted) && s.Submitted[i] {
			qv.Submitted = true
			qv.CorrectAnswer = q.CorrectAnswer
			qv.Explanation = q.Explanation
			ok := qv.UserAnswer != nil && attempt.IsCorrect(q, *qv.UserAnswer)
			qv.IsCorrect = &ok
		}
		v.Questions[i] = qv
	}

	if s.Phase == PhaseFinished {
		score := s.Score()
		v.Score = &score
		v.Feedback = attempt.Feedback(score)
	}
	return v
}
