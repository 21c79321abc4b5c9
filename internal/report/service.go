package report

import (
	"context"
	"fmt"
	"math"
	"strings"

	"quizmaster/internal/attempt"
	"quizmaster/internal/ledger"
	"quizmaster/internal/question"
)

type historySource interface {
	History(ctx context.Context, userID string) ([]attempt.Attempt, error)
}

type answerSource interface {
	GetAnswers(ctx context.Context, userID string) ([]ledger.Entry, error)
}

type bankSource interface {
	ListSubjects(ctx context.Context) ([]question.Subject, error)
	ListQuestions(ctx context.Context) ([]question.Question, error)
}

type Service struct {
	history historySource
	answers answerSource
	bank    bankSource
}

type SubjectProgress struct {
	SubjectID   string  `json:"subjectId"`
	SubjectName string  `json:"subjectName"`
	Questions   int     `json:"questions"`
	Answered    int     `json:"answered"`
	Correct     int     `json:"correct"`
	Accuracy    float64 `json:"accuracy"`
}

type UserSummary struct {
	UserID       string            `json:"userId"`
	Attempts     int               `json:"attempts"`
	AverageScore float64           `json:"averageScore"`
	BestScore    int               `json:"bestScore"`
	LastScore    *int              `json:"lastScore,omitempty"`
	Subjects     []SubjectProgress `json:"subjects"`
}

func NewService(history historySource, answers answerSource, bank bankSource) *Service {
	return &Service{history: history, answers: answers, bank: bank}
}

// SummaryByUser aggregates attempt scores and the latest ledger outcomes per
// subject. Ledger entries for deleted questions are ignored.
func (s *Service) SummaryByUser(ctx context.Context, userID string) (*UserSummary, error) {
	userID = strings.TrimSpace(userID)
	out := &UserSummary{UserID: userID, Subjects: make([]SubjectProgress, 0)}

	attempts, err := s.history.History(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	out.Attempts = len(attempts)
	if len(attempts) > 0 {
		total := 0
		for _, a := range attempts {
			total += a.Score
			if a.Score > out.BestScore {
				out.BestScore = a.Score
			}
		}
		out.AverageScore = round1(float64(total) / float64(len(attempts)))
		last := attempts[0].Score
		out.LastScore = &last
	}

	subjects, err := s.bank.ListSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("load subjects: %w", err)
	}
	questions, err := s.bank.ListQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	entries, err := s.answers.GetAnswers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}

	outcome := make(map[string]bool, len(entries))
	for _, e := range entries {
		outcome[e.QuestionID] = e.IsCorrect
	}
	bySubject := make(map[string]*SubjectProgress, len(subjects))
	for _, sub := range subjects {
		out.Subjects = append(out.Subjects, SubjectProgress{SubjectID: sub.ID, SubjectName: sub.Name})
	}
	for i := range out.Subjects {
		bySubject[out.Subjects[i].SubjectID] = &out.Subjects[i]
	}
	for _, q := range questions {
		p, ok := bySubject[q.SubjectID]
		if !ok {
			continue
		}
		p.Questions++
		if correct, seen := outcome[q.ID]; seen {
			p.Answered++
			if correct {
				p.Correct++
			}
		}
	}
	for i := range out.Subjects {
		if p := &out.Subjects[i]; p.Answered > 0 {
			p.Accuracy = round1(float64(p.Correct) * 100 / float64(p.Answered))
		}
	}
	return out, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
