package app

import (
	"log/slog"

	"quizmaster/internal/attempt"
	"quizmaster/internal/auth"
	"quizmaster/internal/ledger"
	"quizmaster/internal/question"
	"quizmaster/internal/report"
	"quizmaster/internal/selection"
	"quizmaster/internal/session"
)

// Wire builds every service over storage. Callers own Sessions and must
// Close it on shutdown.
func Wire(cfg Config, storage *Storage, logger *slog.Logger) Deps {
	questions := question.NewService(storage.Repo)
	answers := ledger.NewService(storage.Repo)
	attempts := attempt.NewRecorder(storage.Repo)
	selector := selection.NewSelector(questions, answers)

	return Deps{
		Logger: logger,
		DB:     storage.DB,
		Auth: auth.NewService(storage.Repo, auth.ServiceConfig{
			SessionTTL: cfg.SessionTTL,
			AdminEmail: cfg.BootstrapAdminEmail,
		}),
		Questions: questions,
		Ledger:    answers,
		Selector:  selector,
		Sessions: session.NewManager(selector, answers, attempts,
			session.WithTick(cfg.ExamTick),
			session.WithDefaultTimer(cfg.DefaultExamMinutes),
			session.WithLogger(logger),
		),
		Attempts: attempts,
		Reports:  report.NewService(attempts, answers, questions),
	}
}
