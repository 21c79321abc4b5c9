package app

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"quizmaster/internal/app/apiresp"
	"quizmaster/internal/app/observability"
	"quizmaster/internal/attempt"
	"quizmaster/internal/auth"
	"quizmaster/internal/ledger"
	"quizmaster/internal/question"
	"quizmaster/internal/report"
	"quizmaster/internal/selection"
	"quizmaster/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps carries the wired services the router exposes. DB is optional and
// only feeds connection-pool metrics.
type Deps struct {
	Logger      *slog.Logger
	DB          *sql.DB
	Auth        *auth.Service
	Questions   *question.Service
	Ledger      *ledger.Service
	Selector    *selection.Selector
	Sessions    *session.Manager
	Attempts    *attempt.Recorder
	Reports     *report.Service
	RateLimiter *IPRateLimiter
}

func NewRouter(cfg Config, deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limiter := deps.RateLimiter
	if limiter == nil {
		limiter = NewIPRateLimiter(cfg.AuthRateLimitPerMin, time.Minute)
	}

	collector := observability.NewCollector(deps.DB, logger)
	if deps.Sessions != nil {
		collector.RegisterGauge("active_quiz_sessions", func() float64 {
			return float64(deps.Sessions.Active())
		})
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(collector.Middleware)

	authHandler := auth.NewHandler(deps.Auth)
	questionHandler := question.NewHandler(deps.Questions)
	ledgerHandler := ledger.NewHandler(deps.Ledger)
	selectionHandler := selection.NewHandler(deps.Selector)
	sessionHandler := session.NewHandler(deps.Sessions)
	attemptHandler := attempt.NewHandler(deps.Attempts)
	reportHandler := report.NewHandler(deps.Reports)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		apiresp.WriteOK(w, r, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Get("/metrics", collector.MetricsHandler)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(CSRFMiddleware(cfg.CSRFEnforced))
		api.Get("/auth/csrf", CSRFToken)

		api.Group(func(public chi.Router) {
			public.Use(RateLimitMiddleware(limiter))
			public.Post("/auth/register", authHandler.Register)
			public.Post("/auth/login", authHandler.Login)
		})

		api.Group(func(secure chi.Router) {
			secure.Use(authHandler.RequireAuth)
			secure.Get("/auth/me", authHandler.Me)
			secure.Post("/auth/logout", authHandler.Logout)

			secure.Get("/subjects", questionHandler.ListSubjects)

			secure.Get("/quiz/counts", selectionHandler.Counts)
			secure.Route("/quiz/session", func(s chi.Router) {
				s.Post("/", sessionHandler.Start)
				s.Get("/", sessionHandler.Get)
				s.Delete("/", sessionHandler.Reset)
				s.Post("/answer", sessionHandler.Answer)
				s.Post("/next", sessionHandler.Next)
				s.Post("/previous", sessionHandler.Previous)
				s.Post("/end", sessionHandler.End)
				s.Post("/redo", sessionHandler.Redo)
			})

			secure.Get("/answers", ledgerHandler.ListAnswers)
			secure.Get("/bookmarks", ledgerHandler.ListBookmarks)
			secure.Get("/bookmarks/{questionID}", ledgerHandler.BookmarkStatus)
			secure.Post("/bookmarks/{questionID}/toggle", ledgerHandler.ToggleBookmark)

			secure.Get("/history", attemptHandler.History)
			secure.Get("/history/{id}", attemptHandler.Get)
			secure.Get("/me/summary", reportHandler.Summary)

			secure.Group(func(admin chi.Router) {
				admin.Use(authHandler.RequireAdmin)
				admin.Post("/admin/subjects", questionHandler.CreateSubject)
				admin.Delete("/admin/subjects/{id}", questionHandler.DeleteSubject)
				admin.Get("/admin/questions", questionHandler.ListQuestions)
				admin.Post("/admin/questions", questionHandler.CreateQuestion)
				admin.Post("/admin/questions/import", questionHandler.Import)
				admin.Get("/admin/questions/export", questionHandler.Export)
				admin.Get("/admin/questions/{id}", questionHandler.GetQuestion)
				admin.Put("/admin/questions/{id}", questionHandler.UpdateQuestion)
				admin.Delete("/admin/questions/{id}", questionHandler.DeleteQuestion)
			})
		})
	})

	return r
}
