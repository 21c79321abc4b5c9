package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"quizmaster/internal/app/apiresp"
	"quizmaster/internal/attempt"
	"quizmaster/internal/auth"
	"quizmaster/internal/selection"
)

type Handler struct {
	svc sessionService
}

type sessionService interface {
	Start(ctx context.Context, userID string, cfg Config) (View, error)
	Redo(ctx context.Context, userID, attemptID string, examMode bool, timerMinutes int) (View, error)
	View(ctx context.Context, userID string) (View, error)
	Answer(ctx context.Context, userID, answer string) (View, bool, error)
	Next(ctx context.Context, userID string) (View, error)
	Previous(ctx context.Context, userID string) (View, error)
	End(ctx context.Context, userID string) (View, error)
	Reset(userID string)
}

type startRequest struct {
	SubjectIDs   []string `json:"subjectIds"`
	Filter       string   `json:"filter"`
	NumQuestions int      `json:"numQuestions"`
	ExamMode     bool     `json:"examMode"`
	TimerMinutes int      `json:"timerMinutes"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

type redoRequest struct {
	AttemptID    string `json:"attemptId"`
	ExamMode     bool   `json:"examMode"`
	TimerMinutes int    `json:"timerMinutes"`
}

type answerResponse struct {
	View
	IsCorrect *bool `json:"isCorrect,omitempty"`
}

func NewHandler(svc sessionService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	filter, err := selection.ParseAnswerFilter(req.Filter)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	v, err := h.svc.Start(r.Context(), user.ID, Config{
		SubjectIDs:   req.SubjectIDs,
		Filter:       filter,
		NumQuestions: req.NumQuestions,
		ExamMode:     req.ExamMode,
		TimerMinutes: req.TimerMinutes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, v)
}

func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req redoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AttemptID == "" {
		apiresp.WriteError(w, r, http.StatusBadRequest, "attemptId is required")
		return
	}

	v, err := h.svc.Redo(r.Context(), user.ID, req.AttemptID, req.ExamMode, req.TimerMinutes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, v)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	h.do(w, r, h.svc.View)
}

func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	h.do(w, r, h.svc.Next)
}

func (h *Handler) Previous(w http.ResponseWriter, r *http.Request) {
	h.do(w, r, h.svc.Previous)
}

func (h *Handler) End(w http.ResponseWriter, r *http.Request) {
	h.do(w, r, h.svc.End)
}

func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	v, correct, err := h.svc.Answer(r.Context(), user.ID, req.Answer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res := answerResponse{View: v}
	if !v.Config.ExamMode {
		res.IsCorrect = &correct
	}
	apiresp.WriteOK(w, r, http.StatusOK, res)
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.svc.Reset(user.ID)
	apiresp.WriteOK(w, r, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) do(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID string) (View, error)) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	v, err := op(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrInvalidAnswer), errors.Is(err, selection.ErrInvalidFilter):
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNoSession), errors.Is(err, attempt.ErrAttemptNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotInProgress), errors.Is(err, ErrAlreadySubmitted):
		apiresp.WriteError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, selection.ErrNoQuestionsAvailable), errors.Is(err, ErrEmptyQuiz):
		apiresp.WriteError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}
