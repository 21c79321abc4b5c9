package attempt

import (
	"context"
	"errors"
	"net/http"

	"quizmaster/internal/app/apiresp"
	"quizmaster/internal/auth"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc attemptService
}

type attemptService interface {
	History(ctx context.Context, userID string) ([]Attempt, error)
	Get(ctx context.Context, id string) (*Attempt, error)
}

type attemptDetail struct {
	Attempt
	Tally    Tally  `json:"tally"`
	Feedback string `json:"feedback"`
}

func NewHandler(svc attemptService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	items, err := h.svc.History(r.Context(), user.ID)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

// Get returns one attempt. Other users' attempts read as not found unless
// the caller is an admin.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	a, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrAttemptNotFound) {
			apiresp.WriteError(w, r, http.StatusNotFound, err.Error())
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if a.UserID != user.ID && !user.IsAdmin {
		apiresp.WriteError(w, r, http.StatusNotFound, ErrAttemptNotFound.Error())
		return
	}

	apiresp.WriteOK(w, r, http.StatusOK, attemptDetail{
		Attempt:  *a,
		Tally:    a.Tally(),
		Feedback: Feedback(a.Score),
	})
}
