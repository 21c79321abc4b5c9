package ledger

import (
	"context"
	"errors"
	"net/http"

	"quizmaster/internal/app/apiresp"
	"quizmaster/internal/auth"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc ledgerService
}

type ledgerService interface {
	GetAnswers(ctx context.Context, userID string) ([]Entry, error)
	IsBookmarked(ctx context.Context, userID, questionID string) (bool, error)
	ToggleBookmark(ctx context.Context, userID, questionID string) (bool, error)
	Bookmarks(ctx context.Context, userID string) ([]string, error)
}

type bookmarkResponse struct {
	QuestionID string `json:"questionId"`
	Bookmarked bool   `json:"bookmarked"`
}

func NewHandler(svc ledgerService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) ListAnswers(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	items, err := h.svc.GetAnswers(r.Context(), user.ID)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	items, err := h.svc.Bookmarks(r.Context(), user.ID)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) BookmarkStatus(w http.ResponseWriter, r *http.Request) {
	h.bookmark(w, r, h.svc.IsBookmarked)
}

func (h *Handler) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	h.bookmark(w, r, h.svc.ToggleBookmark)
}

func (h *Handler) bookmark(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, questionID string) (bool, error)) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	questionID := chi.URLParam(r, "questionID")
	on, err := op(r.Context(), user.ID, questionID)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, bookmarkResponse{QuestionID: questionID, Bookmarked: on})
}
