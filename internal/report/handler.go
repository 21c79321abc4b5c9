package report

import (
	"context"
	"net/http"

	"quizmaster/internal/app/apiresp"
	"quizmaster/internal/auth"
)

type Handler struct {
	svc summaryService
}

type summaryService interface {
	SummaryByUser(ctx context.Context, userID string) (*UserSummary, error)
}

func NewHandler(svc summaryService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	summary, err := h.svc.SummaryByUser(r.Context(), user.ID)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, summary)
}
