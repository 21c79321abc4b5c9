package selection

import (
	"context"
	"net/http"
	"strings"

	"quizmaster/internal/app/apiresp"
	"quizmaster/internal/auth"
)

type Handler struct {
	svc countService
}

type countService interface {
	Counts(ctx context.Context, subjectIDs []string, userID string) (Counts, error)
}

func NewHandler(svc countService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Counts(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	counts, err := h.svc.Counts(r.Context(), SplitIDs(r.URL.Query().Get("subject_ids")), user.ID)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, counts)
}

// SplitIDs parses a comma separated id list, dropping blanks and repeats.
func SplitIDs(raw string) []string {
	out := make([]string, 0)
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
