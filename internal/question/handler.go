package question

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"quizmaster/internal/app/apiresp"

	"github.com/go-chi/chi/v5"
)

const maxImportBytes = 16 << 20

type Handler struct {
	svc questionService
}

type questionService interface {
	ListSubjects(ctx context.Context) ([]Subject, error)
	CreateSubject(ctx context.Context, name string) (*Subject, error)
	DeleteSubject(ctx context.Context, id string) (bool, error)
	ListQuestions(ctx context.Context) ([]Question, error)
	ListQuestionsBySubjects(ctx context.Context, subjectIDs []string) ([]Question, error)
	GetQuestion(ctx context.Context, id string) (*Question, error)
	CreateQuestion(ctx context.Context, in CreateQuestionInput) (*Question, error)
	UpdateQuestion(ctx context.Context, id string, in UpdateQuestionInput) (*Question, error)
	DeleteQuestion(ctx context.Context, id string) (bool, error)
	ImportRows(ctx context.Context, rows []ImportRow) (*ImportReport, error)
	ExportXLSX(ctx context.Context) ([]byte, error)
}

type apiResponse struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type createSubjectRequest struct {
	Name string `json:"name"`
}

type questionRequest struct {
	SubjectID     string   `json:"subjectId"`
	QuestionText  string   `json:"questionText"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

type updateQuestionRequest struct {
	SubjectID     *string  `json:"subjectId"`
	QuestionText  *string  `json:"questionText"`
	Options       []string `json:"options"`
	CorrectAnswer *string  `json:"correctAnswer"`
	Explanation   *string  `json:"explanation"`
}

func NewHandler(svc questionService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListSubjects(r.Context())
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: items})
}

func (h *Handler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	var req createSubjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}

	item, err := h.svc.CreateSubject(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, apiResponse{OK: true, Data: item})
}

func (h *Handler) DeleteSubject(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.DeleteSubject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !deleted {
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: ErrSubjectNotFound.Error()})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: map[string]bool{"deleted": true}})
}

func (h *Handler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	var (
		items []Question
		err   error
	)
	if ids := splitIDs(r.URL.Query().Get("subject_id")); len(ids) > 0 {
		items, err = h.svc.ListQuestionsBySubjects(r.Context(), ids)
	} else {
		items, err = h.svc.ListQuestions(r.Context())
	}
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: items})
}

// splitIDs reads a comma separated id list, dropping blanks.
func splitIDs(raw string) []string {
	out := make([]string, 0)
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func (h *Handler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.GetQuestion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: item})
}

func (h *Handler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}

	item, err := h.svc.CreateQuestion(r.Context(), CreateQuestionInput{
		SubjectID:     req.SubjectID,
		QuestionText:  req.QuestionText,
		Options:       req.Options,
		CorrectAnswer: req.CorrectAnswer,
		Explanation:   req.Explanation,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, apiResponse{OK: true, Data: item})
}

func (h *Handler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var req updateQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}

	item, err := h.svc.UpdateQuestion(r.Context(), chi.URLParam(r, "id"), UpdateQuestionInput{
		SubjectID:     req.SubjectID,
		QuestionText:  req.QuestionText,
		Options:       req.Options,
		CorrectAnswer: req.CorrectAnswer,
		Explanation:   req.Explanation,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: item})
}

func (h *Handler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.DeleteQuestion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !deleted {
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: ErrQuestionNotFound.Error()})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: map[string]bool{"deleted": true}})
}

// Import accepts a multipart "file" field holding a .csv or .xlsx sheet.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid multipart form"})
		return
	}

	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "file field is required"})
		return
	}
	defer file.Close()

	var rows []ImportRow
	switch strings.ToLower(filepath.Ext(hdr.Filename)) {
	case ".xlsx":
		rows, err = ParseXLSX(file)
	case ".csv", "":
		rows, err = ParseCSV(file)
	default:
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "file must be .csv or .xlsx"})
		return
	}
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
		return
	}

	report, err := h.svc.ImportRows(r.Context(), rows)
	if err != nil {
		if status := statusFor(err); report != nil && status != http.StatusInternalServerError {
			apiresp.WriteErrorDetails(w, r, status, err.Error(), report)
			return
		}
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: map[string]any{
		"filename": hdr.Filename,
		"report":   report,
	}})
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.ExportXLSX(r.Context())
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="questions.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrSubjectNotFound), errors.Is(err, ErrQuestionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateSubject):
		return http.StatusConflict
	case errors.Is(err, ErrCorrectAnswerNotInOptions), errors.Is(err, ErrUnknownSubject):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		writeJSON(w, r, status, apiResponse{OK: false, Error: "internal error"})
		return
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		apiresp.WriteValidation(w, r, ve.Error(), ve.Fields)
		return
	}
	writeJSON(w, r, status, apiResponse{OK: false, Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload apiResponse) {
	apiresp.WriteLegacy(w, r, code, payload.OK, payload.Data, payload.Error)
}
