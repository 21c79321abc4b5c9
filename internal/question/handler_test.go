package question

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

type mockQuestionService struct {
	listSubjectsFn   func(ctx context.Context) ([]Subject, error)
	createSubjectFn  func(ctx context.Context, name string) (*Subject, error)
	deleteSubjectFn  func(ctx context.Context, id string) (bool, error)
	listQuestionsFn  func(ctx context.Context) ([]Question, error)
	bySubjectsFn     func(ctx context.Context, subjectIDs []string) ([]Question, error)
	getQuestionFn    func(ctx context.Context, id string) (*Question, error)
	createQuestionFn func(ctx context.Context, in CreateQuestionInput) (*Question, error)
	updateQuestionFn func(ctx context.Context, id string, in UpdateQuestionInput) (*Question, error)
	deleteQuestionFn func(ctx context.Context, id string) (bool, error)
	importRowsFn     func(ctx context.Context, rows []ImportRow) (*ImportReport, error)
	exportFn         func(ctx context.Context) ([]byte, error)
}

func (m *mockQuestionService) ListSubjects(ctx context.Context) ([]Subject, error) {
	if m.listSubjectsFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.listSubjectsFn(ctx)
}

func (m *mockQuestionService) CreateSubject(ctx context.Context, name string) (*Subject, error) {
	if m.createSubjectFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.createSubjectFn(ctx, name)
}

func (m *mockQuestionService) DeleteSubject(ctx context.Context, id string) (bool, error) {
	if m.deleteSubjectFn == nil {
		return false, errors.New("not implemented")
	}
	return m.deleteSubjectFn(ctx, id)
}

func (m *mockQuestionService) ListQuestions(ctx context.Context) ([]Question, error) {
	if m.listQuestionsFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.listQuestionsFn(ctx)
}

func (m *mockQuestionService) ListQuestionsBySubjects(ctx context.Context, subjectIDs []string) ([]Question, error) {
	if m.bySubjectsFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.bySubjectsFn(ctx, subjectIDs)
}

func (m *mockQuestionService) GetQuestion(ctx context.Context, id string) (*Question, error) {
	if m.getQuestionFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.getQuestionFn(ctx, id)
}

func (m *mockQuestionService) CreateQuestion(ctx context.Context, in CreateQuestionInput) (*Question, error) {
	if m.createQuestionFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.createQuestionFn(ctx, in)
}

func (m *mockQuestionService) UpdateQuestion(ctx context.Context, id string, in UpdateQuestionInput) (*Question, error) {
	if m.updateQuestionFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.updateQuestionFn(ctx, id, in)
}

func (m *mockQuestionService) DeleteQuestion(ctx context.Context, id string) (bool, error) {
	if m.deleteQuestionFn == nil {
		return false, errors.New("not implemented")
	}
	return m.deleteQuestionFn(ctx, id)
}

func (m *mockQuestionService) ImportRows(ctx context.Context, rows []ImportRow) (*ImportReport, error) {
	if m.importRowsFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.importRowsFn(ctx, rows)
}

func (m *mockQuestionService) ExportXLSX(ctx context.Context) ([]byte, error) {
	if m.exportFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.exportFn(ctx)
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func withParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeMap(t, rr)
	e, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error payload, got %v", body)
	}
	code, _ := e["code"].(string)
	return code
}

func TestCreateSubjectOK(t *testing.T) {
	h := &Handler{svc: &mockQuestionService{
		createSubjectFn: func(ctx context.Context, name string) (*Subject, error) {
			if name != "Go" {
				t.Fatalf("unexpected name: %q", name)
			}
			return &Subject{ID: "go", Name: name}, nil
		},
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/subjects", bytes.NewReader([]byte(`{"name":"Go"}`)))
	w := httptest.NewRecorder()

	h.CreateSubject(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	body := decodeMap(t, w)
	if body["ok"] != true {
		t.Fatalf("expected ok=true")
	}
}

func TestCreateSubjectDuplicate(t *testing.T) {
	h := &Handler{svc: &mockQuestionService{
		createSubjectFn: func(ctx context.Context, name string) (*Subject, error) {
			return nil, ErrDuplicateSubject
		},
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/subjects", bytes.NewReader([]byte(`{"name":"Go"}`)))
	w := httptest.NewRecorder()

	h.CreateSubject(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestDeleteSubjectNotFound(t *testing.T) {
	h := &Handler{svc: &mockQuestionService{
		deleteSubjectFn: func(ctx context.Context, id string) (bool, error) {
			if id != "css" {
				t.Fatalf("unexpected id: %q", id)
			}
			return false, nil
		},
	}}

	req := withParam(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/subjects/css", nil), "id", "css")
	w := httptest.NewRecorder()

	h.DeleteSubject(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListQuestionsFiltersBySubject(t *testing.T) {
	var got []string
	h := &Handler{svc: &mockQuestionService{
		bySubjectsFn: func(ctx context.Context, subjectIDs []string) ([]Question, error) {
			got = subjectIDs
			return []Question{{ID: "css1", SubjectID: "css"}}, nil
		},
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/questions?subject_id=css,+js", nil)
	w := httptest.NewRecorder()

	h.ListQuestions(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(got) != 2 || got[0] != "css" || got[1] != "js" {
		t.Fatalf("unexpected subject ids: %v", got)
	}
	data, _ := decodeMap(t, w)["data"].([]any)
	if len(data) != 1 {
		t.Fatalf("expected 1 question, got %d", len(data))
	}
}

func TestListQuestionsWithoutFilterListsAll(t *testing.T) {
	h := &Handler{svc: &mockQuestionService{
		listQuestionsFn: func(ctx context.Context) ([]Question, error) {
			return []Question{{ID: "js1", SubjectID: "js"}, {ID: "css1", SubjectID: "css"}}, nil
		},
	}}

	w := httptest.NewRecorder()
	h.ListQuestions(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/questions?subject_id=+", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	data, _ := decodeMap(t, w)["data"].([]any)
	if len(data) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(data))
	}
}

func TestCreateQuestionValidationDetails(t *testing.T) {
	h := &Handler{svc: &mockQuestionService{
		createQuestionFn: func(ctx context.Context, in CreateQuestionInput) (*Question, error) {
			if in.SubjectID != "js" || len(in.Options) != 2 {
				t.Fatalf("unexpected input: %+v", in)
			}
			return nil, &ValidationError{Fields: []FieldError{{Field: "explanation", Message: "too short"}}}
		},
	}}

	payload := []byte(`{"subjectId":"js","questionText":"Pick one","options":["A","B"],"correctAnswer":"A","explanation":"x"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/questions", bytes.NewReader(payload))
	w := httptest.NewRecorder()

	h.CreateQuestion(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	body := decodeMap(t, w)
	e := body["error"].(map[string]any)
	if e["code"] != "validation_error" {
		t.Fatalf("unexpected code: %v", e["code"])
	}
	details, _ := e["details"].([]any)
	if len(details) != 1 {
		t.Fatalf("expected 1 field detail, got %v", e["details"])
	}
}

func TestCreateQuestionInvariantIs422(t *testing.T) {
	h := &Handler{svc: &mockQuestionService{
		createQuestionFn: func(ctx context.Context, in CreateQuestionInput) (*Question, error) {
			return nil, ErrCorrectAnswerNotInOptions
		},
	}}

	payload := []byte(`{"subjectId":"js","questionText":"Pick one","options":["A","B"],"correctAnswer":"C","explanation":"long enough"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/questions", bytes.NewReader(payload))
	w := httptest.NewRecorder()

	h.CreateQuestion(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	if code := errorCode(t, w); code != "unprocessable_entity" {
		t.Fatalf("unexpected code: %s", code)
	}
}

func TestUpdateQuestionPassesPartialFields(t *testing.T) {
	h := &Handler{svc: &mockQuestionService{
		updateQuestionFn: func(ctx context.Context, id string, in UpdateQuestionInput) (*Question, error) {
			if id != "js1" {
				t.Fatalf("unexpected id: %q", id)
			}
			if in.QuestionText == nil || *in.QuestionText != "New text here" {
				t.Fatalf("expected question text, got %+v", in.QuestionText)
			}
			if in.SubjectID != nil || in.Options != nil || in.CorrectAnswer != nil {
				t.Fatalf("unset fields must stay nil: %+v", in)
			}
			return &Question{ID: id, QuestionText: *in.QuestionText}, nil
		},
	}}

	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/questions/js1", bytes.NewReader([]byte(`{"questionText":"New text here"}`)))
	req = withParam(req, "id", "js1")
	w := httptest.NewRecorder()

	h.UpdateQuestion(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestGetQuestionNotFound(t *testing.T) {
	h := &Handler{svc: &mockQuestionService{
		getQuestionFn: func(ctx context.Context, id string) (*Question, error) {
			return nil, ErrQuestionNotFound
		},
	}}

	req := withParam(httptest.NewRequest(http.MethodGet, "/api/v1/admin/questions/zz", nil), "id", "zz")
	w := httptest.NewRecorder()

	h.GetQuestion(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestImportCSVOK(t *testing.T) {
	h := &Handler{svc: &mockQuestionService{
		importRowsFn: func(ctx context.Context, rows []ImportRow) (*ImportReport, error) {
			if len(rows) != 1 || rows[0].SubjectName != "JavaScript" || rows[0].Row != 2 {
				t.Fatalf("unexpected rows: %+v", rows)
			}
			return &ImportReport{TotalRows: 1, Imported: 1, Errors: []ImportRowError{}}, nil
		},
	}}

	body, ct := multipartBody(t, "bank.csv",
		"questionText,options,correctAnswer,subjectName,explanation\nWhich is a constant?,var|const,const,JavaScript,const cannot be reassigned.\n")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/questions/import", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()

	h.Import(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestImportUnknownSubjectReportsRows(t *testing.T) {
	h := &Handler{svc: &mockQuestionService{
		importRowsFn: func(ctx context.Context, rows []ImportRow) (*ImportReport, error) {
			return &ImportReport{
				TotalRows: 1,
				Errors:    []ImportRowError{{Row: 2, Error: `unknown subject: "Nonexistent"`}},
			}, ErrUnknownSubject
		},
	}}

	body, ct := multipartBody(t, "bank.csv",
		"questionText,options,correctAnswer,subjectName,explanation\nWhat?,A|B,A,Nonexistent,No subject here.\n")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/questions/import", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()

	h.Import(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	e := decodeMap(t, w)["error"].(map[string]any)
	details, _ := e["details"].(map[string]any)
	if details == nil || details["imported"] != float64(0) {
		t.Fatalf("expected import report in details, got %v", e["details"])
	}
}

func TestImportRejectsUnknownExtension(t *testing.T) {
	h := &Handler{svc: &mockQuestionService{}}

	body, ct := multipartBody(t, "bank.pdf", "whatever")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/questions/import", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()

	h.Import(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestExportSetsAttachment(t *testing.T) {
	h := &Handler{svc: &mockQuestionService{
		exportFn: func(ctx context.Context) ([]byte, error) {
			return []byte("xlsx"), nil
		},
	}}

	w := httptest.NewRecorder()
	h.Export(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/questions/export", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="questions.xlsx"` {
		t.Fatalf("unexpected disposition: %s", got)
	}
}
