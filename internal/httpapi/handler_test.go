package httpapi_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-course/internal/ai"
	"github.com/p-n-ai/pai-course/internal/course"
	"github.com/p-n-ai/pai-course/internal/course/coursetest"
	"github.com/p-n-ai/pai-course/internal/export"
	"github.com/p-n-ai/pai-course/internal/httpapi"
	"github.com/p-n-ai/pai-course/internal/session"
)

type fixture struct {
	mux      *http.ServeMux
	genAI    *ai.MockProvider
	gradeAI  *ai.MockProvider
	store    *session.MemoryStore
	courseJS string
}

func newFixture(t *testing.T, opts ...httpapi.Option) *fixture {
	t.Helper()
	f := &fixture{
		courseJS: coursetest.JSON(t, coursetest.Course(10)),
		gradeAI:  ai.NewMockProvider(`{"score": 82, "feedback": "Solid work."}`),
		store:    session.NewMemoryStore(time.Hour),
	}
	f.genAI = ai.NewMockProvider(f.courseJS)

	h := httpapi.NewHandler(
		course.NewGenerator(f.genAI),
		course.NewGrader(f.gradeAI),
		f.store,
		opts...,
	)
	f.mux = h.NewMux()
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

// create generates a course from a topic and returns its session id.
func (f *fixture) create(t *testing.T) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/courses", map[string]string{"topic": "Intro to Distributed Systems"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ID string `json:"id"`
	}
	decode(t, rec, &resp)
	return resp.ID
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decode(t, rec, &body)
	return body["error"]
}

type unhealthyStore struct {
	*session.MemoryStore
}

func (unhealthyStore) HealthCheck(context.Context) error {
	return errors.New("connection refused")
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"healthz returns 200", "/healthz", http.StatusOK, "ok"},
		{"readyz returns 200", "/readyz", http.StatusOK, "ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, tt.path, nil)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body map[string]string
			decode(t, rec, &body)
			if body["status"] != tt.wantBody {
				t.Errorf("status field = %q, want %q", body["status"], tt.wantBody)
			}
		})
	}
}

func TestReadyz_StoreDown(t *testing.T) {
	h := httpapi.NewHandler(nil, nil, unhealthyStore{session.NewMemoryStore(0)})
	rec := httptest.NewRecorder()
	h.NewMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestCreateCourse_Topic(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/courses", map[string]string{"topic": "  Intro to Distributed Systems  "})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ID     string             `json:"id"`
		Course *course.CourseSpec `json:"course"`
	}
	decode(t, rec, &resp)
	if resp.ID == "" {
		t.Error("id is empty")
	}
	if resp.Course == nil || len(resp.Course.Modules) != 10 {
		t.Fatalf("course = %+v, want 10 modules", resp.Course)
	}

	req := f.genAI.LastRequest()
	if req == nil {
		t.Fatal("backend was not called")
	}
	parts := req.Messages[0].ContentParts()
	if len(parts) != 1 || !strings.Contains(parts[0].Text, `"Intro to Distributed Systems"`) {
		t.Errorf("parts = %+v, want trimmed topic prompt", parts)
	}

	sess, err := f.store.Get(t.Context(), resp.ID)
	if err != nil {
		t.Fatalf("stored session: %v", err)
	}
	if sess.Topic != "Intro to Distributed Systems" || sess.DocumentFingerprint != "" {
		t.Errorf("session = %+v", sess)
	}
}

func TestCreateCourse_Document(t *testing.T) {
	f := newFixture(t)
	pdf := base64.StdEncoding.EncodeToString([]byte("%PDF-1.7 syllabus"))

	rec := f.do(t, http.MethodPost, "/api/courses", map[string]any{
		"topic":    "",
		"document": map[string]string{"data": pdf, "mimeType": "application/pdf"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	parts := f.genAI.LastRequest().Messages[0].ContentParts()
	if len(parts) != 2 || parts[0].InlineData == nil || parts[0].InlineData.Data != pdf {
		t.Fatalf("parts = %+v, want document first", parts)
	}
	if !strings.HasSuffix(parts[1].Text, "Use the document provided.") {
		t.Errorf("instruction = %q", parts[1].Text)
	}

	var resp struct {
		ID string `json:"id"`
	}
	decode(t, rec, &resp)
	sess, err := f.store.Get(t.Context(), resp.ID)
	if err != nil {
		t.Fatalf("stored session: %v", err)
	}
	want := course.Document{Data: pdf, MIMEType: course.MIMETypePDF}.Fingerprint()
	if sess.DocumentFingerprint != want {
		t.Errorf("fingerprint = %q, want %q", sess.DocumentFingerprint, want)
	}
}

func TestCreateCourse_BadInput(t *testing.T) {
	tests := []struct {
		name    string
		body    any
		wantMsg string
	}{
		{"blank topic and no document", map[string]string{"topic": "   "}, "Enter a topic or upload a PDF."},
		{"not a pdf", map[string]any{"document": map[string]string{"data": "aGVsbG8=", "mimeType": "image/png"}}, "Please upload a PDF file."},
		{"not base64", map[string]any{"document": map[string]string{"data": "%%%", "mimeType": "application/pdf"}}, "Please upload a PDF file."},
		{"empty document", map[string]any{"document": map[string]string{"data": "", "mimeType": "application/pdf"}}, "Please upload a PDF file."},
		{"malformed json", "{topic:", "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.do(t, http.MethodPost, "/api/courses", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if got := errorMessage(t, rec); got != tt.wantMsg {
				t.Errorf("error = %q, want %q", got, tt.wantMsg)
			}
			if len(f.genAI.Requests()) != 0 {
				t.Error("backend should not be called for invalid input")
			}
		})
	}
}

func TestCreateCourse_TooLarge(t *testing.T) {
	f := newFixture(t, httpapi.WithMaxUploadBytes(32))

	rec := f.do(t, http.MethodPost, "/api/courses", map[string]string{"topic": strings.Repeat("x", 100)})
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestCreateCourse_TopicPassedUntrimmed(t *testing.T) {
	f := newFixture(t)
	pdf := base64.StdEncoding.EncodeToString([]byte("%PDF-1.7 syllabus"))

	rec := f.do(t, http.MethodPost, "/api/courses", map[string]any{
		"topic":    "  Focus on Raft ",
		"document": map[string]string{"data": pdf, "mimeType": "application/pdf"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	parts := f.genAI.LastRequest().Messages[0].ContentParts()
	if !strings.HasSuffix(parts[1].Text, "Additional Instructions:   Focus on Raft ") {
		t.Errorf("instruction = %q, want the topic as sent", parts[1].Text)
	}
}

func TestCreateCourse_GenerationFailure(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*ai.MockProvider)
	}{
		{"backend error", func(m *ai.MockProvider) { m.Err = errors.New("quota exceeded") }},
		{"empty reply", func(m *ai.MockProvider) { m.Response = "" }},
		{"not json", func(m *ai.MockProvider) { m.Response = "Sure! Here is your course." }},
		{"schema violation", func(m *ai.MockProvider) { m.Response = `{"code": "CS1"}` }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f.genAI)

			rec := f.do(t, http.MethodPost, "/api/courses", map[string]string{"topic": "Compilers"})
			if rec.Code != http.StatusBadGateway {
				t.Errorf("status = %d, want 502", rec.Code)
			}
			if got := errorMessage(t, rec); !strings.HasPrefix(got, "Failed to generate course.") {
				t.Errorf("error = %q", got)
			}
		})
	}
}

func TestGetAndDeleteCourse(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)

	rec := f.do(t, http.MethodGet, "/api/courses/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var sess session.Session
	decode(t, rec, &sess)
	if sess.ID != id || sess.Course.Code != "CS244" {
		t.Errorf("session = %+v", sess)
	}

	rec = f.do(t, http.MethodDelete, "/api/courses/"+id, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec = f.do(t, method, "/api/courses/"+id, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s after reset status = %d, want 404", method, rec.Code)
		}
	}
}

func TestGrade(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)

	rec := f.do(t, http.MethodPost, "/api/courses/"+id+"/grades/projects/1", map[string]string{"submission": "I built a replicated log with Raft."})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var result course.GradingResult
	decode(t, rec, &result)
	if result.Score != 82 || result.Feedback != "Solid work." {
		t.Errorf("result = %+v", result)
	}

	req := f.gradeAI.LastRequest()
	if !strings.Contains(req.System, "Project 2") || !strings.Contains(req.System, "Deliverables: Source code, Design doc") {
		t.Errorf("system = %q, want rubric for the second project", req.System)
	}

	sess, err := f.store.Get(t.Context(), id)
	if err != nil {
		t.Fatal(err)
	}
	if g, ok := sess.Grades["Project:1"]; !ok || g.Result != result {
		t.Errorf("grades = %+v, want Project:1 stored", sess.Grades)
	}
}

func TestGrade_IndependentAndReplaced(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)
	f.gradeAI.Responses = []string{
		`{"score": 40, "feedback": "first"}`,
		`{"score": 70, "feedback": "other project"}`,
		`{"score": 90, "feedback": "resubmitted"}`,
	}

	f.do(t, http.MethodPost, "/api/courses/"+id+"/grades/project/0", map[string]string{"submission": "v1"})
	f.do(t, http.MethodPost, "/api/courses/"+id+"/grades/project/1", map[string]string{"submission": "other"})
	f.do(t, http.MethodPost, "/api/courses/"+id+"/grades/project/0", map[string]string{"submission": "v2"})

	sess, err := f.store.Get(t.Context(), id)
	if err != nil {
		t.Fatal(err)
	}
	if got := sess.Grades["Project:0"].Result.Score; got != 90 {
		t.Errorf("Project:0 score = %d, want 90 (replaced)", got)
	}
	if got := sess.Grades["Project:1"].Result.Score; got != 70 {
		t.Errorf("Project:1 score = %d, want 70 (untouched)", got)
	}
}

func TestGrade_Fallback(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)
	f.gradeAI.Err = errors.New("503 from backend")

	rec := f.do(t, http.MethodPost, "/api/courses/"+id+"/grades/capstone/0", map[string]string{"submission": "My capstone."})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var result course.GradingResult
	decode(t, rec, &result)
	want := course.GradingResult{Score: 0, Feedback: "Error generating grade. Please try again."}
	if result != want {
		t.Errorf("result = %+v, want %+v", result, want)
	}
}

func TestGrade_BadInput(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       any
		wantStatus int
	}{
		{"unknown kind", "/grades/essay/0", map[string]string{"submission": "x"}, http.StatusBadRequest},
		{"non-numeric index", "/grades/project/first", map[string]string{"submission": "x"}, http.StatusBadRequest},
		{"index out of range", "/grades/assignment/5", map[string]string{"submission": "x"}, http.StatusBadRequest},
		{"capstone index", "/grades/capstone/1", map[string]string{"submission": "x"}, http.StatusBadRequest},
		{"empty submission", "/grades/project/0", map[string]string{"submission": "  "}, http.StatusBadRequest},
		{"malformed json", "/grades/project/0", "nope", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			id := f.create(t)

			rec := f.do(t, http.MethodPost, "/api/courses/"+id+tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if len(f.gradeAI.Requests()) != 0 {
				t.Error("backend should not be called for invalid input")
			}
		})
	}
}

func TestGrade_TooLarge(t *testing.T) {
	f := newFixture(t, httpapi.WithMaxSubmissionBytes(64))
	id := f.create(t)

	rec := f.do(t, http.MethodPost, "/api/courses/"+id+"/grades/projects/0",
		map[string]string{"submission": strings.Repeat("x", 200)})
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
	if len(f.gradeAI.Requests()) != 0 {
		t.Error("oversized submission should not reach the grader")
	}
}

func TestGrade_UnknownCourse(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/courses/missing/grades/project/0", map[string]string{"submission": "x"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)

	rec := f.do(t, http.MethodGet, "/api/courses/"+id+"/export.xlsx", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != export.ContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="CS244.xlsx"` {
		t.Errorf("Content-Disposition = %q", cd)
	}

	wb, err := excelize.OpenReader(rec.Body)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer wb.Close()
	rows, err := wb.GetRows(export.SheetSyllabus)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1+10*2 {
		t.Errorf("syllabus rows = %d, want 21", len(rows))
	}
}

func TestExport_UnknownCourse(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/courses/missing/export.xlsx", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
