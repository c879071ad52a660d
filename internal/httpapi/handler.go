// Package httpapi exposes course generation, grading and export over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/pai-course/internal/course"
	"github.com/p-n-ai/pai-course/internal/session"
)

const (
	msgGenerateFailed = "Failed to generate course. Please try a different topic/file or check your API key."
	msgNeedInput      = "Enter a topic or upload a PDF."
	msgPDFOnly        = "Please upload a PDF file."
	msgEmptySubmit    = "Submission is empty."
	msgNotFound       = "course not found"
	msgInternal       = "internal error"
)

// Generator produces a course from a topic and an optional document.
type Generator interface {
	Generate(ctx context.Context, topic string, doc *course.Document) (*course.CourseSpec, error)
}

// Grader scores a submission. It never fails; errors become a fallback result.
type Grader interface {
	Grade(ctx context.Context, s course.Submission) course.GradingResult
}

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	generator     Generator
	grader        Grader
	store         session.Store
	maxUpload     int64
	maxSubmission int64
	logger        *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithMaxUploadBytes caps the request body of course creation, which carries
// the base64 document.
func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUpload = n
		}
	}
}

// WithMaxSubmissionBytes caps the request body of a grading submission.
func WithMaxSubmissionBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxSubmission = n
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

// NewHandler creates a Handler.
func NewHandler(gen Generator, grader Grader, store session.Store, opts ...Option) *Handler {
	h := &Handler{
		generator:     gen,
		grader:        grader,
		store:         store,
		maxUpload:     20 << 20,
		maxSubmission: 1 << 20,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds all routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.HandleFunc("GET /readyz", h.handleReadyz)

	mux.HandleFunc("POST /api/courses", h.handleCreateCourse)
	mux.HandleFunc("GET /api/courses/{id}", h.handleGetCourse)
	mux.HandleFunc("DELETE /api/courses/{id}", h.handleDeleteCourse)
	mux.HandleFunc("POST /api/courses/{id}/grades/{kind}/{index}", h.handleGrade)
	mux.HandleFunc("GET /api/courses/{id}/export.xlsx", h.handleExport)
}

// NewMux returns a ServeMux with every route registered.
func (h *Handler) NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := h.store.HealthCheck(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// respondJSON writes v as JSON with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
