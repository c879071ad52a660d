package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/p-n-ai/pai-course/internal/course"
	"github.com/p-n-ai/pai-course/internal/export"
	"github.com/p-n-ai/pai-course/internal/session"
)

type createCourseRequest struct {
	Topic    string           `json:"topic"`
	Document *course.Document `json:"document,omitempty"`
}

type createCourseResponse struct {
	ID     string             `json:"id"`
	Course *course.CourseSpec `json:"course"`
}

type gradeRequest struct {
	Submission string `json:"submission"`
}

func (h *Handler) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	var req createCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "document too large")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	topic := req.Topic
	if strings.TrimSpace(topic) == "" && req.Document == nil {
		respondError(w, http.StatusBadRequest, msgNeedInput)
		return
	}
	if req.Document != nil {
		if err := req.Document.Check(); err != nil {
			h.logger.Info("rejected document", "error", err)
			respondError(w, http.StatusBadRequest, msgPDFOnly)
			return
		}
	}

	// A started generation runs to completion even if the client goes away.
	ctx := context.WithoutCancel(r.Context())

	c, err := h.generator.Generate(ctx, topic, req.Document)
	if err != nil {
		respondError(w, http.StatusBadGateway, msgGenerateFailed)
		return
	}

	sess := session.Session{Topic: topic, Course: c}
	if req.Document != nil {
		sess.DocumentFingerprint = req.Document.Fingerprint()
	}
	id, err := h.store.Create(ctx, sess)
	if err != nil {
		h.logger.Error("store course session", "error", err)
		respondError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	respondJSON(w, http.StatusCreated, createCourseResponse{ID: id, Course: c})
}

func (h *Handler) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (h *Handler) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.handleStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGrade(w http.ResponseWriter, r *http.Request) {
	kind, err := course.ParseSubmissionKind(r.PathValue("kind"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "index must be an integer")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxSubmission)

	var req gradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "submission too large")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Submission) == "" {
		respondError(w, http.StatusBadRequest, msgEmptySubmit)
		return
	}

	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	sub, err := sess.Course.Submission(kind, index, req.Submission)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := context.WithoutCancel(r.Context())
	result := h.grader.Grade(ctx, sub)

	err = h.store.SetGrade(ctx, sess.ID, session.GradeKey(kind, index), session.Grade{Result: result})
	if errors.Is(err, session.ErrNotFound) {
		// The course was reset while grading; the late result is dropped.
		h.logger.Info("discarding grade for reset course", "id", sess.ID, "kind", string(kind), "index", index)
		respondError(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err != nil {
		h.handleStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, sess.Course); err != nil {
		h.logger.Error("export course", "id", sess.ID, "error", err)
		respondError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	name := unsafeFilename.ReplaceAllString(sess.Course.Code, "_")
	if name == "" {
		name = "course"
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) loadSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleStoreError(w, err)
		return nil, false
	}
	return sess, true
}

// handleStoreError maps store errors to responses.
func (h *Handler) handleStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrNotFound) {
		respondError(w, http.StatusNotFound, msgNotFound)
		return
	}
	h.logger.Error("session store error", "error", err)
	respondError(w, http.StatusInternalServerError, msgInternal)
}
