package course

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/p-n-ai/pai-course/internal/ai"
)

// Grader scores free-text submissions against a rubric.
type Grader struct {
	provider  ai.Provider
	catalog   *Catalog
	model     string
	schema    *ai.Schema
	validator *Validator
}

// GraderOption configures a Grader.
type GraderOption func(*Grader)

// WithGraderCatalog overrides the embedded prompt catalog.
func WithGraderCatalog(c *Catalog) GraderOption {
	return func(g *Grader) {
		g.catalog = c
	}
}

// WithGraderModel pins the backend model.
func WithGraderModel(model string) GraderOption {
	return func(g *Grader) {
		g.model = model
	}
}

// NewGrader creates a grader backed by p.
func NewGrader(p ai.Provider, opts ...GraderOption) *Grader {
	schema := GradingSchema()
	g := &Grader{
		provider:  p,
		catalog:   DefaultCatalog(),
		schema:    schema,
		validator: MustValidator(schema),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Request builds the backend request for s. No temperature is sent.
func (g *Grader) Request(s Submission) ai.CompletionRequest {
	return ai.CompletionRequest{
		Messages:         []ai.Message{{Role: "user", Content: g.catalog.GradingContent(s)}},
		System:           strings.TrimSpace(g.catalog.GradingSystem(s)),
		Model:            g.model,
		ResponseMIMEType: ai.MIMETypeJSON,
		ResponseSchema:   g.schema,
		Task:             ai.TaskGrading,
	}
}

// Fallback is the result Grade returns when evaluation fails.
func (g *Grader) Fallback() GradingResult {
	return GradingResult{Score: 0, Feedback: g.catalog.Grading.FallbackFeedback}
}

// Evaluate grades s and reports failures as *GradeError. The score is
// returned exactly as the backend produced it.
func (g *Grader) Evaluate(ctx context.Context, s Submission) (GradingResult, error) {
	resp, err := g.provider.Complete(ctx, g.Request(s))
	if err != nil {
		if errors.Is(err, ai.ErrEmptyResponse) {
			return GradingResult{}, &GradeError{Err: ErrEmptyResponse, Wrapped: err}
		}
		return GradingResult{}, &GradeError{Err: ErrBackend, Wrapped: err}
	}

	if strings.TrimSpace(resp.Content) == "" {
		return GradingResult{}, &GradeError{Err: ErrEmptyResponse}
	}

	raw := []byte(resp.Content)
	if err := g.validator.Validate(raw); err != nil {
		if errors.Is(err, ErrDecode) {
			return GradingResult{}, &GradeError{Err: ErrDecode, Wrapped: err}
		}
		return GradingResult{}, &GradeError{Err: ErrInvalid, Wrapped: err}
	}

	var result GradingResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return GradingResult{}, &GradeError{Err: ErrDecode, Wrapped: err}
	}
	return result, nil
}

// Grade always returns a result: any failure of Evaluate is logged and
// replaced by Fallback.
func (g *Grader) Grade(ctx context.Context, s Submission) GradingResult {
	result, err := g.Evaluate(ctx, s)
	if err != nil {
		slog.Error("grading error",
			"kind", string(s.Kind),
			"title", s.Title,
			"error", err,
		)
		return g.Fallback()
	}

	slog.Info("submission graded", "kind", string(s.Kind), "title", s.Title, "score", result.Score)
	return result
}
