package course

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/p-n-ai/pai-course/internal/ai"
)

// Generator turns a topic and/or document into a CourseSpec with one
// backend round trip. It holds no per-call state.
type Generator struct {
	provider  ai.Provider
	catalog   *Catalog
	model     string
	schema    *ai.Schema
	validator *Validator
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithGeneratorCatalog overrides the embedded prompt catalog.
func WithGeneratorCatalog(c *Catalog) GeneratorOption {
	return func(g *Generator) {
		g.catalog = c
	}
}

// WithGeneratorModel pins the backend model.
func WithGeneratorModel(model string) GeneratorOption {
	return func(g *Generator) {
		g.model = model
	}
}

// NewGenerator creates a course generator backed by p.
func NewGenerator(p ai.Provider, opts ...GeneratorOption) *Generator {
	schema := CourseSchema()
	g := &Generator{
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

// Request builds the backend request for topic and doc. The caller
// guarantees at least one of them is meaningful.
func (g *Generator) Request(topic string, doc *Document) ai.CompletionRequest {
	var parts []ai.Part
	if doc != nil {
		parts = []ai.Part{
			ai.BlobPart(doc.MIMEType, doc.payload()),
			ai.TextPart(g.catalog.DocumentPrompt(topic)),
		}
	} else {
		parts = []ai.Part{ai.TextPart(g.catalog.TopicPrompt(topic))}
	}

	return ai.CompletionRequest{
		Messages:         []ai.Message{{Role: "user", Parts: parts}},
		System:           strings.TrimSpace(g.catalog.Generation.System),
		Model:            g.model,
		Temperature:      ai.Float(g.catalog.Generation.Temperature),
		ResponseMIMEType: ai.MIMETypeJSON,
		ResponseSchema:   g.schema,
		Task:             ai.TaskGeneration,
	}
}

// Generate produces a course. Every failure is a *GenerationError; there is
// no retry and no partial result.
func (g *Generator) Generate(ctx context.Context, topic string, doc *Document) (*CourseSpec, error) {
	attrs := []any{"topic_len", len(topic), "has_document", doc != nil}
	if doc != nil {
		attrs = append(attrs, "document", doc.Fingerprint())
	}
	slog.Info("generating course", attrs...)

	resp, err := g.provider.Complete(ctx, g.Request(topic, doc))
	if err != nil {
		slog.Error("course generation failed", "error", err)
		if errors.Is(err, ai.ErrEmptyResponse) {
			return nil, &GenerationError{Err: ErrEmptyResponse, Wrapped: err}
		}
		return nil, &GenerationError{Err: ErrBackend, Wrapped: err}
	}

	c, err := g.decode(resp.Content)
	if err != nil {
		slog.Error("course generation failed", "model", resp.Model, "error", err)
		return nil, err
	}

	slog.Info("course generated",
		"code", c.Code,
		"modules", len(c.Modules),
		"model", resp.Model,
		"output_tokens", resp.OutputTokens,
	)
	return c, nil
}

func (g *Generator) decode(text string) (*CourseSpec, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &GenerationError{Err: ErrEmptyResponse}
	}

	raw := []byte(text)
	if err := g.validator.Validate(raw); err != nil {
		if errors.Is(err, ErrDecode) {
			return nil, &GenerationError{Err: ErrDecode, Wrapped: err}
		}
		return nil, &GenerationError{Err: ErrInvalid, Wrapped: err}
	}

	var c CourseSpec
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, &GenerationError{Err: ErrDecode, Wrapped: err}
	}
	return &c, nil
}
