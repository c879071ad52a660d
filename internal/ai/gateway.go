// Package ai provides a provider-agnostic gateway to hosted generative models
// with schema-constrained output and task-based routing.
package ai

import (
	"context"
	"errors"
)

// TaskType defines the kind of AI task for routing purposes.
type TaskType int

const (
	TaskGeneration TaskType = iota
	TaskGrading
)

func (t TaskType) String() string {
	switch t {
	case TaskGeneration:
		return "generation"
	case TaskGrading:
		return "grading"
	default:
		return "unknown"
	}
}

// MIMETypeJSON is the response encoding requested for structured output.
const MIMETypeJSON = "application/json"

var (
	// ErrEmptyResponse is returned when the backend answers without a text payload.
	ErrEmptyResponse = errors.New("no content in response")
	// ErrUnsupportedPart is returned when a provider cannot carry a content part.
	ErrUnsupportedPart = errors.New("unsupported content part")
)

// InlineData is a base64-encoded binary attachment.
type InlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Part is one element of a message. Exactly one of Text or InlineData is set.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// TextPart returns a text-only part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// BlobPart returns a binary part tagged with its MIME type.
func BlobPart(mimeType, data string) Part {
	return Part{InlineData: &InlineData{MIMEType: mimeType, Data: data}}
}

// Message represents a chat message. When Parts is empty the message is a
// single text part holding Content.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`
	Parts   []Part `json:"parts,omitempty"`
}

// ContentParts returns the ordered parts of the message.
func (m Message) ContentParts() []Part {
	if len(m.Parts) > 0 {
		return m.Parts
	}
	return []Part{TextPart(m.Content)}
}

// CompletionRequest is the input to an AI completion.
type CompletionRequest struct {
	Messages         []Message `json:"messages"`
	System           string    `json:"system,omitempty"`
	Model            string    `json:"model,omitempty"`
	MaxTokens        int       `json:"max_tokens,omitempty"`
	Temperature      *float64  `json:"temperature,omitempty"` // nil leaves the provider default
	ResponseMIMEType string    `json:"response_mime_type,omitempty"`
	ResponseSchema   *Schema   `json:"response_schema,omitempty"`
	Task             TaskType  `json:"task,omitempty"`
}

// CompletionResponse is the output from an AI completion.
type CompletionResponse struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// TotalTokens returns the sum of input and output tokens.
func (r CompletionResponse) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// ModelInfo describes an available model.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MaxTokens   int    `json:"max_tokens"`
	Description string `json:"description"`
}

// Provider is the interface all AI providers must implement.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	Models() []ModelInfo
	HealthCheck(ctx context.Context) error
}

// Float returns a pointer to v, for optional request knobs.
func Float(v float64) *float64 {
	return &v
}
