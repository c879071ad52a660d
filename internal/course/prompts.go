package course

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// Catalog holds the prompt text sent to the backend. It is versioned
// configuration, loaded from YAML.
type Catalog struct {
	Version    int               `yaml:"version"`
	Generation GenerationPrompts `yaml:"generation"`
	Grading    GradingPrompts    `yaml:"grading"`

	documentTmpl *template.Template
	topicTmpl    *template.Template
	systemTmpl   *template.Template
	contentTmpl  *template.Template
}

// GenerationPrompts configures course generation.
type GenerationPrompts struct {
	Temperature      float64 `yaml:"temperature"`
	System           string  `yaml:"system"`
	DocumentPrompt   string  `yaml:"document_prompt"`
	DocumentFallback string  `yaml:"document_fallback"`
	TopicPrompt      string  `yaml:"topic_prompt"`
}

// GradingPrompts configures submission grading.
type GradingPrompts struct {
	System           string `yaml:"system"`
	Content          string `yaml:"content"`
	FallbackFeedback string `yaml:"fallback_feedback"`
}

// ParseCatalog parses and compiles a YAML prompt catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse prompt catalog: %w", err)
	}

	required := map[string]string{
		"generation.system":            c.Generation.System,
		"generation.document_prompt":   c.Generation.DocumentPrompt,
		"generation.document_fallback": c.Generation.DocumentFallback,
		"generation.topic_prompt":      c.Generation.TopicPrompt,
		"grading.system":               c.Grading.System,
		"grading.content":              c.Grading.Content,
		"grading.fallback_feedback":    c.Grading.FallbackFeedback,
	}
	for key, v := range required {
		if strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("prompt catalog: %s is required", key)
		}
	}

	var err error
	if c.documentTmpl, err = template.New("document").Parse(c.Generation.DocumentPrompt); err != nil {
		return nil, fmt.Errorf("prompt catalog: document_prompt: %w", err)
	}
	if c.topicTmpl, err = template.New("topic").Parse(c.Generation.TopicPrompt); err != nil {
		return nil, fmt.Errorf("prompt catalog: topic_prompt: %w", err)
	}
	if c.systemTmpl, err = template.New("grading").Parse(c.Grading.System); err != nil {
		return nil, fmt.Errorf("prompt catalog: grading.system: %w", err)
	}
	if c.contentTmpl, err = template.New("content").Parse(c.Grading.Content); err != nil {
		return nil, fmt.Errorf("prompt catalog: grading.content: %w", err)
	}

	sample := Submission{Kind: KindAssignment, Title: "t", Requirements: "r", Text: "s"}
	checks := []struct {
		tmpl *template.Template
		data any
	}{
		{c.documentTmpl, "topic"},
		{c.topicTmpl, "topic"},
		{c.systemTmpl, sample},
		{c.contentTmpl, sample},
	}
	for _, chk := range checks {
		if err := chk.tmpl.Execute(io.Discard, chk.data); err != nil {
			return nil, fmt.Errorf("prompt catalog: %s: %w", chk.tmpl.Name(), err)
		}
	}
	return &c, nil
}

// LoadCatalog reads a prompt catalog from disk.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt catalog: %w", err)
	}
	return ParseCatalog(data)
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := ParseCatalog(defaultPrompts)
	if err != nil {
		panic(err)
	}
	return c
})

// DefaultCatalog returns the embedded prompt catalog.
func DefaultCatalog() *Catalog {
	return defaultCatalog()
}

// TopicPrompt renders the single text part used when no document is attached.
func (c *Catalog) TopicPrompt(topic string) string {
	return render(c.topicTmpl, topic)
}

// DocumentPrompt renders the text part that follows an attached document.
// An empty topic falls back to the catalog's fixed phrase.
func (c *Catalog) DocumentPrompt(topic string) string {
	if topic == "" {
		topic = c.Generation.DocumentFallback
	}
	return render(c.documentTmpl, topic)
}

// GradingSystem renders the rubric instruction for s.
func (c *Catalog) GradingSystem(s Submission) string {
	return render(c.systemTmpl, s)
}

// GradingContent renders the primary content for s.
func (c *Catalog) GradingContent(s Submission) string {
	return render(c.contentTmpl, s)
}

func render(t *template.Template, data any) string {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		// ParseCatalog executed every template against these data shapes.
		panic(fmt.Sprintf("render %s: %v", t.Name(), err))
	}
	return b.String()
}
