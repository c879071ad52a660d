package course_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-course/internal/ai"
	"github.com/p-n-ai/pai-course/internal/course"
	"github.com/p-n-ai/pai-course/internal/course/coursetest"
)

func TestGenerator_TopicOnly(t *testing.T) {
	mock := ai.NewMockProvider(coursetest.JSON(t, coursetest.Course(10)))
	gen := course.NewGenerator(mock)

	c, err := gen.Generate(context.Background(), "Intro to Distributed Systems", nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if len(c.Modules) != 10 {
		t.Errorf("modules = %d, want 10", len(c.Modules))
	}
	if c.Code == "" || c.Title == "" || c.Department == "" || c.Instructor == "" || c.Description == "" {
		t.Errorf("top-level fields missing: %+v", c)
	}
	if c.Prerequisites == nil || c.LearningOutcomes == nil || c.Assignments == nil || c.Projects == nil {
		t.Error("required lists should be non-nil")
	}

	req := mock.LastRequest()
	if req == nil {
		t.Fatal("no request captured")
	}
	parts := req.Messages[0].ContentParts()
	if len(parts) != 1 {
		t.Fatalf("parts = %d, want 1 text part", len(parts))
	}
	want := `Create the course website content based on the following syllabus/topic input: "Intro to Distributed Systems"`
	if parts[0].Text != want {
		t.Errorf("text = %q, want %q", parts[0].Text, want)
	}
}

func TestGenerator_RequestConfig(t *testing.T) {
	gen := course.NewGenerator(ai.NewMockProvider("{}"))
	req := gen.Request("Compilers", nil)

	if req.Temperature == nil || *req.Temperature != 0.3 {
		t.Errorf("temperature = %v, want 0.3", req.Temperature)
	}
	if req.ResponseMIMEType != ai.MIMETypeJSON {
		t.Errorf("response mime = %q, want %q", req.ResponseMIMEType, ai.MIMETypeJSON)
	}
	if req.ResponseSchema == nil || len(req.ResponseSchema.Required) != 11 {
		t.Errorf("response schema should require 11 top-level fields, got %+v", req.ResponseSchema)
	}
	if !strings.Contains(req.System, "8-12 weeks") {
		t.Errorf("system instruction missing week range: %q", req.System)
	}
	if req.Task != ai.TaskGeneration {
		t.Errorf("task = %v, want generation", req.Task)
	}
}

func TestGenerator_DocumentParts(t *testing.T) {
	tests := []struct {
		name     string
		topic    string
		wantText string
	}{
		{
			name:     "empty topic falls back",
			topic:    "",
			wantText: "Additional Instructions: Use the document provided.",
		},
		{
			name:     "topic as additional instructions",
			topic:    "Focus on Raft",
			wantText: "Additional Instructions: Focus on Raft",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := course.NewGenerator(ai.NewMockProvider("{}"))
			doc := &course.Document{Data: "JVBERi0xLjQK", MIMEType: course.MIMETypePDF}

			parts := gen.Request(tt.topic, doc).Messages[0].ContentParts()
			if len(parts) != 2 {
				t.Fatalf("parts = %d, want 2", len(parts))
			}
			if parts[0].InlineData == nil {
				t.Fatal("first part should be the binary attachment")
			}
			if parts[0].InlineData.MIMEType != "application/pdf" || parts[0].InlineData.Data != "JVBERi0xLjQK" {
				t.Errorf("attachment = %+v", parts[0].InlineData)
			}
			if !strings.HasSuffix(parts[1].Text, tt.wantText) {
				t.Errorf("instruction = %q, want suffix %q", parts[1].Text, tt.wantText)
			}
		})
	}
}

func TestGenerator_DocumentStripsDataURL(t *testing.T) {
	gen := course.NewGenerator(ai.NewMockProvider("{}"))
	doc := &course.Document{Data: "data:application/pdf;base64,JVBERi0xLjQK", MIMEType: course.MIMETypePDF}

	parts := gen.Request("", doc).Messages[0].ContentParts()
	if parts[0].InlineData.Data != "JVBERi0xLjQK" {
		t.Errorf("data = %q, want prefix stripped", parts[0].InlineData.Data)
	}
}

func TestGenerator_Failures(t *testing.T) {
	tests := []struct {
		name     string
		provider *ai.MockProvider
		want     error
	}{
		{"backend error", &ai.MockProvider{Err: errors.New("status 500")}, course.ErrBackend},
		{"empty response", ai.NewMockProvider(""), course.ErrEmptyResponse},
		{"blank response", ai.NewMockProvider("   "), course.ErrEmptyResponse},
		{"not json", ai.NewMockProvider("Here is your course!"), course.ErrDecode},
		{"missing modules", ai.NewMockProvider(`{"code":"CS1"}`), course.ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := course.NewGenerator(tt.provider)

			c, err := gen.Generate(context.Background(), "Databases", nil)
			if err == nil {
				t.Fatal("Generate() should fail")
			}
			if c != nil {
				t.Errorf("Generate() returned partial course %+v", c)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			var genErr *course.GenerationError
			if !errors.As(err, &genErr) {
				t.Errorf("error type = %T, want *GenerationError", err)
			}
		})
	}
}

func TestGenerator_InvalidReportsFields(t *testing.T) {
	c := coursetest.Course(8)
	c.Modules[2].Readings[0].Type = "Podcast"
	mock := ai.NewMockProvider(coursetest.JSON(t, c))

	_, err := course.NewGenerator(mock).Generate(context.Background(), "x", nil)

	var vErr *course.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	found := false
	for _, f := range vErr.Fields {
		if strings.Contains(f.Field, "modules.2.readings.0.type") {
			found = true
		}
	}
	if !found {
		t.Errorf("fields = %v, want modules.2.readings.0.type", vErr.Fields)
	}
}

func TestGenerator_NullListRejected(t *testing.T) {
	body := strings.Replace(coursetest.JSON(t, coursetest.Course(8)), `"prerequisites":["CS110","CS161"]`, `"prerequisites":null`, 1)
	mock := ai.NewMockProvider(body)

	_, err := course.NewGenerator(mock).Generate(context.Background(), "x", nil)
	if !errors.Is(err, course.ErrInvalid) {
		t.Errorf("error = %v, want ErrInvalid", err)
	}
}

func TestGenerator_NoSemanticChecks(t *testing.T) {
	c := coursetest.Course(3)
	c.Modules[0].WeekNumber = 7
	c.Modules[1].Readings[1].URL = "not a url"
	mock := ai.NewMockProvider(coursetest.JSON(t, c))

	got, err := course.NewGenerator(mock).Generate(context.Background(), "x", nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Modules[0].WeekNumber != 7 || len(got.Modules) != 3 {
		t.Errorf("content should pass through unchanged, got %+v", got.Modules)
	}
}

func TestGenerator_Idempotent(t *testing.T) {
	mock := ai.NewMockProvider(coursetest.JSON(t, coursetest.Course(12)))
	gen := course.NewGenerator(mock)

	first, err := gen.Generate(context.Background(), "Operating Systems", nil)
	if err != nil {
		t.Fatalf("first Generate() error = %v", err)
	}
	second, err := gen.Generate(context.Background(), "Operating Systems", nil)
	if err != nil {
		t.Fatalf("second Generate() error = %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("identical input against a deterministic backend should yield equal courses")
	}
	reqs := mock.Requests()
	if !reflect.DeepEqual(reqs[0], reqs[1]) {
		t.Error("identical input should build identical requests")
	}
}

func TestGenerator_Model(t *testing.T) {
	mock := ai.NewMockProvider(coursetest.JSON(t, coursetest.Course(8)))
	gen := course.NewGenerator(mock, course.WithGeneratorModel("gemini-2.5-pro"))

	if _, err := gen.Generate(context.Background(), "x", nil); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if mock.LastRequest().Model != "gemini-2.5-pro" {
		t.Errorf("model = %q, want gemini-2.5-pro", mock.LastRequest().Model)
	}
}
