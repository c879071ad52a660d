package course_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/p-n-ai/pai-course/internal/ai"
	"github.com/p-n-ai/pai-course/internal/course"
)

const fallbackFeedback = "Error generating grade. Please try again."

func sampleSubmission() course.Submission {
	return course.Submission{
		Kind:         course.KindProject,
		Title:        "Replicated Log",
		Requirements: "Build a replicated log. Deliverables: Code, Report",
		Text:         "I implemented Raft with snapshotting.",
	}
}

func TestGrader_Grade(t *testing.T) {
	mock := ai.NewMockProvider(`{"score":85,"feedback":"Solid work."}`)
	grader := course.NewGrader(mock)

	got := grader.Grade(context.Background(), sampleSubmission())
	if got.Score != 85 || got.Feedback != "Solid work." {
		t.Errorf("Grade() = %+v, want {85 Solid work.}", got)
	}
}

func TestGrader_Request(t *testing.T) {
	grader := course.NewGrader(ai.NewMockProvider("{}"))
	req := grader.Request(sampleSubmission())

	for _, want := range []string{
		"grade student submissions for Projects",
		"Context Title: Replicated Log",
		"Requirements/Description: Build a replicated log. Deliverables: Code, Report",
		"score from 0 to 100",
		"too short or irrelevant, give a low score",
	} {
		if !strings.Contains(req.System, want) {
			t.Errorf("system instruction missing %q", want)
		}
	}
	if got := req.Messages[0].Content; got != `Student Submission: "I implemented Raft with snapshotting."` {
		t.Errorf("content = %q", got)
	}
	if req.Temperature != nil {
		t.Errorf("grading should not send a temperature, got %v", *req.Temperature)
	}
	if req.ResponseSchema == nil || len(req.ResponseSchema.Required) != 2 {
		t.Errorf("schema = %+v, want score and feedback required", req.ResponseSchema)
	}
	if req.Task != ai.TaskGrading {
		t.Errorf("task = %v, want grading", req.Task)
	}
}

func TestGrader_ScoreNotClamped(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  int
	}{
		{"above range", `{"score":150,"feedback":"generous"}`, 150},
		{"below range", `{"score":-5,"feedback":"harsh"}`, -5},
		{"in range", `{"score":0,"feedback":"empty"}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grader := course.NewGrader(ai.NewMockProvider(tt.reply))

			got, err := grader.Evaluate(context.Background(), sampleSubmission())
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got.Score != tt.want {
				t.Errorf("score = %d, want %d", got.Score, tt.want)
			}
		})
	}
}

func TestGrader_FallbackOnFailure(t *testing.T) {
	tests := []struct {
		name     string
		provider *ai.MockProvider
		want     error
	}{
		{"backend error", &ai.MockProvider{Err: errors.New("status 503")}, course.ErrBackend},
		{"empty response", ai.NewMockProvider(""), course.ErrEmptyResponse},
		{"not json", ai.NewMockProvider("85/100"), course.ErrDecode},
		{"wrong shape", ai.NewMockProvider(`{"score":"high"}`), course.ErrInvalid},
		{"fractional score", ai.NewMockProvider(`{"score":85.5,"feedback":"x"}`), course.ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grader := course.NewGrader(tt.provider)

			_, err := grader.Evaluate(context.Background(), sampleSubmission())
			if !errors.Is(err, tt.want) {
				t.Errorf("Evaluate() error = %v, want %v", err, tt.want)
			}
			var gradeErr *course.GradeError
			if !errors.As(err, &gradeErr) {
				t.Errorf("error type = %T, want *GradeError", err)
			}

			got := grader.Grade(context.Background(), sampleSubmission())
			if got.Score != 0 || got.Feedback != fallbackFeedback {
				t.Errorf("Grade() = %+v, want fallback", got)
			}
		})
	}
}

func TestGrader_ConcurrentCalls(t *testing.T) {
	grader := course.NewGrader(ai.NewMockProvider(`{"score":70,"feedback":"ok"}`))

	results := make([]course.GradingResult, 3)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := sampleSubmission()
			s.Text = strings.Repeat("x", i+1)
			results[i] = grader.Grade(context.Background(), s)
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		if r.Score != 70 {
			t.Errorf("result %d = %+v, want score 70", i, r)
		}
	}
}
