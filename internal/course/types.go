// Package course generates course websites from a topic or document and
// grades submissions against their rubrics, using a generative backend that
// is constrained by a declared response schema.
package course

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ReadingType classifies a reading.
type ReadingType string

const (
	ReadingBook    ReadingType = "Book"
	ReadingPaper   ReadingType = "Paper"
	ReadingArticle ReadingType = "Article"
	ReadingVideo   ReadingType = "Video"
)

// ReadingTypes lists the declared reading types in schema order.
var ReadingTypes = []ReadingType{ReadingBook, ReadingPaper, ReadingArticle, ReadingVideo}

// Reading is one item on a week's reading list. URL is expected for videos.
type Reading struct {
	Title       string      `json:"title"`
	Author      string      `json:"author"`
	Type        ReadingType `json:"type"`
	Description string      `json:"description"`
	URL         string      `json:"url,omitempty"`
}

// Module is one week of the course.
type Module struct {
	WeekNumber  int       `json:"weekNumber"`
	Topic       string    `json:"topic"`
	Description string    `json:"description"`
	KeyConcepts []string  `json:"keyConcepts"`
	Readings    []Reading `json:"readings"`
}

// Link is an external practice or documentation reference.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type Assignment struct {
	Title                 string   `json:"title"`
	Description           string   `json:"description"`
	EstimatedHours        int      `json:"estimatedHours"`
	TechnicalRequirements []string `json:"technicalRequirements"`
	RelevantLinks         []Link   `json:"relevantLinks"`
}

type Project struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
	Deliverables []string `json:"deliverables"`
}

// Requirements are the four constraint categories of a capstone.
type Requirements struct {
	Complexity        string `json:"complexity"`
	DataScale         string `json:"dataScale"`
	Deployment        string `json:"deployment"`
	IndustryStandards string `json:"industryStandards"`
}

type Capstone struct {
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Requirements    Requirements `json:"requirements"`
	SuggestedTopics []string     `json:"suggestedTopics"`
	Milestones      []string     `json:"milestones"`
	Deliverables    []string     `json:"deliverables"`
}

// CourseSpec is the full generated course. It is replaced wholesale, never
// patched.
type CourseSpec struct {
	Code             string       `json:"code"`
	Title            string       `json:"title"`
	Department       string       `json:"department"`
	Instructor       string       `json:"instructor"`
	Description      string       `json:"description"`
	Prerequisites    []string     `json:"prerequisites"`
	LearningOutcomes []string     `json:"learningOutcomes"`
	Modules          []Module     `json:"modules"`
	Assignments      []Assignment `json:"assignments"`
	Projects         []Project    `json:"projects"`
	Capstone         Capstone     `json:"capstone"`
}

// GradingResult is the outcome of grading one submission. Score is passed
// through from the backend without clamping.
type GradingResult struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// SubmissionKind is the category of work being graded.
type SubmissionKind string

const (
	KindAssignment SubmissionKind = "Assignment"
	KindProject    SubmissionKind = "Project"
	KindCapstone   SubmissionKind = "Capstone"
)

var titleCaser = cases.Title(language.English)

// ParseSubmissionKind parses s case-insensitively, accepting plural forms
// ("assignments").
func ParseSubmissionKind(s string) (SubmissionKind, error) {
	k := SubmissionKind(titleCaser.String(strings.TrimSuffix(strings.TrimSpace(strings.ToLower(s)), "s")))
	switch k {
	case KindAssignment, KindProject, KindCapstone:
		return k, nil
	}
	return "", fmt.Errorf("unknown submission kind %q", s)
}

// Submission is one piece of student work to grade.
type Submission struct {
	Kind         SubmissionKind
	Title        string
	Requirements string
	Text         string
}
