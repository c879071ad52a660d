// Package coursetest provides schema-valid course fixtures for tests.
package coursetest

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/p-n-ai/pai-course/internal/course"
)

// Course returns a fully populated course with the given number of weeks,
// two assignments, two projects, and a capstone.
func Course(weeks int) *course.CourseSpec {
	c := &course.CourseSpec{
		Code:             "CS244",
		Title:            "Intro to Distributed Systems",
		Department:       "Computer Science",
		Instructor:       "Prof. Leslie Lamport",
		Description:      "Consensus, replication, and the art of failing gracefully.",
		Prerequisites:    []string{"CS110", "CS161"},
		LearningOutcomes: []string{"Reason about partial failure", "Implement Raft"},
		Capstone: course.Capstone{
			Title:       "Industry-Scale Capstone Project",
			Description: "Build a system that solves a problem in a domain of your choice.",
			Requirements: course.Requirements{
				Complexity:        "Microservices",
				DataScale:         ">10GB dataset",
				Deployment:        "Kubernetes, CI/CD",
				IndustryStandards: "Unit Testing >80%",
			},
			SuggestedTopics: []string{"Payments", "Telemetry", "Search"},
			Milestones:      []string{"Proposal", "Prototype", "Final"},
			Deliverables:    []string{"Code", "Report", "Demo"},
		},
	}

	for i := 1; i <= weeks; i++ {
		c.Modules = append(c.Modules, course.Module{
			WeekNumber:  i,
			Topic:       fmt.Sprintf("Week %d topic", i),
			Description: "What we cover this week.",
			KeyConcepts: []string{"consistency", "availability"},
			Readings: []course.Reading{
				{Title: "Paxos Made Simple", Author: "Lamport", Type: course.ReadingPaper, Description: "Classic."},
				{Title: "Raft lecture", Author: "Ongaro", Type: course.ReadingVideo, Description: "Talk.", URL: "https://www.youtube.com/watch?v=YbZ3zDzDnrw"},
			},
		})
	}

	for i := 1; i <= 2; i++ {
		c.Assignments = append(c.Assignments, course.Assignment{
			Title:                 fmt.Sprintf("Problem Set %d", i),
			Description:           "Implement a linearizable key-value store.",
			EstimatedHours:        10,
			TechnicalRequirements: []string{"Go 1.22+", "Max 256MB memory"},
			RelevantLinks:         []course.Link{{Title: "MIT 6.824 Lab 2", URL: "https://pdos.csail.mit.edu/6.824/"}},
		})
		c.Projects = append(c.Projects, course.Project{
			Title:        fmt.Sprintf("Project %d", i),
			Description:  "Build a replicated log.",
			Technologies: []string{"Go", "gRPC"},
			Deliverables: []string{"Source code", "Design doc"},
		})
	}
	return c
}

// JSON marshals c, failing the test on error.
func JSON(t testing.TB, c *course.CourseSpec) string {
	t.Helper()
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal course: %v", err)
	}
	return string(data)
}
