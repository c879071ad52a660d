package course

import (
	"fmt"
	"strings"
)

// Submission builds the grading input for the item of the given kind at
// index. The capstone only has index 0.
func (c *CourseSpec) Submission(kind SubmissionKind, index int, text string) (Submission, error) {
	s := Submission{Kind: kind, Text: text}

	switch kind {
	case KindAssignment:
		if index < 0 || index >= len(c.Assignments) {
			return Submission{}, fmt.Errorf("assignment %d out of range (have %d)", index, len(c.Assignments))
		}
		a := c.Assignments[index]
		s.Title = a.Title
		s.Requirements = a.Description
		if len(a.TechnicalRequirements) > 0 {
			s.Requirements += " Technical Requirements: " + strings.Join(a.TechnicalRequirements, ", ")
		}
	case KindProject:
		if index < 0 || index >= len(c.Projects) {
			return Submission{}, fmt.Errorf("project %d out of range (have %d)", index, len(c.Projects))
		}
		p := c.Projects[index]
		s.Title = p.Title
		s.Requirements = p.Description + " Deliverables: " + strings.Join(p.Deliverables, ", ")
	case KindCapstone:
		if index != 0 {
			return Submission{}, fmt.Errorf("capstone index must be 0, got %d", index)
		}
		r := c.Capstone.Requirements
		s.Title = c.Capstone.Title
		s.Requirements = fmt.Sprintf(
			"%s Requirements: Complexity: %s Data Scale: %s Deployment: %s Standards: %s",
			c.Capstone.Description, r.Complexity, r.DataScale, r.Deployment, r.IndustryStandards,
		)
	default:
		return Submission{}, fmt.Errorf("unknown submission kind %q", kind)
	}
	return s, nil
}
