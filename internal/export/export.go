// Package export renders a generated course as an xlsx workbook.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-course/internal/course"
)

// Sheet names, in workbook order.
const (
	SheetOverview    = "Overview"
	SheetSyllabus    = "Syllabus"
	SheetAssignments = "Assignments"
	SheetProjects    = "Projects"
	SheetCapstone    = "Capstone"
)

// listSep joins list fields into a single cell.
const listSep = "; "

// ContentType is the MIME type of the workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type sheet struct {
	name   string
	header []string
	widths []float64
	rows   [][]any
}

// WriteWorkbook writes c to w as an xlsx workbook with one sheet per course
// section. The Syllabus sheet has one row per reading; a week without
// readings still gets a row.
func WriteWorkbook(w io.Writer, c *course.CourseSpec) error {
	if c == nil {
		return fmt.Errorf("course is required")
	}

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	sheets := []sheet{overview(c), syllabus(c), assignments(c), projects(c), capstone(c)}
	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("create sheet %s: %w", s.name, err)
		}
		if err := writeSheet(f, s, bold); err != nil {
			return fmt.Errorf("write sheet %s: %w", s.name, err)
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, s sheet, headerStyle int) error {
	header := make([]any, len(s.header))
	for i, h := range s.header {
		header[i] = h
	}
	if err := f.SetSheetRow(s.name, "A1", &header); err != nil {
		return err
	}
	if err := f.SetRowStyle(s.name, 1, 1, headerStyle); err != nil {
		return err
	}

	for i, row := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(s.name, cell, &row); err != nil {
			return err
		}
	}

	for i, width := range s.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(s.name, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

func overview(c *course.CourseSpec) sheet {
	return sheet{
		name:   SheetOverview,
		header: []string{"Field", "Value"},
		widths: []float64{20, 80},
		rows: [][]any{
			{"Code", c.Code},
			{"Title", c.Title},
			{"Department", c.Department},
			{"Instructor", c.Instructor},
			{"Description", c.Description},
			{"Prerequisites", strings.Join(c.Prerequisites, listSep)},
			{"Learning Outcomes", strings.Join(c.LearningOutcomes, listSep)},
		},
	}
}

func syllabus(c *course.CourseSpec) sheet {
	s := sheet{
		name:   SheetSyllabus,
		header: []string{"Week", "Topic", "Key Concepts", "Reading", "Author", "Type", "URL"},
		widths: []float64{8, 30, 40, 40, 24, 10, 40},
	}
	for _, m := range c.Modules {
		concepts := strings.Join(m.KeyConcepts, listSep)
		if len(m.Readings) == 0 {
			s.rows = append(s.rows, []any{m.WeekNumber, m.Topic, concepts, "", "", "", ""})
			continue
		}
		for _, r := range m.Readings {
			s.rows = append(s.rows, []any{m.WeekNumber, m.Topic, concepts, r.Title, r.Author, string(r.Type), r.URL})
		}
	}
	return s
}

func assignments(c *course.CourseSpec) sheet {
	s := sheet{
		name:   SheetAssignments,
		header: []string{"#", "Title", "Description", "Estimated Hours", "Technical Requirements", "Links"},
		widths: []float64{4, 30, 60, 16, 40, 50},
	}
	for i, a := range c.Assignments {
		links := make([]string, len(a.RelevantLinks))
		for j, l := range a.RelevantLinks {
			links[j] = l.Title + " (" + l.URL + ")"
		}
		s.rows = append(s.rows, []any{
			i + 1, a.Title, a.Description, a.EstimatedHours,
			strings.Join(a.TechnicalRequirements, listSep), strings.Join(links, listSep),
		})
	}
	return s
}

func projects(c *course.CourseSpec) sheet {
	s := sheet{
		name:   SheetProjects,
		header: []string{"#", "Title", "Description", "Technologies", "Deliverables"},
		widths: []float64{4, 30, 60, 30, 40},
	}
	for i, p := range c.Projects {
		s.rows = append(s.rows, []any{
			i + 1, p.Title, p.Description,
			strings.Join(p.Technologies, listSep), strings.Join(p.Deliverables, listSep),
		})
	}
	return s
}

func capstone(c *course.CourseSpec) sheet {
	cp := c.Capstone
	return sheet{
		name:   SheetCapstone,
		header: []string{"Field", "Value"},
		widths: []float64{20, 80},
		rows: [][]any{
			{"Title", cp.Title},
			{"Description", cp.Description},
			{"Complexity", cp.Requirements.Complexity},
			{"Data Scale", cp.Requirements.DataScale},
			{"Deployment", cp.Requirements.Deployment},
			{"Industry Standards", cp.Requirements.IndustryStandards},
			{"Suggested Topics", strings.Join(cp.SuggestedTopics, listSep)},
			{"Milestones", strings.Join(cp.Milestones, listSep)},
			{"Deliverables", strings.Join(cp.Deliverables, listSep)},
		},
	}
}
