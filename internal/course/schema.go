package course

import "github.com/p-n-ai/pai-course/internal/ai"

func readingTypeNames() []string {
	names := make([]string, len(ReadingTypes))
	for i, t := range ReadingTypes {
		names[i] = string(t)
	}
	return names
}

func stringList(description string) *ai.Schema {
	return ai.ArrayOf(ai.String("")).Describe(description)
}

// CourseSchema declares the CourseSpec shape sent with every generation
// request. Every list is required.
func CourseSchema() *ai.Schema {
	reading := ai.Object(map[string]*ai.Schema{
		"title":       ai.String(""),
		"author":      ai.String(""),
		"type":        ai.Enum(readingTypeNames()...),
		"description": ai.String("Brief summary of the reading and why it is relevant to this week."),
		"url":         ai.String("URL to the resource. MANDATORY for 'Video' type (YouTube link)."),
	}, "title", "author", "type", "description")

	module := ai.Object(map[string]*ai.Schema{
		"weekNumber":  ai.Integer(""),
		"topic":       ai.String(""),
		"description": ai.String(""),
		"keyConcepts": stringList(""),
		"readings":    ai.ArrayOf(reading),
	}, "weekNumber", "topic", "description", "keyConcepts", "readings")

	link := ai.Object(map[string]*ai.Schema{
		"title": ai.String("Title of the resource, e.g. 'LeetCode: Two Sum'"),
		"url":   ai.String("URL to the problem or resource"),
	}, "title", "url")

	assignment := ai.Object(map[string]*ai.Schema{
		"title":                 ai.String(""),
		"description":           ai.String("Detailed, step-by-step technical instructions for the assignment."),
		"estimatedHours":        ai.Integer(""),
		"technicalRequirements": stringList("Specific technical constraints (e.g. 'Use Python 3.8+', 'Max runtime 2s', 'Implement O(n log n) sort')"),
		"relevantLinks": ai.ArrayOf(link).Describe(
			"Links to relevant external practice problems (LeetCode, Kaggle, Project Euler) or documentation."),
	}, "title", "description", "estimatedHours", "technicalRequirements", "relevantLinks")

	project := ai.Object(map[string]*ai.Schema{
		"title":        ai.String(""),
		"description":  ai.String(""),
		"technologies": stringList(""),
		"deliverables": stringList(""),
	}, "title", "description", "technologies", "deliverables")

	requirements := ai.Object(map[string]*ai.Schema{
		"complexity":        ai.String("Required technical complexity (e.g., Microservices, Custom Architecture)"),
		"dataScale":         ai.String("Data requirements (e.g., >10GB dataset, Real-time streaming)"),
		"deployment":        ai.String("Deployment requirements (e.g., Kubernetes, CI/CD, <100ms latency)"),
		"industryStandards": ai.String("Compliance/Standards (e.g., GDPR, Unit Testing >80%, Documentation)"),
	}, "complexity", "dataScale", "deployment", "industryStandards")

	capstone := ai.Object(map[string]*ai.Schema{
		"title":           ai.String("Title like 'Industry-Scale Capstone Project'"),
		"description":     ai.String("Explanation that the project is open-ended but strictly constrained by technical requirements."),
		"requirements":    requirements,
		"suggestedTopics": stringList("3-4 broad domains or problem areas students can choose from."),
		"milestones":      stringList("Phases of development."),
		"deliverables":    stringList("Final submission items (Code, Report, Demo)."),
	}, "title", "description", "requirements", "suggestedTopics", "milestones", "deliverables")

	return ai.Object(map[string]*ai.Schema{
		"code":             ai.String("Course code, e.g., CS224n"),
		"title":            ai.String("Official course title"),
		"department":       ai.String("Department name, e.g., Computer Science"),
		"instructor":       ai.String("Name of the professor (can be fictional or famous AI figure)"),
		"description":      ai.String("2-3 paragraphs describing the course in academic tone"),
		"prerequisites":    stringList(""),
		"learningOutcomes": stringList(""),
		"modules":          ai.ArrayOf(module),
		"assignments":      ai.ArrayOf(assignment),
		"projects":         ai.ArrayOf(project),
		"capstone":         capstone,
	},
		"code", "title", "department", "instructor", "description",
		"prerequisites", "learningOutcomes", "modules", "assignments", "projects", "capstone",
	)
}

// GradingSchema declares the strict {score, feedback} reply.
func GradingSchema() *ai.Schema {
	return ai.Object(map[string]*ai.Schema{
		"score":    ai.Integer("Score out of 100"),
		"feedback": ai.String("Constructive feedback and analysis of the submission"),
	}, "score", "feedback")
}
