// Package prompt renders the fixed tutoring prompt from retrieved
// curriculum context and the student's question.
package prompt

import (
	"strings"
	"text/template"

	"github.com/lernia/lernia/internal/curriculum"
)

// tutorTemplate is pure substitution: an empty context still renders a
// valid prompt, and the generator's system instructions are what decline
// out-of-scope questions, not assembly logic here.
var tutorTemplate = template.Must(template.New("tutor").Parse(
	`You are an experienced {{.Subject}} tutor helping a school student.

Follow these rules strictly:
- Base your answer only on the curriculum material below. Do not invent facts beyond it.
- Explain step by step, and verify each step before moving to the next.
- Keep the explanation at the student's level and encourage them to reason along.
- Answer in the same language the student used.

Curriculum material:
{{.Context}}

Student's question: {{.Question}}
`))

type templateData struct {
	Subject  string
	Context  string
	Question string
}

// Assemble concatenates the retrieved chunk texts, highest similarity
// first, and renders the tutoring template around them.
func Assemble(results []curriculum.Scored, question, subject string) string {
	texts := make([]string, 0, len(results))
	for _, r := range results {
		texts = append(texts, r.Content)
	}

	if subject == "" {
		subject = "school curriculum"
	}

	var b strings.Builder
	// The template is static and the data is plain strings; Execute cannot
	// fail against a strings.Builder.
	_ = tutorTemplate.Execute(&b, templateData{
		Subject:  subject,
		Context:  strings.Join(texts, "\n"),
		Question: question,
	})
	return b.String()
}
