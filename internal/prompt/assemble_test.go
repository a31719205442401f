package prompt

import (
	"strings"
	"testing"

	"github.com/lernia/lernia/internal/curriculum"
)

func scored(texts ...string) []curriculum.Scored {
	out := make([]curriculum.Scored, 0, len(texts))
	for _, txt := range texts {
		out = append(out, curriculum.Scored{Chunk: curriculum.Chunk{Content: txt}})
	}
	return out
}

func TestAssemble(t *testing.T) {
	tests := []struct {
		name     string
		results  []curriculum.Scored
		question string
		subject  string
		contains []string
	}{
		{
			name:     "question and subject substituted",
			results:  scored("fractions are parts of a whole"),
			question: "what is 1/2 + 1/4?",
			subject:  "math",
			contains: []string{
				"experienced math tutor",
				"fractions are parts of a whole",
				"Student's question: what is 1/2 + 1/4?",
			},
		},
		{
			name:     "empty subject falls back to generic",
			results:  scored("chunk"),
			question: "q",
			contains: []string{"experienced school curriculum tutor"},
		},
		{
			name:     "no results still renders a prompt",
			results:  nil,
			question: "q",
			subject:  "science",
			contains: []string{"Curriculum material:", "Student's question: q"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Assemble(tt.results, tt.question, tt.subject)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("Assemble() missing %q in:\n%s", want, got)
				}
			}
		})
	}
}

func TestAssemblePreservesRankOrder(t *testing.T) {
	got := Assemble(scored("first", "second", "third"), "q", "math")

	iFirst := strings.Index(got, "first")
	iSecond := strings.Index(got, "second")
	iThird := strings.Index(got, "third")
	if iFirst < 0 || iSecond < 0 || iThird < 0 {
		t.Fatalf("Assemble() dropped a chunk:\n%s", got)
	}
	if !(iFirst < iSecond && iSecond < iThird) {
		t.Errorf("Assemble() reordered chunks: first=%d second=%d third=%d", iFirst, iSecond, iThird)
	}
}

func TestAssembleJoinsWithNewline(t *testing.T) {
	got := Assemble(scored("a", "b"), "q", "math")
	if !strings.Contains(got, "a\nb") {
		t.Errorf("Assemble() should join chunks with a newline, got:\n%s", got)
	}
}
