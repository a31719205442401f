package curriculum

import "github.com/google/uuid"

// Chunk is the unit of retrieval: one embeddable piece of curriculum text
// plus its descriptive metadata. The JSON field names match the ingestion
// payload and the search response wire format; the text body travels as
// "chunks". The embedding is never serialized, and neither is the term:
// it scopes ingestion and deletion but is not part of a search result.
type Chunk struct {
	ID           uuid.UUID `json:"-"`
	Grade        string    `json:"grade"`
	Subject      string    `json:"subject"`
	Term         string    `json:"-"`
	UnitNumber   string    `json:"unit_number"`
	UnitName     string    `json:"unit_name"`
	LessonNumber string    `json:"lesson_number"`
	LessonName   string    `json:"lesson_name"`
	IdeaTitle    string    `json:"idea_title"`
	Content      string    `json:"chunks"`
}

// Scored is a search hit: the chunk plus its cosine similarity score in
// descending-score order.
type Scored struct {
	Chunk
	Score float32 `json:"score"`
}

// ScopeSummary describes one ingested {grade, subject, term} scope:
// how many chunks it holds and how many still await an embedding.
type ScopeSummary struct {
	Grade   string `json:"grade"`
	Subject string `json:"subject"`
	Term    string `json:"term,omitempty"`
	Total   int    `json:"total"`
	Pending int    `json:"pending"`
}

// Filter restricts a vector search by metadata before ranking.
// Grades with one element is an exact match; multiple elements form a
// set-membership filter (cumulative grade search). An empty Subject means
// no subject restriction.
type Filter struct {
	Grades  []string
	Subject string
}
