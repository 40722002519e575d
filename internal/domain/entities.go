package domain

import "time"

// SourceKind identifies how a source entered the knowledge base.
type SourceKind string

const (
	KindText     SourceKind = "txt"
	KindMarkdown SourceKind = "md"
	KindHTML     SourceKind = "html"
	KindPDF      SourceKind = "pdf"
	KindDOCX     SourceKind = "docx"
	KindURL      SourceKind = "url"
	KindDocument SourceKind = "doc"
	KindQnA      SourceKind = "qna"
)

// QnASourceID is the source label shared by every Q&A chunk.
const QnASourceID = "qna"

// Source is the origin of a set of chunks. ID is the label stored on every chunk
// and used for citation and deletion.
type Source struct {
	ID   string
	Kind SourceKind
	Name string
	URL  string
}

// Metadata returns the per-chunk metadata recorded for this source.
func (s Source) Metadata() map[string]string {
	m := map[string]string{
		"source": s.ID,
		"type":   string(s.Kind),
	}
	if s.URL != "" {
		m["url"] = s.URL
	}
	if s.Name != "" {
		m["name"] = s.Name
	}
	return m
}

// Chunk is a bounded window of a source's text. ID is assigned by the vector store.
type Chunk struct {
	ID       string
	SourceID string
	Index    int
	Text     string
	Metadata map[string]string
}

// QueryResultItem is one retrieved chunk with its distance and derived similarity.
type QueryResultItem struct {
	ChunkID    string            `json:"chunk_id"`
	Source     string            `json:"source"`
	Index      int               `json:"index"`
	Text       string            `json:"text"`
	Distance   float64           `json:"distance"`
	Similarity float64           `json:"similarity"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Snippet returns the first n characters of the chunk text, with "..." when cut.
func (q QueryResultItem) Snippet(n int) string {
	runes := []rune(q.Text)
	if n <= 0 || len(runes) <= n {
		return q.Text
	}
	return string(runes[:n]) + "..."
}

// Answer is the result of a question: generated text plus the chunks it used.
type Answer struct {
	Question  string            `json:"question"`
	Text      string            `json:"answer"`
	Sources   []QueryResultItem `json:"sources"`
	Generated bool              `json:"generated"`
}

// Prompt is a generation request. Text is the fully rendered prompt; Context
// and Question are kept for generators that work on the parts directly.
type Prompt struct {
	System   string
	Text     string
	Question string
	Context  []string
}

// SourceSummary describes a source known to the store.
type SourceSummary struct {
	ID     string `json:"id"`
	Kind   string `json:"type"`
	Chunks int    `json:"chunks"`
}

// Stats describes the current state of the knowledge base.
type Stats struct {
	Chunks    int
	Dimension int
	UpdatedAt time.Time // zero until the first change
}
