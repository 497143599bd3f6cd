package models

// Candidate is a retrieval candidate produced by the hybrid retriever.
// Score is the additive fusion of the branch scores until reranking runs;
// after reranking it holds the cross-encoder relevance score.
type Candidate struct {
	ChunkID      string
	DocID        string
	ChunkIndex   int
	Title        string
	Heading      string
	Page         int
	Text         string
	Tags         []string
	Score        float64
	VectorScore  float64
	KeywordScore float64
}

// SearchHit is a single result returned to the caller. Text is truncated
// to 1200 characters.
type SearchHit struct {
	DocID   string   `json:"doc_id"`
	ChunkID string   `json:"chunk_id"`
	Title   string   `json:"title"`
	Heading string   `json:"heading,omitempty"`
	Page    int      `json:"page,omitempty"`
	Text    string   `json:"text"`
	Score   float64  `json:"score"`
	Tags    []string `json:"tags"`
}

// Search response status values. StatusDegraded means hits were produced but
// answer synthesis (or reranking) was unavailable.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// SearchResponse is the response for a search request. Answer and Citations
// are omitted when answering was disabled, unanswerable, or degraded.
type SearchResponse struct {
	Hits            []SearchHit         `json:"hits"`
	Answer          string              `json:"answer,omitempty"`
	Citations       []string            `json:"citations,omitempty"`
	SuggestedFacets map[string][]string `json:"suggested_facets,omitempty"`
	Status          string              `json:"status"`
	QueryTime       int64               `json:"query_time_ms"`
}

// IngestResult is returned by the ingestion pipeline. Skipped is true when
// the content hash already existed; the original document's identity and
// chunk count are returned in that case.
type IngestResult struct {
	DocID       string   `json:"doc_id"`
	Chunks      int      `json:"chunks"`
	Tags        []string `json:"tags,omitempty"`
	Topics      []string `json:"topics,omitempty"`
	Sensitivity string   `json:"sensitivity,omitempty"`
	Confidence  float64  `json:"confidence,omitempty"`
	Skipped     bool     `json:"skipped,omitempty"`
	// Degraded is true when classification fell back to defaults.
	Degraded bool `json:"degraded,omitempty"`
}
