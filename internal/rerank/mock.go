package rerank

import (
	"context"
	"strings"
)

// MockReranker is a deterministic reranker for tests: the score is the
// fraction of query terms present in the text.
type MockReranker struct {
	Err   error
	Calls int
}

// Score counts query-term overlap per text.
func (m *MockReranker) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	terms := strings.Fields(strings.ToLower(query))
	scores := make([]float64, len(texts))
	for i, text := range texts {
		if len(terms) == 0 {
			continue
		}
		lower := strings.ToLower(text)
		hits := 0
		for _, term := range terms {
			if strings.Contains(lower, term) {
				hits++
			}
		}
		scores[i] = float64(hits) / float64(len(terms))
	}
	return scores, nil
}

// Close is a no-op for MockReranker.
func (m *MockReranker) Close() error { return nil }
