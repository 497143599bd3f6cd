// Package rerank re-scores retrieval candidates with a pairwise
// cross-encoder relevance model.
package rerank

import (
	"context"
	"fmt"
	"sort"

	"github.com/seekdocs/tansaku/internal/models"
)

// Reranker scores (query, text) pairs. Scores are comparable only within
// one call; higher means more relevant.
type Reranker interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
	Close() error
}

// Rank returns the top-K candidates for the query. The relevance model is
// invoked only when there are more candidates than topK; otherwise the
// candidates are returned sorted by their existing fusion score, descending.
// After reranking, Score holds the cross-encoder score and the fusion score
// is kept only in the branch fields.
func Rank(ctx context.Context, r Reranker, query string, candidates []models.Candidate, topK int) ([]models.Candidate, error) {
	out := make([]models.Candidate, len(candidates))
	copy(out, candidates)
	if len(out) <= topK {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
		return out, nil
	}

	texts := make([]string, len(out))
	for i, c := range out {
		texts[i] = c.Text
	}
	scores, err := r.Score(ctx, query, texts)
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}
	if len(scores) != len(out) {
		return nil, fmt.Errorf("rerank: got %d scores for %d candidates", len(scores), len(out))
	}
	for i := range out {
		out[i].Score = scores[i]
	}
	// Stable: ties preserve input (fusion) order.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}
