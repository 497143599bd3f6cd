// Package search runs hybrid retrieval: a vector branch and a keyword branch
// fused additively, optionally reranked and answered.
package search

import (
	"sort"

	"github.com/seekdocs/tansaku/internal/models"
)

// Fuse merges the two branch result lists into one candidate set. Candidates
// are deduplicated by chunk id; a chunk found by both branches gets the sum
// of its branch scores, a chunk found by one branch scores as if the other
// branch gave it zero. Scores are not normalized before fusion. The result
// is ordered by fused score descending, chunk id ascending on ties.
func Fuse(vector, keyword []models.Candidate) []models.Candidate {
	merged := make(map[string]models.Candidate, len(vector)+len(keyword))
	for _, c := range vector {
		merged[c.ChunkID] = c
	}
	for _, c := range keyword {
		if existing, ok := merged[c.ChunkID]; ok {
			existing.KeywordScore = c.KeywordScore
			merged[c.ChunkID] = existing
		} else {
			merged[c.ChunkID] = c
		}
	}

	out := make([]models.Candidate, 0, len(merged))
	for _, c := range merged {
		c.Score = c.VectorScore + c.KeywordScore
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	return out
}
