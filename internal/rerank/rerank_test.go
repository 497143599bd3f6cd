package rerank

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekdocs/tansaku/internal/models"
)

func candidate(id string, score float64, text string) models.Candidate {
	return models.Candidate{ChunkID: id, Text: text, Score: score}
}

func TestRankSkipsModelWhenNotOverfull(t *testing.T) {
	mock := &MockReranker{}
	cands := []models.Candidate{
		candidate("a", 0.3, "alpha"),
		candidate("b", 0.9, "beta"),
	}

	out, err := Rank(context.Background(), mock, "anything", cands, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, mock.Calls, "model must not be invoked when candidates fit in topK")
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].ChunkID)
	assert.Equal(t, "a", out[1].ChunkID)
	// Fusion scores untouched.
	assert.Equal(t, 0.9, out[0].Score)
	assert.Equal(t, 0.3, out[1].Score)
}

func TestRankSkipsModelWhenFewerThanTopK(t *testing.T) {
	mock := &MockReranker{}
	out, err := Rank(context.Background(), mock, "q", []models.Candidate{candidate("only", 0.5, "x")}, 8)
	require.NoError(t, err)
	assert.Equal(t, 0, mock.Calls)
	require.Len(t, out, 1)
	assert.Equal(t, "only", out[0].ChunkID)
}

func TestRankRescoresAndTruncates(t *testing.T) {
	mock := &MockReranker{}
	cands := []models.Candidate{
		candidate("a", 0.9, "nothing relevant here"),
		candidate("b", 0.5, "postgres vacuum tuning guide"),
		candidate("c", 0.7, "postgres basics"),
	}

	out, err := Rank(context.Background(), mock, "postgres vacuum", cands, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, mock.Calls)
	require.Len(t, out, 2)
	// b matches both query terms, c one, a none.
	assert.Equal(t, "b", out[0].ChunkID)
	assert.Equal(t, "c", out[1].ChunkID)
	assert.Equal(t, 1.0, out[0].Score)
	assert.Equal(t, 0.5, out[1].Score)
}

func TestRankStableOnTies(t *testing.T) {
	mock := &MockReranker{}
	// All texts score identically; input order (fusion order) must survive.
	cands := []models.Candidate{
		candidate("first", 0.9, "same text"),
		candidate("second", 0.8, "same text"),
		candidate("third", 0.7, "same text"),
	}

	out, err := Rank(context.Background(), mock, "same", cands, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].ChunkID)
	assert.Equal(t, "second", out[1].ChunkID)
}

func TestRankModelError(t *testing.T) {
	mock := &MockReranker{Err: errors.New("model exploded")}
	cands := []models.Candidate{
		candidate("a", 0.9, "x"),
		candidate("b", 0.5, "y"),
		candidate("c", 0.7, "z"),
	}

	_, err := Rank(context.Background(), mock, "q", cands, 2)
	assert.Error(t, err)
}

func TestRankDoesNotMutateInput(t *testing.T) {
	mock := &MockReranker{}
	cands := []models.Candidate{
		candidate("a", 0.1, "postgres"),
		candidate("b", 0.2, "unrelated"),
		candidate("c", 0.3, "postgres"),
	}

	_, err := Rank(context.Background(), mock, "postgres", cands, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.1, cands[0].Score)
	assert.Equal(t, "a", cands[0].ChunkID)
}

func TestPairTokenizer(t *testing.T) {
	tok := pairTokenizer{}
	ids, mask, types := tok.Tokenize("hello world", "a passage", 16)
	require.Len(t, ids, 16)
	require.Len(t, mask, 16)
	require.Len(t, types, 16)

	assert.Equal(t, int64(clsToken), ids[0])
	assert.Equal(t, int64(0), types[0])

	// Query segment then separator then passage segment.
	sepSeen := 0
	for i, id := range ids {
		if id == sepToken {
			sepSeen++
			continue
		}
		if mask[i] == 0 {
			assert.Equal(t, int64(0), ids[i], "padding must be zeroed")
		}
	}
	assert.Equal(t, 2, sepSeen)
}
