package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// heuristicChunker bypasses the tokenizer so counts are deterministic:
// one token per four characters.
func heuristicChunker(target, overlap int) *Chunker {
	return &Chunker{targetTokens: target, overlapTokens: overlap}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"whitespace", "  \n\t ", nil},
		{"single", "Hello world.", []string{"Hello world."}},
		{"multiple", "One. Two! Three?", []string{"One.", "Two!", "Three?"}},
		{"no terminal", "no punctuation here", []string{"no punctuation here"}},
		{"decimal not split", "Pay 3.50 now. Then leave.", []string{"Pay 3.50 now.", "Then leave."}},
		{"newline separator", "First.\nSecond.", []string{"First.", "Second."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitSentences(tt.in))
		})
	}
}

func TestChunkEmpty(t *testing.T) {
	c := heuristicChunker(800, 80)
	assert.Empty(t, c.Chunk(""))
	assert.Empty(t, c.Chunk("   \n  "))
}

func TestChunkShortTextSingleChunk(t *testing.T) {
	c := heuristicChunker(800, 80)
	out := c.Chunk("One sentence. Another sentence.")
	require.Len(t, out, 1)
	assert.Equal(t, "One sentence. Another sentence.", out[0])
}

func TestChunkSplitsWithOverlap(t *testing.T) {
	// Each sentence is 16 chars = 4 heuristic tokens. Target 10 fits two
	// sentences; the third triggers a flush keeping one trailing sentence.
	var sentences []string
	for _, word := range []string{"aaaa", "bbbb", "cccc", "dddd", "eeee"} {
		sentences = append(sentences, "sent "+word+" end.")
	}
	c := heuristicChunker(10, 4)
	out := c.Chunk(strings.Join(sentences, " "))

	require.Greater(t, len(out), 1)
	for i := 1; i < len(out); i++ {
		prevLast := lastSentence(out[i-1])
		assert.True(t, strings.HasPrefix(out[i], prevLast),
			"chunk %d should start with the overlap sentence %q, got %q", i, prevLast, out[i])
	}
}

func lastSentence(chunk string) string {
	parts := splitSentences(chunk)
	return parts[len(parts)-1]
}

func TestChunkOversizedSentence(t *testing.T) {
	big := strings.Repeat("word ", 200) + "end."
	c := heuristicChunker(10, 4)
	out := c.Chunk("Small one. " + big + " Small two.")
	require.Len(t, out, 3)
	assert.Equal(t, "Small one.", out[0])
	assert.Contains(t, out[1], "word word")
	// The oversized sentence is still the overlap carried into the last chunk.
	assert.True(t, strings.HasSuffix(out[2], "Small two."))
}

func TestContentHash(t *testing.T) {
	a := ContentHash("same text")
	b := ContentHash("same text")
	c := ContentHash("other text")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
