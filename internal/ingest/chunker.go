package ingest

import (
	"strings"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

// Chunker splits extracted text into retrieval-sized pieces along sentence
// boundaries. Sizes are measured in tokens; when the tokenizer is unavailable
// a character heuristic is used instead.
type Chunker struct {
	targetTokens  int
	overlapTokens int
	enc           *tiktoken.Tiktoken
}

// NewChunker creates a chunker. Zero values default to 800 target tokens with
// 80 tokens of overlap using the cl100k_base encoding.
func NewChunker(targetTokens, overlapTokens int, encoding string) *Chunker {
	if targetTokens <= 0 {
		targetTokens = 800
	}
	if overlapTokens < 0 {
		overlapTokens = 80
	}
	if encoding == "" {
		encoding = "cl100k_base"
	}
	c := &Chunker{targetTokens: targetTokens, overlapTokens: overlapTokens}
	if enc, err := tiktoken.GetEncoding(encoding); err == nil {
		c.enc = enc
	}
	return c
}

func (c *Chunker) countTokens(s string) int {
	if c.enc != nil {
		return len(c.enc.Encode(s, nil, nil))
	}
	// Rough tokenizer-free approximation: one token per four characters.
	n := (len(s) + 3) / 4
	if n == 0 && s != "" {
		n = 1
	}
	return n
}

// Chunk splits text into sentence-aligned pieces of roughly targetTokens
// tokens. Consecutive chunks overlap by a few trailing sentences sized to
// approximate overlapTokens, always at least one sentence. A single sentence
// larger than the target becomes its own chunk. Empty text yields no chunks.
func (c *Chunker) Chunk(text string) []string {
	sentences := splitSentences(text)
	var chunks []string
	var buff []string
	count := 0

	for _, s := range sentences {
		t := c.countTokens(s)
		if count+t > c.targetTokens && len(buff) > 0 {
			chunks = append(chunks, strings.Join(buff, " "))
			keep := c.overlapTokens / maxInt(1, t)
			if keep < 1 {
				keep = 1
			}
			if keep > len(buff) {
				keep = len(buff)
			}
			buff = append([]string(nil), buff[len(buff)-keep:]...)
			count = 0
			for _, kept := range buff {
				count += c.countTokens(kept)
			}
		}
		buff = append(buff, s)
		count += t
	}
	if len(buff) > 0 {
		chunks = append(chunks, strings.Join(buff, " "))
	}
	return chunks
}

// splitSentences breaks text after terminal punctuation followed by
// whitespace. Whitespace-only segments are dropped.
func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	runes := []rune(text)
	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			out = append(out, s)
		}
		b.Reset()
	}
	for i, r := range runes {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				flush()
			}
		}
	}
	flush()
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
