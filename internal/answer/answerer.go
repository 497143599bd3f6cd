// Package answer synthesizes a grounded answer from retrieval candidates.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/seekdocs/tansaku/internal/genai"
	"github.com/seekdocs/tansaku/internal/models"
)

// ErrUnanswerable is returned when no answer can be produced, either because
// there are no candidates or the model gave nothing usable.
var ErrUnanswerable = errors.New("unanswerable")

// Context sent to the model is capped; whole blocks are dropped rather than
// truncated mid-block.
const defaultContextChars = 8000

const maxCitations = 5

const systemPrompt = "You answer questions using only the provided context. " +
	"Cite sources inline using their [docID#chunkIdx] markers. " +
	"If the context does not contain the answer, say you cannot answer from the available documents."

// Answerer produces answers with citations from ranked candidates.
type Answerer struct {
	client        genai.Client
	contextBudget int
	logger        *zap.Logger
}

// Option configures an Answerer.
type Option func(*Answerer)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Answerer) { a.logger = logger }
}

// WithContextBudget overrides the character budget for the model context.
func WithContextBudget(chars int) Option {
	return func(a *Answerer) {
		if chars > 0 {
			a.contextBudget = chars
		}
	}
}

// New creates an Answerer backed by the given generation client.
func New(client genai.Client, opts ...Option) *Answerer {
	a := &Answerer{client: client, contextBudget: defaultContextChars, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BuildContext renders candidates as "[docID#chunkIdx] text" blocks separated
// by blank lines, in the given order, keeping whole blocks under the character
// budget. It returns the rendered context and how many candidates made it in.
func BuildContext(candidates []models.Candidate, budget int) (string, int) {
	var b strings.Builder
	used := 0
	for _, c := range candidates {
		block := fmt.Sprintf("[%s#%d] %s", c.DocID, c.ChunkIndex, c.Text)
		extra := len(block)
		if b.Len() > 0 {
			extra += 2
		}
		if b.Len()+extra > budget {
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(block)
		used++
	}
	return b.String(), used
}

// Answer generates a grounded answer for the query from the candidates.
// Citations name the top candidates that were part of the model context, at
// most five. Returns ErrUnanswerable when there is nothing to answer from.
func (a *Answerer) Answer(ctx context.Context, query string, candidates []models.Candidate) (string, []string, error) {
	if len(candidates) == 0 {
		return "", nil, ErrUnanswerable
	}

	contextText, used := BuildContext(candidates, a.contextBudget)
	if used == 0 {
		return "", nil, ErrUnanswerable
	}

	prompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextText, query)
	text, err := a.client.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		a.logger.Warn("answer generation failed", zap.Error(err))
		return "", nil, fmt.Errorf("%w: %v", ErrUnanswerable, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil, ErrUnanswerable
	}

	n := used
	if n > maxCitations {
		n = maxCitations
	}
	citations := make([]string, 0, n)
	for _, c := range candidates[:n] {
		citations = append(citations, fmt.Sprintf("%s#%d", c.DocID, c.ChunkIndex))
	}
	return text, citations, nil
}
