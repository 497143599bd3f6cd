package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekdocs/tansaku/internal/answer"
	"github.com/seekdocs/tansaku/internal/embedding"
	"github.com/seekdocs/tansaku/internal/genai"
	"github.com/seekdocs/tansaku/internal/models"
	"github.com/seekdocs/tansaku/internal/rerank"
	"github.com/seekdocs/tansaku/internal/store"
)

type stubSource struct {
	candidates []models.Candidate
	degraded   bool
	err        error
}

func (s *stubSource) Retrieve(_ context.Context, _ string, _ int, _ *models.SearchFilters) ([]models.Candidate, bool, error) {
	return s.candidates, s.degraded, s.err
}

type stubAnswerer struct {
	text  string
	cites []string
	err   error
}

func (s *stubAnswerer) Answer(_ context.Context, _ string, _ []models.Candidate) (string, []string, error) {
	return s.text, s.cites, s.err
}

func boolPtr(b bool) *bool { return &b }

func fused(id string, vec, kw float64, text string, tags ...string) models.Candidate {
	return models.Candidate{
		ChunkID: id, DocID: "doc-" + id, Text: text, Tags: tags,
		VectorScore: vec, KeywordScore: kw, Score: vec + kw,
	}
}

func TestSearchRerankInvokedOnlyWhenOverfull(t *testing.T) {
	// Three fused candidates for k=2, so the model must run.
	source := &stubSource{candidates: []models.Candidate{
		fused("A", 0, 0.8, "nothing"),
		fused("B", 0.6, 0, "vacation policy details"),
		fused("C", 0, 0.3, "nothing either"),
	}}
	mock := &rerank.MockReranker{}
	e := NewEngine(source, WithReranker(mock))

	resp, err := e.Search(context.Background(), &models.SearchRequest{
		Query: "vacation policy", K: 2, ReturnAnswer: boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, mock.Calls)
	require.Len(t, resp.Hits, 2)
	assert.Equal(t, "B", resp.Hits[0].ChunkID)
	assert.Equal(t, models.StatusOK, resp.Status)
}

func TestSearchRerankSkippedWhenNotOverfull(t *testing.T) {
	source := &stubSource{candidates: []models.Candidate{
		fused("A", 0, 0.8, "a"),
		fused("B", 0.6, 0, "b"),
	}}
	mock := &rerank.MockReranker{}
	e := NewEngine(source, WithReranker(mock))

	resp, err := e.Search(context.Background(), &models.SearchRequest{
		Query: "q", K: 2, ReturnAnswer: boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, mock.Calls)
	require.Len(t, resp.Hits, 2)
	assert.Equal(t, "A", resp.Hits[0].ChunkID)
	assert.InDelta(t, 0.8, resp.Hits[0].Score, 1e-9)
}

func TestSearchRerankFailureDegrades(t *testing.T) {
	source := &stubSource{candidates: []models.Candidate{
		fused("A", 0, 0.8, "a"),
		fused("B", 0.6, 0, "b"),
		fused("C", 0, 0.3, "c"),
	}}
	e := NewEngine(source, WithReranker(&rerank.MockReranker{Err: errors.New("model down")}))

	resp, err := e.Search(context.Background(), &models.SearchRequest{
		Query: "q", K: 2, ReturnAnswer: boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDegraded, resp.Status)
	// Fusion order survives.
	require.Len(t, resp.Hits, 2)
	assert.Equal(t, "A", resp.Hits[0].ChunkID)
	assert.Equal(t, "B", resp.Hits[1].ChunkID)
}

func TestSearchEmptyResultIsNotAnError(t *testing.T) {
	e := NewEngine(&stubSource{})
	resp, err := e.Search(context.Background(), &models.SearchRequest{Query: "q", ReturnAnswer: boolPtr(false)})
	require.NoError(t, err)
	assert.Empty(t, resp.Hits)
	assert.Equal(t, models.StatusOK, resp.Status)
}

func TestSearchValidation(t *testing.T) {
	e := NewEngine(&stubSource{})
	_, err := e.Search(context.Background(), &models.SearchRequest{Query: ""})
	assert.Error(t, err)
}

func TestSearchHitTextTruncated(t *testing.T) {
	long := strings.Repeat("a", 5000)
	e := NewEngine(&stubSource{candidates: []models.Candidate{fused("A", 0.5, 0, long)}})

	resp, err := e.Search(context.Background(), &models.SearchRequest{Query: "q", ReturnAnswer: boolPtr(false)})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)
	assert.Len(t, resp.Hits[0].Text, maxHitChars)
}

func TestSearchAnswerAttached(t *testing.T) {
	source := &stubSource{candidates: []models.Candidate{fused("A", 0.5, 0, "text")}}
	e := NewEngine(source, WithAnswerer(&stubAnswerer{text: "the answer", cites: []string{"doc-A#0"}}))

	resp, err := e.Search(context.Background(), &models.SearchRequest{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, "the answer", resp.Answer)
	assert.Equal(t, []string{"doc-A#0"}, resp.Citations)
	assert.Equal(t, models.StatusOK, resp.Status)
}

func TestSearchUnanswerableDegrades(t *testing.T) {
	source := &stubSource{candidates: []models.Candidate{fused("A", 0.5, 0, "text")}}
	e := NewEngine(source, WithAnswerer(&stubAnswerer{err: answer.ErrUnanswerable}))

	resp, err := e.Search(context.Background(), &models.SearchRequest{Query: "q"})
	require.NoError(t, err)
	assert.Empty(t, resp.Answer)
	assert.Equal(t, models.StatusDegraded, resp.Status)
}

func TestSearchFacetsFromTags(t *testing.T) {
	source := &stubSource{candidates: []models.Candidate{
		fused("A", 0.5, 0, "a", "Domain/Finance", "DocType/Invoice"),
		fused("B", 0.4, 0, "b", "Domain/Finance", "DocType/Contract"),
		fused("C", 0.3, 0, "c", "Unrelated/Tag"),
	}}
	e := NewEngine(source)

	resp, err := e.Search(context.Background(), &models.SearchRequest{Query: "q", ReturnAnswer: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, []string{"Finance"}, resp.SuggestedFacets["Domain"])
	assert.Equal(t, []string{"Contract", "Invoice"}, resp.SuggestedFacets["DocType"])
}

func TestRetrieverAgainstMemoryStore(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	emb := embedding.NewMockEmbedder(8)

	doc := &models.Document{ID: "d1", Title: "Handbook", Sensitivity: models.SensitivityInternal,
		Tags: []string{"Domain/HR", "DocType/Policy"}}
	require.NoError(t, mem.CreateDocument(ctx, doc))

	texts := []string{"vacation accrual rules", "expense reporting steps"}
	vecs, err := emb.EmbedPassages(ctx, texts)
	require.NoError(t, err)
	chunks := make([]models.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = models.Chunk{ID: string(rune('a' + i)), DocID: "d1", Index: i, Text: text, Embedding: vecs[i]}
	}
	require.NoError(t, mem.InsertChunks(ctx, chunks))

	r := NewRetriever(mem, emb, nil)
	out, degraded, err := r.Retrieve(ctx, "vacation accrual", 4, nil)
	require.NoError(t, err)
	assert.False(t, degraded)
	require.NotEmpty(t, out)
	// The keyword-matching chunk is present and carries both branch scores.
	var hit *models.Candidate
	for i := range out {
		if out[i].ChunkID == "a" {
			hit = &out[i]
		}
	}
	require.NotNil(t, hit)
	assert.Greater(t, hit.KeywordScore, 0.0)
	assert.InDelta(t, hit.VectorScore+hit.KeywordScore, hit.Score, 1e-9)
}

func TestEngineEndToEndWithMemoryStore(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	emb := embedding.NewMockEmbedder(8)

	require.NoError(t, mem.CreateDocument(ctx, &models.Document{
		ID: "d1", Title: "Handbook", Sensitivity: models.SensitivityInternal,
		Tags: []string{"Domain/HR", "DocType/Policy"},
	}))
	vecs, err := emb.EmbedPassages(ctx, []string{"vacation accrues monthly at two days"})
	require.NoError(t, err)
	require.NoError(t, mem.InsertChunks(ctx, []models.Chunk{
		{ID: "c1", DocID: "d1", Index: 0, Text: "vacation accrues monthly at two days", Embedding: vecs[0]},
	}))

	answerer := answer.New(&genai.MockClient{Responses: []string{"Two days per month [d1#0]."}})
	e := NewEngine(NewRetriever(mem, emb, nil), WithAnswerer(answerer))

	resp, err := e.Search(ctx, &models.SearchRequest{Query: "vacation accrual"})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "Two days per month [d1#0].", resp.Answer)
	assert.Equal(t, []string{"d1#0"}, resp.Citations)
	assert.Equal(t, models.StatusOK, resp.Status)
}
