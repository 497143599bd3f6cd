package search

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/seekdocs/tansaku/internal/answer"
	"github.com/seekdocs/tansaku/internal/models"
	"github.com/seekdocs/tansaku/internal/rerank"
	"github.com/seekdocs/tansaku/pkg/utils"
)

// Hit text is truncated for transport; the full chunk stays in the store.
const maxHitChars = 1200

// Answerer produces a grounded answer with citations from ranked candidates.
type Answerer interface {
	Answer(ctx context.Context, query string, candidates []models.Candidate) (string, []string, error)
}

// CandidateSource yields fused retrieval candidates for a query.
// *Retriever is the production implementation.
type CandidateSource interface {
	Retrieve(ctx context.Context, query string, k int, filters *models.SearchFilters) ([]models.Candidate, bool, error)
}

// Engine ties retrieval, reranking, and answering together.
type Engine struct {
	retriever CandidateSource
	reranker  rerank.Reranker
	answerer  Answerer
	logger    *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithReranker sets the cross-encoder reranker. Without one, candidates are
// ranked by fusion score alone.
func WithReranker(r rerank.Reranker) EngineOption {
	return func(e *Engine) { e.reranker = r }
}

// WithAnswerer enables answer synthesis.
func WithAnswerer(a Answerer) EngineOption {
	return func(e *Engine) { e.answerer = a }
}

// WithEngineLogger sets the logger.
func WithEngineLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates a search engine over the candidate source.
func NewEngine(retriever CandidateSource, opts ...EngineOption) *Engine {
	e := &Engine{retriever: retriever, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search validates and executes a search request. Component failures after
// retrieval degrade the response rather than failing it: a broken reranker
// falls back to fusion order, a broken answerer drops the answer. Both mark
// the response degraded.
func (e *Engine) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	candidates, degraded, err := e.retriever.Retrieve(ctx, req.Query, req.K, req.Filters)
	if err != nil {
		return nil, err
	}

	ranked := e.rank(ctx, req.Query, candidates, req.K, &degraded)

	resp := &models.SearchResponse{
		Hits:            toHits(ranked),
		SuggestedFacets: suggestFacets(ranked),
		Status:          models.StatusOK,
	}

	if *req.ReturnAnswer && e.answerer != nil && len(ranked) > 0 {
		text, cites, err := e.answerer.Answer(ctx, req.Query, ranked)
		switch {
		case err == nil:
			resp.Answer = text
			resp.Citations = cites
		case errors.Is(err, answer.ErrUnanswerable):
			e.logger.Info("query unanswerable", zap.String("query", req.Query))
			degraded = true
		default:
			e.logger.Warn("answer synthesis failed", zap.Error(err))
			degraded = true
		}
	}

	if degraded {
		resp.Status = models.StatusDegraded
	}
	resp.QueryTime = time.Since(start).Milliseconds()
	return resp, nil
}

func (e *Engine) rank(ctx context.Context, query string, candidates []models.Candidate, k int, degraded *bool) []models.Candidate {
	if e.reranker != nil {
		ranked, err := rerank.Rank(ctx, e.reranker, query, candidates, k)
		if err == nil {
			return ranked
		}
		e.logger.Warn("reranking failed, keeping fusion order", zap.Error(err))
		*degraded = true
	}

	out := make([]models.Candidate, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out
}

func toHits(candidates []models.Candidate) []models.SearchHit {
	hits := make([]models.SearchHit, 0, len(candidates))
	for _, c := range candidates {
		hits = append(hits, models.SearchHit{
			DocID:   c.DocID,
			ChunkID: c.ChunkID,
			Title:   c.Title,
			Heading: c.Heading,
			Page:    c.Page,
			Text:    utils.Truncate(c.Text, maxHitChars),
			Score:   c.Score,
			Tags:    c.Tags,
		})
	}
	return hits
}

// suggestFacets collects namespaced tag values from the ranked candidates,
// grouped by namespace, deduplicated and sorted.
func suggestFacets(candidates []models.Candidate) map[string][]string {
	seen := map[string]map[string]bool{
		"Domain":  {},
		"DocType": {},
	}
	for _, c := range candidates {
		for _, tag := range c.Tags {
			ns, value, ok := strings.Cut(tag, "/")
			if !ok || value == "" {
				continue
			}
			if values, tracked := seen[ns]; tracked {
				values[value] = true
			}
		}
	}

	facets := make(map[string][]string, len(seen))
	for ns, values := range seen {
		list := make([]string, 0, len(values))
		for v := range values {
			list = append(list, v)
		}
		sort.Strings(list)
		facets[ns] = list
	}
	return facets
}
