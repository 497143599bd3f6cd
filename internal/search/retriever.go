package search

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/seekdocs/tansaku/internal/embedding"
	"github.com/seekdocs/tansaku/internal/models"
	"github.com/seekdocs/tansaku/internal/store"
)

// Branch fan-out relative to the requested k.
const (
	vectorFanout  = 4
	keywordFanout = 2
)

// Retriever runs the two retrieval branches and fuses their results.
type Retriever struct {
	store    store.Store
	embedder embedding.Embedder
	logger   *zap.Logger
}

// NewRetriever creates a retriever over the given store and embedder.
func NewRetriever(s store.Store, e embedding.Embedder, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{store: s, embedder: e, logger: logger}
}

// Retrieve returns the fused candidate set for the query. A failing branch
// degrades the result to the surviving branch; only when both branches fail
// is an error returned. An empty candidate set is not an error. degraded
// reports whether a branch was lost.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, filters *models.SearchFilters) (candidates []models.Candidate, degraded bool, err error) {
	var vector, keyword []models.Candidate
	var vecErr, kwErr error

	qvec, embErr := r.embedder.EmbedQuery(ctx, query)
	if embErr != nil {
		vecErr = embErr
	} else {
		vector, vecErr = r.store.VectorSearch(ctx, qvec, k*vectorFanout, filters)
	}
	keyword, kwErr = r.store.KeywordSearch(ctx, query, k*keywordFanout, filters)

	if vecErr != nil && kwErr != nil {
		return nil, false, errors.Join(vecErr, kwErr)
	}
	if vecErr != nil {
		r.logger.Warn("vector branch unavailable", zap.Error(vecErr))
		degraded = true
	}
	if kwErr != nil {
		r.logger.Warn("keyword branch unavailable", zap.Error(kwErr))
		degraded = true
	}

	return Fuse(vector, keyword), degraded, nil
}
