// Package store persists documents and chunks and serves the two retrieval
// branches (vector similarity and keyword rank).
package store

import (
	"context"
	"errors"

	"github.com/seekdocs/tansaku/internal/models"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("not found")

// Stats summarizes stored content for the status endpoint.
type Stats struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
}

// Store is the persistence interface. Both search branches apply the same
// filters and join document metadata into the returned candidates.
type Store interface {
	// CreateDocument inserts a new document row.
	CreateDocument(ctx context.Context, doc *models.Document) error
	// SetClassification updates the tagging fields of a document.
	SetClassification(ctx context.Context, docID string, tags models.TagSet, namespacedTags []string) error
	// GetDocument returns the document with the given id, or ErrNotFound.
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	// GetDocumentByHash returns the document with the given content hash,
	// or ErrNotFound.
	GetDocumentByHash(ctx context.Context, hash string) (*models.Document, error)
	// DeleteDocument removes a document and its chunks, or ErrNotFound.
	DeleteDocument(ctx context.Context, id string) error

	// InsertChunks stores all chunks of a document in one transaction.
	// Either every chunk is committed or none.
	InsertChunks(ctx context.Context, chunks []models.Chunk) error
	// CountChunks returns the number of chunks belonging to a document.
	CountChunks(ctx context.Context, docID string) (int, error)

	// VectorSearch returns up to limit candidates by cosine similarity to
	// the query embedding. VectorScore is set; KeywordScore is zero.
	VectorSearch(ctx context.Context, embedding []float32, limit int, filters *models.SearchFilters) ([]models.Candidate, error)
	// KeywordSearch returns up to limit candidates matching the query
	// lexically, best rank first. KeywordScore is set; VectorScore is zero.
	KeywordSearch(ctx context.Context, query string, limit int, filters *models.SearchFilters) ([]models.Candidate, error)

	// GetStats returns document and chunk counts.
	GetStats(ctx context.Context) (Stats, error)

	Close()
}
