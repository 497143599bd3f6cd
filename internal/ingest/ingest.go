// Package ingest runs the document ingestion pipeline: extract, deduplicate,
// classify, chunk, embed, persist.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seekdocs/tansaku/internal/embedding"
	"github.com/seekdocs/tansaku/internal/extract"
	"github.com/seekdocs/tansaku/internal/models"
	"github.com/seekdocs/tansaku/internal/store"
	"github.com/seekdocs/tansaku/internal/tagging"
	"github.com/seekdocs/tansaku/pkg/utils"
)

const (
	maxTitleChars   = 120
	minTitleLineLen = 6
	excerptChars    = 8000
)

// piiPattern catches SSN-shaped numbers, ten-digit numbers, and email
// addresses. A match escalates the document to Confidential.
var piiPattern = regexp.MustCompile(`(?i)(\b\d{3}[-.\s]?\d{2}[-.\s]?\d{4}\b|\b\d{10}\b|\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b)`)

// Ingestor runs the full pipeline for one file at a time.
type Ingestor struct {
	store              store.Store
	extractor          *extract.Extractor
	chunker            *Chunker
	classifier         *tagging.Classifier
	embedder           embedding.Embedder
	defaultSensitivity models.Sensitivity
	logger             *zap.Logger
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(i *Ingestor) { i.logger = logger }
}

// WithDefaultSensitivity sets the sensitivity applied when neither the PII
// rule nor the classifier escalates. Defaults to Internal.
func WithDefaultSensitivity(s models.Sensitivity) Option {
	return func(i *Ingestor) {
		if s.Valid() {
			i.defaultSensitivity = s
		}
	}
}

// New creates an Ingestor over the given collaborators.
func New(s store.Store, ex *extract.Extractor, ch *Chunker, cl *tagging.Classifier, em embedding.Embedder, opts ...Option) *Ingestor {
	i := &Ingestor{
		store:              s,
		extractor:          ex,
		chunker:            ch,
		classifier:         cl,
		embedder:           em,
		defaultSensitivity: models.SensitivityInternal,
		logger:             zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Ingest processes the file at path. Identical content (by hash) is skipped
// and the existing document's identity returned. Extraction failures persist
// nothing. Classification failures degrade to defaults but never block the
// pipeline; chunks are committed in a single transaction after the document.
func (i *Ingestor) Ingest(ctx context.Context, path string) (*models.IngestResult, error) {
	extracted, err := i.extractor.Extract(path)
	if err != nil {
		return nil, err
	}

	hash := ContentHash(extracted.Text)
	if existing, err := i.store.GetDocumentByHash(ctx, hash); err == nil {
		n, err := i.store.CountChunks(ctx, existing.ID)
		if err != nil {
			return nil, err
		}
		i.logger.Info("duplicate content, skipping",
			zap.String("path", path), zap.String("doc_id", existing.ID))
		return &models.IngestResult{DocID: existing.ID, Chunks: n, Skipped: true}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	title := guessTitle(path, extracted.Text)
	ruleSensitivity := i.ruleSensitivity(extracted.Text)

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	now := time.Now().UTC()
	doc := &models.Document{
		ID:            uuid.NewString(),
		Title:         title,
		SourcePath:    abs,
		DocType:       guessDocType(path),
		Lang:          extracted.Lang,
		Sensitivity:   ruleSensitivity,
		Tags:          []string{},
		Topics:        []string{},
		OCRConfidence: extracted.OCRConfidence,
		ContentHash:   hash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := i.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to persist document: %w", err)
	}

	tagged := i.classifier.Classify(ctx, title, utils.Truncate(extracted.Text, excerptChars))
	// The PII rule is a floor: the model can escalate sensitivity but
	// never lower it below a rule-detected Confidential.
	if ruleSensitivity == models.SensitivityConfidential {
		tagged.Sensitivity = models.SensitivityConfidential
	}
	tags := tagged.NamespacedTags()
	if err := i.store.SetClassification(ctx, doc.ID, tagged.TagSet, tags); err != nil {
		return nil, fmt.Errorf("failed to persist classification: %w", err)
	}

	pieces := i.chunker.Chunk(extracted.Text)
	if len(pieces) > 0 {
		embeddings, err := i.embedder.EmbedPassages(ctx, pieces)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunks: %w", err)
		}
		if len(embeddings) != len(pieces) {
			return nil, fmt.Errorf("got %d embeddings for %d chunks", len(embeddings), len(pieces))
		}
		chunks := make([]models.Chunk, len(pieces))
		for idx, text := range pieces {
			chunks[idx] = models.Chunk{
				ID:        uuid.NewString(),
				DocID:     doc.ID,
				Index:     idx,
				Text:      text,
				Embedding: embeddings[idx],
				CreatedAt: now,
			}
		}
		if err := i.store.InsertChunks(ctx, chunks); err != nil {
			return nil, fmt.Errorf("failed to persist chunks: %w", err)
		}
	}

	i.logger.Info("document ingested",
		zap.String("doc_id", doc.ID),
		zap.String("title", title),
		zap.Int("chunks", len(pieces)),
		zap.Bool("degraded", tagged.Degraded))

	return &models.IngestResult{
		DocID:       doc.ID,
		Chunks:      len(pieces),
		Tags:        tags,
		Topics:      tagged.Topics,
		Sensitivity: string(tagged.Sensitivity),
		Confidence:  tagged.Confidence,
		Degraded:    tagged.Degraded,
	}, nil
}

// guessTitle prefers the first substantial line of text over the file name.
func guessTitle(path, text string) string {
	first := utils.FirstNonBlankLine(text)
	if len(first) >= minTitleLineLen {
		return utils.Truncate(first, maxTitleChars)
	}
	return filepath.Base(path)
}

// guessDocType is a provisional file-format label, replaced by the
// classifier's vocabulary label once tagging completes.
func guessDocType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "pdf"
	case ".docx":
		return "docx"
	case ".csv", ".xlsx":
		return "table"
	default:
		return "txt"
	}
}

func (i *Ingestor) ruleSensitivity(text string) models.Sensitivity {
	if strings.Contains(strings.ToLower(text), "confidential") || piiPattern.MatchString(text) {
		return models.SensitivityConfidential
	}
	return i.defaultSensitivity
}
