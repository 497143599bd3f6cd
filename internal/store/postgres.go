package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/seekdocs/tansaku/internal/models"
)

// Lexical index cap: only the first part of very large chunks is indexed.
const tsvMaxChars = 50000

// Postgres is the pgvector-backed Store implementation.
type Postgres struct {
	pool   *pgxpool.Pool
	dims   int
	logger *zap.Logger
}

// PostgresOption configures a Postgres store.
type PostgresOption func(*Postgres)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) PostgresOption {
	return func(p *Postgres) { p.logger = logger }
}

// NewPostgres connects to the database and ensures the schema exists.
// dims is the embedding dimensionality of the vector column.
func NewPostgres(ctx context.Context, connString string, dims int, opts ...PostgresOption) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	p := &Postgres{pool: pool, dims: dims, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) initialize(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			source_path TEXT NOT NULL,
			doc_type TEXT NOT NULL,
			lang TEXT,
			sensitivity TEXT NOT NULL,
			tags JSONB NOT NULL DEFAULT '[]',
			topics JSONB NOT NULL DEFAULT '[]',
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			ocr_confidence DOUBLE PRECISION,
			content_hash TEXT UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			doc_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			chunk_idx INTEGER NOT NULL,
			heading TEXT,
			page INTEGER,
			text TEXT NOT NULL,
			embedding vector(%d),
			tsv TSVECTOR,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (doc_id, chunk_idx)
		)`, p.dims),
		`CREATE INDEX IF NOT EXISTS chunks_doc_id_idx ON chunks (doc_id)`,
		`CREATE INDEX IF NOT EXISTS chunks_embedding_idx ON chunks
			USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`,
		`CREATE INDEX IF NOT EXISTS chunks_tsv_idx ON chunks USING GIN (tsv)`,
	}
	for _, stmt := range statements {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	p.logger.Debug("database schema ready", zap.Int("dims", p.dims))
	return nil
}

func (p *Postgres) CreateDocument(ctx context.Context, doc *models.Document) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO documents (id, title, source_path, doc_type, lang, sensitivity,
			tags, topics, confidence, ocr_confidence, content_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		doc.ID, doc.Title, doc.SourcePath, doc.DocType, doc.Lang, string(doc.Sensitivity),
		doc.Tags, doc.Topics, doc.Confidence, doc.OCRConfidence, doc.ContentHash,
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

func (p *Postgres) SetClassification(ctx context.Context, docID string, tags models.TagSet, namespacedTags []string) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE documents
		SET doc_type = $2, sensitivity = $3, tags = $4, topics = $5, confidence = $6, updated_at = now()
		WHERE id = $1`,
		docID, tags.DocType, string(tags.Sensitivity), namespacedTags, tags.Topics, tags.Confidence,
	)
	if err != nil {
		return fmt.Errorf("failed to update classification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const documentColumns = `id, title, source_path, doc_type, COALESCE(lang, ''), sensitivity,
	tags, topics, confidence, ocr_confidence, COALESCE(content_hash, ''), created_at, updated_at`

func scanDocument(row pgx.Row) (*models.Document, error) {
	var doc models.Document
	var sensitivity string
	err := row.Scan(&doc.ID, &doc.Title, &doc.SourcePath, &doc.DocType, &doc.Lang, &sensitivity,
		&doc.Tags, &doc.Topics, &doc.Confidence, &doc.OCRConfidence, &doc.ContentHash,
		&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}
	doc.Sensitivity = models.Sensitivity(sensitivity)
	return &doc, nil
}

func (p *Postgres) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := p.pool.QueryRow(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = $1", id)
	return scanDocument(row)
}

func (p *Postgres) GetDocumentByHash(ctx context.Context, hash string) (*models.Document, error) {
	row := p.pool.QueryRow(ctx, "SELECT "+documentColumns+" FROM documents WHERE content_hash = $1", hash)
	return scanDocument(row)
}

func (p *Postgres) DeleteDocument(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, "DELETE FROM documents WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertChunks writes all chunks in one transaction. The lexical vector is
// computed in SQL so the database dictionary and stemmer are used.
func (p *Postgres) InsertChunks(ctx context.Context, chunks []models.Chunk) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO chunks (id, doc_id, chunk_idx, heading, page, text, embedding, tsv, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, to_tsvector('english', left($6, %d)), $8)`, tsvMaxChars)

	for _, chunk := range chunks {
		_, err := tx.Exec(ctx, stmt,
			chunk.ID, chunk.DocID, chunk.Index, chunk.Heading, chunk.Page, chunk.Text,
			pgvector.NewVector(chunk.Embedding), chunk.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", chunk.Index, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}
	return nil
}

func (p *Postgres) CountChunks(ctx context.Context, docID string) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx, "SELECT COUNT(*) FROM chunks WHERE doc_id = $1", docID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

func (p *Postgres) VectorSearch(ctx context.Context, embedding []float32, limit int, filters *models.SearchFilters) ([]models.Candidate, error) {
	where, args := buildFilterClause(filters, 3)
	query := fmt.Sprintf(`
		SELECT c.id, c.doc_id, c.chunk_idx, d.title, COALESCE(c.heading, ''), COALESCE(c.page, 0),
			c.text, d.tags, 1 - (c.embedding <=> $1) AS vec_score
		FROM chunks c
		JOIN documents d ON d.id = c.doc_id
		WHERE %s
		ORDER BY c.embedding <=> $1
		LIMIT $2`, where)

	params := append([]any{pgvector.NewVector(embedding), limit}, args...)
	rows, err := p.pool.Query(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	var out []models.Candidate
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ChunkID, &c.DocID, &c.ChunkIndex, &c.Title, &c.Heading, &c.Page,
			&c.Text, &c.Tags, &c.VectorScore); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		c.Score = c.VectorScore
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) KeywordSearch(ctx context.Context, query string, limit int, filters *models.SearchFilters) ([]models.Candidate, error) {
	where, args := buildFilterClause(filters, 3)
	sql := fmt.Sprintf(`
		SELECT c.id, c.doc_id, c.chunk_idx, d.title, COALESCE(c.heading, ''), COALESCE(c.page, 0),
			c.text, d.tags, ts_rank_cd(c.tsv, plainto_tsquery('english', $1)) AS kw_score
		FROM chunks c
		JOIN documents d ON d.id = c.doc_id
		WHERE %s AND c.tsv @@ plainto_tsquery('english', $1)
		ORDER BY kw_score DESC
		LIMIT $2`, where)

	params := append([]any{query, limit}, args...)
	rows, err := p.pool.Query(ctx, sql, params...)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	defer rows.Close()

	var out []models.Candidate
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ChunkID, &c.DocID, &c.ChunkIndex, &c.Title, &c.Heading, &c.Page,
			&c.Text, &c.Tags, &c.KeywordScore); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		c.Score = c.KeywordScore
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) GetStats(ctx context.Context) (Stats, error) {
	var s Stats
	err := p.pool.QueryRow(ctx,
		"SELECT (SELECT COUNT(*) FROM documents), (SELECT COUNT(*) FROM chunks)",
	).Scan(&s.Documents, &s.Chunks)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read stats: %w", err)
	}
	return s, nil
}

func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}
