package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	queryPrefix   = "query: "
	passagePrefix = "passage: "
)

// OpenAIEmbedder produces embeddings via an OpenAI-compatible endpoint.
// E5-family models expect "query: "/"passage: " prefixes; they are harmless
// for other models and applied unconditionally so both encoding modes stay
// distinguishable.
type OpenAIEmbedder struct {
	embedder   embeddings.Embedder
	dimensions int
	cache      *Cache
	timeout    time.Duration
}

// Options configures an OpenAIEmbedder.
type Options struct {
	BaseURL    string
	Model      string
	Dimensions int
	CacheSize  int
	Timeout    time.Duration
}

// NewOpenAIEmbedder creates an embedder client. The API key is read from the
// OPENAI_API_KEY environment variable by the underlying client.
func NewOpenAIEmbedder(opts Options) (*OpenAIEmbedder, error) {
	clientOpts := []openai.Option{openai.WithEmbeddingModel(opts.Model)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(opts.BaseURL))
	}
	client, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("wrap embedder: %w", err)
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIEmbedder{
		embedder:   embedder,
		dimensions: opts.Dimensions,
		cache:      NewCache(opts.CacheSize),
		timeout:    timeout,
	}, nil
}

// EmbedQuery embeds a single query string.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	key := queryPrefix + query
	if cached, ok := e.cache.Get(key); ok {
		return cached, nil
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	vecs, err := e.embedder.EmbedDocuments(ctx, []string{key})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) == 0 || len(vecs[0]) != e.dimensions {
		return nil, fmt.Errorf("embed query: got %d vectors, want dimension %d", len(vecs), e.dimensions)
	}
	e.cache.Set(key, vecs[0])
	return vecs[0], nil
}

// EmbedPassages embeds a batch of passage texts.
func (e *OpenAIEmbedder) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = passagePrefix + t
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	vecs, err := e.embedder.EmbedDocuments(ctx, prefixed)
	if err != nil {
		return nil, fmt.Errorf("embed passages: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embed passages: got %d vectors for %d texts", len(vecs), len(texts))
	}
	for i, v := range vecs {
		if len(v) != e.dimensions {
			return nil, fmt.Errorf("embed passages: vector %d has dimension %d, want %d", i, len(v), e.dimensions)
		}
	}
	return vecs, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int { return e.dimensions }

// Close is a no-op; the underlying client holds no resources.
func (e *OpenAIEmbedder) Close() error { return nil }
