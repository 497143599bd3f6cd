// Package embedding provides text embedding with query/passage encoding modes.
package embedding

import (
	"context"
	"sync"
)

// Embedder produces fixed-dimension vector embeddings. Queries and passages
// are encoded differently (E5-style instruction prefixes), so callers must
// pick the mode matching their side of the retrieval pair.
type Embedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	EmbedPassages(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Lazy wraps an Embedder constructor so the model handle is created once per
// process on first use, safely under concurrent access.
type Lazy struct {
	construct func() (Embedder, error)
	once      sync.Once
	embedder  Embedder
	err       error
	dims      int
}

// NewLazy returns a Lazy embedder. dims must match the configured model's
// output dimension so Dimensions() is available before first use.
func NewLazy(dims int, construct func() (Embedder, error)) *Lazy {
	return &Lazy{construct: construct, dims: dims}
}

func (l *Lazy) get() (Embedder, error) {
	l.once.Do(func() {
		l.embedder, l.err = l.construct()
	})
	return l.embedder, l.err
}

// EmbedQuery initializes the underlying embedder on first use.
func (l *Lazy) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	e, err := l.get()
	if err != nil {
		return nil, err
	}
	return e.EmbedQuery(ctx, query)
}

// EmbedPassages initializes the underlying embedder on first use.
func (l *Lazy) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	e, err := l.get()
	if err != nil {
		return nil, err
	}
	return e.EmbedPassages(ctx, texts)
}

// Dimensions returns the configured embedding dimension.
func (l *Lazy) Dimensions() int { return l.dims }

// Close closes the underlying embedder if it was ever created.
func (l *Lazy) Close() error {
	if l.embedder != nil {
		return l.embedder.Close()
	}
	return nil
}
