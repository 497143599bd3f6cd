package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(8)
	a, err := e.EmbedQuery(context.Background(), "refund policy")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := e.EmbedQuery(context.Background(), "refund policy")
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text should yield the same embedding")
		}
	}
	if len(a) != 8 {
		t.Errorf("dimension: got %d", len(a))
	}
}

func TestMockEmbedder_QueryAndPassageDiffer(t *testing.T) {
	e := NewMockEmbedder(8)
	q, _ := e.EmbedQuery(context.Background(), "same text")
	p, _ := e.EmbedPassages(context.Background(), []string{"same text"})
	same := true
	for i := range q {
		if q[i] != p[0][i] {
			same = false
			break
		}
	}
	if same {
		t.Error("query and passage encodings should differ")
	}
}

func TestCache_LRUEviction(t *testing.T) {
	c := NewCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	c.Set("c", []float32{3})
	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry should be evicted")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("newest entry should be present")
	}
}

func TestCache_GetRefreshesRecency(t *testing.T) {
	c := NewCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	c.Get("a")
	c.Set("c", []float32{3})
	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry should survive eviction")
	}
	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry should be evicted")
	}
}

func TestLazy_SingleInitialization(t *testing.T) {
	var constructed int
	var mu sync.Mutex
	lazy := NewLazy(8, func() (Embedder, error) {
		mu.Lock()
		constructed++
		mu.Unlock()
		return NewMockEmbedder(8), nil
	})
	if lazy.Dimensions() != 8 {
		t.Error("dimensions should be available before first use")
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := lazy.EmbedQuery(context.Background(), "x"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if constructed != 1 {
		t.Errorf("constructor ran %d times, want 1", constructed)
	}
}

func TestLazy_ConstructorError(t *testing.T) {
	wantErr := errors.New("model unavailable")
	lazy := NewLazy(8, func() (Embedder, error) { return nil, wantErr })
	if _, err := lazy.EmbedQuery(context.Background(), "x"); !errors.Is(err, wantErr) {
		t.Errorf("got %v, want %v", err, wantErr)
	}
	// Error is sticky: the constructor does not run again.
	if _, err := lazy.EmbedPassages(context.Background(), []string{"x"}); !errors.Is(err, wantErr) {
		t.Errorf("got %v, want %v", err, wantErr)
	}
	if err := lazy.Close(); err != nil {
		t.Errorf("Close on failed lazy: %v", err)
	}
}
