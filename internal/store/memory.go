package store

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/seekdocs/tansaku/internal/models"
)

// Memory is an in-memory Store used in tests and for local experiments.
// Keyword matching approximates the database behavior: every query term must
// appear in the chunk text, and the score grows with term frequency.
type Memory struct {
	mu     sync.RWMutex
	docs   map[string]*models.Document
	chunks map[string][]models.Chunk
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		docs:   make(map[string]*models.Document),
		chunks: make(map[string][]models.Chunk),
	}
}

func (m *Memory) CreateDocument(_ context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *doc
	m.docs[doc.ID] = &copied
	return nil
}

func (m *Memory) SetClassification(_ context.Context, docID string, tags models.TagSet, namespacedTags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[docID]
	if !ok {
		return ErrNotFound
	}
	doc.DocType = tags.DocType
	doc.Sensitivity = tags.Sensitivity
	doc.Tags = namespacedTags
	doc.Topics = tags.Topics
	doc.Confidence = tags.Confidence
	return nil
}

func (m *Memory) GetDocument(_ context.Context, id string) (*models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (m *Memory) GetDocumentByHash(_ context.Context, hash string) (*models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, doc := range m.docs {
		if doc.ContentHash == hash && hash != "" {
			copied := *doc
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) DeleteDocument(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	delete(m.docs, id)
	delete(m.chunks, id)
	return nil
}

func (m *Memory) InsertChunks(_ context.Context, chunks []models.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, chunk := range chunks {
		m.chunks[chunk.DocID] = append(m.chunks[chunk.DocID], chunk)
	}
	return nil
}

func (m *Memory) CountChunks(_ context.Context, docID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks[docID]), nil
}

func (m *Memory) matches(doc *models.Document, filters *models.SearchFilters) bool {
	if filters.Empty() {
		return true
	}
	if filters.Sensitivity != "" && string(doc.Sensitivity) != filters.Sensitivity {
		return false
	}
	if len(filters.Tags) > 0 {
		found := false
		for _, want := range filters.Tags {
			for _, have := range doc.Tags {
				if want == have {
					found = true
				}
			}
		}
		if !found {
			return false
		}
	}
	if len(filters.DocType) > 0 {
		found := false
		for _, dt := range filters.DocType {
			if dt == doc.DocType {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (m *Memory) candidate(doc *models.Document, chunk models.Chunk) models.Candidate {
	return models.Candidate{
		ChunkID:    chunk.ID,
		DocID:      chunk.DocID,
		ChunkIndex: chunk.Index,
		Title:      doc.Title,
		Heading:    chunk.Heading,
		Page:       chunk.Page,
		Text:       chunk.Text,
		Tags:       doc.Tags,
	}
}

func (m *Memory) VectorSearch(_ context.Context, embedding []float32, limit int, filters *models.SearchFilters) ([]models.Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Candidate
	for docID, chunks := range m.chunks {
		doc, ok := m.docs[docID]
		if !ok || !m.matches(doc, filters) {
			continue
		}
		for _, chunk := range chunks {
			if len(chunk.Embedding) == 0 {
				continue
			}
			c := m.candidate(doc, chunk)
			c.VectorScore = cosine(embedding, chunk.Embedding)
			c.Score = c.VectorScore
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].VectorScore != out[j].VectorScore {
			return out[i].VectorScore > out[j].VectorScore
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) KeywordSearch(_ context.Context, query string, limit int, filters *models.SearchFilters) ([]models.Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	var out []models.Candidate
	for docID, chunks := range m.chunks {
		doc, ok := m.docs[docID]
		if !ok || !m.matches(doc, filters) {
			continue
		}
		for _, chunk := range chunks {
			lower := strings.ToLower(chunk.Text)
			freq := 0
			all := true
			for _, term := range terms {
				n := strings.Count(lower, term)
				if n == 0 {
					all = false
					break
				}
				freq += n
			}
			if !all {
				continue
			}
			c := m.candidate(doc, chunk)
			c.KeywordScore = float64(freq) / float64(1+len(strings.Fields(lower)))
			c.Score = c.KeywordScore
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].KeywordScore != out[j].KeywordScore {
			return out[i].KeywordScore > out[j].KeywordScore
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) GetStats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Stats{Documents: len(m.docs)}
	for _, chunks := range m.chunks {
		s.Chunks += len(chunks)
	}
	return s, nil
}

func (m *Memory) Close() {}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
