// Package vectorstore is an in-memory, tenant-partitioned similarity index.
// Nothing is persisted; callers re-upsert after a restart (see Indexer).
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/omriShneor/engage_ai/internal/metrics"
)

// DefaultTopK is used when Search is called with a non-positive topK
const DefaultTopK = 5

// ErrInvalidDoc is returned when a document lacks a tenant or id
var ErrInvalidDoc = errors.New("document requires tenant and id")

// Doc is an indexed document
type Doc struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenantId"`
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Embedding []float64         `json:"-"`
}

// Match is a search hit
type Match struct {
	Doc   Doc     `json:"doc"`
	Score float64 `json:"score"`
}

// Store holds documents per tenant
type Store struct {
	mu       sync.RWMutex
	tenants  map[string]map[string]Doc
	embedder Embedder
}

// NewStore creates a store. A nil embedder means HashEmbedder.
func NewStore(embedder Embedder) *Store {
	if embedder == nil {
		embedder = NewHashEmbedder()
	}
	return &Store{
		tenants:  make(map[string]map[string]Doc),
		embedder: embedder,
	}
}

// Upsert inserts or replaces a document. The embedding is computed only when absent.
func (s *Store) Upsert(ctx context.Context, doc Doc) error {
	if doc.TenantID == "" || doc.ID == "" {
		return ErrInvalidDoc
	}

	if len(doc.Embedding) == 0 {
		embedding, err := s.embedder.Embed(ctx, doc.Text)
		if err != nil {
			return fmt.Errorf("failed to embed document %s: %w", doc.ID, err)
		}
		doc.Embedding = embedding
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.tenants[doc.TenantID]
	if !ok {
		docs = make(map[string]Doc)
		s.tenants[doc.TenantID] = docs
	}
	docs[doc.ID] = doc
	metrics.VectorDocs.WithLabelValues(doc.TenantID).Set(float64(len(docs)))
	return nil
}

// Remove deletes a document. Removing a missing document is a no-op.
func (s *Store) Remove(tenantID, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.tenants[tenantID]
	if !ok {
		return
	}
	delete(docs, id)
	metrics.VectorDocs.WithLabelValues(tenantID).Set(float64(len(docs)))
	if len(docs) == 0 {
		delete(s.tenants, tenantID)
	}
}

// Search ranks the tenant's documents by cosine similarity to query
func (s *Store) Search(ctx context.Context, tenantID, query string, topK int) ([]Match, error) {
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.SearchVector(tenantID, embedding, topK), nil
}

// SearchVector ranks the tenant's documents against an already embedded query
func (s *Store) SearchVector(tenantID string, query []float64, topK int) []Match {
	if topK <= 0 {
		topK = DefaultTopK
	}

	s.mu.RLock()
	matches := make([]Match, 0, len(s.tenants[tenantID]))
	for _, doc := range s.tenants[tenantID] {
		score := cosineSimilarity(query, doc.Embedding)
		if math.IsNaN(score) || math.IsInf(score, 0) {
			continue
		}
		matches = append(matches, Match{Doc: doc, Score: score})
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Doc.ID < matches[j].Doc.ID
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// Len returns the number of documents indexed for a tenant
func (s *Store) Len(tenantID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tenants[tenantID])
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
