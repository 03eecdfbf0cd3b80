// Package memory provides an in-process vector store with exact cosine
// search. It backs tests and local development; production deployments use
// the qdrant, weaviate, or pgvector adapters.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/pressrag-ai/pressrag/pkg/rag"
	"github.com/pressrag-ai/pressrag/pkg/vectorstore"
)

// Store holds records in memory behind an RWMutex: concurrent readers do not
// block each other, writers are serialized, and a reader never observes a
// half-written record.
type Store struct {
	mu      sync.RWMutex
	records map[string]vectorstore.Record
	order   []string // insertion order, keeps result ordering deterministic
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{records: make(map[string]vectorstore.Record)}
}

var _ vectorstore.Store = (*Store)(nil)
var _ vectorstore.HashLookup = (*Store)(nil)

// Upsert writes records, replacing any with the same id.
func (s *Store) Upsert(_ context.Context, records []vectorstore.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		if rec.ID == "" {
			return fmt.Errorf("record with empty id")
		}
		if _, exists := s.records[rec.ID]; !exists {
			s.order = append(s.order, rec.ID)
		}
		vec := make([]float32, len(rec.Vector))
		copy(vec, rec.Vector)
		rec.Vector = vec
		s.records[rec.ID] = rec
	}
	return nil
}

// Delete removes records by chunk id.
func (s *Store) Delete(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.remove(id)
	}
	return nil
}

// DeleteByDoc removes every record belonging to a document.
func (s *Store) DeleteByDoc(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var doomed []string
	for id, rec := range s.records {
		if rec.Chunk.DocID == docID {
			doomed = append(doomed, id)
		}
	}
	for _, id := range doomed {
		s.remove(id)
	}
	return nil
}

// Query scans all records, scores them by cosine similarity, and returns the
// top k matching the filter in descending score order. Ties preserve
// insertion order (stable sort), so repeated queries over a fixed store are
// deterministic.
func (s *Store) Query(_ context.Context, vector []float32, k int, filter *vectorstore.Filter) ([]rag.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	scored := make([]rag.ScoredChunk, 0, len(s.order))
	for _, id := range s.order {
		rec := s.records[id]
		if !matches(rec.Chunk, filter) {
			continue
		}
		scored = append(scored, rag.ScoredChunk{
			Chunk: rec.Chunk,
			Score: cosine(vector, rec.Vector),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Count reports the number of stored records.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// DocContentHash returns the content hash stored with a document's chunks.
func (s *Store) DocContentHash(_ context.Context, docID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if rec := s.records[id]; rec.Chunk.DocID == docID {
			return rec.Chunk.Metadata.ContentHash, nil
		}
	}
	return "", nil
}

// Health always succeeds for the in-memory store.
func (s *Store) Health(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// remove must be called with the write lock held.
func (s *Store) remove(id string) {
	if _, exists := s.records[id]; !exists {
		return
	}
	delete(s.records, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// matches evaluates the filter conjunction against a chunk's payload.
func matches(c rag.Chunk, filter *vectorstore.Filter) bool {
	if filter.Empty() {
		return true
	}
	payload := rag.ChunkPayload(c)

	for key, want := range filter.Equals {
		if fmt.Sprint(payload[key]) != want {
			return false
		}
	}
	for key, wanted := range filter.Any {
		if !containsAny(payload[key], wanted) {
			return false
		}
	}
	return true
}

func containsAny(value any, wanted []string) bool {
	switch v := value.(type) {
	case []string:
		for _, item := range v {
			for _, w := range wanted {
				if item == w {
					return true
				}
			}
		}
	case nil:
		return false
	default:
		s := fmt.Sprint(v)
		for _, w := range wanted {
			if s == w {
				return true
			}
		}
	}
	return false
}

// cosine computes cosine similarity; mismatched or zero-norm vectors score 0.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
