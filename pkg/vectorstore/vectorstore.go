// Package vectorstore defines the persistence contract for chunk embeddings:
// upsert, delete, and nearest-neighbor search with metadata filtering.
//
// Adapters live in subpackages (memory, qdrant, weaviate, pgvector) and all
// persist the same flat payload shape (rag.ChunkPayload), so filters address
// the same field names regardless of backend.
package vectorstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/pressrag-ai/pressrag/pkg/rag"
)

// Record is a chunk plus its embedding vector as persisted in the index.
// Vectors are computed once before upsert and never aliased between records.
type Record struct {
	ID     string // chunk id
	Vector []float32
	Chunk  rag.Chunk
}

// Filter is a conjunction of predicates over payload fields. All listed
// predicates must hold for a record to match.
type Filter struct {
	// Equals requires field = value.
	Equals map[string]string

	// Any requires the field to contain (for list fields) or equal (for
	// scalar fields) at least one of the given values.
	Any map[string][]string
}

// Empty reports whether the filter constrains nothing.
func (f *Filter) Empty() bool {
	return f == nil || (len(f.Equals) == 0 && len(f.Any) == 0)
}

// Store is the vector index contract. k is a soft request: Query may return
// fewer results than asked for, never more. Upsert with an existing id
// replaces vector, text, and metadata atomically from the caller's
// perspective. Implementations must support concurrent readers and serialize
// writers against readers.
type Store interface {
	// Upsert writes records, replacing any with the same id.
	Upsert(ctx context.Context, records []Record) error

	// Delete removes records by chunk id. Unknown ids are ignored.
	Delete(ctx context.Context, ids []string) error

	// DeleteByDoc removes every record belonging to a document. Used by
	// re-ingestion to prune orphaned chunk ids before inserting the new set.
	DeleteByDoc(ctx context.Context, docID string) error

	// Query returns up to k records nearest to the vector under the filter,
	// sorted descending by cosine similarity.
	Query(ctx context.Context, vector []float32, k int, filter *Filter) ([]rag.ScoredChunk, error)

	// Count reports the number of stored records.
	Count(ctx context.Context) (int, error)

	// Health checks that the backing store is reachable.
	Health(ctx context.Context) error

	// Close releases client resources.
	Close() error
}

// HashLookup is an optional capability: stores that can cheaply report the
// stored content hash for a document let ingestion skip unchanged documents.
type HashLookup interface {
	// DocContentHash returns the content hash stored with docID's chunks,
	// or "" when the document is not indexed.
	DocContentHash(ctx context.Context, docID string) (string, error)
}

// pointNamespace scopes deterministic point ids to this application.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("pressrag.ai/vectorstore"))

// PointID derives a deterministic UUIDv5 from a chunk id for backends that
// require UUID record ids (qdrant, weaviate). The chunk id itself stays in
// the payload, so idempotent re-ingestion is unaffected.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}
