// Package rag defines the shared data model for the retrieval pipeline:
// documents, extracted metadata, chunks, and scored retrieval results.
//
// All types are plain values. Chunks denormalize their parent document's
// metadata so vector stores can filter on any field without a join.
package rag

import (
	"time"
)

// Document is a raw text document plus its source identifier (filename stem).
// Immutable once loaded; consumed exactly once by ingestion.
type Document struct {
	ID   string `json:"id"`   // filename stem, e.g. "doc_001"
	Text string `json:"text"` // full UTF-8 text
}

// DocumentMetadata holds structured attributes derived from a document's
// text and filename. Created once at ingestion time, never mutated.
type DocumentMetadata struct {
	PublicationID      string    `json:"publication_id"`
	Source             string    `json:"source"`
	ExtractedAt        time.Time `json:"extracted_at"`
	WordCount          int       `json:"word_count"`
	MentionedDates     []string  `json:"mentioned_dates,omitempty"`     // ISO form, first-appearance order, de-duplicated
	Topics             []string  `json:"topics,omitempty"`              // drawn from a fixed controlled vocabulary
	MentionedCompanies []string  `json:"mentioned_companies,omitempty"` // best-effort cap-bigram heuristic
	ContentHash        string    `json:"content_hash"`                  // sha256 hex of the full document text
}

// Chunk is a bounded, overlapping segment of a source document, the unit of
// retrieval. The chunk id is deterministically derived from doc id, position,
// and a prefix of the chunk text, so unchanged re-ingestion is idempotent.
type Chunk struct {
	ID          string           `json:"chunk_id"`
	Text        string           `json:"text"`
	Index       int              `json:"chunk_index"`  // 0-based position within the document
	TotalChunks int              `json:"total_chunks"` // chunk count for the parent document
	DocID       string           `json:"doc_id"`
	Metadata    DocumentMetadata `json:"metadata"` // denormalized copy of the parent's metadata
}

// ScoredChunk pairs a chunk with a relevance score. Score semantics depend on
// the pipeline stage: cosine similarity after candidate search, cross-encoder
// relevance after reranking.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// RetrievalResult is the ordered output of a retrieve call. Transient,
// constructed per query. An empty Chunks slice is a valid successful outcome
// meaning "no relevant documents found".
type RetrievalResult struct {
	Chunks   []ScoredChunk `json:"chunks"`
	Query    string        `json:"query"`
	Reranked bool          `json:"reranked"` // true when stage-2 scores ordered the result
}
