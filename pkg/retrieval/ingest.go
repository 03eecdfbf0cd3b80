package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pressrag-ai/pressrag/pkg/chunk"
	"github.com/pressrag-ai/pressrag/pkg/embed"
	"github.com/pressrag-ai/pressrag/pkg/extract"
	"github.com/pressrag-ai/pressrag/pkg/loader"
	"github.com/pressrag-ai/pressrag/pkg/observability"
	"github.com/pressrag-ai/pressrag/pkg/rag"
	"github.com/pressrag-ai/pressrag/pkg/vectorstore"
)

// Ingestor runs the indexing pipeline: metadata extraction, chunking,
// embedding, and vector store upsert. Re-ingesting the same document id
// replaces its previous chunks, so ingestion is idempotent.
type Ingestor struct {
	extractor *extract.Extractor
	chunker   *chunk.Chunker
	embedder  embed.Provider
	store     vectorstore.Store

	metrics *observability.Metrics
	log     zerolog.Logger
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithIngestMetrics records ingestion counters and latencies.
func WithIngestMetrics(m *observability.Metrics) IngestorOption {
	return func(i *Ingestor) { i.metrics = m }
}

// WithIngestLogger sets the logger.
func WithIngestLogger(log zerolog.Logger) IngestorOption {
	return func(i *Ingestor) { i.log = log }
}

// NewIngestor creates an ingestor.
func NewIngestor(extractor *extract.Extractor, chunker *chunk.Chunker, embedder embed.Provider, store vectorstore.Store, opts ...IngestorOption) (*Ingestor, error) {
	if extractor == nil || chunker == nil {
		return nil, fmt.Errorf("extractor and chunker are required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedding provider is required")
	}
	if store == nil {
		return nil, fmt.Errorf("vector store is required")
	}

	ing := &Ingestor{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing, nil
}

// IngestStats summarizes one ingestion run.
type IngestStats struct {
	Documents int `json:"documents"`
	Skipped   int `json:"skipped"`
	Chunks    int `json:"chunks"`
}

// IngestDocument indexes one document given its raw text and source filename.
// The document id is the filename stem. When the store can report a stored
// content hash and the text is unchanged, the document is skipped.
func (i *Ingestor) IngestDocument(ctx context.Context, text, filename string) (*IngestStats, error) {
	meta := i.extractor.Extract(text, filename)
	docID := meta.PublicationID

	if i.unchanged(ctx, docID, meta.ContentHash) {
		i.log.Info().Str("doc_id", docID).Msg("document unchanged, skipping")
		return &IngestStats{Skipped: 1}, nil
	}

	doc := rag.Document{ID: docID, Text: text}
	chunks := i.chunker.Chunk(doc, meta)
	if len(chunks) == 0 {
		i.log.Warn().Str("doc_id", docID).Msg("document produced no chunks")
		return &IngestStats{}, nil
	}

	texts := make([]string, len(chunks))
	for j, c := range chunks {
		texts[j] = c.Text
	}

	start := time.Now()
	vectors, err := i.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %d chunks of %s: %w", len(chunks), docID, err)
	}
	i.observe("embed", time.Since(start))
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	records := make([]vectorstore.Record, len(chunks))
	for j, c := range chunks {
		records[j] = vectorstore.Record{ID: c.ID, Vector: vectors[j], Chunk: c}
	}

	// Delete first so re-chunking with different parameters leaves no
	// orphaned chunk ids behind.
	start = time.Now()
	if err := i.store.DeleteByDoc(ctx, docID); err != nil {
		return nil, fmt.Errorf("delete previous chunks of %s: %w", docID, err)
	}
	if err := i.store.Upsert(ctx, records); err != nil {
		return nil, fmt.Errorf("index %s: %w", docID, err)
	}
	i.observe("index", time.Since(start))

	if i.metrics != nil {
		i.metrics.AddIngested(1, len(chunks))
	}
	i.log.Info().
		Str("doc_id", docID).
		Int("chunks", len(chunks)).
		Int("word_count", meta.WordCount).
		Strs("topics", meta.Topics).
		Msg("document indexed")
	return &IngestStats{Documents: 1, Chunks: len(chunks)}, nil
}

// IngestFolder loads every .txt document from a folder and indexes them.
// A failing document aborts the run; already indexed documents stay intact.
func (i *Ingestor) IngestFolder(ctx context.Context, dataFolder string) (*IngestStats, error) {
	docs, err := loader.New(dataFolder, i.log).LoadAll()
	if err != nil {
		return nil, err
	}

	total := &IngestStats{}
	for _, doc := range docs {
		stats, err := i.IngestDocument(ctx, doc.Text, doc.ID+".txt")
		if err != nil {
			return total, err
		}
		total.Documents += stats.Documents
		total.Skipped += stats.Skipped
		total.Chunks += stats.Chunks
	}
	i.log.Info().
		Int("documents", total.Documents).
		Int("skipped", total.Skipped).
		Int("chunks", total.Chunks).
		Msg("folder ingestion complete")
	return total, nil
}

// unchanged reports whether the stored content hash matches. Stores without
// hash lookup always re-index.
func (i *Ingestor) unchanged(ctx context.Context, docID, hash string) bool {
	lookup, ok := i.store.(vectorstore.HashLookup)
	if !ok {
		return false
	}
	stored, err := lookup.DocContentHash(ctx, docID)
	if err != nil {
		i.log.Warn().Err(err).Str("doc_id", docID).Msg("hash lookup failed, re-indexing")
		return false
	}
	return stored != "" && stored == hash
}

func (i *Ingestor) observe(stage string, d time.Duration) {
	if i.metrics != nil {
		i.metrics.ObserveIngestStage(stage, d)
	}
}
