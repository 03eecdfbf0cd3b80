package retrieval

import (
	"context"
	"fmt"
	"testing"

	"github.com/pressrag-ai/pressrag/pkg/rag"
	"github.com/pressrag-ai/pressrag/pkg/vectorstore"
	"github.com/pressrag-ai/pressrag/pkg/vectorstore/memory"
)

// stubEmbedder returns fixed vectors per text and a fallback for queries.
type stubEmbedder struct {
	vectors map[string][]float32
	query   []float32
	calls   int
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, ok := s.vectors[text]
		if !ok {
			return nil, fmt.Errorf("no stub vector for %q", text)
		}
		out[i] = vec
	}
	return out, nil
}

func (s *stubEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	s.calls++
	return s.query, nil
}

func (s *stubEmbedder) Model() string  { return "stub" }
func (s *stubEmbedder) Dimension() int { return len(s.query) }

// stubReranker scores candidates by a fixed map, fails entirely, or drops
// the last score to simulate a miscounting implementation.
type stubReranker struct {
	scores map[string]float64
	err    error
	short  bool
}

func (s *stubReranker) Score(_ context.Context, _ string, candidates []string) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]float64, len(candidates))
	for i, c := range candidates {
		out[i] = s.scores[c]
	}
	if s.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (s *stubReranker) Model() string { return "stub-reranker" }

func seedStore(t *testing.T) vectorstore.Store {
	t.Helper()
	s := memory.New()
	records := []vectorstore.Record{
		{ID: "a", Vector: []float32{1, 0}, Chunk: rag.Chunk{ID: "a", Text: "chunk a", DocID: "d1"}},
		{ID: "b", Vector: []float32{0.9, 0.1}, Chunk: rag.Chunk{ID: "b", Text: "chunk b", DocID: "d1"}},
		{ID: "c", Vector: []float32{0.5, 0.5}, Chunk: rag.Chunk{ID: "c", Text: "chunk c", DocID: "d2"}},
		{ID: "d", Vector: []float32{0, 1}, Chunk: rag.Chunk{ID: "d", Text: "chunk d", DocID: "d2"}},
	}
	if err := s.Upsert(context.Background(), records); err != nil {
		t.Fatal(err)
	}
	return s
}

func chunkIDs(result *rag.RetrievalResult) []string {
	ids := make([]string, len(result.Chunks))
	for i, c := range result.Chunks {
		ids[i] = c.Chunk.ID
	}
	return ids
}

func TestRetrieveVectorOrder(t *testing.T) {
	embedder := &stubEmbedder{query: []float32{1, 0}}
	r, err := NewRetriever(embedder, seedStore(t), WithTopK(2))
	if err != nil {
		t.Fatal(err)
	}

	result, err := r.Retrieve(context.Background(), Query{Text: "anything"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Reranked {
		t.Error("Reranked should be false without a reranker")
	}
	ids := chunkIDs(result)
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("ids = %v, want [a b]", ids)
	}
}

func TestRetrieveEmptyStore(t *testing.T) {
	embedder := &stubEmbedder{query: []float32{1, 0}}
	r, err := NewRetriever(embedder, memory.New())
	if err != nil {
		t.Fatal(err)
	}

	result, err := r.Retrieve(context.Background(), Query{Text: "anything"})
	if err != nil {
		t.Fatalf("empty result must not be an error, got %v", err)
	}
	if len(result.Chunks) != 0 {
		t.Errorf("got %d chunks, want none", len(result.Chunks))
	}
}

func TestRetrieveEmptyQuery(t *testing.T) {
	embedder := &stubEmbedder{query: []float32{1, 0}}
	r, err := NewRetriever(embedder, seedStore(t))
	if err != nil {
		t.Fatal(err)
	}

	result, err := r.Retrieve(context.Background(), Query{Text: ""})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Chunks) != 0 {
		t.Errorf("empty query should return no chunks")
	}
	if embedder.calls != 0 {
		t.Errorf("empty query should not call the embedder")
	}
}

func TestRetrieveTopKOverride(t *testing.T) {
	embedder := &stubEmbedder{query: []float32{1, 0}}
	r, err := NewRetriever(embedder, seedStore(t), WithTopK(2))
	if err != nil {
		t.Fatal(err)
	}

	result, err := r.Retrieve(context.Background(), Query{Text: "q", TopK: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Chunks) != 3 {
		t.Errorf("got %d chunks, want 3", len(result.Chunks))
	}
}

func TestRetrieveReranked(t *testing.T) {
	embedder := &stubEmbedder{query: []float32{1, 0}}
	reranker := &stubReranker{scores: map[string]float64{
		"chunk a": 0.1,
		"chunk b": 0.2,
		"chunk c": 0.9,
		"chunk d": 0.8,
	}}
	r, err := NewRetriever(embedder, seedStore(t),
		WithTopK(2), WithRerankTopK(4), WithReranker(reranker))
	if err != nil {
		t.Fatal(err)
	}

	result, err := r.Retrieve(context.Background(), Query{Text: "q"})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Reranked {
		t.Error("Reranked should be true")
	}
	ids := chunkIDs(result)
	if len(ids) != 2 || ids[0] != "c" || ids[1] != "d" {
		t.Errorf("ids = %v, want [c d]", ids)
	}
	if result.Chunks[0].Score != 0.9 {
		t.Errorf("top score = %f, want the cross-encoder score", result.Chunks[0].Score)
	}
}

func TestRetrieveRerankerUnavailableFallsBack(t *testing.T) {
	embedder := &stubEmbedder{query: []float32{1, 0}}
	reranker := &stubReranker{err: fmt.Errorf("%w: connection refused", rag.ErrModelUnavailable)}
	r, err := NewRetriever(embedder, seedStore(t),
		WithTopK(2), WithRerankTopK(4), WithReranker(reranker))
	if err != nil {
		t.Fatal(err)
	}

	result, err := r.Retrieve(context.Background(), Query{Text: "q"})
	if err != nil {
		t.Fatalf("reranker failure must not fail the query: %v", err)
	}
	if result.Reranked {
		t.Error("Reranked should be false after fallback")
	}
	ids := chunkIDs(result)
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("ids = %v, want stage-1 order [a b]", ids)
	}
}

func TestRetrieveRerankScoreCountMismatchFallsBack(t *testing.T) {
	embedder := &stubEmbedder{query: []float32{1, 0}}
	reranker := &stubReranker{
		scores: map[string]float64{
			"chunk a": 0.1, "chunk b": 0.2, "chunk c": 0.9, "chunk d": 0.8,
		},
		short: true,
	}
	r, err := NewRetriever(embedder, seedStore(t),
		WithTopK(2), WithRerankTopK(4), WithReranker(reranker))
	if err != nil {
		t.Fatal(err)
	}

	result, err := r.Retrieve(context.Background(), Query{Text: "q"})
	if err != nil {
		t.Fatalf("a miscounting reranker must not fail the query: %v", err)
	}
	if result.Reranked {
		t.Error("Reranked should be false after fallback")
	}
	ids := chunkIDs(result)
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("ids = %v, want stage-1 order [a b]", ids)
	}
}

func TestRetrieveRerankStableOnTies(t *testing.T) {
	embedder := &stubEmbedder{query: []float32{1, 0}}
	// All candidates tie; stage-1 order must survive the stable sort.
	reranker := &stubReranker{scores: map[string]float64{
		"chunk a": 0.5, "chunk b": 0.5, "chunk c": 0.5, "chunk d": 0.5,
	}}
	r, err := NewRetriever(embedder, seedStore(t),
		WithTopK(4), WithRerankTopK(4), WithReranker(reranker))
	if err != nil {
		t.Fatal(err)
	}

	result, err := r.Retrieve(context.Background(), Query{Text: "q"})
	if err != nil {
		t.Fatal(err)
	}
	ids := chunkIDs(result)
	want := []string{"a", "b", "c", "d"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}
