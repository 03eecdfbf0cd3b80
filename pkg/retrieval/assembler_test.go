package retrieval

import (
	"strings"
	"testing"

	"github.com/pressrag-ai/pressrag/pkg/rag"
)

func scoredChunk(pubID, text string, score float64) rag.ScoredChunk {
	return rag.ScoredChunk{
		Chunk: rag.Chunk{
			Text:  text,
			DocID: pubID,
			Metadata: rag.DocumentMetadata{
				PublicationID: pubID,
				Source:        "Deutsche Telekom",
			},
		},
		Score: score,
	}
}

func TestAssembleEmpty(t *testing.T) {
	a := NewAssembler()
	got := a.Assemble(nil)
	if got.Text != NoContextPlaceholder {
		t.Errorf("Text = %q, want placeholder", got.Text)
	}
	if len(got.Citations) != 0 {
		t.Errorf("citations = %v, want none", got.Citations)
	}
}

func TestAssembleFormatsNumberedExcerpts(t *testing.T) {
	a := NewAssembler(WithoutNearDuplicateFilter())
	got := a.Assemble([]rag.ScoredChunk{
		scoredChunk("press_001", "First chunk text.", 0.9),
		scoredChunk("press_002", "Second chunk text.", 0.8),
	})

	if !strings.Contains(got.Text, "1. [Publication ID: press_001]\nFirst chunk text.") {
		t.Errorf("missing first entry in:\n%s", got.Text)
	}
	if !strings.Contains(got.Text, "2. [Publication ID: press_002]\nSecond chunk text.") {
		t.Errorf("missing second entry in:\n%s", got.Text)
	}
	if len(got.Citations) != 2 {
		t.Fatalf("citations = %d, want 2", len(got.Citations))
	}
	if got.Citations[0].Index != 1 || got.Citations[0].PublicationID != "press_001" {
		t.Errorf("first citation = %+v", got.Citations[0])
	}
	if got.Citations[1].Score != 0.8 {
		t.Errorf("second citation score = %f", got.Citations[1].Score)
	}
}

func TestAssembleCitationDedup(t *testing.T) {
	a := NewAssembler(WithoutNearDuplicateFilter())
	got := a.Assemble([]rag.ScoredChunk{
		scoredChunk("press_001", "Chunk one.", 0.9),
		scoredChunk("press_002", "Chunk two.", 0.8),
		scoredChunk("press_001", "Chunk three from the same publication.", 0.7),
	})

	if len(got.Citations) != 2 {
		t.Fatalf("citations = %d, want 2 unique publications", len(got.Citations))
	}
	// The repeated publication keeps its original number.
	if !strings.Contains(got.Text, "1. [Publication ID: press_001]\nChunk three") {
		t.Errorf("repeated publication should reuse citation 1:\n%s", got.Text)
	}
}

func TestAssembleBudget(t *testing.T) {
	a := NewAssembler(WithMaxContextTokens(30), WithoutNearDuplicateFilter())
	long := strings.Repeat("x", 80)
	got := a.Assemble([]rag.ScoredChunk{
		scoredChunk("press_001", long, 0.9),
		scoredChunk("press_002", long, 0.8),
		scoredChunk("press_003", long, 0.7),
	})

	// The first chunk always fits; the rest are cut by the budget.
	if len(got.Citations) != 1 {
		t.Errorf("citations = %d, want 1 under a tight budget", len(got.Citations))
	}
	if !got.Truncated {
		t.Error("Truncated should be set when chunks were dropped")
	}
}

func TestAssembleFirstChunkShrunkToBudget(t *testing.T) {
	a := NewAssembler(WithMaxContextTokens(10), WithoutNearDuplicateFilter())
	got := a.Assemble([]rag.ScoredChunk{
		scoredChunk("press_001", strings.Repeat("y", 400), 0.9),
	})
	if got.Tokens > 10 {
		t.Errorf("context block estimates %d tokens, budget is 10", got.Tokens)
	}
	if got.Text == NoContextPlaceholder || len(got.Citations) != 1 {
		t.Errorf("shrunk excerpt should still be cited: %+v", got)
	}
	if !strings.Contains(got.Text, "...") {
		t.Errorf("shrunk excerpt should mark the cut: %q", got.Text)
	}
	if !got.Truncated {
		t.Error("Truncated should be set when the excerpt was shrunk")
	}
}

func TestAssembleBudgetTooSmallForAnyExcerpt(t *testing.T) {
	a := NewAssembler(WithMaxContextTokens(1), WithoutNearDuplicateFilter())
	got := a.Assemble([]rag.ScoredChunk{
		scoredChunk("press_001", strings.Repeat("y", 200), 0.9),
	})
	if got.Text != NoContextPlaceholder {
		t.Errorf("Text = %q, want placeholder", got.Text)
	}
	if len(got.Citations) != 0 || !got.Truncated {
		t.Errorf("got %+v", got)
	}
}

func TestAssembleExcerptTruncation(t *testing.T) {
	a := NewAssembler(WithExcerptChars(10), WithoutNearDuplicateFilter())
	got := a.Assemble([]rag.ScoredChunk{
		scoredChunk("press_001", "abcdefghijKLMNOP", 0.9),
	})
	if !strings.Contains(got.Text, "abcdefghij...") {
		t.Errorf("excerpt not truncated:\n%s", got.Text)
	}
	if strings.Contains(got.Text, "KLMNOP") {
		t.Errorf("excerpt leaked past the limit:\n%s", got.Text)
	}
}

func TestAssembleNearDuplicateSuppressed(t *testing.T) {
	a := NewAssembler()
	text := "Deutsche Telekom expands its fiber network across Germany in 2025."
	got := a.Assemble([]rag.ScoredChunk{
		scoredChunk("press_001", text, 0.9),
		scoredChunk("press_002", text, 0.8), // identical content, other doc
		scoredChunk("press_003", "A completely different announcement about security.", 0.7),
	})

	if len(got.Citations) != 2 {
		t.Fatalf("citations = %d, want duplicate suppressed", len(got.Citations))
	}
	if got.Citations[0].PublicationID != "press_001" || got.Citations[1].PublicationID != "press_003" {
		t.Errorf("citations = %+v", got.Citations)
	}
}
