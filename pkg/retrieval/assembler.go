package retrieval

import (
	"fmt"
	"strings"

	"github.com/hbollon/go-edlib"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/pressrag-ai/pressrag/pkg/rag"
)

// Assembler defaults.
const (
	DefaultMaxContextTokens = 2000
	DefaultExcerptChars     = 800

	// nearDuplicateSimilarity is the Jaro-Winkler similarity above which a
	// chunk is considered a rephrasing of an already included one.
	nearDuplicateSimilarity = 0.95
)

// NoContextPlaceholder is used when retrieval found nothing to cite.
const NoContextPlaceholder = "No relevant documents found."

// Assembler turns retrieved chunks into a bounded context block for the
// generator, most relevant first.
type Assembler struct {
	maxTokens   int
	excerptLen  int
	deduplicate bool
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithMaxContextTokens bounds the assembled context size.
func WithMaxContextTokens(n int) AssemblerOption {
	return func(a *Assembler) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

// WithExcerptChars bounds how much of each chunk is quoted.
func WithExcerptChars(n int) AssemblerOption {
	return func(a *Assembler) {
		if n > 0 {
			a.excerptLen = n
		}
	}
}

// WithoutNearDuplicateFilter disables similarity-based chunk suppression.
func WithoutNearDuplicateFilter() AssemblerOption {
	return func(a *Assembler) { a.deduplicate = false }
}

// NewAssembler creates an assembler with the default budget.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		maxTokens:   DefaultMaxContextTokens,
		excerptLen:  DefaultExcerptChars,
		deduplicate: true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Citation points an answer excerpt back to its publication.
type Citation struct {
	Index         int     `json:"index"`
	PublicationID string  `json:"publication_id"`
	Source        string  `json:"source"`
	Score         float64 `json:"score"`
}

// AssembledContext is the generator input built from retrieval results.
type AssembledContext struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations"`
	Tokens    int        `json:"tokens"`
	Truncated bool       `json:"truncated"`
}

// Assemble formats chunks into numbered excerpts under the token budget.
// Chunks arrive in relevance order and are added greedily; the estimated
// token count of the block never exceeds the budget. A first excerpt too
// large on its own is shrunk to fit, and the placeholder is returned when not
// even a shrunk excerpt fits. Citations are deduplicated per publication,
// keeping first-appearance order.
func (a *Assembler) Assemble(chunks []rag.ScoredChunk) *AssembledContext {
	if len(chunks) == 0 {
		return &AssembledContext{
			Text:   NoContextPlaceholder,
			Tokens: estimateTokens(NoContextPlaceholder),
		}
	}

	citations := orderedmap.New[string, Citation]()
	var sb strings.Builder
	var included []string
	truncated := false

	for _, scored := range chunks {
		text := excerpt(scored.Chunk.Text, a.excerptLen)
		if a.deduplicate && isNearDuplicate(text, included) {
			continue
		}

		pubID := scored.Chunk.Metadata.PublicationID
		entry := fmt.Sprintf("%d. [Publication ID: %s]\n%s\n",
			citations.Len()+1, pubID, text)
		if estimateTokens(sb.String()+entry) > a.maxTokens {
			if sb.Len() > 0 {
				truncated = true
				break
			}
			// First entry overflows on its own: shrink the excerpt to the
			// remaining budget instead of emitting it whole.
			// estimateTokens floors, so three spare bytes still round down.
			overhead := len(entry) - len(text)
			fitted, ok := shrinkExcerpt(text, a.maxTokens*4+3-overhead)
			if !ok {
				return &AssembledContext{
					Text:      NoContextPlaceholder,
					Tokens:    estimateTokens(NoContextPlaceholder),
					Truncated: true,
				}
			}
			text = fitted
			entry = fmt.Sprintf("%d. [Publication ID: %s]\n%s\n",
				citations.Len()+1, pubID, text)
			truncated = true
		}

		if _, seen := citations.Get(pubID); !seen {
			citations.Set(pubID, Citation{
				Index:         citations.Len() + 1,
				PublicationID: pubID,
				Source:        scored.Chunk.Metadata.Source,
				Score:         scored.Score,
			})
			sb.WriteString(entry)
		} else {
			// Same publication cited again: reuse its number.
			existing, _ := citations.Get(pubID)
			sb.WriteString(fmt.Sprintf("%d. [Publication ID: %s]\n%s\n",
				existing.Index, pubID, text))
		}
		included = append(included, text)
	}

	out := &AssembledContext{
		Text:      strings.TrimRight(sb.String(), "\n"),
		Tokens:    estimateTokens(sb.String()),
		Truncated: truncated,
	}
	for pair := citations.Oldest(); pair != nil; pair = pair.Next() {
		out.Citations = append(out.Citations, pair.Value)
	}
	return out
}

// excerpt truncates on a rune boundary and marks the cut.
func excerpt(text string, limit int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

// shrinkExcerpt cuts text on a rune boundary so it fits in avail bytes with
// the cut marker included. Reports false when no usable excerpt fits.
func shrinkExcerpt(text string, avail int) (string, bool) {
	const marker = "..."
	avail -= len(marker)
	if avail < 1 {
		return "", false
	}
	runes := []rune(text)
	for len(runes) > 0 && len(string(runes)) > avail {
		runes = runes[:len(runes)-1]
	}
	if len(runes) == 0 {
		return "", false
	}
	return strings.TrimRight(string(runes), " ") + marker, true
}

// isNearDuplicate reports whether text is almost identical to an already
// included excerpt. Retrieval over overlapping chunks often returns adjacent
// windows of the same passage.
func isNearDuplicate(text string, included []string) bool {
	for _, prev := range included {
		sim, err := edlib.StringsSimilarity(text, prev, edlib.JaroWinkler)
		if err == nil && float64(sim) >= nearDuplicateSimilarity {
			return true
		}
	}
	return false
}

// estimateTokens approximates the token count as one token per four
// characters. Good enough for budgeting; the generator enforces nothing.
func estimateTokens(text string) int {
	return len(text) / 4
}
