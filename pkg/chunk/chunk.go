// Package chunk splits documents into overlapping segments for vector
// indexing. Splitting is hierarchical: paragraph breaks first, then line
// breaks, sentence boundaries, words, and finally raw characters, so a
// semantic unit is only cut mid-boundary when no separator produces a piece
// small enough. Adjacent pieces are merged greedily up to the chunk size with
// a trailing overlap carried into the next chunk.
//
// Every chunk gets a stable, content-derived id so unchanged re-ingestion is
// idempotent: the same text at the same position always hashes to the same id.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pressrag-ai/pressrag/pkg/rag"
)

// DefaultSeparators orders split boundaries from coarsest to finest. The
// trailing empty string is the character-level fallback.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

const (
	// DefaultSize is the target chunk length in characters.
	DefaultSize = 500
	// DefaultOverlap is the number of trailing characters carried from one
	// chunk into the start of the next.
	DefaultOverlap = 100

	// idPrefixLen is how many characters of chunk text feed the id hash.
	// Two chunks at the same index differing only beyond this prefix would
	// collide; the delete-then-insert re-ingestion path makes that harmless,
	// and keeping the scheme preserves ids across deployments.
	idPrefixLen = 50
)

// Chunker splits document text into overlapping chunks.
type Chunker struct {
	size       int
	overlap    int
	separators []string
}

// New creates a chunker with the given size and overlap in characters.
// Non-positive arguments fall back to the defaults.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", overlap, size)
	}
	return &Chunker{
		size:       size,
		overlap:    overlap,
		separators: DefaultSeparators,
	}, nil
}

// Chunk splits a document into chunks carrying the document's metadata.
// Documents shorter than the chunk size yield exactly one chunk; empty or
// whitespace-only documents yield none.
func (c *Chunker) Chunk(doc rag.Document, meta rag.DocumentMetadata) []rag.Chunk {
	if strings.TrimSpace(doc.Text) == "" {
		return nil
	}

	pieces := c.split(doc.Text, c.separators)
	texts := c.merge(pieces)

	chunks := make([]rag.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = rag.Chunk{
			ID:          ID(doc.ID, i, text),
			Text:        text,
			Index:       i,
			TotalChunks: len(texts),
			DocID:       doc.ID,
			Metadata:    meta,
		}
	}
	return chunks
}

// ID derives the stable chunk identifier: first 16 hex characters of
// sha256("{docID}_{index}_{first 50 chars of text}").
func ID(docID string, index int, text string) string {
	prefix := []rune(text)
	if len(prefix) > idPrefixLen {
		prefix = prefix[:idPrefixLen]
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s_%d_%s", docID, index, string(prefix))))
	return hex.EncodeToString(sum[:])[:16]
}

// split recursively divides text into pieces no longer than the chunk size,
// measured in runes. Separators stay attached to the preceding piece, so
// concatenating the pieces reproduces the input byte for byte.
func (c *Chunker) split(text string, separators []string) []string {
	if utf8.RuneCountInString(text) <= c.size {
		return []string{text}
	}
	if len(separators) == 0 || separators[0] == "" {
		return c.splitChars(text)
	}

	sep := separators[0]
	segments := strings.SplitAfter(text, sep)
	pieces := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		if utf8.RuneCountInString(seg) <= c.size {
			pieces = append(pieces, seg)
			continue
		}
		pieces = append(pieces, c.split(seg, separators[1:])...)
	}
	return pieces
}

// splitChars is the last-resort character-boundary split, aligned to rune
// boundaries so multi-byte text is never cut mid-codepoint.
func (c *Chunker) splitChars(text string) []string {
	var pieces []string
	runes := []rune(text)
	for len(runes) > 0 {
		n := c.size
		if n > len(runes) {
			n = len(runes)
		}
		pieces = append(pieces, string(runes[:n]))
		runes = runes[n:]
	}
	return pieces
}

// merge greedily packs pieces into chunks of at most the chunk size, measured
// in runes. When a chunk is emitted, trailing pieces totalling at most the
// overlap length are kept as the start of the next chunk, so consecutive
// chunks share a piece-aligned overlap region.
func (c *Chunker) merge(pieces []string) []string {
	var chunks []string
	var window []string
	current := 0

	for _, piece := range pieces {
		pieceLen := utf8.RuneCountInString(piece)
		if current > 0 && current+pieceLen > c.size {
			chunks = append(chunks, strings.Join(window, ""))

			var kept []string
			keptLen := 0
			for i := len(window) - 1; i >= 0; i-- {
				n := utf8.RuneCountInString(window[i])
				if keptLen+n > c.overlap {
					break
				}
				keptLen += n
				kept = append([]string{window[i]}, kept...)
			}
			// Drop leading overlap pieces until the incoming piece fits,
			// keeping every emitted chunk within the size limit.
			for len(kept) > 0 && keptLen+pieceLen > c.size {
				keptLen -= utf8.RuneCountInString(kept[0])
				kept = kept[1:]
			}
			window = kept
			current = keptLen
		}
		window = append(window, piece)
		current += pieceLen
	}
	if current > 0 {
		chunks = append(chunks, strings.Join(window, ""))
	}
	return chunks
}
