// Package extract derives structured metadata from raw document text and
// filenames: topic classification, mentioned dates and companies, word count,
// and a content hash used for de-duplication.
//
// Extraction is an enrichment, not a gate: it never fails on malformed input
// and degrades to empty fields instead.
package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/pressrag-ai/pressrag/pkg/rag"
)

// DefaultSource labels documents whose origin is not configured explicitly.
const DefaultSource = "Deutsche Telekom"

// topicKeywords maps each topic bucket to the lowercase keywords that
// classify a document into it. A document may match any number of buckets.
var topicKeywords = map[string][]string{
	"5G":             {"5g", "5-g", "fifth generation"},
	"Security":       {"security", "cybersecurity", "secure", "protection", "safety", "encryption"},
	"Partnership":    {"partnership", "partner", "collaboration", "alliance", "joint", "cooperation"},
	"Product":        {"product", "service", "solution", "offering", "platform", "tool"},
	"Sustainability": {"sustainability", "sustainable", "environment", "climate", "green", "carbon", "renewable"},
}

// topicOrder fixes the output ordering of matched topics.
var topicOrder = []string{"5G", "Security", "Partnership", "Product", "Sustainability"}

// datePattern matches DD.MM.YYYY or YYYY-MM-DD.
var datePattern = regexp.MustCompile(`\b(\d{2}\.\d{2}\.\d{4}|\d{4}-\d{2}-\d{2})\b`)

const companyLimit = 10

// Extractor derives DocumentMetadata from text. The zero value is not usable;
// construct with New.
type Extractor struct {
	source string
	now    func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithSource overrides the source label stamped on extracted metadata.
func WithSource(source string) Option {
	return func(e *Extractor) { e.source = source }
}

// WithClock overrides the extraction timestamp source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// New creates a metadata extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		source: DefaultSource,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract derives metadata from document text and its original filename.
// Pure and total: malformed input yields default fields, never an error.
func (e *Extractor) Extract(text, filename string) rag.DocumentMetadata {
	return rag.DocumentMetadata{
		PublicationID:      Stem(filename),
		Source:             e.source,
		ExtractedAt:        e.now().UTC(),
		WordCount:          len(strings.Fields(text)),
		MentionedDates:     extractDates(text),
		Topics:             extractTopics(text),
		MentionedCompanies: extractCompanies(text, companyLimit),
		ContentHash:        ContentHash(text),
	}
}

// Stem returns the filename without directory or extension, the document id
// convention used across the pipeline.
func Stem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ContentHash returns the sha256 hex digest of the full document text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// extractDates collects all date mentions normalized to ISO (YYYY-MM-DD),
// de-duplicated, preserving first-appearance order.
func extractDates(text string) []string {
	matches := datePattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	dates := make([]string, 0, len(matches))
	for _, m := range matches {
		iso := normalizeDate(m)
		if _, dup := seen[iso]; dup {
			continue
		}
		seen[iso] = struct{}{}
		dates = append(dates, iso)
	}
	return dates
}

// normalizeDate converts DD.MM.YYYY to YYYY-MM-DD; ISO input passes through.
func normalizeDate(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return s
	}
	return fmt.Sprintf("%s-%s-%s", parts[2], parts[1], parts[0])
}

// extractTopics classifies text into topic buckets by keyword containment.
func extractTopics(text string) []string {
	lower := strings.ToLower(text)
	var topics []string
	for _, topic := range topicOrder {
		for _, kw := range topicKeywords[topic] {
			if strings.Contains(lower, kw) {
				topics = append(topics, topic)
				break
			}
		}
	}
	return topics
}

// extractCompanies finds candidate company names as consecutive capitalized
// word pairs. Heuristic by design: false positives are acceptable.
func extractCompanies(text string, limit int) []string {
	words := strings.Fields(text)
	var companies []string
	seen := make(map[string]struct{})

	for i := 0; i+1 < len(words); i++ {
		w1 := strings.Trim(words[i], `.,;:!?"'()[]{}`)
		w2 := strings.Trim(words[i+1], `.,;:!?"'()[]{}`)
		if !isCapCaseWord(w1) || !isCapCaseWord(w2) {
			continue
		}
		bigram := w1 + " " + w2
		if _, dup := seen[bigram]; dup {
			continue
		}
		seen[bigram] = struct{}{}
		companies = append(companies, bigram)
		if len(companies) >= limit {
			break
		}
	}
	return companies
}

// isCapCaseWord reports whether a word is alphabetic, starts with an upper
// case letter, and is not fully upper case (filters acronyms and shouting).
func isCapCaseWord(w string) bool {
	if w == "" {
		return false
	}
	allUpper := true
	for i, r := range w {
		if !unicode.IsLetter(r) {
			return false
		}
		if i == 0 && !unicode.IsUpper(r) {
			return false
		}
		if unicode.IsLower(r) {
			allUpper = false
		}
	}
	return !allUpper
}
