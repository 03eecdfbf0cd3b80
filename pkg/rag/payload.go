package rag

import (
	"time"
)

// Payload field names shared by every vector store adapter. Filters address
// chunks by these keys regardless of backend.
const (
	FieldContent       = "content"
	FieldChunkID       = "chunk_id"
	FieldChunkIndex    = "chunk_index"
	FieldTotalChunks   = "total_chunks"
	FieldDocID         = "doc_id"
	FieldPublicationID = "publication_id"
	FieldSource        = "source"
	FieldExtractedAt   = "extracted_at"
	FieldWordCount     = "word_count"
	FieldDates         = "mentioned_dates"
	FieldTopics        = "topics"
	FieldCompanies     = "mentioned_companies"
	FieldContentHash   = "content_hash"
)

// ChunkPayload flattens a chunk into the string/number/list-of-string mapping
// persisted alongside its vector. Every adapter stores exactly this shape.
func ChunkPayload(c Chunk) map[string]any {
	p := map[string]any{
		FieldContent:       c.Text,
		FieldChunkID:       c.ID,
		FieldChunkIndex:    int64(c.Index),
		FieldTotalChunks:   int64(c.TotalChunks),
		FieldDocID:         c.DocID,
		FieldPublicationID: c.Metadata.PublicationID,
		FieldSource:        c.Metadata.Source,
		FieldWordCount:     int64(c.Metadata.WordCount),
		FieldContentHash:   c.Metadata.ContentHash,
	}
	if !c.Metadata.ExtractedAt.IsZero() {
		p[FieldExtractedAt] = c.Metadata.ExtractedAt.UTC().Format(time.RFC3339)
	}
	if len(c.Metadata.MentionedDates) > 0 {
		p[FieldDates] = append([]string(nil), c.Metadata.MentionedDates...)
	}
	if len(c.Metadata.Topics) > 0 {
		p[FieldTopics] = append([]string(nil), c.Metadata.Topics...)
	}
	if len(c.Metadata.MentionedCompanies) > 0 {
		p[FieldCompanies] = append([]string(nil), c.Metadata.MentionedCompanies...)
	}
	return p
}

// ChunkFromPayload rebuilds a chunk from a stored payload. Unknown or
// missing fields fall back to zero values; adapters tolerate sparse records.
func ChunkFromPayload(p map[string]any) Chunk {
	c := Chunk{
		ID:          payloadString(p, FieldChunkID),
		Text:        payloadString(p, FieldContent),
		Index:       int(payloadInt(p, FieldChunkIndex)),
		TotalChunks: int(payloadInt(p, FieldTotalChunks)),
		DocID:       payloadString(p, FieldDocID),
	}
	c.Metadata = DocumentMetadata{
		PublicationID:      payloadString(p, FieldPublicationID),
		Source:             payloadString(p, FieldSource),
		WordCount:          int(payloadInt(p, FieldWordCount)),
		MentionedDates:     payloadStrings(p, FieldDates),
		Topics:             payloadStrings(p, FieldTopics),
		MentionedCompanies: payloadStrings(p, FieldCompanies),
		ContentHash:        payloadString(p, FieldContentHash),
	}
	if ts := payloadString(p, FieldExtractedAt); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			c.Metadata.ExtractedAt = t
		}
	}
	return c
}

func payloadString(p map[string]any, key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

func payloadInt(p map[string]any, key string) int64 {
	switch v := p[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func payloadStrings(p map[string]any, key string) []string {
	switch v := p[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
