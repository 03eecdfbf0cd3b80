package rag

import "errors"

// Error taxonomy for the retrieval pipeline. Callers distinguish backend
// failures from "no results found": an empty RetrievalResult is returned with
// a nil error and is never represented as an error value.
var (
	// ErrModelUnavailable reports that an embedding or reranking backend is
	// unreachable or errored. Fatal for the current request's retrieval step.
	ErrModelUnavailable = errors.New("model backend unavailable")

	// ErrIndexUnavailable reports that the vector store is unreachable or
	// corrupted. Fatal for both ingestion and query paths; never recovered
	// from automatically.
	ErrIndexUnavailable = errors.New("vector index unavailable")
)
