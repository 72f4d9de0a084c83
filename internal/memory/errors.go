package memory

import "fmt"

// EmbeddingServiceUnavailable indicates the embedding backend itself failed
// (e.g. the adapter's HTTP call errored). Transient; callers at the API
// boundary should surface 503.
type EmbeddingServiceUnavailable struct {
	Cause error
}

func (e *EmbeddingServiceUnavailable) Error() string {
	return fmt.Sprintf("memory: embedding service unavailable: %v", e.Cause)
}
func (e *EmbeddingServiceUnavailable) Unwrap() error { return e.Cause }

// EmbeddingTextTooLong indicates text exceeded the backend's token limit
// even after chunk-and-average splitting (spec.md §4.2.1: "only when even
// chunking fails"). Callers at the API boundary should surface 400.
type EmbeddingTextTooLong struct {
	Length int
	Limit  int
}

func (e *EmbeddingTextTooLong) Error() string {
	return fmt.Sprintf("memory: text length %d exceeds embeddable limit even after chunking (limit %d chars/chunk)", e.Length, e.Limit)
}

// EmbeddingInvalidInput indicates empty or otherwise unusable input text.
// Callers at the API boundary should surface 400.
type EmbeddingInvalidInput struct {
	Reason string
}

func (e *EmbeddingInvalidInput) Error() string {
	return fmt.Sprintf("memory: invalid embedding input: %s", e.Reason)
}

// MemoryDisabled indicates the store cannot serve a request: a write
// attempted in ANALYSIS mode, or a retrieval whose embedding backend call
// failed (RetrieveEpisodes translates EmbeddingServiceUnavailable into it).
type MemoryDisabled struct {
	Reason string
}

func (e *MemoryDisabled) Error() string {
	return fmt.Sprintf("memory: store disabled: %s", e.Reason)
}

// LeakageViolation is raised when a decision_context candidate contains a
// token from the outcome-keyword blocklist (spec.md §4.2.2, invariant I1).
// Fail-fast: the write is never partially applied.
type LeakageViolation struct {
	MatchedToken string
}

func (e *LeakageViolation) Error() string {
	return fmt.Sprintf("memory: decision_context contains blocklisted outcome token %q — re-derive the context", e.MatchedToken)
}

// LegacyRecordRejected is raised when a stored record predates the
// leakage-enforcement guard and was never migrated (spec.md §9 open
// question: "ensure the new store rejects such legacy records on read
// unless migrated").
type LegacyRecordRejected struct {
	EpisodeID string
}

func (e *LegacyRecordRejected) Error() string {
	return fmt.Sprintf("memory: episode %q predates leakage enforcement and has not been migrated", e.EpisodeID)
}
