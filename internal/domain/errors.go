package domain

import "errors"

// Sentinel errors shared across the core. Callers match them with errors.Is;
// call sites wrap them with fmt.Errorf("...: %w", ...) to add context.
var (
	// Programmer or configuration errors. Fail fast, never retried.
	ErrInvalidDimension   = errors.New("index dimension must be positive")
	ErrDimensionMismatch  = errors.New("vector dimension mismatch")
	ErrLengthMismatch     = errors.New("vectors and payloads length mismatch")
	ErrInvalidChunkConfig = errors.New("chunk overlap must be smaller than chunk size")

	// Expected first-run conditions. Callers build/ingest and continue.
	ErrNotFound      = errors.New("no persisted index at path")
	ErrEmptyIndex    = errors.New("index holds no items")
	ErrIndexNotReady = errors.New("index not ready: ingest documents first")

	ErrCorruptIndex = errors.New("persisted index is corrupt")

	// Transient collaborator failures. The operation may succeed on retry.
	ErrEmbeddingFailure  = errors.New("embedding failed")
	ErrGenerationFailure = errors.New("generation failed")

	// Session errors.
	ErrEmptyQuestion     = errors.New("question is empty")
	ErrAlreadyProcessing = errors.New("a question is already being processed")
)
