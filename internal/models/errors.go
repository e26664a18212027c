package models

import "errors"

// Error sentinels for the import pipeline. Per-bookmark conditions
// (ErrInvalidTarget, ErrFetchFailed) are counted, never terminal; LLM
// conditions degrade to the deterministic fallbacks; storage unavailability
// and malformed input abort the run.
var (
	ErrMalformedInput     = errors.New("malformed bookmark archive")
	ErrInvalidTarget      = errors.New("url failed validation")
	ErrFetchFailed        = errors.New("page fetch failed")
	ErrLLMUnavailable     = errors.New("llm unavailable")
	ErrLLMTruncated       = errors.New("llm response truncated")
	ErrStorageConflict    = errors.New("storage key conflict")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrCancelled          = errors.New("import cancelled")
)
