package common

import (
	"github.com/google/uuid"
)

// NewRunID generates a unique import run ID with the "run_" prefix.
// Used as the log correlation ID for a single import pipeline execution.
// Format: run_<uuid>
func NewRunID() string {
	return "run_" + uuid.New().String()
}
