package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable means the document source failed to load; fatal
	// for an ingestion run, never for the serving process.
	ErrSourceUnavailable = errors.New("document source unavailable")
	// ErrIndexUnavailable means the vector store is unreachable; fatal for
	// a single retrieval call, no automatic retry inside the core.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrRerankerUnavailable is recoverable: retrieval degrades to
	// normalized native-similarity scoring.
	ErrRerankerUnavailable = errors.New("reranker unavailable")
	// ErrIngestionRunning signals a second ingestion trigger while one is
	// active; the trigger is rejected, not queued.
	ErrIngestionRunning = errors.New("ingestion already running")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTemporary        = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
