package ingest

import (
	"errors"
	"fmt"
)

// Failure kinds surfaced by a sync run
var (
	ErrFetchFailed    = errors.New("fetch failed")
	ErrWriteFailed    = errors.New("write failed")
	ErrSyncInProgress = errors.New("sync already in progress")
)

// RunError aborts a sync run at Offset. It matches Kind and the cause with errors.Is.
type RunError struct {
	Offset int
	Kind   error
	Err    error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("sync aborted at offset %d: %v: %v", e.Offset, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause
func (e *RunError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
