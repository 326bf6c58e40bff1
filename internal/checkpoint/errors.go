package checkpoint

import (
	"fmt"

	"github.com/rohmanhakim/page-crawler/internal/metadata"
	"github.com/rohmanhakim/page-crawler/pkg/failure"
)

type CheckpointErrorCause string

const (
	ErrCauseNotFound     CheckpointErrorCause = "checkpoint not found"
	ErrCauseCorrupt      CheckpointErrorCause = "checkpoint corrupt"
	ErrCauseReadFailure  CheckpointErrorCause = "read failed"
	ErrCauseWriteFailure CheckpointErrorCause = "write failed"
)

// Sentinels for errors.Is; a CheckpointError matches the sentinel carrying the same cause.
var (
	ErrNotFound = &CheckpointError{Cause: ErrCauseNotFound}
	ErrCorrupt  = &CheckpointError{Cause: ErrCauseCorrupt}
)

type CheckpointError struct {
	Message   string
	Retryable bool
	Cause     CheckpointErrorCause
	Path      string
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint error: %s: %s", e.Cause, e.Message)
}

// Checkpoint failures never abort a run.
func (e *CheckpointError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

func (e *CheckpointError) IsRetryable() bool {
	return e.Retryable
}

func (e *CheckpointError) Is(target error) bool {
	t, ok := target.(*CheckpointError)
	if !ok {
		return false
	}
	return t.Cause == "" || t.Cause == e.Cause
}

// MapCheckpointErrorToMetadataCause maps checkpoint-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func MapCheckpointErrorToMetadataCause(err *CheckpointError) metadata.ErrorCause {
	if err == nil {
		return metadata.CauseUnknown
	}
	switch err.Cause {
	case ErrCauseCorrupt, ErrCauseReadFailure, ErrCauseWriteFailure:
		return metadata.CauseStorageFailure
	default:
		return metadata.CauseUnknown
	}
}
