package storage

import (
	"fmt"

	"github.com/rohmanhakim/page-crawler/internal/metadata"
	"github.com/rohmanhakim/page-crawler/pkg/failure"
)

type StorageErrorCause string

const (
	ErrCauseDiskFull        StorageErrorCause = "disk is full"
	ErrCauseWriteFailure    StorageErrorCause = "write failed"
	ErrCausePathError       StorageErrorCause = "path error"
	ErrCauseEncodingFailure StorageErrorCause = "encoding failed"
	ErrCauseSinkClosed      StorageErrorCause = "sink closed"
)

type StorageError struct {
	Message   string
	Retryable bool
	Cause     StorageErrorCause
	Path      string
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s: %s", e.Cause, e.Message)
}

// A failed append loses one record; the run goes on.
func (e *StorageError) Severity() failure.Severity {
	if e.Cause == ErrCausePathError {
		return failure.SeverityFatal
	}
	return failure.SeverityRecoverable
}

func (e *StorageError) IsRetryable() bool {
	return e.Retryable
}

// mapStorageErrorToMetadataCause maps storage-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapStorageErrorToMetadataCause(err *StorageError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseDiskFull, ErrCauseWriteFailure, ErrCausePathError, ErrCauseSinkClosed:
		return metadata.CauseStorageFailure
	case ErrCauseEncodingFailure:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
