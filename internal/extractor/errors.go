package extractor

import (
	"fmt"

	"github.com/rohmanhakim/page-crawler/internal/metadata"
	"github.com/rohmanhakim/page-crawler/pkg/failure"
)

type ExtractionErrorCause string

const (
	ErrCauseNotHTML       ExtractionErrorCause = "not html"
	ErrCauseEmptyDocument ExtractionErrorCause = "empty document"
	ErrCauseInvalidSource ExtractionErrorCause = "invalid source url"
)

type ExtractionError struct {
	Message   string
	Retryable bool
	Cause     ExtractionErrorCause
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction error: %s: %s", e.Cause, e.Message)
}

// A document that cannot be extracted only loses its own record.
func (e *ExtractionError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

func (e *ExtractionError) IsRetryable() bool {
	return e.Retryable
}

// mapExtractionErrorToMetadataCause maps extractor-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapExtractionErrorToMetadataCause(err *ExtractionError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseNotHTML, ErrCauseEmptyDocument:
		return metadata.CauseContentInvalid
	case ErrCauseInvalidSource:
		return metadata.CauseInvariantViolation
	default:
		return metadata.CauseUnknown
	}
}
