package editrate

import (
	"fmt"

	"github.com/rohmanhakim/page-crawler/internal/metadata"
	"github.com/rohmanhakim/page-crawler/pkg/failure"
)

type EstimateErrorCause string

const (
	ErrCauseNotWikiPage     EstimateErrorCause = "not a wiki page"
	ErrCauseRequestFailure  EstimateErrorCause = "request failed"
	ErrCauseBadStatus       EstimateErrorCause = "unexpected status"
	ErrCauseInvalidResponse EstimateErrorCause = "invalid response"
	ErrCausePageMissing     EstimateErrorCause = "page missing"
)

type EstimateError struct {
	Message string
	Cause   EstimateErrorCause
}

func (e *EstimateError) Error() string {
	return fmt.Sprintf("edit rate error: %s: %s", e.Cause, e.Message)
}

// An estimate failure degrades the metric to zero; it never fails a page.
func (e *EstimateError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

// MapEstimateErrorToMetadataCause maps estimator-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func MapEstimateErrorToMetadataCause(err *EstimateError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseRequestFailure, ErrCauseBadStatus:
		return metadata.CauseNetworkFailure
	case ErrCauseInvalidResponse, ErrCausePageMissing, ErrCauseNotWikiPage:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
