package processor

import (
	"fmt"

	"github.com/rohmanhakim/page-crawler/internal/metadata"
	"github.com/rohmanhakim/page-crawler/pkg/failure"
)

type ProcessErrorCause string

const (
	ErrCauseAdmissionInterrupted ProcessErrorCause = "rate limiter wait interrupted"
)

type ProcessError struct {
	Message string
	Cause   ProcessErrorCause
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("processor error: %s: %s", e.Cause, e.Message)
}

func (e *ProcessError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

func mapProcessErrorToMetadataCause(err *ProcessError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseAdmissionInterrupted:
		return metadata.CausePolicyDisallow
	default:
		return metadata.CauseUnknown
	}
}
