package processor

import (
	"github.com/rohmanhakim/page-crawler/internal/frontier"
	"github.com/rohmanhakim/page-crawler/pkg/failure"
)

type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeSkip
	OutcomeFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkip:
		return "skip"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

type SkipReason string

const (
	SkipNone            SkipReason = ""
	SkipAlreadyClaimed  SkipReason = "already_claimed"
	SkipPageCapReached  SkipReason = "page_cap_reached"
	SkipBudgetExhausted SkipReason = "budget_exhausted"
)

// Outcome is the result of processing one frontier entry.
//
// Claimed tells whether the identifier was marked visited by this call; a
// claimed entry that ends in Failure or a budget Skip is never retried.
type Outcome struct {
	Kind           OutcomeKind
	Entry          frontier.Entry
	SkipReason     SkipReason
	Err            failure.ClassifiedError
	Claimed        bool
	Bytes          int
	LinksFound     int
	LinksEnqueued  int
	DroppedLinks   int
	EstimateFailed bool
}

func success(entry frontier.Entry) Outcome {
	return Outcome{Kind: OutcomeSuccess, Entry: entry, Claimed: true}
}

func skip(entry frontier.Entry, reason SkipReason, claimed bool) Outcome {
	return Outcome{Kind: OutcomeSkip, Entry: entry, SkipReason: reason, Claimed: claimed}
}

func failed(entry frontier.Entry, err failure.ClassifiedError) Outcome {
	return Outcome{Kind: OutcomeFailure, Entry: entry, Err: err, Claimed: true}
}
