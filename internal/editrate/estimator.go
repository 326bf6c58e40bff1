package editrate

import (
	"context"

	"github.com/rohmanhakim/page-crawler/pkg/failure"
)

// Estimator computes the edits-per-day metric of a page.
// Callers treat any error as a metric of 0.
type Estimator interface {
	Estimate(ctx context.Context, id string) (float64, failure.ClassifiedError)
}

// Zero reports 0 for every page without any I/O.
type Zero struct{}

func (Zero) Estimate(ctx context.Context, id string) (float64, failure.ClassifiedError) {
	return 0, nil
}
