package scheduler_test

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type crawlFinalizerMock struct {
	mock.Mock
}

func (c *crawlFinalizerMock) RecordFinalCrawlStats(
	totalPages int,
	totalRecords int,
	totalErrors int,
	totalBytes int64,
	duration time.Duration,
) {
	c.Called(totalPages, totalRecords, totalErrors, totalBytes, duration)
}
