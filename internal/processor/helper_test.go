package processor_test

import (
	"context"

	"github.com/rohmanhakim/page-crawler/internal/extractor"
	"github.com/rohmanhakim/page-crawler/internal/fetcher"
	"github.com/rohmanhakim/page-crawler/internal/record"
	"github.com/rohmanhakim/page-crawler/internal/storage"
	"github.com/rohmanhakim/page-crawler/pkg/failure"
	"github.com/stretchr/testify/mock"
)

type fetcherMock struct {
	mock.Mock
}

func (f *fetcherMock) Fetch(ctx context.Context, crawlDepth int, id string) (fetcher.FetchResult, failure.ClassifiedError) {
	args := f.Called(ctx, crawlDepth, id)
	result := args.Get(0).(fetcher.FetchResult)
	var err failure.ClassifiedError
	if args.Get(1) != nil {
		err = args.Get(1).(failure.ClassifiedError)
	}
	return result, err
}

type extractorMock struct {
	mock.Mock
}

func (e *extractorMock) Extract(sourceURL string, htmlByte []byte) (extractor.ExtractionResult, failure.ClassifiedError) {
	args := e.Called(sourceURL, htmlByte)
	result := args.Get(0).(extractor.ExtractionResult)
	var err failure.ClassifiedError
	if args.Get(1) != nil {
		err = args.Get(1).(failure.ClassifiedError)
	}
	return result, err
}

type estimatorMock struct {
	mock.Mock
}

func (e *estimatorMock) Estimate(ctx context.Context, id string) (float64, failure.ClassifiedError) {
	args := e.Called(ctx, id)
	var err failure.ClassifiedError
	if args.Get(1) != nil {
		err = args.Get(1).(failure.ClassifiedError)
	}
	return args.Get(0).(float64), err
}

type sinkMock struct {
	mock.Mock
}

func (s *sinkMock) Append(rec record.PageRecord) (storage.AppendResult, failure.ClassifiedError) {
	args := s.Called(rec)
	result := args.Get(0).(storage.AppendResult)
	var err failure.ClassifiedError
	if args.Get(1) != nil {
		err = args.Get(1).(failure.ClassifiedError)
	}
	return result, err
}

func (s *sinkMock) Exceeded() bool {
	return s.Called().Bool(0)
}

func (s *sinkMock) Total() int64 {
	return s.Called().Get(0).(int64)
}

type limiterMock struct {
	mock.Mock
}

func (l *limiterMock) Acquire(ctx context.Context) error {
	return l.Called(ctx).Error(0)
}

func (l *limiterMock) TryAcquire() bool {
	return l.Called().Bool(0)
}
