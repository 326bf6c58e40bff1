package processor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rohmanhakim/page-crawler/internal/editrate"
	"github.com/rohmanhakim/page-crawler/internal/extractor"
	"github.com/rohmanhakim/page-crawler/internal/fetcher"
	"github.com/rohmanhakim/page-crawler/internal/frontier"
	"github.com/rohmanhakim/page-crawler/internal/metadata"
	"github.com/rohmanhakim/page-crawler/internal/processor"
	"github.com/rohmanhakim/page-crawler/internal/record"
	"github.com/rohmanhakim/page-crawler/internal/storage"
	"github.com/rohmanhakim/page-crawler/internal/visited"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	pageA = "https://es.wikipedia.org/wiki/A"
	pageB = "https://es.wikipedia.org/wiki/B"
	pageC = "https://es.wikipedia.org/wiki/C"
	body  = "<html><body><h1>A</h1><p>uno dos tres</p></body></html>"
)

type fixture struct {
	registry  *visited.Registry
	frontier  *frontier.Frontier
	limiter   *limiterMock
	fetcher   *fetcherMock
	extractor *extractorMock
	estimator *estimatorMock
	sink      *sinkMock
}

func newFixture(maxDepth, maxPages int) *fixture {
	registry := visited.NewRegistry(maxPages)
	f := &fixture{
		registry:  registry,
		frontier:  frontier.New(maxDepth, registry.CapReached),
		limiter:   new(limiterMock),
		fetcher:   new(fetcherMock),
		extractor: new(extractorMock),
		estimator: new(estimatorMock),
		sink:      new(sinkMock),
	}
	f.limiter.On("Acquire", mock.Anything).Return(nil)
	return f
}

func (f *fixture) processor(estimator editrate.Estimator) *processor.Processor {
	return processor.New(processor.Deps{
		MetadataSink: &metadata.NoopSink{},
		Registry:     f.registry,
		Frontier:     f.frontier,
		Limiter:      f.limiter,
		Fetcher:      f.fetcher,
		Extractor:    f.extractor,
		Estimator:    estimator,
		Sink:         f.sink,
	})
}

func (f *fixture) fetchOK(id string) {
	result := fetcher.NewFetchResult(id, id, []byte(body), 200, "text/html", nil)
	f.fetcher.On("Fetch", mock.Anything, mock.Anything, id).Return(result, nil)
}

func (f *fixture) extractOK(id string, links ...string) {
	f.extractor.On("Extract", id, []byte(body)).Return(extractor.ExtractionResult{
		Title:        "A",
		Tokens:       []string{"uno", "dos", "tres"},
		Links:        links,
		DroppedLinks: 1,
	}, nil)
}

func TestProcess_Success(t *testing.T) {
	f := newFixture(1, 10)
	f.fetchOK(pageA)
	f.extractOK(pageA, pageB, pageC)
	f.estimator.On("Estimate", mock.Anything, pageA).Return(2.5, nil)
	f.sink.On("Exceeded").Return(false)

	var written record.PageRecord
	f.sink.On("Append", mock.Anything).
		Run(func(args mock.Arguments) { written = args.Get(0).(record.PageRecord) }).
		Return(storage.NewAppendResult(120, 120, false, false), nil)

	outcome := f.processor(f.estimator).Process(context.Background(), frontier.NewEntry(pageA, 0, frontier.SourceSeed))

	assert.Equal(t, processor.OutcomeSuccess, outcome.Kind)
	assert.True(t, outcome.Claimed)
	assert.Equal(t, 120, outcome.Bytes)
	assert.Equal(t, 2, outcome.LinksFound)
	assert.Equal(t, 2, outcome.LinksEnqueued)
	assert.Equal(t, 1, outcome.DroppedLinks)
	assert.False(t, outcome.EstimateFailed)

	assert.Equal(t, pageA, written.Identifier())
	assert.Equal(t, []string{"uno dos", "dos tres"}, written.Bigrams())
	assert.Equal(t, []string{"uno dos tres"}, written.Trigrams())
	assert.Equal(t, 2.5, written.EditsPerDay())
	assert.Equal(t, []string{pageB, pageC}, written.Links())

	assert.True(t, f.registry.Contains(pageA))
	pending := f.frontier.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, pageB, pending[0].ID)
	assert.Equal(t, 1, pending[0].Depth)
	assert.Equal(t, frontier.SourceCrawl, pending[0].Source)

	// fetch and edit-rate lookup both wait for a token
	f.limiter.AssertNumberOfCalls(t, "Acquire", 2)
}

func TestProcess_ZeroEstimatorSkipsLimiter(t *testing.T) {
	f := newFixture(1, 10)
	f.fetchOK(pageA)
	f.extractOK(pageA)
	f.sink.On("Exceeded").Return(false)
	f.sink.On("Append", mock.Anything).Return(storage.NewAppendResult(10, 10, false, false), nil)

	outcome := f.processor(nil).Process(context.Background(), frontier.NewEntry(pageA, 0, frontier.SourceSeed))

	assert.Equal(t, processor.OutcomeSuccess, outcome.Kind)
	f.limiter.AssertNumberOfCalls(t, "Acquire", 1)
}

func TestProcess_AlreadyClaimed(t *testing.T) {
	f := newFixture(1, 10)
	f.sink.On("Exceeded").Return(false)
	require.True(t, f.registry.TryClaim(pageA))

	outcome := f.processor(nil).Process(context.Background(), frontier.NewEntry(pageA, 0, frontier.SourceSeed))

	assert.Equal(t, processor.OutcomeSkip, outcome.Kind)
	assert.Equal(t, processor.SkipAlreadyClaimed, outcome.SkipReason)
	assert.False(t, outcome.Claimed)
	f.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything)
	f.limiter.AssertNotCalled(t, "Acquire", mock.Anything)
}

func TestProcess_PageCapReached(t *testing.T) {
	f := newFixture(1, 1)
	f.sink.On("Exceeded").Return(false)
	require.True(t, f.registry.TryClaim(pageB))

	outcome := f.processor(nil).Process(context.Background(), frontier.NewEntry(pageA, 0, frontier.SourceSeed))

	assert.Equal(t, processor.OutcomeSkip, outcome.Kind)
	assert.Equal(t, processor.SkipPageCapReached, outcome.SkipReason)
	assert.False(t, f.registry.Contains(pageA))
}

func TestProcess_BudgetExhaustedBeforeClaim(t *testing.T) {
	f := newFixture(1, 10)
	f.sink.On("Exceeded").Return(true)

	outcome := f.processor(nil).Process(context.Background(), frontier.NewEntry(pageA, 0, frontier.SourceSeed))

	assert.Equal(t, processor.OutcomeSkip, outcome.Kind)
	assert.Equal(t, processor.SkipBudgetExhausted, outcome.SkipReason)
	assert.False(t, outcome.Claimed)
	assert.False(t, f.registry.Contains(pageA))
}

func TestProcess_FetchFailure(t *testing.T) {
	f := newFixture(1, 10)
	f.sink.On("Exceeded").Return(false)
	fetchErr := &fetcher.FetchError{Message: "boom", Cause: fetcher.ErrCauseRequest5xx, StatusCode: 503}
	f.fetcher.On("Fetch", mock.Anything, 0, pageA).Return(fetcher.FetchResult{}, fetchErr)

	outcome := f.processor(nil).Process(context.Background(), frontier.NewEntry(pageA, 0, frontier.SourceSeed))

	assert.Equal(t, processor.OutcomeFailure, outcome.Kind)
	assert.True(t, outcome.Claimed)
	assert.ErrorIs(t, outcome.Err, fetchErr)
	assert.True(t, f.registry.Contains(pageA), "a failed page stays visited")
	f.extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
	f.sink.AssertNotCalled(t, "Append", mock.Anything)
}

func TestProcess_ExtractFailure(t *testing.T) {
	f := newFixture(1, 10)
	f.sink.On("Exceeded").Return(false)
	f.fetchOK(pageA)
	extractErr := &extractor.ExtractionError{Message: "empty", Cause: extractor.ErrCauseEmptyDocument}
	f.extractor.On("Extract", pageA, mock.Anything).Return(extractor.ExtractionResult{}, extractErr)

	outcome := f.processor(nil).Process(context.Background(), frontier.NewEntry(pageA, 0, frontier.SourceSeed))

	assert.Equal(t, processor.OutcomeFailure, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, extractErr)
	f.sink.AssertNotCalled(t, "Append", mock.Anything)
}

func TestProcess_EstimateFailureDegradesToZero(t *testing.T) {
	f := newFixture(1, 10)
	f.sink.On("Exceeded").Return(false)
	f.fetchOK(pageA)
	f.extractOK(pageA)
	f.estimator.On("Estimate", mock.Anything, pageA).
		Return(0.0, &editrate.EstimateError{Message: "down", Cause: editrate.ErrCauseBadStatus})

	var written record.PageRecord
	f.sink.On("Append", mock.Anything).
		Run(func(args mock.Arguments) { written = args.Get(0).(record.PageRecord) }).
		Return(storage.NewAppendResult(10, 10, false, false), nil)

	outcome := f.processor(f.estimator).Process(context.Background(), frontier.NewEntry(pageA, 0, frontier.SourceSeed))

	assert.Equal(t, processor.OutcomeSuccess, outcome.Kind)
	assert.True(t, outcome.EstimateFailed)
	assert.Equal(t, 0.0, written.EditsPerDay())
}

func TestProcess_AppendRejected(t *testing.T) {
	f := newFixture(1, 10)
	f.sink.On("Exceeded").Return(false)
	f.fetchOK(pageA)
	f.extractOK(pageA, pageB)
	f.sink.On("Append", mock.Anything).Return(storage.NewAppendResult(0, 500, true, true), nil)

	outcome := f.processor(nil).Process(context.Background(), frontier.NewEntry(pageA, 0, frontier.SourceSeed))

	assert.Equal(t, processor.OutcomeSkip, outcome.Kind)
	assert.Equal(t, processor.SkipBudgetExhausted, outcome.SkipReason)
	assert.True(t, outcome.Claimed)
	assert.Equal(t, 0, f.frontier.Len())
}

func TestProcess_BudgetExceededByThisRecordStopsEnqueue(t *testing.T) {
	f := newFixture(1, 10)
	f.sink.On("Exceeded").Return(false)
	f.fetchOK(pageA)
	f.extractOK(pageA, pageB)
	f.sink.On("Append", mock.Anything).Return(storage.NewAppendResult(600, 600, true, false), nil)

	outcome := f.processor(nil).Process(context.Background(), frontier.NewEntry(pageA, 0, frontier.SourceSeed))

	assert.Equal(t, processor.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, 0, outcome.LinksEnqueued)
	assert.Equal(t, 0, f.frontier.Len())
}

func TestProcess_AppendFailure(t *testing.T) {
	f := newFixture(1, 10)
	f.sink.On("Exceeded").Return(false)
	f.fetchOK(pageA)
	f.extractOK(pageA, pageB)
	storageErr := &storage.StorageError{Message: "io", Cause: storage.ErrCauseWriteFailure}
	f.sink.On("Append", mock.Anything).Return(storage.AppendResult{}, storageErr)

	outcome := f.processor(nil).Process(context.Background(), frontier.NewEntry(pageA, 0, frontier.SourceSeed))

	assert.Equal(t, processor.OutcomeFailure, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, storageErr)
	assert.Equal(t, 0, f.frontier.Len())
}

func TestProcess_LinkFiltering(t *testing.T) {
	t.Run("visited links are not enqueued", func(t *testing.T) {
		f := newFixture(1, 10)
		f.sink.On("Exceeded").Return(false)
		f.fetchOK(pageA)
		f.extractOK(pageA, pageB, pageC)
		f.sink.On("Append", mock.Anything).Return(storage.NewAppendResult(10, 10, false, false), nil)
		require.True(t, f.registry.TryClaim(pageB))

		outcome := f.processor(nil).Process(context.Background(), frontier.NewEntry(pageA, 0, frontier.SourceSeed))

		assert.Equal(t, 1, outcome.LinksEnqueued)
		pending := f.frontier.Pending()
		require.Len(t, pending, 1)
		assert.Equal(t, pageC, pending[0].ID)
	})

	t.Run("links beyond max depth are not enqueued", func(t *testing.T) {
		f := newFixture(1, 10)
		f.sink.On("Exceeded").Return(false)
		f.fetchOK(pageA)
		f.extractOK(pageA, pageB)
		f.sink.On("Append", mock.Anything).Return(storage.NewAppendResult(10, 10, false, false), nil)

		outcome := f.processor(nil).Process(context.Background(), frontier.NewEntry(pageA, 1, frontier.SourceCrawl))

		assert.Equal(t, processor.OutcomeSuccess, outcome.Kind)
		assert.Equal(t, 1, outcome.LinksFound)
		assert.Equal(t, 0, outcome.LinksEnqueued)
		assert.Equal(t, 0, f.frontier.Len())
	})
}

func TestProcess_AdmissionInterrupted(t *testing.T) {
	f := newFixture(1, 10)
	f.limiter = new(limiterMock)
	f.limiter.On("Acquire", mock.Anything).Return(context.Canceled)
	f.sink.On("Exceeded").Return(false)

	outcome := f.processor(nil).Process(context.Background(), frontier.NewEntry(pageA, 0, frontier.SourceSeed))

	assert.Equal(t, processor.OutcomeFailure, outcome.Kind)
	var procErr *processor.ProcessError
	require.True(t, errors.As(outcome.Err, &procErr))
	assert.Equal(t, processor.ErrCauseAdmissionInterrupted, procErr.Cause)
	f.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything)
}

func TestOutcomeKind_String(t *testing.T) {
	assert.Equal(t, "success", processor.OutcomeSuccess.String())
	assert.Equal(t, "skip", processor.OutcomeSkip.String())
	assert.Equal(t, "failure", processor.OutcomeFailure.String())
}
