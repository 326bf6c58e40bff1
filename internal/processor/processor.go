package processor

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rohmanhakim/page-crawler/internal/editrate"
	"github.com/rohmanhakim/page-crawler/internal/extractor"
	"github.com/rohmanhakim/page-crawler/internal/fetcher"
	"github.com/rohmanhakim/page-crawler/internal/frontier"
	"github.com/rohmanhakim/page-crawler/internal/metadata"
	"github.com/rohmanhakim/page-crawler/internal/record"
	"github.com/rohmanhakim/page-crawler/internal/storage"
	"github.com/rohmanhakim/page-crawler/internal/visited"
	"github.com/rohmanhakim/page-crawler/pkg/limiter"
)

/*
Processor runs one unit of crawl work for a single frontier entry.

Pipeline:
 1. Claim the identifier in the visited registry (at most one claim per id)
 2. Wait for a rate-limiter token, then fetch
 3. Extract title, tokens and links
 4. Estimate the edit rate (rate limited too; any failure yields 0)
 5. Build the record and append it to the output sink
 6. Enqueue outbound links at depth+1, unless the record was rejected
    or the output budget is now exhausted

Guarantees:
 - Each identifier is fetched at most once per registry lifetime
 - A failing page never affects other pages
 - Malformed links are counted and dropped, never fatal
 - The processor never decides when the crawl stops
*/
type Processor struct {
	metadataSink metadata.MetadataSink
	registry     *visited.Registry
	frontier     *frontier.Frontier
	limiter      limiter.RateLimiter
	fetcher      fetcher.Fetcher
	extractor    extractor.Extractor
	estimator    editrate.Estimator
	sink         storage.Sink
}

type Deps struct {
	MetadataSink metadata.MetadataSink
	Registry     *visited.Registry
	Frontier     *frontier.Frontier
	Limiter      limiter.RateLimiter
	Fetcher      fetcher.Fetcher
	Extractor    extractor.Extractor
	// Estimator may be nil, in which case every record carries 0.
	Estimator editrate.Estimator
	Sink      storage.Sink
}

func New(deps Deps) *Processor {
	estimator := deps.Estimator
	if estimator == nil {
		estimator = editrate.Zero{}
	}
	return &Processor{
		metadataSink: deps.MetadataSink,
		registry:     deps.Registry,
		frontier:     deps.Frontier,
		limiter:      deps.Limiter,
		fetcher:      deps.Fetcher,
		extractor:    deps.Extractor,
		estimator:    estimator,
		sink:         deps.Sink,
	}
}

func (p *Processor) Process(ctx context.Context, entry frontier.Entry) Outcome {
	// Claiming after the budget is gone would mark the page visited
	// without ever writing it.
	if p.sink.Exceeded() {
		return skip(entry, SkipBudgetExhausted, false)
	}

	if !p.registry.TryClaim(entry.ID) {
		if p.registry.Contains(entry.ID) {
			return skip(entry, SkipAlreadyClaimed, false)
		}
		return skip(entry, SkipPageCapReached, false)
	}
	p.metadataSink.RecordClaim(entry.ID, entry.Depth)

	if err := p.admit(ctx, entry, "fetch"); err != nil {
		return failed(entry, err)
	}

	fetched, err := p.fetcher.Fetch(ctx, entry.Depth, entry.ID)
	if err != nil {
		return failed(entry, err)
	}

	extracted, err := p.extractor.Extract(fetched.URL(), fetched.Body())
	if err != nil {
		return failed(entry, err)
	}

	editsPerDay, estimateFailed := p.estimate(ctx, entry)

	rec := record.New(entry.ID, extracted.Title, extracted.Tokens, editsPerDay, extracted.Links)

	appended, err := p.sink.Append(rec)
	if err != nil {
		outcome := failed(entry, err)
		outcome.DroppedLinks = extracted.DroppedLinks
		return outcome
	}
	if appended.Rejected() {
		outcome := skip(entry, SkipBudgetExhausted, true)
		outcome.DroppedLinks = extracted.DroppedLinks
		return outcome
	}

	outcome := success(entry)
	outcome.Bytes = appended.Bytes()
	outcome.LinksFound = len(extracted.Links)
	outcome.DroppedLinks = extracted.DroppedLinks
	outcome.EstimateFailed = estimateFailed

	if appended.Exceeded() {
		return outcome
	}

	for _, link := range extracted.Links {
		if p.registry.Contains(link) {
			continue
		}
		if p.frontier.Push(frontier.NewEntry(link, entry.Depth+1, frontier.SourceCrawl)) {
			outcome.LinksEnqueued++
		}
	}

	return outcome
}

// admit waits for a rate-limiter token on behalf of entry.
func (p *Processor) admit(ctx context.Context, entry frontier.Entry, purpose string) *ProcessError {
	if err := p.limiter.Acquire(ctx); err != nil {
		procErr := &ProcessError{
			Message: purpose + ": " + err.Error(),
			Cause:   ErrCauseAdmissionInterrupted,
		}
		p.metadataSink.RecordError(
			time.Now(),
			"processor",
			"Processor.admit",
			mapProcessErrorToMetadataCause(procErr),
			procErr.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, entry.ID),
				metadata.NewAttr(metadata.AttrDepth, strconv.Itoa(entry.Depth)),
			},
		)
		return procErr
	}
	return nil
}

// estimate returns the edit rate of entry, degrading to 0 on any failure.
// Local estimators skip the rate limiter since they perform no requests.
func (p *Processor) estimate(ctx context.Context, entry frontier.Entry) (float64, bool) {
	if _, local := p.estimator.(editrate.Zero); local {
		return 0, false
	}

	if err := p.admit(ctx, entry, "edit rate"); err != nil {
		return 0, true
	}

	value, err := p.estimator.Estimate(ctx, entry.ID)
	if err != nil {
		cause := metadata.CauseUnknown
		var estimateErr *editrate.EstimateError
		if errors.As(err, &estimateErr) {
			cause = editrate.MapEstimateErrorToMetadataCause(estimateErr)
		}
		p.metadataSink.RecordError(
			time.Now(),
			"editrate",
			"Estimator.Estimate",
			cause,
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, entry.ID),
			},
		)
		return 0, true
	}
	return value, false
}
