package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rohmanhakim/page-crawler/internal/checkpoint"
	"github.com/rohmanhakim/page-crawler/internal/config"
	"github.com/rohmanhakim/page-crawler/internal/editrate"
	"github.com/rohmanhakim/page-crawler/internal/extractor"
	"github.com/rohmanhakim/page-crawler/internal/fetcher"
	"github.com/rohmanhakim/page-crawler/internal/frontier"
	"github.com/rohmanhakim/page-crawler/internal/metadata"
	"github.com/rohmanhakim/page-crawler/internal/processor"
	"github.com/rohmanhakim/page-crawler/internal/storage"
	"github.com/rohmanhakim/page-crawler/internal/visited"
	"github.com/rohmanhakim/page-crawler/pkg/limiter"
	"github.com/rohmanhakim/page-crawler/pkg/urlutil"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

/*
 Scheduler is the sole control-plane authority of the crawl.

 Lifecycle:
 - Ready → Running → Draining → Stopped, each transition happens once
 - Running: workers pop entries and process them
 - Draining: no new entry is popped; in-flight pages finish normally
 - Stopped: the pool has exited and the final checkpoint was attempted

 Stop conditions, whichever comes first:
 - the frontier is empty and nothing is in flight
 - the page cap is reached
 - the output budget is exhausted
 - the caller's context ends, or the run timeout expires

 Pipeline stages may detect and classify failure, but must never decide
 retry, continuation, or abortion. Only invalid options abort a run.

 Metadata emission is observational only and MUST NOT influence
 scheduling or crawl termination.
*/

type Scheduler struct {
	metadataSink   metadata.MetadataSink
	crawlFinalizer metadata.CrawlFinalizer
	registry       *visited.Registry
	limiter        limiter.RateLimiter
	fetcher        fetcher.Fetcher
	extractor      extractor.Extractor
	estimator      editrate.Estimator
	sink           storage.Sink
	store          checkpoint.Store
	options        Options
	closers        []io.Closer

	state    atomic.Int32
	frontier *frontier.Frontier
	runID    string
	resumed  int

	pagesVisited   atomic.Int64
	recordsEmitted atomic.Int64
	bytesEmitted   atomic.Int64
	failures       atomic.Int64
	skips          atomic.Int64
	droppedLinks   atomic.Int64
	checkpoints    atomic.Int64
	claims         atomic.Int64

	mu         sync.Mutex
	stopReason StopReason
	// entries popped but handed back unclaimed, kept for the checkpoint
	returned []frontier.Entry

	saves  singleflight.Group
	saveWG sync.WaitGroup
}

// NewScheduler wires the production collaborators described by cfg.
// The returned scheduler owns the output sink and the checkpoint store;
// Close releases them.
func NewScheduler(cfg config.Config, recorder *metadata.Recorder) (*Scheduler, error) {
	sink, err := storage.NewJSONLSink(cfg.OutputPath(), cfg.MaxOutputBytes(), recorder)
	if err != nil {
		return nil, err
	}
	store := checkpoint.Open(cfg.CheckpointPath())

	rateLimiter := limiter.NewTokenBucket(cfg.RequestsPerSecond())

	var estimator editrate.Estimator = editrate.Zero{}
	if cfg.EditRateSource() == config.EditRateMediaWiki {
		estimator = editrate.NewMediaWiki(
			cfg.UserAgent(),
			cfg.LinkPathPrefix(),
			cfg.EditRateWindow(),
			cfg.FetchTimeout(),
		).WithLimiter(rateLimiter)
	}

	domExtractor := extractor.NewDomExtractor(recorder, extractor.Options{
		DefaultTitle:          cfg.DefaultTitle(),
		Stopwords:             extractor.StopwordSet(cfg.Stopwords()),
		LinkPathPrefix:        cfg.LinkPathPrefix(),
		ExcludeLinkSubstrings: cfg.ExcludeLinkSubstrings(),
		SameHostOnly:          cfg.SameHostOnly(),
	})

	s := NewSchedulerWithDeps(OptionsFromConfig(cfg), Deps{
		MetadataSink:   recorder,
		CrawlFinalizer: recorder,
		Registry:       visited.NewRegistry(cfg.MaxPages()),
		Limiter:        rateLimiter,
		Fetcher:        fetcher.NewHTTPFetcher(recorder, cfg.UserAgent(), cfg.FetchTimeout(), cfg.MaxBodyBytes()),
		Extractor:      &domExtractor,
		Estimator:      estimator,
		Sink:           sink,
		Store:          store,
	})
	s.closers = []io.Closer{sink, store}
	return s, nil
}

// OptionsFromConfig maps the run configuration onto scheduler options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Seed:        cfg.Seed(),
		MaxDepth:    cfg.MaxDepth(),
		WorkerCount: cfg.WorkerCount(),
		PopTimeout:  cfg.PopTimeout(),
		RunTimeout:  cfg.RunTimeout(),
		Checkpoint: CheckpointPolicy{
			EveryClaims: cfg.CheckpointEveryClaims(),
			Interval:    cfg.CheckpointInterval(),
			RetryParam:  cfg.CheckpointRetryParam(),
		},
	}
}

// NewSchedulerWithDeps creates a Scheduler with injected collaborators.
func NewSchedulerWithDeps(options Options, deps Deps) *Scheduler {
	metadataSink := deps.MetadataSink
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	crawlFinalizer := deps.CrawlFinalizer
	if crawlFinalizer == nil {
		crawlFinalizer = &metadata.NoopSink{}
	}
	return &Scheduler{
		metadataSink:   metadataSink,
		crawlFinalizer: crawlFinalizer,
		registry:       deps.Registry,
		limiter:        deps.Limiter,
		fetcher:        deps.Fetcher,
		extractor:      deps.Extractor,
		estimator:      deps.Estimator,
		sink:           deps.Sink,
		store:          deps.Store,
		options:        options,
	}
}

// Run crawls until a stop condition holds and returns the run summary.
// Cancelling ctx drains the pool: pages already being processed complete
// and the final checkpoint is still written. The only errors returned are
// invalid options and a second call to Run.
func (s *Scheduler) Run(ctx context.Context) (CrawlStats, error) {
	seed, err := s.validate()
	if err != nil {
		return CrawlStats{}, err
	}
	if !s.state.CompareAndSwap(int32(StateReady), int32(StateRunning)) {
		return CrawlStats{}, ErrAlreadyStarted
	}

	startTime := time.Now()
	s.mu.Lock()
	s.runID = uuid.NewString()
	s.mu.Unlock()

	runCtx := ctx
	if s.options.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.options.RunTimeout)
		defer cancel()
	}
	// in-flight pages and checkpoint writes outlive cancellation
	workCtx := context.WithoutCancel(runCtx)

	s.frontier = frontier.New(s.options.MaxDepth, s.registry.CapReached)
	s.resume(workCtx, seed)

	proc := processor.New(processor.Deps{
		MetadataSink: s.metadataSink,
		Registry:     s.registry,
		Frontier:     s.frontier,
		Limiter:      s.limiter,
		Fetcher:      s.fetcher,
		Extractor:    s.extractor,
		Estimator:    s.estimator,
		Sink:         s.sink,
	})

	stopTicker := s.startCheckpointTicker(workCtx)

	// Workers never fail: page errors become outcomes and limits end in a
	// drain, so the group only joins them.
	var g errgroup.Group
	for range s.options.WorkerCount {
		g.Go(func() error {
			s.work(ctx, runCtx, workCtx, proc)
			return nil
		})
	}
	g.Wait()

	stopTicker()
	s.saveWG.Wait()
	s.saveCheckpoint(workCtx)

	s.mu.Lock()
	if s.stopReason == StopNone {
		s.stopReason = StopFrontierExhausted
	}
	s.mu.Unlock()
	s.state.Store(int32(StateStopped))

	stats := s.Stats()
	stats.Duration = time.Since(startTime)

	s.crawlFinalizer.RecordFinalCrawlStats(
		stats.PagesVisited,
		stats.RecordsEmitted,
		stats.Failures,
		stats.BytesEmitted,
		stats.Duration,
	)

	return stats, nil
}

func (s *Scheduler) validate() (string, error) {
	seed, err := urlutil.Normalize(s.options.Seed)
	if err != nil {
		return "", fmt.Errorf("%w: seed: %v", ErrInvalidOptions, err)
	}
	if s.options.WorkerCount <= 0 {
		return "", fmt.Errorf("%w: worker count must be positive, got %d", ErrInvalidOptions, s.options.WorkerCount)
	}
	if s.options.MaxDepth < 0 {
		return "", fmt.Errorf("%w: max depth must not be negative, got %d", ErrInvalidOptions, s.options.MaxDepth)
	}
	if s.options.PopTimeout <= 0 {
		return "", fmt.Errorf("%w: pop timeout must be positive", ErrInvalidOptions)
	}
	if s.registry == nil || s.limiter == nil || s.fetcher == nil || s.extractor == nil || s.sink == nil || s.store == nil {
		return "", fmt.Errorf("%w: missing collaborator", ErrInvalidOptions)
	}
	return seed, nil
}

// resume restores the visited set and pending entries from the checkpoint
// store, then seeds the frontier. A checkpoint that cannot be read is
// logged and the crawl starts from scratch.
func (s *Scheduler) resume(ctx context.Context, seed string) {
	cp, err := s.registry.LoadCheckpoint(ctx, s.store)
	if err != nil && !errors.Is(err, checkpoint.ErrNotFound) {
		cause := metadata.CauseStorageFailure
		var checkpointErr *checkpoint.CheckpointError
		if errors.As(err, &checkpointErr) {
			cause = checkpoint.MapCheckpointErrorToMetadataCause(checkpointErr)
		}
		s.metadataSink.RecordError(
			time.Now(),
			"scheduler",
			"Scheduler.resume",
			cause,
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrPath, s.store.Path()),
			},
		)
	}
	s.mu.Lock()
	s.resumed = s.registry.Count()
	s.mu.Unlock()

	if !s.registry.Contains(seed) {
		s.frontier.Push(frontier.NewEntry(seed, 0, frontier.SourceSeed))
	}
	for _, e := range cp.Pending {
		id, nerr := urlutil.Normalize(e.ID)
		if nerr != nil || s.registry.Contains(id) {
			continue
		}
		s.frontier.Push(frontier.NewEntry(id, e.Depth, frontier.SourceResume))
	}
}

func (s *Scheduler) work(
	parentCtx context.Context,
	runCtx context.Context,
	workCtx context.Context,
	proc *processor.Processor,
) {
	for {
		if reason := s.limitReached(parentCtx, runCtx); reason != StopNone {
			s.drain(reason)
			return
		}

		entry, ok := s.frontier.Pop(runCtx, s.options.PopTimeout)
		if !ok {
			if s.frontier.Idle() {
				// the last page may have exhausted a limit rather than the graph
				reason := s.limitReached(parentCtx, runCtx)
				if reason == StopNone {
					reason = StopFrontierExhausted
				}
				s.drain(reason)
				return
			}
			if s.State() != StateRunning {
				return
			}
			continue
		}

		outcome := proc.Process(workCtx, entry)
		s.observe(workCtx, outcome)
		s.frontier.Done()
	}
}

func (s *Scheduler) limitReached(parentCtx, runCtx context.Context) StopReason {
	if runCtx.Err() != nil {
		if parentCtx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return StopRunTimeout
		}
		return StopCancelled
	}
	if s.registry.CapReached() {
		return StopPageCap
	}
	if s.sink.Exceeded() {
		return StopOutputBudget
	}
	return StopNone
}

// drain moves the scheduler to Draining, keeping the first stop reason,
// and wakes every worker blocked on the frontier.
func (s *Scheduler) drain(reason StopReason) {
	s.mu.Lock()
	if s.stopReason == StopNone {
		s.stopReason = reason
	}
	s.mu.Unlock()
	s.state.CompareAndSwap(int32(StateRunning), int32(StateDraining))
	s.frontier.Close()
}

func (s *Scheduler) observe(ctx context.Context, outcome processor.Outcome) {
	switch outcome.Kind {
	case processor.OutcomeSuccess:
		s.recordsEmitted.Add(1)
		s.bytesEmitted.Add(int64(outcome.Bytes))
	case processor.OutcomeFailure:
		s.failures.Add(1)
	case processor.OutcomeSkip:
		s.skips.Add(1)
	}
	s.droppedLinks.Add(int64(outcome.DroppedLinks))

	if !outcome.Claimed {
		if outcome.SkipReason == processor.SkipPageCapReached || outcome.SkipReason == processor.SkipBudgetExhausted {
			s.mu.Lock()
			s.returned = append(s.returned, outcome.Entry)
			s.mu.Unlock()
		}
		return
	}

	s.pagesVisited.Add(1)
	every := int64(s.options.Checkpoint.EveryClaims)
	if every > 0 && s.claims.Add(1)%every == 0 {
		s.saveInBackground(ctx)
	}
}

func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Stats returns a snapshot of the counters. It is safe to call while the
// crawl is running; Duration is only set on the value returned by Run.
func (s *Scheduler) Stats() CrawlStats {
	s.mu.Lock()
	reason := s.stopReason
	runID := s.runID
	resumed := s.resumed
	s.mu.Unlock()

	pending := 0
	if s.State() == StateStopped {
		pending = len(s.pendingEntries())
	}

	return CrawlStats{
		RunID:          runID,
		PagesVisited:   int(s.pagesVisited.Load()),
		RecordsEmitted: int(s.recordsEmitted.Load()),
		BytesEmitted:   s.bytesEmitted.Load(),
		Failures:       int(s.failures.Load()),
		Skips:          int(s.skips.Load()),
		DroppedLinks:   int(s.droppedLinks.Load()),
		Resumed:        resumed,
		Pending:        pending,
		Checkpoints:    int(s.checkpoints.Load()),
		StopReason:     reason,
	}
}

// Close releases the collaborators created by NewScheduler.
func (s *Scheduler) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
