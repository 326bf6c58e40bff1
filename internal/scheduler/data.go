package scheduler

import (
	"time"

	"github.com/rohmanhakim/page-crawler/internal/checkpoint"
	"github.com/rohmanhakim/page-crawler/internal/editrate"
	"github.com/rohmanhakim/page-crawler/internal/extractor"
	"github.com/rohmanhakim/page-crawler/internal/fetcher"
	"github.com/rohmanhakim/page-crawler/internal/metadata"
	"github.com/rohmanhakim/page-crawler/internal/storage"
	"github.com/rohmanhakim/page-crawler/internal/visited"
	"github.com/rohmanhakim/page-crawler/pkg/limiter"
	"github.com/rohmanhakim/page-crawler/pkg/retry"
)

type State int32

const (
	StateReady State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type StopReason string

const (
	StopNone              StopReason = ""
	StopFrontierExhausted StopReason = "frontier_exhausted"
	StopPageCap           StopReason = "page_cap_reached"
	StopOutputBudget      StopReason = "output_budget_exhausted"
	StopCancelled         StopReason = "cancelled"
	StopRunTimeout        StopReason = "run_timeout"
)

// CrawlStats is the summary of one Run. PagesVisited counts identifiers
// claimed in this run; Resumed counts the ones restored from a checkpoint.
type CrawlStats struct {
	RunID          string
	PagesVisited   int
	RecordsEmitted int
	BytesEmitted   int64
	Failures       int
	Skips          int
	DroppedLinks   int
	Resumed        int
	Pending        int
	Checkpoints    int
	StopReason     StopReason
	Duration       time.Duration
}

// CheckpointPolicy says when the visited set is persisted during a run.
// A save is triggered every EveryClaims successful claims and every
// Interval; a zero value disables that trigger. A final save always
// happens after the pool stops.
type CheckpointPolicy struct {
	EveryClaims int
	Interval    time.Duration
	RetryParam  retry.RetryParam
}

type Options struct {
	Seed        string
	MaxDepth    int
	WorkerCount int
	PopTimeout  time.Duration
	RunTimeout  time.Duration
	Checkpoint  CheckpointPolicy
}

// Deps are the collaborators a Scheduler drives. The scheduler owns none of
// them; callers close the sink and the store.
type Deps struct {
	MetadataSink   metadata.MetadataSink
	CrawlFinalizer metadata.CrawlFinalizer
	Registry       *visited.Registry
	Limiter        limiter.RateLimiter
	Fetcher        fetcher.Fetcher
	Extractor      extractor.Extractor
	Estimator      editrate.Estimator
	Sink           storage.Sink
	Store          checkpoint.Store
}
