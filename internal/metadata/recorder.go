package metadata

import (
	"io"
	"log/slog"
	"time"
)

/*
Metadata Collected
- Fetch timestamps
- HTTP status codes
- Claims and crawl depth
- Checkpoint writes

Logging Goals
- Debuggable crawl behavior
- Post-run auditability
- Failure diagnostics

Metadata is write-only.
No component may read metadata to influence crawl decisions.
*/

/*
Recorder captures structured crawl events and forwards them to a slog.Logger.
It must not:
- perform I/O decisions
- affect control flow
Ordering guarantees:
- Events are recorded synchronously in the order they are received by a single worker.
- No global ordering across workers is guaranteed.
*/
type Recorder struct {
	workerId string
	logger   *slog.Logger
}

// NewRecorder returns a Recorder tagging every event with workerId.
// A nil logger discards everything.
func NewRecorder(workerId string, logger *slog.Logger) Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return Recorder{
		workerId: workerId,
		logger:   logger.With("worker", workerId),
	}
}

// NewLogger builds the text logger used by the CLI.
// Verbose enables debug level; otherwise only info and above are written.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
	rec := ErrorRecord{
		packageName: packageName,
		action:      action,
		cause:       cause,
		errorString: errorString,
		observedAt:  observedAt,
		attrs:       attrs,
	}
	args := []any{
		"package", rec.packageName,
		"action", rec.action,
		"cause", rec.cause.String(),
		"error", rec.errorString,
		"observed_at", rec.observedAt,
	}
	r.logger.Warn("stage error", append(args, attrArgs(rec.attrs)...)...)
}

func (r *Recorder) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
	crawlDepth int,
) {
	ev := FetchEvent{
		fetchUrl:    fetchUrl,
		httpStatus:  httpStatus,
		duration:    duration,
		contentType: contentType,
		retryCount:  retryCount,
		crawlDepth:  crawlDepth,
	}
	r.logger.Debug("fetch",
		"url", ev.fetchUrl,
		"status", ev.httpStatus,
		"duration", ev.duration,
		"content_type", ev.contentType,
		"retries", ev.retryCount,
		"depth", ev.crawlDepth,
	)
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	args := []any{"kind", string(kind), "path", path}
	r.logger.Debug("artifact", append(args, attrArgs(attrs)...)...)
}

func (r *Recorder) RecordClaim(id string, depth int) {
	r.logger.Debug("claim", "url", id, "depth", depth)
}

func (r *Recorder) RecordCheckpoint(path string, count int, duration time.Duration, err error) {
	if err != nil {
		r.logger.Warn("checkpoint failed", "path", path, "count", count, "duration", duration, "error", err.Error())
		return
	}
	r.logger.Info("checkpoint saved", "path", path, "count", count, "duration", duration)
}

/*
RecordFinalCrawlStats records a terminal, derived summary of a completed crawl.

Contract:
  - MUST be called exactly once per crawl execution.
  - MUST be called only after crawl termination.
  - The provided counts MUST be derived from scheduler state,
    not accumulated incrementally via the recorder.
*/
func (r *Recorder) RecordFinalCrawlStats(
	totalPages int,
	totalRecords int,
	totalErrors int,
	totalBytes int64,
	duration time.Duration,
) {
	stats := crawlStats{
		totalPages:   totalPages,
		totalRecords: totalRecords,
		totalErrors:  totalErrors,
		totalBytes:   totalBytes,
		durationMs:   duration.Milliseconds(),
	}

	r.append(stats)
}

func (r *Recorder) append(s crawlStats) {
	r.logger.Info("crawl finished",
		"pages", s.totalPages,
		"records", s.totalRecords,
		"errors", s.totalErrors,
		"bytes", s.totalBytes,
		"duration_ms", s.durationMs,
	)
}

func attrArgs(attrs []Attribute) []any {
	args := make([]any, 0, len(attrs)*2)
	for _, a := range attrs {
		args = append(args, string(a.Key), a.Value)
	}
	return args
}

type MetadataSink interface {
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)

	RecordFetch(
		fetchUrl string,
		httpStatus int,
		duration time.Duration,
		contentType string,
		retryCount int,
		crawlDepth int,
	)
	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
	RecordClaim(id string, depth int)
	RecordCheckpoint(path string, count int, duration time.Duration, err error)
}

type CrawlFinalizer interface {
	RecordFinalCrawlStats(
		totalPages int,
		totalRecords int,
		totalErrors int,
		totalBytes int64,
		duration time.Duration,
	)
}

// NoopSink, struct that implements metadata.Sink but does nothing
// Scheduler (or Test) can decide whether to inject Recorder or NoopSink
// Purpose is to make metadata orthogonal

type NoopSink struct{}

func (n *NoopSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {

}

func (n *NoopSink) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
	crawlDepth int,
) {
}

func (n *NoopSink) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {}

func (n *NoopSink) RecordClaim(id string, depth int) {}

func (n *NoopSink) RecordCheckpoint(path string, count int, duration time.Duration, err error) {}

func (n *NoopSink) RecordFinalCrawlStats(
	totalPages int,
	totalRecords int,
	totalErrors int,
	totalBytes int64,
	duration time.Duration,
) {
}
