package metadata_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/rohmanhakim/page-crawler/internal/metadata"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_RecordError(t *testing.T) {
	var buf bytes.Buffer
	rec := metadata.NewRecorder("w1", metadata.NewLogger(&buf, false))

	rec.RecordError(
		time.Now(),
		"fetcher",
		"HTTPFetcher.Fetch",
		metadata.CauseNetworkFailure,
		"connection reset",
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrURL, "https://example.com/a")},
	)

	out := buf.String()
	assert.Contains(t, out, "worker=w1")
	assert.Contains(t, out, "package=fetcher")
	assert.Contains(t, out, "cause=network_failure")
	assert.Contains(t, out, "url=https://example.com/a")
}

func TestRecorder_DebugEventsHiddenUnlessVerbose(t *testing.T) {
	var quiet, verbose bytes.Buffer
	q := metadata.NewRecorder("w", metadata.NewLogger(&quiet, false))
	v := metadata.NewRecorder("w", metadata.NewLogger(&verbose, true))

	q.RecordClaim("https://example.com/a", 1)
	v.RecordClaim("https://example.com/a", 1)

	assert.Empty(t, quiet.String())
	assert.Contains(t, verbose.String(), "msg=claim")
	assert.Contains(t, verbose.String(), "depth=1")
}

func TestRecorder_RecordCheckpoint(t *testing.T) {
	var buf bytes.Buffer
	rec := metadata.NewRecorder("scheduler", metadata.NewLogger(&buf, false))

	rec.RecordCheckpoint("cp.json", 3, time.Millisecond, nil)
	assert.Contains(t, buf.String(), "checkpoint saved")

	buf.Reset()
	rec.RecordCheckpoint("cp.json", 3, time.Millisecond, errors.New("disk full"))
	assert.Contains(t, buf.String(), "checkpoint failed")
	assert.Contains(t, buf.String(), "disk full")
}

func TestRecorder_RecordFinalCrawlStats(t *testing.T) {
	var buf bytes.Buffer
	rec := metadata.NewRecorder("scheduler", metadata.NewLogger(&buf, false))

	rec.RecordFinalCrawlStats(5, 4, 1, 2048, 1500*time.Millisecond)

	out := buf.String()
	assert.Contains(t, out, "pages=5")
	assert.Contains(t, out, "records=4")
	assert.Contains(t, out, "errors=1")
	assert.Contains(t, out, "bytes=2048")
	assert.Contains(t, out, "duration_ms=1500")
}

func TestRecorder_NilLoggerDiscards(t *testing.T) {
	rec := metadata.NewRecorder("w", nil)
	assert.NotPanics(t, func() {
		rec.RecordFetch("https://example.com", 200, time.Second, "text/html", 0, 0)
	})
}

func TestErrorCause_String(t *testing.T) {
	assert.Equal(t, "unknown", metadata.CauseUnknown.String())
	assert.Equal(t, "storage_failure", metadata.CauseStorageFailure.String())
	assert.Equal(t, "retry_failure", metadata.CauseRetryFailure.String())
}
