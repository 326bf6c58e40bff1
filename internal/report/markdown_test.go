package report_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/rohmanhakim/page-crawler/internal/report"
	"github.com/rohmanhakim/page-crawler/internal/scheduler"
	"github.com/rohmanhakim/page-crawler/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSummary() report.CrawlSummary {
	return report.CrawlSummary{
		Seed:           "https://es.wikipedia.org/wiki/Robot",
		OutputPath:     "wiki_data/wiki_data.jsonl",
		CheckpointPath: "wiki_data/checkpoint.json",
		FinishedAt:     time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC),
		Stats: scheduler.CrawlStats{
			RunID:          "3f8a",
			PagesVisited:   5,
			RecordsEmitted: 4,
			BytesEmitted:   2048,
			Failures:       1,
			Checkpoints:    2,
			StopReason:     scheduler.StopPageCap,
			Duration:       1500 * time.Millisecond,
		},
	}
}

func TestWriteCrawl(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.NewMarkdownWriter(&buf).WriteCrawl(sampleSummary()))

	out := buf.String()
	assert.Contains(t, out, "# Crawl Report")
	assert.Contains(t, out, "## Counts")
	assert.Contains(t, out, "https://es.wikipedia.org/wiki/Robot")
	assert.Contains(t, out, "page_cap_reached")
	assert.Contains(t, out, "Records emitted")
	assert.Contains(t, out, "2048")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "will not be retried")
}

func TestWriteCrawl_NoCheckpointWarning(t *testing.T) {
	summary := sampleSummary()
	summary.Stats.Checkpoints = 0

	var buf bytes.Buffer
	require.NoError(t, report.NewMarkdownWriter(&buf).WriteCrawl(summary))

	assert.Contains(t, buf.String(), "No checkpoint was written")
}

func TestWriteDedup(t *testing.T) {
	var buf bytes.Buffer
	stats := storage.DedupStats{Processed: 10, Written: 7, Duplicates: 2, Malformed: 1}
	require.NoError(t, report.NewMarkdownWriter(&buf).WriteDedup("in.jsonl", "out.jsonl", stats))

	out := buf.String()
	assert.Contains(t, out, "# Dedup Report")
	assert.Contains(t, out, "Duplicates dropped")
	assert.Contains(t, out, "in.jsonl")
}
