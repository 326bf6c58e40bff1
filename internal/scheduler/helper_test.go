package scheduler_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rohmanhakim/page-crawler/internal/checkpoint"
	"github.com/rohmanhakim/page-crawler/internal/editrate"
	"github.com/rohmanhakim/page-crawler/internal/extractor"
	"github.com/rohmanhakim/page-crawler/internal/metadata"
	"github.com/rohmanhakim/page-crawler/internal/scheduler"
	"github.com/rohmanhakim/page-crawler/internal/storage"
	"github.com/rohmanhakim/page-crawler/internal/visited"
	"github.com/rohmanhakim/page-crawler/pkg/limiter"
	"github.com/rohmanhakim/page-crawler/pkg/retry"
	"github.com/rohmanhakim/page-crawler/pkg/timeutil"
	"github.com/stretchr/testify/require"
)

type crawlSetup struct {
	dir            string
	web            *fakeWeb
	seed           string
	maxDepth       int
	maxPages       int
	maxBytes       int64
	workers        int
	everyClaims    int
	checkpointPath string
	metadataSink   metadata.MetadataSink
	finalizer      metadata.CrawlFinalizer
}

func newCrawlSetup(t *testing.T, web *fakeWeb) *crawlSetup {
	t.Helper()
	dir := t.TempDir()
	return &crawlSetup{
		dir:            dir,
		web:            web,
		seed:           wiki("A"),
		maxDepth:       1,
		maxPages:       5,
		maxBytes:       1 << 20,
		workers:        4,
		everyClaims:    50,
		checkpointPath: filepath.Join(dir, "checkpoint.json"),
		metadataSink:   &metadata.NoopSink{},
		finalizer:      &metadata.NoopSink{},
	}
}

func (c *crawlSetup) outputPath() string {
	return filepath.Join(c.dir, "out.jsonl")
}

func (c *crawlSetup) build(t *testing.T) *scheduler.Scheduler {
	t.Helper()

	sink, err := storage.NewJSONLSink(c.outputPath(), c.maxBytes, c.metadataSink)
	require.Nil(t, err)
	store := checkpoint.Open(c.checkpointPath)
	t.Cleanup(func() {
		_ = sink.Close()
		_ = store.Close()
	})

	ext := extractor.NewDomExtractor(c.metadataSink, extractor.Options{
		DefaultTitle:          "Sin título",
		Stopwords:             extractor.StopwordsSpanish,
		LinkPathPrefix:        "/wiki/",
		ExcludeLinkSubstrings: []string{":"},
		SameHostOnly:          true,
	})

	return scheduler.NewSchedulerWithDeps(
		scheduler.Options{
			Seed:        c.seed,
			MaxDepth:    c.maxDepth,
			WorkerCount: c.workers,
			PopTimeout:  20 * time.Millisecond,
			Checkpoint: scheduler.CheckpointPolicy{
				EveryClaims: c.everyClaims,
				RetryParam:  retry.NewRetryParam(0, 1, 1, timeutil.NewBackoffParam(time.Millisecond, 1, time.Millisecond)),
			},
		},
		scheduler.Deps{
			MetadataSink:   c.metadataSink,
			CrawlFinalizer: c.finalizer,
			Registry:       visited.NewRegistry(c.maxPages),
			Limiter:        limiter.NewTokenBucket(10000),
			Fetcher:        c.web,
			Extractor:      &ext,
			Estimator:      editrate.Zero{},
			Sink:           sink,
			Store:          store,
		},
	)
}

type outputLine struct {
	URL      string   `json:"url"`
	Title    string   `json:"title"`
	WordList []string `json:"word_list"`
	Links    []string `json:"links"`
}

func readOutput(t *testing.T, path string) []outputLine {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []outputLine
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var line outputLine
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.NoError(t, scanner.Err())
	return lines
}

func urlsOf(lines []outputLine) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.URL)
	}
	return out
}

// starWeb is page A linking to B through G, each of which links back to A.
func starWeb() *fakeWeb {
	web := newFakeWeb().add("A", "B", "C", "D", "E", "F", "G")
	for _, title := range []string{"B", "C", "D", "E", "F", "G"} {
		web.add(title, "A")
	}
	return web
}
