package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/rohmanhakim/page-crawler/internal/scheduler"
	"github.com/rohmanhakim/page-crawler/internal/storage"
)

// MarkdownWriter renders run summaries as Markdown.
type MarkdownWriter struct {
	output io.Writer
}

func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// CrawlSummary is what a crawl report shows besides the scheduler counters.
type CrawlSummary struct {
	Seed           string
	OutputPath     string
	CheckpointPath string
	FinishedAt     time.Time
	Stats          scheduler.CrawlStats
}

// WriteCrawl outputs the summary of one crawl run.
func (w *MarkdownWriter) WriteCrawl(summary CrawlSummary) error {
	md := markdown.NewMarkdown(w.output)
	stats := summary.Stats

	md.H1("Crawl Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + stats.RunID + "`"},
			{"Seed", summary.Seed},
			{"Output", summary.OutputPath},
			{"Checkpoint", summary.CheckpointPath},
			{"Finished", summary.FinishedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", stats.Duration.Round(time.Millisecond).String()},
			{"Stop reason", string(stats.StopReason)},
		},
	})
	md.PlainText("")

	md.H2("Counts")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Pages visited", strconv.Itoa(stats.PagesVisited)},
			{"Records emitted", strconv.Itoa(stats.RecordsEmitted)},
			{"Bytes emitted", strconv.FormatInt(stats.BytesEmitted, 10)},
			{"Failures", strconv.Itoa(stats.Failures)},
			{"Skips", strconv.Itoa(stats.Skips)},
			{"Dropped links", strconv.Itoa(stats.DroppedLinks)},
			{"Resumed from checkpoint", strconv.Itoa(stats.Resumed)},
			{"Pending for next run", strconv.Itoa(stats.Pending)},
			{"Checkpoints written", strconv.Itoa(stats.Checkpoints)},
		},
	})
	md.PlainText("")

	switch {
	case stats.Checkpoints == 0:
		md.Warningf("No checkpoint was written to %s; a resumed run would start over.", summary.CheckpointPath)
	case stats.Failures > 0:
		md.Importantf("%d page(s) failed and will not be retried by a resumed run.", stats.Failures)
	default:
		md.Tip("All claimed pages were processed.")
	}
	md.PlainText("")

	return md.Build()
}

// WriteDedup outputs the counters of one dedup pass.
func (w *MarkdownWriter) WriteDedup(inPath, outPath string, stats storage.DedupStats) error {
	md := markdown.NewMarkdown(w.output)

	md.H1("Dedup Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Input", inPath},
			{"Output", outPath},
			{"Lines processed", strconv.Itoa(stats.Processed)},
			{"Records written", strconv.Itoa(stats.Written)},
			{"Duplicates dropped", strconv.Itoa(stats.Duplicates)},
			{"Malformed lines", strconv.Itoa(stats.Malformed)},
		},
	})
	md.PlainText("")

	return md.Build()
}
