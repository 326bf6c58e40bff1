package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rohmanhakim/page-crawler/internal/config"
	"github.com/rohmanhakim/page-crawler/internal/metadata"
	"github.com/rohmanhakim/page-crawler/internal/report"
	"github.com/rohmanhakim/page-crawler/internal/scheduler"
	"github.com/rohmanhakim/page-crawler/pkg/fileutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	seed                  string
	maxDepth              int
	maxPages              int
	maxOutputBytes        int64
	workerCount           int
	requestsPerSecond     float64
	checkpointPath        string
	checkpointEveryClaims int
	checkpointInterval    time.Duration
	outputPath            string
	reportPath            string
	userAgent             string
	fetchTimeout          time.Duration
	runTimeout            time.Duration
	linkPathPrefix        string
	crossHost             bool
	stopwords             string
	editRateSource        string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl from a seed page and append records to the output file.",
	Long: `crawl starts (or resumes) a crawl. When the checkpoint file exists, the
visited set and pending pages are restored from it and already visited pages
are never fetched again.

Interrupting the process (Ctrl-C) stops taking new pages, lets in-flight pages
finish and writes a final checkpoint.`,
}

func init() {
	// RunE is assigned here rather than in the literal to avoid an
	// initialization cycle through InitConfigWithError.
	crawlCmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := InitConfigWithError()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runCrawl(ctx, cmd, cfg)
	}

	flags := crawlCmd.Flags()
	flags.StringVar(&seed, "seed", "", "page the crawl starts from (required unless set in the config file)")
	flags.IntVar(&maxDepth, "max-depth", 0, "maximum link hops from the seed")
	flags.IntVar(&maxPages, "max-pages", 0, "maximum number of pages ever visited, resumed ones included")
	flags.Int64Var(&maxOutputBytes, "max-output-bytes", 0, "output budget in bytes for this run")
	flags.IntVar(&workerCount, "workers", 0, "number of concurrent workers")
	flags.Float64Var(&requestsPerSecond, "rps", 0, "requests per second across all workers")
	flags.StringVar(&checkpointPath, "checkpoint", "", "checkpoint file (.json, or .db/.sqlite for SQLite)")
	flags.IntVar(&checkpointEveryClaims, "checkpoint-every", 0, "save a checkpoint every N visited pages")
	flags.DurationVar(&checkpointInterval, "checkpoint-interval", 0, "save a checkpoint at this interval")
	flags.StringVar(&outputPath, "output", "", "JSONL output file")
	flags.StringVar(&reportPath, "report", "", "also write the Markdown run report to this file")
	flags.StringVar(&userAgent, "user-agent", "", "user agent string for HTTP requests")
	flags.DurationVar(&fetchTimeout, "fetch-timeout", 0, "timeout for a single HTTP request")
	flags.DurationVar(&runTimeout, "run-timeout", 0, "stop the crawl after this long")
	flags.StringVar(&linkPathPrefix, "link-prefix", "", "follow only links whose path starts with this prefix")
	flags.BoolVar(&crossHost, "cross-host", false, "follow links to other hosts")
	flags.StringVar(&stopwords, "stopwords", "", "stopword list: spanish, english or none")
	flags.StringVar(&editRateSource, "edit-rate", "", "edit rate source: none or mediawiki")
}

// InitConfigWithError builds the run configuration: defaults, then the
// config file when one is found, then every flag given on the command line.
// An explicitly given flag always reaches Build, so invalid values such as
// --workers 0 are rejected rather than replaced by the default.
func InitConfigWithError() (config.Config, error) {
	var builder *config.Config
	if path := config.FindConfigFile(cfgFile); path != "" {
		fromFile, err := config.WithConfigFile(path)
		if err != nil {
			return config.Config{}, fmt.Errorf("error initializing config from file: %w", err)
		}
		builder = fromFile
	} else {
		builder = config.WithDefault("")
	}

	changed := crawlCmd.Flags().Changed

	if changed("seed") {
		builder = builder.WithSeed(seed)
	}
	if changed("max-depth") {
		builder = builder.WithMaxDepth(maxDepth)
	}
	if changed("max-pages") {
		builder = builder.WithMaxPages(maxPages)
	}
	if changed("max-output-bytes") {
		builder = builder.WithMaxOutputBytes(maxOutputBytes)
	}
	if changed("workers") {
		builder = builder.WithWorkerCount(workerCount)
	}
	if changed("rps") {
		builder = builder.WithRequestsPerSecond(requestsPerSecond)
	}
	if changed("checkpoint") {
		builder = builder.WithCheckpointPath(checkpointPath)
	}
	if changed("checkpoint-every") {
		builder = builder.WithCheckpointEveryClaims(checkpointEveryClaims)
	}
	if changed("checkpoint-interval") {
		builder = builder.WithCheckpointInterval(checkpointInterval)
	}
	if changed("output") {
		builder = builder.WithOutputPath(outputPath)
	}
	if changed("report") {
		builder = builder.WithReportPath(reportPath)
	}
	if changed("user-agent") {
		builder = builder.WithUserAgent(userAgent)
	}
	if changed("fetch-timeout") {
		builder = builder.WithFetchTimeout(fetchTimeout)
	}
	if changed("run-timeout") {
		builder = builder.WithRunTimeout(runTimeout)
	}
	if changed("link-prefix") {
		builder = builder.WithLinkPathPrefix(linkPathPrefix)
	}
	if changed("cross-host") {
		builder = builder.WithSameHostOnly(!crossHost)
	}
	if changed("stopwords") {
		builder = builder.WithStopwords(config.StopwordSet(stopwords))
	}
	if changed("edit-rate") {
		builder = builder.WithEditRateSource(config.EditRateSource(editRateSource))
	}

	return builder.Build()
}

func runCrawl(ctx context.Context, cmd *cobra.Command, cfg config.Config) error {
	logger := metadata.NewLogger(cmd.ErrOrStderr(), verbose)
	recorder := metadata.NewRecorder("crawler", logger)

	s, err := scheduler.NewScheduler(cfg, &recorder)
	if err != nil {
		return err
	}
	defer s.Close()

	stats, err := s.Run(ctx)
	if err != nil {
		return err
	}

	summary := report.CrawlSummary{
		Seed:           cfg.Seed(),
		OutputPath:     cfg.OutputPath(),
		CheckpointPath: cfg.CheckpointPath(),
		FinishedAt:     time.Now(),
		Stats:          stats,
	}

	var buf bytes.Buffer
	if err := report.NewMarkdownWriter(&buf).WriteCrawl(summary); err != nil {
		return err
	}
	if _, err := cmd.OutOrStdout().Write(buf.Bytes()); err != nil {
		return err
	}

	if cfg.ReportPath() != "" {
		if err := fileutil.EnsureParentDir(cfg.ReportPath()); err != nil {
			return err
		}
		if err := fileutil.WriteFileAtomic(cfg.ReportPath(), buf.Bytes(), 0o644); err != nil {
			return err
		}
		recorder.RecordArtifact(metadata.ArtifactReport, cfg.ReportPath(), nil)
	}
	return nil
}

// ResetFlags restores every flag to its default value and clears its
// changed state.
func ResetFlags() {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	crawlCmd.Flags().VisitAll(reset)
	dedupCmd.Flags().VisitAll(reset)
}
