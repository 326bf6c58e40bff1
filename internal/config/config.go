package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/rohmanhakim/page-crawler/pkg/fileutil"
	"github.com/rohmanhakim/page-crawler/pkg/retry"
	"github.com/rohmanhakim/page-crawler/pkg/timeutil"
	"github.com/rohmanhakim/page-crawler/pkg/urlutil"
	"gopkg.in/yaml.v3"
)

const AppName = "page-crawler"

type StopwordSet string

const (
	StopwordsSpanish StopwordSet = "spanish"
	StopwordsEnglish StopwordSet = "english"
	StopwordsNone    StopwordSet = "none"
)

type EditRateSource string

const (
	EditRateNone      EditRateSource = "none"
	EditRateMediaWiki EditRateSource = "mediawiki"
)

type Config struct {
	//===============
	//  Crawl scope
	//===============
	// Page the crawl starts from, stored in normalized form after Build.
	seed string
	// Links are followed only when their path starts with this prefix.
	linkPathPrefix string
	// Links whose path contains any of these substrings are dropped.
	excludeLinkSubstrings []string
	// Restrict discovered links to the seed's host.
	sameHostOnly bool

	//===============
	// Limits
	//===============
	// Maximum number of hyperlink hops from the seed
	maxDepth int
	// Maximum number of identifiers ever claimed, resumed ones included
	maxPages int
	// Soft cap on bytes appended to the output stream in one run
	maxOutputBytes int64
	// Upper bound on the size of a fetched document
	maxBodyBytes int64
	// Whole-run deadline. Zero means no deadline.
	runTimeout time.Duration

	//===============
	// Politeness
	//===============
	// Number of crawl worker goroutines
	workerCount int
	// Aggregate fetch rate across all workers
	requestsPerSecond float64
	// How long an idle worker waits on the frontier before re-checking termination
	popTimeout time.Duration

	//===============
	// Fetch
	//===============
	// Maximum time of a single fetch request
	fetchTimeout time.Duration
	// User agent that will be used in the request header. In raw string
	userAgent string

	//===============
	// Checkpoint
	//===============
	checkpointPath        string
	checkpointEveryClaims int
	// Zero disables the time-based trigger
	checkpointInterval time.Duration
	// Retry policy for checkpoint saves
	maxAttempt             int
	backoffInitialDuration time.Duration
	backoffMultiplier      float64
	backoffMaxDuration     time.Duration
	jitter                 time.Duration
	randomSeed             int64

	//===============
	// Output
	//===============
	outputPath string
	// Optional markdown summary of the run
	reportPath string

	//===============
	// Extraction
	//===============
	stopwords      StopwordSet
	defaultTitle   string
	editRateSource EditRateSource
	editRateWindow time.Duration
}

type configDTO struct {
	Seed                   string         `json:"seedIdentifier,omitempty" yaml:"seedIdentifier,omitempty"`
	LinkPathPrefix         string         `json:"linkPathPrefix,omitempty" yaml:"linkPathPrefix,omitempty"`
	ExcludeLinkSubstrings  []string       `json:"excludeLinkSubstrings,omitempty" yaml:"excludeLinkSubstrings,omitempty"`
	SameHostOnly           *bool          `json:"sameHostOnly,omitempty" yaml:"sameHostOnly,omitempty"`
	MaxDepth               *int           `json:"maxDepth,omitempty" yaml:"maxDepth,omitempty"`
	MaxPages               int            `json:"maxPages,omitempty" yaml:"maxPages,omitempty"`
	MaxOutputBytes         int64          `json:"maxOutputBytes,omitempty" yaml:"maxOutputBytes,omitempty"`
	MaxBodyBytes           int64          `json:"maxBodyBytes,omitempty" yaml:"maxBodyBytes,omitempty"`
	RunTimeout             Duration       `json:"runTimeout,omitempty" yaml:"runTimeout,omitempty"`
	WorkerCount            int            `json:"workerCount,omitempty" yaml:"workerCount,omitempty"`
	RequestsPerSecond      float64        `json:"requestsPerSecond,omitempty" yaml:"requestsPerSecond,omitempty"`
	PopTimeout             Duration       `json:"popTimeout,omitempty" yaml:"popTimeout,omitempty"`
	FetchTimeout           Duration       `json:"fetchTimeout,omitempty" yaml:"fetchTimeout,omitempty"`
	UserAgent              string         `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`
	CheckpointPath         string         `json:"checkpointPath,omitempty" yaml:"checkpointPath,omitempty"`
	CheckpointEveryClaims  int            `json:"checkpointEveryClaims,omitempty" yaml:"checkpointEveryClaims,omitempty"`
	CheckpointInterval     *Duration      `json:"checkpointInterval,omitempty" yaml:"checkpointInterval,omitempty"`
	MaxAttempt             int            `json:"maxAttempt,omitempty" yaml:"maxAttempt,omitempty"`
	BackoffInitialDuration Duration       `json:"backoffInitialDuration,omitempty" yaml:"backoffInitialDuration,omitempty"`
	BackoffMultiplier      float64        `json:"backoffMultiplier,omitempty" yaml:"backoffMultiplier,omitempty"`
	BackoffMaxDuration     Duration       `json:"backoffMaxDuration,omitempty" yaml:"backoffMaxDuration,omitempty"`
	Jitter                 Duration       `json:"jitter,omitempty" yaml:"jitter,omitempty"`
	RandomSeed             int64          `json:"randomSeed,omitempty" yaml:"randomSeed,omitempty"`
	OutputPath             string         `json:"outputPath,omitempty" yaml:"outputPath,omitempty"`
	ReportPath             string         `json:"reportPath,omitempty" yaml:"reportPath,omitempty"`
	Stopwords              StopwordSet    `json:"stopwords,omitempty" yaml:"stopwords,omitempty"`
	DefaultTitle           string         `json:"defaultTitle,omitempty" yaml:"defaultTitle,omitempty"`
	EditRateSource         EditRateSource `json:"editRateSource,omitempty" yaml:"editRateSource,omitempty"`
	EditRateWindow         Duration       `json:"editRateWindow,omitempty" yaml:"editRateWindow,omitempty"`
}

// overlay copies every value present in the DTO onto the builder.
// Zero values mean "not set" except for the pointer fields, where
// zero is a meaningful choice (depth 0, interval 0, sameHostOnly false).
func (c *Config) overlay(dto configDTO) *Config {
	if dto.Seed != "" {
		c.seed = dto.Seed
	}
	if dto.LinkPathPrefix != "" {
		c.linkPathPrefix = dto.LinkPathPrefix
	}
	if dto.ExcludeLinkSubstrings != nil {
		c.excludeLinkSubstrings = dto.ExcludeLinkSubstrings
	}
	if dto.SameHostOnly != nil {
		c.sameHostOnly = *dto.SameHostOnly
	}
	if dto.MaxDepth != nil {
		c.maxDepth = *dto.MaxDepth
	}
	if dto.MaxPages != 0 {
		c.maxPages = dto.MaxPages
	}
	if dto.MaxOutputBytes != 0 {
		c.maxOutputBytes = dto.MaxOutputBytes
	}
	if dto.MaxBodyBytes != 0 {
		c.maxBodyBytes = dto.MaxBodyBytes
	}
	if !dto.RunTimeout.IsZero() {
		c.runTimeout = dto.RunTimeout.Duration
	}
	if dto.WorkerCount != 0 {
		c.workerCount = dto.WorkerCount
	}
	if dto.RequestsPerSecond != 0 {
		c.requestsPerSecond = dto.RequestsPerSecond
	}
	if !dto.PopTimeout.IsZero() {
		c.popTimeout = dto.PopTimeout.Duration
	}
	if !dto.FetchTimeout.IsZero() {
		c.fetchTimeout = dto.FetchTimeout.Duration
	}
	if dto.UserAgent != "" {
		c.userAgent = dto.UserAgent
	}
	if dto.CheckpointPath != "" {
		c.checkpointPath = dto.CheckpointPath
	}
	if dto.CheckpointEveryClaims != 0 {
		c.checkpointEveryClaims = dto.CheckpointEveryClaims
	}
	if dto.CheckpointInterval != nil {
		c.checkpointInterval = dto.CheckpointInterval.Duration
	}
	if dto.MaxAttempt != 0 {
		c.maxAttempt = dto.MaxAttempt
	}
	if !dto.BackoffInitialDuration.IsZero() {
		c.backoffInitialDuration = dto.BackoffInitialDuration.Duration
	}
	if dto.BackoffMultiplier != 0 {
		c.backoffMultiplier = dto.BackoffMultiplier
	}
	if !dto.BackoffMaxDuration.IsZero() {
		c.backoffMaxDuration = dto.BackoffMaxDuration.Duration
	}
	if !dto.Jitter.IsZero() {
		c.jitter = dto.Jitter.Duration
	}
	if dto.RandomSeed != 0 {
		c.randomSeed = dto.RandomSeed
	}
	if dto.OutputPath != "" {
		c.outputPath = dto.OutputPath
	}
	if dto.ReportPath != "" {
		c.reportPath = dto.ReportPath
	}
	if dto.Stopwords != "" {
		c.stopwords = dto.Stopwords
	}
	if dto.DefaultTitle != "" {
		c.defaultTitle = dto.DefaultTitle
	}
	if dto.EditRateSource != "" {
		c.editRateSource = dto.EditRateSource
	}
	if !dto.EditRateWindow.IsZero() {
		c.editRateWindow = dto.EditRateWindow.Duration
	}
	return c
}

// WithConfigFile returns a builder holding the defaults overlaid with the
// values found in path. The file format follows the extension: .yaml/.yml
// is YAML, anything else is JSON. The result still has to be built, so
// callers can apply flag overrides first.
func WithConfigFile(path string) (*Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	cfgDTO := configDTO{}

	switch fileutil.GetFileExtension(path) {
	case "yaml", "yml":
		err = yaml.Unmarshal(configContent, &cfgDTO)
	default:
		err = json.Unmarshal(configContent, &cfgDTO)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	return WithDefault(cfgDTO.Seed).overlay(cfgDTO), nil
}

// DefaultConfigPath is where the CLI looks for a config file when none is given.
// On Linux: ~/.config/page-crawler/config.yaml
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// FindConfigFile returns configPath when it is set, otherwise the default
// XDG location if a file exists there, otherwise "".
func FindConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	defaultPath := DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		return defaultPath
	}
	return ""
}

// WithDefault creates a new Config with the provided seed and default values for all other fields.
// The seed is validated by Build.
func WithDefault(seed string) *Config {
	defaultConfig := Config{
		seed:                   seed,
		linkPathPrefix:         "/wiki/",
		excludeLinkSubstrings:  []string{":"},
		sameHostOnly:           true,
		maxDepth:               1,
		maxPages:               5,
		maxOutputBytes:         64 << 20,
		maxBodyBytes:           10 << 20,
		runTimeout:             0,
		workerCount:            4,
		requestsPerSecond:      2,
		popTimeout:             500 * time.Millisecond,
		fetchTimeout:           10 * time.Second,
		userAgent:              "page-crawler/1.0",
		checkpointPath:         filepath.Join("wiki_data", "checkpoint.json"),
		checkpointEveryClaims:  50,
		checkpointInterval:     30 * time.Second,
		maxAttempt:             3,
		backoffInitialDuration: 100 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     2 * time.Second,
		jitter:                 50 * time.Millisecond,
		randomSeed:             time.Now().UnixNano(),
		outputPath:             filepath.Join("wiki_data", "wiki_data.jsonl"),
		reportPath:             "",
		stopwords:              StopwordsSpanish,
		defaultTitle:           "Sin título",
		editRateSource:         EditRateNone,
		editRateWindow:         30 * 24 * time.Hour,
	}
	return &defaultConfig
}

func (c *Config) WithSeed(seed string) *Config {
	c.seed = seed
	return c
}

func (c *Config) WithLinkPathPrefix(prefix string) *Config {
	c.linkPathPrefix = prefix
	return c
}

func (c *Config) WithExcludeLinkSubstrings(substrings []string) *Config {
	c.excludeLinkSubstrings = substrings
	return c
}

func (c *Config) WithSameHostOnly(sameHost bool) *Config {
	c.sameHostOnly = sameHost
	return c
}

func (c *Config) WithMaxDepth(depth int) *Config {
	c.maxDepth = depth
	return c
}

func (c *Config) WithMaxPages(pages int) *Config {
	c.maxPages = pages
	return c
}

func (c *Config) WithMaxOutputBytes(n int64) *Config {
	c.maxOutputBytes = n
	return c
}

func (c *Config) WithMaxBodyBytes(n int64) *Config {
	c.maxBodyBytes = n
	return c
}

func (c *Config) WithRunTimeout(timeout time.Duration) *Config {
	c.runTimeout = timeout
	return c
}

func (c *Config) WithWorkerCount(count int) *Config {
	c.workerCount = count
	return c
}

func (c *Config) WithRequestsPerSecond(rps float64) *Config {
	c.requestsPerSecond = rps
	return c
}

func (c *Config) WithPopTimeout(timeout time.Duration) *Config {
	c.popTimeout = timeout
	return c
}

func (c *Config) WithFetchTimeout(timeout time.Duration) *Config {
	c.fetchTimeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithCheckpointPath(path string) *Config {
	c.checkpointPath = path
	return c
}

func (c *Config) WithCheckpointEveryClaims(k int) *Config {
	c.checkpointEveryClaims = k
	return c
}

func (c *Config) WithCheckpointInterval(interval time.Duration) *Config {
	c.checkpointInterval = interval
	return c
}

func (c *Config) WithMaxAttempt(attempts int) *Config {
	c.maxAttempt = attempts
	return c
}

func (c *Config) WithBackoffInitialDuration(duration time.Duration) *Config {
	c.backoffInitialDuration = duration
	return c
}

func (c *Config) WithBackoffMultiplier(multiplier float64) *Config {
	c.backoffMultiplier = multiplier
	return c
}

func (c *Config) WithBackoffMaxDuration(duration time.Duration) *Config {
	c.backoffMaxDuration = duration
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithOutputPath(path string) *Config {
	c.outputPath = path
	return c
}

func (c *Config) WithReportPath(path string) *Config {
	c.reportPath = path
	return c
}

func (c *Config) WithStopwords(set StopwordSet) *Config {
	c.stopwords = set
	return c
}

func (c *Config) WithDefaultTitle(title string) *Config {
	c.defaultTitle = title
	return c
}

func (c *Config) WithEditRateSource(source EditRateSource) *Config {
	c.editRateSource = source
	return c
}

func (c *Config) WithEditRateWindow(window time.Duration) *Config {
	c.editRateWindow = window
	return c
}

// Build validates the accumulated values and returns an immutable Config.
// Every failure wraps ErrInvalidConfig.
func (c *Config) Build() (Config, error) {
	if c.seed == "" {
		return Config{}, fmt.Errorf("%w: seed identifier cannot be empty", ErrInvalidConfig)
	}
	seed, err := urlutil.Normalize(c.seed)
	if err != nil {
		return Config{}, fmt.Errorf("%w: seed identifier: %s", ErrInvalidConfig, err.Error())
	}
	if c.maxDepth < 0 {
		return Config{}, fmt.Errorf("%w: maxDepth must be >= 0, got %d", ErrInvalidConfig, c.maxDepth)
	}
	if c.maxPages <= 0 {
		return Config{}, fmt.Errorf("%w: maxPages must be > 0, got %d", ErrInvalidConfig, c.maxPages)
	}
	if c.maxOutputBytes <= 0 {
		return Config{}, fmt.Errorf("%w: maxOutputBytes must be > 0, got %d", ErrInvalidConfig, c.maxOutputBytes)
	}
	if c.workerCount <= 0 {
		return Config{}, fmt.Errorf("%w: workerCount must be > 0, got %d", ErrInvalidConfig, c.workerCount)
	}
	if c.requestsPerSecond <= 0 {
		return Config{}, fmt.Errorf("%w: requestsPerSecond must be > 0, got %g", ErrInvalidConfig, c.requestsPerSecond)
	}
	if c.checkpointPath == "" {
		return Config{}, fmt.Errorf("%w: checkpointPath cannot be empty", ErrInvalidConfig)
	}
	if c.outputPath == "" {
		return Config{}, fmt.Errorf("%w: outputPath cannot be empty", ErrInvalidConfig)
	}
	if c.checkpointEveryClaims <= 0 {
		return Config{}, fmt.Errorf("%w: checkpointEveryClaims must be > 0, got %d", ErrInvalidConfig, c.checkpointEveryClaims)
	}
	if c.checkpointInterval < 0 {
		return Config{}, fmt.Errorf("%w: checkpointInterval must be >= 0", ErrInvalidConfig)
	}
	if c.popTimeout <= 0 {
		return Config{}, fmt.Errorf("%w: popTimeout must be > 0", ErrInvalidConfig)
	}
	if c.fetchTimeout <= 0 {
		return Config{}, fmt.Errorf("%w: fetchTimeout must be > 0", ErrInvalidConfig)
	}
	if c.runTimeout < 0 {
		return Config{}, fmt.Errorf("%w: runTimeout must be >= 0", ErrInvalidConfig)
	}
	if c.maxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("%w: maxBodyBytes must be > 0", ErrInvalidConfig)
	}
	if c.maxAttempt <= 0 {
		return Config{}, fmt.Errorf("%w: maxAttempt must be > 0", ErrInvalidConfig)
	}
	switch c.stopwords {
	case StopwordsSpanish, StopwordsEnglish, StopwordsNone:
	default:
		return Config{}, fmt.Errorf("%w: unknown stopwords set %q", ErrInvalidConfig, c.stopwords)
	}
	switch c.editRateSource {
	case EditRateNone, EditRateMediaWiki:
	default:
		return Config{}, fmt.Errorf("%w: unknown edit rate source %q", ErrInvalidConfig, c.editRateSource)
	}

	built := *c
	built.seed = seed
	built.excludeLinkSubstrings = append([]string(nil), c.excludeLinkSubstrings...)
	return built, nil
}

func (c Config) Seed() string {
	return c.seed
}

func (c Config) LinkPathPrefix() string {
	return c.linkPathPrefix
}

func (c Config) ExcludeLinkSubstrings() []string {
	out := make([]string, len(c.excludeLinkSubstrings))
	copy(out, c.excludeLinkSubstrings)
	return out
}

func (c Config) SameHostOnly() bool {
	return c.sameHostOnly
}

func (c Config) MaxDepth() int {
	return c.maxDepth
}

func (c Config) MaxPages() int {
	return c.maxPages
}

func (c Config) MaxOutputBytes() int64 {
	return c.maxOutputBytes
}

func (c Config) MaxBodyBytes() int64 {
	return c.maxBodyBytes
}

func (c Config) RunTimeout() time.Duration {
	return c.runTimeout
}

func (c Config) WorkerCount() int {
	return c.workerCount
}

func (c Config) RequestsPerSecond() float64 {
	return c.requestsPerSecond
}

func (c Config) PopTimeout() time.Duration {
	return c.popTimeout
}

func (c Config) FetchTimeout() time.Duration {
	return c.fetchTimeout
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) CheckpointPath() string {
	return c.checkpointPath
}

func (c Config) CheckpointEveryClaims() int {
	return c.checkpointEveryClaims
}

func (c Config) CheckpointInterval() time.Duration {
	return c.checkpointInterval
}

func (c Config) MaxAttempt() int {
	return c.maxAttempt
}

func (c Config) BackoffInitialDuration() time.Duration {
	return c.backoffInitialDuration
}

func (c Config) BackoffMultiplier() float64 {
	return c.backoffMultiplier
}

func (c Config) BackoffMaxDuration() time.Duration {
	return c.backoffMaxDuration
}

func (c Config) Jitter() time.Duration {
	return c.jitter
}

func (c Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c Config) OutputPath() string {
	return c.outputPath
}

func (c Config) ReportPath() string {
	return c.reportPath
}

func (c Config) Stopwords() StopwordSet {
	return c.stopwords
}

func (c Config) DefaultTitle() string {
	return c.defaultTitle
}

func (c Config) EditRateSource() EditRateSource {
	return c.editRateSource
}

func (c Config) EditRateWindow() time.Duration {
	return c.editRateWindow
}

// CheckpointRetryParam bundles the retry settings used when saving checkpoints.
func (c Config) CheckpointRetryParam() retry.RetryParam {
	return retry.NewRetryParam(
		c.jitter,
		c.randomSeed,
		c.maxAttempt,
		timeutil.NewBackoffParam(c.backoffInitialDuration, c.backoffMultiplier, c.backoffMaxDuration),
	)
}
