package editrate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rohmanhakim/page-crawler/pkg/failure"
	"github.com/rohmanhakim/page-crawler/pkg/limiter"
)

const (
	apiPath         = "/w/api.php"
	maxContinuation = 10
	maxResponseSize = 4 << 20
)

// MediaWiki counts the revisions a page received during a trailing window
// and divides by the window length in days.
//
// The API endpoint is derived from the page identifier: a page at
// https://host/wiki/Title is queried at https://host/w/api.php.
//
// The caller admits the first request of an estimate. Every continuation
// request takes its own token from the limiter set by WithLimiter.
type MediaWiki struct {
	httpClient *http.Client
	limiter    limiter.RateLimiter
	userAgent  string
	pathPrefix string
	window     time.Duration
	timeout    time.Duration
	now        func() time.Time
}

func NewMediaWiki(
	userAgent string,
	pathPrefix string,
	window time.Duration,
	timeout time.Duration,
) *MediaWiki {
	return &MediaWiki{
		httpClient: &http.Client{},
		userAgent:  userAgent,
		pathPrefix: pathPrefix,
		window:     window,
		timeout:    timeout,
		now:        time.Now,
	}
}

// WithLimiter makes continuation requests wait on l.
func (m *MediaWiki) WithLimiter(l limiter.RateLimiter) *MediaWiki {
	m.limiter = l
	return m
}

// WithClock replaces the clock used to compute the window. Tests only.
func (m *MediaWiki) WithClock(now func() time.Time) *MediaWiki {
	m.now = now
	return m
}

type revisionsResponse struct {
	Continue *struct {
		RvContinue string `json:"rvcontinue"`
	} `json:"continue"`
	Query struct {
		Pages []struct {
			Title     string `json:"title"`
			Missing   bool   `json:"missing"`
			Invalid   bool   `json:"invalid"`
			Revisions []struct {
				Timestamp time.Time `json:"timestamp"`
			} `json:"revisions"`
		} `json:"pages"`
	} `json:"query"`
}

func (m *MediaWiki) Estimate(ctx context.Context, id string) (float64, failure.ClassifiedError) {
	endpoint, title, err := m.endpointFor(id)
	if err != nil {
		return 0, err
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	end := m.now().Add(-m.window).UTC()
	count := 0
	rvcontinue := ""

	for page := range maxContinuation {
		if page > 0 && m.limiter != nil {
			if err := m.limiter.Acquire(ctx); err != nil {
				return 0, &EstimateError{
					Message: fmt.Sprintf("admission for continuation %d: %s", page, err.Error()),
					Cause:   ErrCauseRequestFailure,
				}
			}
		}
		resp, err := m.query(ctx, endpoint, title, end, rvcontinue)
		if err != nil {
			return 0, err
		}
		if len(resp.Query.Pages) == 0 || resp.Query.Pages[0].Missing || resp.Query.Pages[0].Invalid {
			return 0, &EstimateError{
				Message: fmt.Sprintf("no page titled %q", title),
				Cause:   ErrCausePageMissing,
			}
		}
		for _, rev := range resp.Query.Pages[0].Revisions {
			if !rev.Timestamp.Before(end) {
				count++
			}
		}
		if resp.Continue == nil || resp.Continue.RvContinue == "" {
			break
		}
		rvcontinue = resp.Continue.RvContinue
	}

	days := m.window.Hours() / 24
	if days <= 0 {
		return 0, nil
	}
	return float64(count) / days, nil
}

func (m *MediaWiki) endpointFor(id string) (string, string, *EstimateError) {
	u, err := url.Parse(id)
	if err != nil || u.Host == "" {
		return "", "", &EstimateError{
			Message: fmt.Sprintf("cannot parse %q", id),
			Cause:   ErrCauseNotWikiPage,
		}
	}
	title, ok := strings.CutPrefix(u.Path, m.pathPrefix)
	if !ok || title == "" {
		return "", "", &EstimateError{
			Message: fmt.Sprintf("path %q is outside %q", u.Path, m.pathPrefix),
			Cause:   ErrCauseNotWikiPage,
		}
	}
	endpoint := url.URL{Scheme: u.Scheme, Host: u.Host, Path: apiPath}
	return endpoint.String(), strings.ReplaceAll(title, "_", " "), nil
}

func (m *MediaWiki) query(
	ctx context.Context,
	endpoint string,
	title string,
	end time.Time,
	rvcontinue string,
) (revisionsResponse, *EstimateError) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("formatversion", "2")
	params.Set("prop", "revisions")
	params.Set("titles", title)
	params.Set("rvprop", "timestamp")
	params.Set("rvlimit", "max")
	params.Set("rvend", end.Format(time.RFC3339))
	if rvcontinue != "" {
		params.Set("rvcontinue", rvcontinue)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return revisionsResponse{}, &EstimateError{Message: err.Error(), Cause: ErrCauseRequestFailure}
	}
	req.Header.Set("User-Agent", m.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return revisionsResponse{}, &EstimateError{Message: err.Error(), Cause: ErrCauseRequestFailure}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return revisionsResponse{}, &EstimateError{
			Message: fmt.Sprintf("status %d", resp.StatusCode),
			Cause:   ErrCauseBadStatus,
		}
	}

	var decoded revisionsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&decoded); err != nil {
		return revisionsResponse{}, &EstimateError{Message: err.Error(), Cause: ErrCauseInvalidResponse}
	}
	return decoded, nil
}
