package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rohmanhakim/page-crawler/internal/metadata"
	"github.com/rohmanhakim/page-crawler/pkg/failure"
)

/*
Responsibilities

- Perform HTTP requests
- Apply headers and a per-request timeout
- Handle redirects safely
- Classify responses

Fetch Semantics

- Only successful HTML responses are processed
- Non-HTML content is discarded
- Redirect chains are bounded
- Every identifier is attempted once; failures are returned, not retried
- All responses are logged with metadata

The fetcher never parses content; it only returns bytes and metadata.
*/

type Fetcher interface {
	Fetch(ctx context.Context, crawlDepth int, id string) (FetchResult, failure.ClassifiedError)
}

const maxRedirects = 10

type HTTPFetcher struct {
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
	userAgent    string
	timeout      time.Duration
	maxBodyBytes int64
}

func NewHTTPFetcher(
	metadataSink metadata.MetadataSink,
	userAgent string,
	timeout time.Duration,
	maxBodyBytes int64,
) *HTTPFetcher {
	return &HTTPFetcher{
		metadataSink: metadataSink,
		httpClient: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return errRedirectLimit
				}
				return nil
			},
		},
		userAgent:    userAgent,
		timeout:      timeout,
		maxBodyBytes: maxBodyBytes,
	}
}

var errRedirectLimit = errors.New("redirect limit reached")

func (h *HTTPFetcher) Fetch(
	ctx context.Context,
	crawlDepth int,
	id string,
) (FetchResult, failure.ClassifiedError) {
	callerMethod := "HTTPFetcher.Fetch"
	startTime := time.Now()

	result, err := h.performFetch(ctx, id)

	duration := time.Since(startTime)

	var statusCode int
	var contentType string
	if err != nil {
		statusCode = err.StatusCode
	} else {
		statusCode = result.Code()
		contentType = result.ContentType()
	}

	h.metadataSink.RecordFetch(
		id,
		statusCode,
		duration,
		contentType,
		0,
		crawlDepth,
	)

	if err != nil {
		h.metadataSink.RecordError(
			time.Now(),
			"fetcher",
			callerMethod,
			mapFetchErrorToMetadataCause(err),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, id),
				metadata.NewAttr(metadata.AttrDepth, fmt.Sprint(crawlDepth)),
			},
		)
		return FetchResult{}, err
	}

	return result, nil
}

func (h *HTTPFetcher) performFetch(ctx context.Context, id string) (FetchResult, *FetchError) {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, id, nil)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseInvalidRequest,
		}
	}

	for key, value := range requestHeaders(h.userAgent) {
		req.Header.Set(key, value)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return FetchResult{}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if fetchErr := classifyStatus(resp.StatusCode); fetchErr != nil {
		return FetchResult{}, fetchErr
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTMLContent(contentType) {
		return FetchResult{}, &FetchError{
			Message:    fmt.Sprintf("non-HTML content type: %s", contentType),
			Retryable:  false,
			Cause:      ErrCauseContentTypeInvalid,
			StatusCode: resp.StatusCode,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBodyBytes+1))
	if err != nil {
		fetchErr := classifyTransportError(err)
		if fetchErr.Cause == ErrCauseNetworkFailure {
			fetchErr.Cause = ErrCauseReadResponseBodyError
		}
		fetchErr.StatusCode = resp.StatusCode
		return FetchResult{}, fetchErr
	}
	if int64(len(body)) > h.maxBodyBytes {
		return FetchResult{}, &FetchError{
			Message:    fmt.Sprintf("body exceeds %d bytes", h.maxBodyBytes),
			Retryable:  false,
			Cause:      ErrCauseBodyTooLarge,
			StatusCode: resp.StatusCode,
		}
	}

	responseHeaders := make(map[string]string)
	for key, values := range resp.Header {
		if len(values) > 0 {
			responseHeaders[key] = values[0]
		}
	}

	return NewFetchResult(id, resp.Request.URL.String(), body, resp.StatusCode, contentType, responseHeaders), nil
}

func classifyTransportError(err error) *FetchError {
	if errors.Is(err, errRedirectLimit) {
		return &FetchError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseRedirectLimitExceeded,
		}
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &FetchError{
			Message:   fmt.Sprintf("request timed out: %v", err),
			Retryable: true,
			Cause:     ErrCauseTimeout,
		}
	}
	return &FetchError{
		Message:   fmt.Sprintf("request failed: %v", err),
		Retryable: true,
		Cause:     ErrCauseNetworkFailure,
	}
}

func classifyStatus(code int) *FetchError {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code >= 500:
		return &FetchError{
			Message:    fmt.Sprintf("server error: %d", code),
			Retryable:  true,
			Cause:      ErrCauseRequest5xx,
			StatusCode: code,
		}
	case code == http.StatusTooManyRequests:
		return &FetchError{
			Message:    "rate limited (429)",
			Retryable:  true,
			Cause:      ErrCauseRequestTooMany,
			StatusCode: code,
		}
	case code == http.StatusForbidden || code == http.StatusUnauthorized:
		return &FetchError{
			Message:    fmt.Sprintf("access denied (%d)", code),
			Retryable:  false,
			Cause:      ErrCauseRequestPageForbidden,
			StatusCode: code,
		}
	case code == http.StatusNotFound || code == http.StatusGone:
		return &FetchError{
			Message:    fmt.Sprintf("page not found (%d)", code),
			Retryable:  false,
			Cause:      ErrCauseRequestNotFound,
			StatusCode: code,
		}
	case code >= 400:
		return &FetchError{
			Message:    fmt.Sprintf("client error: %d", code),
			Retryable:  false,
			Cause:      ErrCauseRequest4xx,
			StatusCode: code,
		}
	default:
		// 1xx and unfollowed 3xx
		return &FetchError{
			Message:    fmt.Sprintf("unexpected status: %d", code),
			Retryable:  false,
			Cause:      ErrCauseRedirectLimitExceeded,
			StatusCode: code,
		}
	}
}

func isHTMLContent(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.Contains(contentType, "text/html") ||
		strings.Contains(contentType, "application/xhtml")
}

func requestHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "es,en;q=0.5",
	}
}
