package scheduler_test

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rohmanhakim/page-crawler/internal/fetcher"
	"github.com/rohmanhakim/page-crawler/pkg/failure"
)

const wikiHost = "https://es.wikipedia.org"

func wiki(title string) string {
	return wikiHost + "/wiki/" + title
}

// page renders a minimal article linking to the given titles.
func page(title string, links ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<html><body><h1>%s</h1><p>Artículo sobre %s y la robótica moderna.</p>", title, title)
	for _, l := range links {
		fmt.Fprintf(&b, `<a href="/wiki/%s">%s</a>`, l, l)
	}
	b.WriteString("</body></html>")
	return b.String()
}

// fakeWeb is an in-memory Fetcher counting requests per identifier.
type fakeWeb struct {
	mu    sync.Mutex
	pages map[string]string
	fail  map[string]bool
	calls map[string]int

	// when set, fetching blockOn signals started and waits for release
	blockOn string
	started chan struct{}
	release chan struct{}
}

func newFakeWeb() *fakeWeb {
	return &fakeWeb{
		pages: make(map[string]string),
		fail:  make(map[string]bool),
		calls: make(map[string]int),
	}
}

func (w *fakeWeb) add(title string, links ...string) *fakeWeb {
	w.pages[wiki(title)] = page(title, links...)
	return w
}

func (w *fakeWeb) Fetch(ctx context.Context, crawlDepth int, id string) (fetcher.FetchResult, failure.ClassifiedError) {
	w.mu.Lock()
	w.calls[id]++
	body, ok := w.pages[id]
	failing := w.fail[id]
	block := w.blockOn == id
	w.mu.Unlock()

	if block {
		close(w.started)
		<-w.release
	}
	if failing {
		return fetcher.FetchResult{}, &fetcher.FetchError{Message: "boom", Cause: fetcher.ErrCauseRequest5xx, StatusCode: 500}
	}
	if !ok {
		return fetcher.FetchResult{}, &fetcher.FetchError{Message: "missing", Cause: fetcher.ErrCauseRequestNotFound, StatusCode: 404}
	}
	return fetcher.NewFetchResult(id, id, []byte(body), 200, "text/html", nil), nil
}

func (w *fakeWeb) callCounts() map[string]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]int, len(w.calls))
	for k, v := range w.calls {
		out[k] = v
	}
	return out
}
