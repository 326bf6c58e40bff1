package extractor

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/page-crawler/internal/metadata"
	"github.com/rohmanhakim/page-crawler/pkg/failure"
	"github.com/rohmanhakim/page-crawler/pkg/urlutil"
	"golang.org/x/net/html"
)

/*
Responsibilities
- Parse HTML into a DOM tree
- Read the page title and paragraph text
- Collect outbound links that stay inside the crawl scope

Extraction Rules
- Title is the text of the first <h1>, or the configured default
- Text is every <p>, joined by spaces, with inline noise removed
- Links are <a href> values that:
    - resolve against the page URL and normalize
    - have a path starting with the configured prefix
    - contain none of the excluded substrings in their path
    - stay on the page host when same-host mode is on
- In-page anchors and self links are ignored
- Links that fail to resolve are counted, never fatal

The extractor never fetches and never decides what gets crawled.
*/

type Extractor interface {
	Extract(sourceURL string, htmlByte []byte) (ExtractionResult, failure.ClassifiedError)
}

type DomExtractor struct {
	metadataSink metadata.MetadataSink
	options      Options
	tokenizer    Tokenizer
}

func NewDomExtractor(
	metadataSink metadata.MetadataSink,
	options Options,
) DomExtractor {
	excluded := make([]string, len(options.ExcludeLinkSubstrings))
	copy(excluded, options.ExcludeLinkSubstrings)
	options.ExcludeLinkSubstrings = excluded

	return DomExtractor{
		metadataSink: metadataSink,
		options:      options,
		tokenizer:    NewTokenizer(options.Stopwords),
	}
}

func (d *DomExtractor) Extract(
	sourceURL string,
	htmlByte []byte,
) (ExtractionResult, failure.ClassifiedError) {
	result, err := d.extract(sourceURL, htmlByte)
	if err != nil {
		d.metadataSink.RecordError(
			time.Now(),
			"extractor",
			"DomExtractor.Extract",
			mapExtractionErrorToMetadataCause(err),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, sourceURL),
			},
		)
		return ExtractionResult{}, err
	}
	return result, nil
}

func (d *DomExtractor) extract(sourceURL string, htmlByte []byte) (ExtractionResult, *ExtractionError) {
	base, err := url.Parse(sourceURL)
	if err != nil || !base.IsAbs() {
		return ExtractionResult{}, &ExtractionError{
			Message:   fmt.Sprintf("cannot resolve links against %q", sourceURL),
			Retryable: false,
			Cause:     ErrCauseInvalidSource,
		}
	}

	if len(bytes.TrimSpace(htmlByte)) == 0 {
		return ExtractionResult{}, &ExtractionError{
			Message:   "document has no content",
			Retryable: false,
			Cause:     ErrCauseEmptyDocument,
		}
	}

	root, err := html.Parse(bytes.NewReader(htmlByte))
	if err != nil {
		return ExtractionResult{}, &ExtractionError{
			Message:   fmt.Sprintf("failed to parse HTML: %v", err),
			Retryable: false,
			Cause:     ErrCauseNotHTML,
		}
	}
	doc := goquery.NewDocumentFromNode(root)

	links, dropped := d.extractLinks(doc, base)

	return ExtractionResult{
		Title:        d.extractTitle(doc),
		Tokens:       d.tokenizer.Tokenize(extractText(doc)),
		Links:        links,
		DroppedLinks: dropped,
	}, nil
}

func (d *DomExtractor) extractTitle(doc *goquery.Document) string {
	h1 := doc.Find(titleSelector).First()
	if h1.Length() == 0 {
		return d.options.DefaultTitle
	}
	title := collapseSpace(h1.Text())
	if title == "" {
		return d.options.DefaultTitle
	}
	return title
}

func extractText(doc *goquery.Document) string {
	doc.Find(mergeSelectors(scopedSelectors(textSelector, noiseSelectors))).Remove()

	var parts []string
	doc.Find(textSelector).Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}

func (d *DomExtractor) extractLinks(doc *goquery.Document, base *url.URL) ([]string, int) {
	self, selfErr := urlutil.Normalize(base.String())
	baseHost := strings.ToLower(base.Hostname())

	links := []string{}
	seen := make(map[string]struct{})
	dropped := 0

	doc.Find(linkSelector).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}

		id, err := urlutil.Resolve(base.String(), href)
		if err != nil {
			if isCandidate(href, d.options.LinkPathPrefix) {
				dropped++
			}
			return
		}

		u, err := url.Parse(id)
		if err != nil {
			dropped++
			return
		}
		if !d.inScope(u, baseHost) {
			return
		}
		if selfErr == nil && id == self {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		links = append(links, id)
	})

	return links, dropped
}

func (d *DomExtractor) inScope(u *url.URL, baseHost string) bool {
	if d.options.SameHostOnly && u.Hostname() != baseHost {
		return false
	}
	if !strings.HasPrefix(u.Path, d.options.LinkPathPrefix) {
		return false
	}
	for _, sub := range d.options.ExcludeLinkSubstrings {
		if sub != "" && strings.Contains(u.Path, sub) {
			return false
		}
	}
	return true
}

// isCandidate reports whether an unresolvable href looked like an in-scope
// link, so that only those count as dropped.
func isCandidate(href, prefix string) bool {
	if prefix == "" {
		return true
	}
	return strings.HasPrefix(href, prefix) || strings.Contains(href, "://")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
