package fetcher

// HTTP boundary

type FetchResult struct {
	id       string
	finalURL string
	body     []byte
	meta     ResponseMeta
}

// ID is the identifier that was requested.
func (f FetchResult) ID() string {
	return f.id
}

// URL is where the document was actually served from, after redirects.
// Relative links on the page resolve against it.
func (f FetchResult) URL() string {
	return f.finalURL
}

func (f FetchResult) Body() []byte {
	return f.body
}

func (f FetchResult) Code() int {
	return f.meta.statusCode
}

func (f FetchResult) ContentType() string {
	return f.meta.contentType
}

func (f FetchResult) SizeByte() uint64 {
	return f.meta.transferredSizeByte
}

func (f FetchResult) Headers() map[string]string {
	headers := make(map[string]string, len(f.meta.responseHeaders))
	for k, v := range f.meta.responseHeaders {
		headers[k] = v
	}
	return headers
}

type ResponseMeta struct {
	statusCode          int
	contentType         string
	transferredSizeByte uint64
	responseHeaders     map[string]string
}

// NewFetchResult builds a FetchResult; fetchers outside this package and
// tests use it to hand documents to the extractor.
func NewFetchResult(
	id string,
	finalURL string,
	body []byte,
	statusCode int,
	contentType string,
	responseHeaders map[string]string,
) FetchResult {
	return FetchResult{
		id:       id,
		finalURL: finalURL,
		body:     body,
		meta: ResponseMeta{
			statusCode:          statusCode,
			contentType:         contentType,
			transferredSizeByte: uint64(len(body)),
			responseHeaders:     responseHeaders,
		},
	}
}
