package fetcher_test

import (
	"sync"
	"time"

	"github.com/rohmanhakim/page-crawler/internal/metadata"
)

type fetchCall struct {
	url    string
	status int
	depth  int
}

type metadataSinkMock struct {
	mu          sync.Mutex
	fetches     []fetchCall
	errorCauses []metadata.ErrorCause
}

func (m *metadataSinkMock) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCauses = append(m.errorCauses, cause)
}

func (m *metadataSinkMock) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
	crawlDepth int,
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches = append(m.fetches, fetchCall{url: fetchUrl, status: httpStatus, depth: crawlDepth})
}

func (m *metadataSinkMock) RecordArtifact(kind metadata.ArtifactKind, path string, attrs []metadata.Attribute) {
}

func (m *metadataSinkMock) RecordClaim(id string, depth int) {}

func (m *metadataSinkMock) RecordCheckpoint(path string, count int, duration time.Duration, err error) {}
