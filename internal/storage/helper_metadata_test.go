package storage_test

import (
	"sync"
	"time"

	"github.com/rohmanhakim/page-crawler/internal/metadata"
)

// metadataSinkMock records calls from concurrent appenders.
type metadataSinkMock struct {
	mu            sync.Mutex
	errorCauses   []metadata.ErrorCause
	artifactKinds []metadata.ArtifactKind
	artifactAttrs [][]metadata.Attribute
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
}

func (m *metadataSinkMock) RecordArtifact(kind metadata.ArtifactKind, path string, attrs []metadata.Attribute) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifactKinds = append(m.artifactKinds, kind)
	m.artifactAttrs = append(m.artifactAttrs, attrs)
}

func (m *metadataSinkMock) RecordClaim(id string, depth int) {}

func (m *metadataSinkMock) RecordCheckpoint(path string, count int, duration time.Duration, err error) {}

func (m *metadataSinkMock) artifactCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.artifactKinds)
}

func (m *metadataSinkMock) errorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errorCauses)
}

// findAttrValue finds an attribute value by key in a slice of attributes
func findAttrValue(attrs []metadata.Attribute, key metadata.AttributeKey) string {
	for _, attr := range attrs {
		if attr.Key == key {
			return attr.Value
		}
	}
	return ""
}
