package scheduler_test

import (
	"sync"
	"time"

	"github.com/rohmanhakim/page-crawler/internal/metadata"
)

type metadataSinkMock struct {
	metadata.NoopSink

	mu               sync.Mutex
	errorPackages    []string
	checkpointErrors []error
	checkpointCalls  int
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
	m.errorPackages = append(m.errorPackages, packageName)
}

func (m *metadataSinkMock) RecordCheckpoint(path string, count int, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpointCalls++
	if err != nil {
		m.checkpointErrors = append(m.checkpointErrors, err)
	}
}

func (m *metadataSinkMock) errorsFrom(pkg string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.errorPackages {
		if p == pkg {
			n++
		}
	}
	return n
}
