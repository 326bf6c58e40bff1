package storage

import (
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rohmanhakim/page-crawler/internal/metadata"
	"github.com/rohmanhakim/page-crawler/internal/record"
	"github.com/rohmanhakim/page-crawler/pkg/failure"
	"github.com/rohmanhakim/page-crawler/pkg/fileutil"
)

/*
Responsibilities
- Append one serialized record per line to a durable stream
- Serialize concurrent writers
- Account emitted bytes against the run's budget

Output Characteristics
- Newline-delimited JSON, append-only
- No ordering guarantee across records
- Total bytes written never exceed the budget by more than one record
*/

type Sink interface {
	Append(rec record.PageRecord) (AppendResult, failure.ClassifiedError)
	Exceeded() bool
	Total() int64
}

type JSONLSink struct {
	metadataSink metadata.MetadataSink
	path         string
	maxBytes     int64

	mu     sync.Mutex
	file   *os.File
	closed bool

	total    atomic.Int64
	records  atomic.Int64
	rejected atomic.Int64
}

// NewJSONLSink opens path for appending, creating it and its parent
// directory when needed. The budget counts only bytes written by this sink.
func NewJSONLSink(
	path string,
	maxBytes int64,
	metadataSink metadata.MetadataSink,
) (*JSONLSink, failure.ClassifiedError) {
	if err := fileutil.EnsureParentDir(path); err != nil {
		return nil, &StorageError{
			Message: err.Error(),
			Cause:   ErrCausePathError,
			Path:    path,
		}
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &StorageError{
			Message: err.Error(),
			Cause:   ErrCausePathError,
			Path:    path,
		}
	}
	return &JSONLSink{
		metadataSink: metadataSink,
		path:         path,
		maxBytes:     maxBytes,
		file:         file,
	}, nil
}

// Append writes rec as one line. Once the budget is met, later calls write
// nothing and return a rejected result.
func (s *JSONLSink) Append(rec record.PageRecord) (AppendResult, failure.ClassifiedError) {
	line, err := json.Marshal(rec)
	if err != nil {
		return AppendResult{}, s.report(rec, &StorageError{
			Message: err.Error(),
			Cause:   ErrCauseEncodingFailure,
			Path:    s.path,
		})
	}
	line = append(line, '\n')

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return AppendResult{}, s.report(rec, &StorageError{
			Message: "append after close",
			Cause:   ErrCauseSinkClosed,
			Path:    s.path,
		})
	}
	if s.total.Load() >= s.maxBytes {
		s.mu.Unlock()
		s.rejected.Add(1)
		return NewAppendResult(0, s.total.Load(), true, true), nil
	}
	n, werr := s.file.Write(line)
	total := s.total.Add(int64(n))
	s.mu.Unlock()

	if werr != nil {
		cause := ErrCauseWriteFailure
		retryable := false
		if errors.Is(werr, syscall.ENOSPC) {
			cause = ErrCauseDiskFull
			retryable = true
		}
		return NewAppendResult(n, total, total >= s.maxBytes, false), s.report(rec, &StorageError{
			Message:   werr.Error(),
			Retryable: retryable,
			Cause:     cause,
			Path:      s.path,
		})
	}

	s.records.Add(1)
	s.metadataSink.RecordArtifact(
		metadata.ArtifactRecord,
		s.path,
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, rec.Identifier()),
			metadata.NewAttr(metadata.AttrBytes, strconv.Itoa(n)),
		},
	)
	return NewAppendResult(n, total, total >= s.maxBytes, false), nil
}

func (s *JSONLSink) report(rec record.PageRecord, err *StorageError) *StorageError {
	s.metadataSink.RecordError(
		time.Now(),
		"storage",
		"JSONLSink.Append",
		mapStorageErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, rec.Identifier()),
			metadata.NewAttr(metadata.AttrWritePath, err.Path),
		},
	)
	return err
}

func (s *JSONLSink) Exceeded() bool {
	return s.total.Load() >= s.maxBytes
}

func (s *JSONLSink) Total() int64 {
	return s.total.Load()
}

// Records is the number of successfully appended records.
func (s *JSONLSink) Records() int64 {
	return s.records.Load()
}

// Rejected is the number of appends refused after the budget was exceeded.
func (s *JSONLSink) Rejected() int64 {
	return s.rejected.Load()
}

func (s *JSONLSink) Path() string {
	return s.path
}

// Close flushes the file to disk. It is safe to call more than once.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return errors.Join(s.file.Sync(), s.file.Close())
}
