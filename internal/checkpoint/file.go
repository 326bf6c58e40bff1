package checkpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rohmanhakim/page-crawler/pkg/failure"
	"github.com/rohmanhakim/page-crawler/pkg/fileutil"
	"github.com/rohmanhakim/page-crawler/pkg/hashutil"
)

// FileStore keeps the checkpoint in a single JSON document.
// Writes go to a temp file that is renamed over the target, so a crash
// leaves either the old or the new snapshot, never a torn one.
type FileStore struct {
	path string
}

type fileDTO struct {
	Version int       `json:"version"`
	RunID   string    `json:"run_id,omitempty"`
	SavedAt time.Time `json:"saved_at"`
	Digest  string    `json:"digest,omitempty"`
	Visited []string  `json:"visited"`
	Pending []Entry   `json:"pending,omitempty"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Close() error {
	return nil
}

// Load reads the snapshot. A bare JSON array of identifiers is accepted
// as a visited-only checkpoint.
func (s *FileStore) Load(ctx context.Context) (Checkpoint, failure.ClassifiedError) {
	if err := ctx.Err(); err != nil {
		return Checkpoint{}, &CheckpointError{Message: err.Error(), Cause: ErrCauseReadFailure, Path: s.path}
	}
	content, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Checkpoint{}, &CheckpointError{Message: err.Error(), Cause: ErrCauseNotFound, Path: s.path}
		}
		return Checkpoint{}, &CheckpointError{Message: err.Error(), Cause: ErrCauseReadFailure, Path: s.path}
	}

	content = bytes.TrimSpace(content)
	if len(content) == 0 {
		return Checkpoint{}, &CheckpointError{Message: "empty file", Cause: ErrCauseCorrupt, Path: s.path}
	}

	var cp Checkpoint
	if content[0] == '[' {
		var visited []string
		if err := json.Unmarshal(content, &visited); err != nil {
			return Checkpoint{}, &CheckpointError{Message: err.Error(), Cause: ErrCauseCorrupt, Path: s.path}
		}
		cp = Checkpoint{Version: FormatVersion, Visited: visited}
	} else {
		var dto fileDTO
		if err := json.Unmarshal(content, &dto); err != nil {
			return Checkpoint{}, &CheckpointError{Message: err.Error(), Cause: ErrCauseCorrupt, Path: s.path}
		}
		if dto.Digest != "" {
			digest, err := hashutil.HashSet(dto.Visited, hashutil.HashAlgoBLAKE3)
			if err != nil {
				return Checkpoint{}, &CheckpointError{Message: err.Error(), Cause: ErrCauseCorrupt, Path: s.path}
			}
			if digest != dto.Digest {
				return Checkpoint{}, &CheckpointError{
					Message: fmt.Sprintf("digest mismatch: stored %s, computed %s", dto.Digest, digest),
					Cause:   ErrCauseCorrupt,
					Path:    s.path,
				}
			}
		}
		cp = Checkpoint{
			Version: dto.Version,
			RunID:   dto.RunID,
			SavedAt: dto.SavedAt,
			Visited: dto.Visited,
			Pending: dto.Pending,
		}
	}

	if verr := validate(cp, s.path); verr != nil {
		return Checkpoint{}, verr
	}
	return cp, nil
}

func (s *FileStore) Save(ctx context.Context, cp Checkpoint) failure.ClassifiedError {
	if err := ctx.Err(); err != nil {
		return &CheckpointError{Message: err.Error(), Cause: ErrCauseWriteFailure, Path: s.path}
	}
	digest, err := hashutil.HashSet(cp.Visited, hashutil.HashAlgoBLAKE3)
	if err != nil {
		return &CheckpointError{Message: err.Error(), Cause: ErrCauseWriteFailure, Path: s.path}
	}
	visited := cp.Visited
	if visited == nil {
		visited = []string{}
	}
	dto := fileDTO{
		Version: FormatVersion,
		RunID:   cp.RunID,
		SavedAt: cp.SavedAt,
		Digest:  digest,
		Visited: visited,
		Pending: cp.Pending,
	}
	data, err := json.MarshalIndent(dto, "", "  ")
	if err != nil {
		return &CheckpointError{Message: err.Error(), Cause: ErrCauseWriteFailure, Path: s.path}
	}

	if ferr := fileutil.EnsureParentDir(s.path); ferr != nil {
		return &CheckpointError{Message: ferr.Error(), Retryable: true, Cause: ErrCauseWriteFailure, Path: s.path}
	}
	if ferr := fileutil.WriteFileAtomic(s.path, append(data, '\n'), 0o644); ferr != nil {
		return &CheckpointError{Message: ferr.Error(), Retryable: true, Cause: ErrCauseWriteFailure, Path: s.path}
	}
	return nil
}
