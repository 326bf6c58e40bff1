package checkpoint

import (
	"context"
	"time"

	"github.com/rohmanhakim/page-crawler/pkg/failure"
	"github.com/rohmanhakim/page-crawler/pkg/fileutil"
)

/*
Responsibilities
- Persist the visited set between runs
- Persist the pending frontier so a resumed run continues the traversal
- Detect torn or tampered snapshots

A checkpoint is loaded all-or-nothing: either every member is returned or
the load fails and the caller starts empty.
*/

const FormatVersion = 1

type Entry struct {
	ID    string `json:"id"`
	Depth int    `json:"depth"`
}

type Checkpoint struct {
	Version int
	RunID   string
	SavedAt time.Time
	Visited []string
	Pending []Entry
}

type Store interface {
	Load(ctx context.Context) (Checkpoint, failure.ClassifiedError)
	Save(ctx context.Context, cp Checkpoint) failure.ClassifiedError
	Path() string
	Close() error
}

// Open picks the store from the path extension: .db, .sqlite and .sqlite3
// are SQLite databases, everything else is a JSON file.
func Open(path string) Store {
	switch fileutil.GetFileExtension(path) {
	case "db", "sqlite", "sqlite3":
		return NewSQLiteStore(path)
	default:
		return NewFileStore(path)
	}
}

func validate(cp Checkpoint, path string) failure.ClassifiedError {
	for _, id := range cp.Visited {
		if id == "" {
			return &CheckpointError{
				Message: "empty identifier in visited set",
				Cause:   ErrCauseCorrupt,
				Path:    path,
			}
		}
	}
	for _, e := range cp.Pending {
		if e.ID == "" || e.Depth < 0 {
			return &CheckpointError{
				Message: "invalid pending entry",
				Cause:   ErrCauseCorrupt,
				Path:    path,
			}
		}
	}
	return nil
}
