package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/rohmanhakim/page-crawler/pkg/failure"
	"github.com/rohmanhakim/page-crawler/pkg/fileutil"
	"github.com/rohmanhakim/page-crawler/pkg/hashutil"
)

const schema = `
CREATE TABLE IF NOT EXISTS visited (
	id TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS pending (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL,
	depth INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// SQLiteStore keeps the checkpoint in a SQLite database. Each Save replaces
// the previous snapshot inside one transaction.
// The database is opened on first use so an unreadable file surfaces as a
// checkpoint error on Load or Save rather than at construction.
type SQLiteStore struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) conn(ctx context.Context) (*sql.DB, error) {
	if s.db != nil {
		return s.db, nil
	}
	if ferr := fileutil.EnsureParentDir(s.path); ferr != nil {
		return nil, ferr
	}
	db, err := sql.Open("sqlite", s.path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	s.db = db
	return db, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (Checkpoint, failure.ClassifiedError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn(ctx)
	if err != nil {
		return Checkpoint{}, &CheckpointError{Message: err.Error(), Cause: ErrCauseCorrupt, Path: s.path}
	}

	meta, err := readMeta(ctx, db)
	if err != nil {
		return Checkpoint{}, &CheckpointError{Message: err.Error(), Cause: ErrCauseReadFailure, Path: s.path}
	}
	savedAtRaw, ok := meta["saved_at"]
	if !ok {
		return Checkpoint{}, &CheckpointError{Message: "no snapshot stored", Cause: ErrCauseNotFound, Path: s.path}
	}

	cp := Checkpoint{RunID: meta["run_id"]}
	if cp.SavedAt, err = time.Parse(time.RFC3339Nano, savedAtRaw); err != nil {
		return Checkpoint{}, &CheckpointError{Message: err.Error(), Cause: ErrCauseCorrupt, Path: s.path}
	}
	if cp.Version, err = strconv.Atoi(meta["version"]); err != nil {
		return Checkpoint{}, &CheckpointError{Message: err.Error(), Cause: ErrCauseCorrupt, Path: s.path}
	}

	if cp.Visited, err = readVisited(ctx, db); err != nil {
		return Checkpoint{}, &CheckpointError{Message: err.Error(), Cause: ErrCauseReadFailure, Path: s.path}
	}
	if cp.Pending, err = readPending(ctx, db); err != nil {
		return Checkpoint{}, &CheckpointError{Message: err.Error(), Cause: ErrCauseReadFailure, Path: s.path}
	}

	digest, herr := hashutil.HashSet(cp.Visited, hashutil.HashAlgoBLAKE3)
	if herr != nil || digest != meta["digest"] {
		return Checkpoint{}, &CheckpointError{Message: "digest mismatch", Cause: ErrCauseCorrupt, Path: s.path}
	}
	if verr := validate(cp, s.path); verr != nil {
		return Checkpoint{}, verr
	}
	return cp, nil
}

func (s *SQLiteStore) Save(ctx context.Context, cp Checkpoint) failure.ClassifiedError {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn(ctx)
	if err != nil {
		return &CheckpointError{Message: err.Error(), Retryable: true, Cause: ErrCauseWriteFailure, Path: s.path}
	}
	if err := s.replace(ctx, db, cp); err != nil {
		return &CheckpointError{Message: err.Error(), Retryable: true, Cause: ErrCauseWriteFailure, Path: s.path}
	}
	return nil
}

func (s *SQLiteStore) replace(ctx context.Context, db *sql.DB, cp Checkpoint) (err error) {
	digest, err := hashutil.HashSet(cp.Visited, hashutil.HashAlgoBLAKE3)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	for _, stmt := range []string{"DELETE FROM visited", "DELETE FROM pending", "DELETE FROM meta"} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	insertVisited, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO visited (id) VALUES (?)")
	if err != nil {
		return err
	}
	defer insertVisited.Close()
	for _, id := range cp.Visited {
		if _, err = insertVisited.ExecContext(ctx, id); err != nil {
			return err
		}
	}

	insertPending, err := tx.PrepareContext(ctx, "INSERT INTO pending (id, depth) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer insertPending.Close()
	for _, e := range cp.Pending {
		if _, err = insertPending.ExecContext(ctx, e.ID, e.Depth); err != nil {
			return err
		}
	}

	meta := map[string]string{
		"version":  strconv.Itoa(FormatVersion),
		"run_id":   cp.RunID,
		"saved_at": cp.SavedAt.UTC().Format(time.RFC3339Nano),
		"digest":   digest,
	}
	for k, v := range meta {
		if _, err = tx.ExecContext(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func readMeta(ctx context.Context, db *sql.DB) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

func readVisited(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT id FROM visited ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	visited := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		visited = append(visited, id)
	}
	return visited, rows.Err()
}

func readPending(ctx context.Context, db *sql.DB) ([]Entry, error) {
	rows, err := db.QueryContext(ctx, "SELECT id, depth FROM pending ORDER BY seq")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Depth); err != nil {
			return nil, err
		}
		pending = append(pending, e)
	}
	return pending, rows.Err()
}
