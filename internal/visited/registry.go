package visited

import (
	"context"
	"sync"
	"time"

	"github.com/rohmanhakim/page-crawler/internal/checkpoint"
	"github.com/rohmanhakim/page-crawler/pkg/failure"
	"github.com/rohmanhakim/page-crawler/pkg/retry"
	"github.com/rohmanhakim/page-crawler/pkg/urlutil"
)

/*
Registry is the deduplication authority of a crawl run.

Invariants:
  - TryClaim is the only mutation during a run; check and insert happen
    under one lock, so exactly one caller ever wins a given identifier.
  - No claim succeeds once the member count has reached the page cap.
    Identifiers restored from a checkpoint count toward the cap.
  - TryClaim never performs I/O. Persistence is driven by the caller
    through SaveCheckpoint.
*/
type Registry struct {
	mu       sync.Mutex
	members  Set[string]
	maxPages int
	claimed  int
}

func NewRegistry(maxPages int) *Registry {
	return &Registry{
		members:  NewSet[string](),
		maxPages: maxPages,
	}
}

// TryClaim records id as visited and returns true iff it was not visited
// before and the cap has not been reached.
func (r *Registry) TryClaim(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.members.Size() >= r.maxPages {
		return false
	}
	if !r.members.AddIfAbsent(id) {
		return false
	}
	r.claimed++
	return true
}

func (r *Registry) Contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.members.Contains(id)
}

// Count is the number of visited identifiers, restored ones included.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.members.Size()
}

// Claimed is the number of successful TryClaim calls in this run.
func (r *Registry) Claimed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.claimed
}

func (r *Registry) CapReached() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.members.Size() >= r.maxPages
}

// Snapshot returns the visited identifiers in ascending order.
func (r *Registry) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return SortedMembers(r.members)
}

// LoadCheckpoint replaces the registry contents with the snapshot held by
// store. The load is all-or-nothing: on any error, including an identifier
// that no longer normalizes, the registry is left empty and the error is
// returned for the caller to log. A missing checkpoint yields
// checkpoint.ErrNotFound.
func (r *Registry) LoadCheckpoint(ctx context.Context, store checkpoint.Store) (checkpoint.Checkpoint, failure.ClassifiedError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members.Clear()

	cp, err := store.Load(ctx)
	if err != nil {
		return checkpoint.Checkpoint{}, err
	}

	restored := NewSet[string]()
	for _, raw := range cp.Visited {
		id, nerr := urlutil.Normalize(raw)
		if nerr != nil {
			return checkpoint.Checkpoint{}, &checkpoint.CheckpointError{
				Message: nerr.Error(),
				Cause:   checkpoint.ErrCauseCorrupt,
				Path:    store.Path(),
			}
		}
		restored.Add(id)
	}

	r.members = restored
	cp.Visited = SortedMembers(restored)
	return cp, nil
}

// SaveCheckpoint persists the current visited set together with the
// pending frontier entries, retrying transient write failures. It returns
// the number of identifiers written.
func (r *Registry) SaveCheckpoint(
	ctx context.Context,
	store checkpoint.Store,
	runID string,
	pending []checkpoint.Entry,
	retryParam retry.RetryParam,
) (int, failure.ClassifiedError) {
	cp := checkpoint.Checkpoint{
		Version: checkpoint.FormatVersion,
		RunID:   runID,
		SavedAt: time.Now().UTC(),
		Visited: r.Snapshot(),
		Pending: pending,
	}

	result := retry.Retry(ctx, retryParam, func(ctx context.Context) (struct{}, failure.ClassifiedError) {
		return struct{}{}, store.Save(ctx, cp)
	})
	if result.IsFailure() {
		return 0, result.Err()
	}
	return len(cp.Visited), nil
}
