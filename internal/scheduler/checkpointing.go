package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rohmanhakim/page-crawler/internal/checkpoint"
	"github.com/rohmanhakim/page-crawler/internal/frontier"
	"github.com/rohmanhakim/page-crawler/internal/metadata"
)

const checkpointKey = "checkpoint"

// startCheckpointTicker triggers a background save every policy interval
// until the returned stop function is called. Stop waits for the ticker
// goroutine to exit.
func (s *Scheduler) startCheckpointTicker(ctx context.Context) func() {
	interval := s.options.Checkpoint.Interval
	if interval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.saveInBackground(ctx)
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		<-exited
	}
}

// saveInBackground starts a checkpoint save without blocking the caller.
// Triggers that arrive while a save is running join it instead of
// queueing another write.
func (s *Scheduler) saveInBackground(ctx context.Context) {
	s.saveWG.Add(1)
	go func() {
		defer s.saveWG.Done()
		_, _, _ = s.saves.Do(checkpointKey, func() (any, error) {
			s.saveCheckpoint(ctx)
			return nil, nil
		})
	}()
}

// saveCheckpoint persists the visited set and pending entries. Failures are
// logged and never stop the crawl.
func (s *Scheduler) saveCheckpoint(ctx context.Context) {
	startTime := time.Now()
	count, err := s.registry.SaveCheckpoint(
		ctx,
		s.store,
		s.currentRunID(),
		s.pendingEntries(),
		s.options.Checkpoint.RetryParam,
	)

	var recorded error
	if err != nil {
		recorded = err
		cause := metadata.CauseStorageFailure
		var checkpointErr *checkpoint.CheckpointError
		if errors.As(err, &checkpointErr) {
			cause = checkpoint.MapCheckpointErrorToMetadataCause(checkpointErr)
		}
		s.metadataSink.RecordError(
			time.Now(),
			"scheduler",
			"Scheduler.saveCheckpoint",
			cause,
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrWritePath, s.store.Path()),
			},
		)
	} else {
		s.checkpoints.Add(1)
	}
	s.metadataSink.RecordCheckpoint(s.store.Path(), count, time.Since(startTime), recorded)
}

// pendingEntries lists the work a resumed run should pick up: entries handed
// back unclaimed followed by the frontier queue, without visited or
// duplicate identifiers.
func (s *Scheduler) pendingEntries() []checkpoint.Entry {
	s.mu.Lock()
	candidates := make([]frontier.Entry, 0, len(s.returned)+s.frontier.Len())
	candidates = append(candidates, s.returned...)
	s.mu.Unlock()
	candidates = append(candidates, s.frontier.Pending()...)

	seen := make(map[string]struct{}, len(candidates))
	pending := make([]checkpoint.Entry, 0, len(candidates))
	for _, e := range candidates {
		if _, dup := seen[e.ID]; dup || s.registry.Contains(e.ID) {
			continue
		}
		seen[e.ID] = struct{}{}
		pending = append(pending, checkpoint.Entry{ID: e.ID, Depth: e.Depth})
	}
	return pending
}

func (s *Scheduler) currentRunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}
