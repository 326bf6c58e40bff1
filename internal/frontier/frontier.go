package frontier

import (
	"context"
	"sync"
	"time"
)

/*
Frontier Responsibilities
- Maintain BFS ordering (lowest depth first, FIFO within a depth)
- Reject entries beyond the depth limit or once the page cap is reached
- Track in-flight work so termination can be told apart from a momentary lull
- Knows nothing about:
	- fetching
	- extraction
	- storage

The page-cap check here is a cheap pre-filter. The visited registry's claim
remains the authority, since the pre-filter can race with concurrent claims.
*/
type Frontier struct {
	mu         sync.Mutex
	buckets    []*FIFOQueue[Entry]
	queued     map[string]struct{}
	size       int
	inFlight   int
	closed     bool
	maxDepth   int
	capReached func() bool
	// closed and replaced on every state change to wake all waiters
	changed chan struct{}
}

// New returns an empty frontier. capReached may be nil.
func New(maxDepth int, capReached func() bool) *Frontier {
	if maxDepth < 0 {
		maxDepth = 0
	}
	buckets := make([]*FIFOQueue[Entry], maxDepth+1)
	for i := range buckets {
		buckets[i] = NewFIFOQueue[Entry]()
	}
	return &Frontier{
		buckets:    buckets,
		queued:     make(map[string]struct{}),
		maxDepth:   maxDepth,
		capReached: capReached,
		changed:    make(chan struct{}),
	}
}

// Push enqueues entry and reports whether it was accepted. Entries with a
// negative depth, a depth beyond the limit, an empty identifier, or an
// identifier already waiting in the queue are rejected, as is everything
// once the page cap is reached or the frontier is closed.
func (f *Frontier) Push(entry Entry) bool {
	if entry.ID == "" || entry.Depth < 0 || entry.Depth > f.maxDepth {
		return false
	}
	if f.capReached != nil && f.capReached() {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	if _, dup := f.queued[entry.ID]; dup {
		return false
	}
	f.queued[entry.ID] = struct{}{}
	f.buckets[entry.Depth].Enqueue(entry)
	f.size++
	f.broadcastLocked()
	return true
}

// Pop removes the next entry, waiting up to timeout for one to arrive.
// A successful Pop counts the entry as in flight until Done is called.
// It returns false on timeout, on cancellation, once the frontier is
// closed, or immediately when the frontier is idle (nothing queued and
// nothing in flight that could enqueue more).
func (f *Frontier) Pop(ctx context.Context, timeout time.Duration) (Entry, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			return Entry{}, false
		}
		if entry, ok := f.dequeueLocked(); ok {
			f.inFlight++
			f.mu.Unlock()
			return entry, true
		}
		if f.inFlight == 0 {
			f.mu.Unlock()
			return Entry{}, false
		}
		changed := f.changed
		f.mu.Unlock()

		select {
		case <-changed:
		case <-timer.C:
			return Entry{}, false
		case <-ctx.Done():
			return Entry{}, false
		}
	}
}

// Done marks one popped entry as finished. Callers push the links they
// discovered before calling Done, so the frontier never looks idle while
// work is about to be added.
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight > 0 {
		f.inFlight--
	}
	f.broadcastLocked()
}

// Idle reports whether the queue is empty and no entry is in flight.
func (f *Frontier) Idle() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size == 0 && f.inFlight == 0
}

func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}

func (f *Frontier) InFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

// Pending returns the queued entries in the order Pop would return them.
func (f *Frontier) Pending() []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Entry, 0, f.size)
	for _, bucket := range f.buckets {
		out = append(out, bucket.Items()...)
	}
	return out
}

// Close stops admission and dequeuing and wakes every waiter.
// Queued entries stay available through Pending.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.broadcastLocked()
}

func (f *Frontier) dequeueLocked() (Entry, bool) {
	for _, bucket := range f.buckets {
		if entry, ok := bucket.Dequeue(); ok {
			f.size--
			delete(f.queued, entry.ID)
			return entry, true
		}
	}
	return Entry{}, false
}

func (f *Frontier) broadcastLocked() {
	close(f.changed)
	f.changed = make(chan struct{})
}
