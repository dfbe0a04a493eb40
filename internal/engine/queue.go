package engine

import "sync"

// Cause identifies which declared input of a recipe changed.
// Causes are a bitmask so coalesced invalidations remember every input that
// moved while the recipe waited its turn.
type Cause int

const (
	// CauseGraph - the recipe's own ingredient list changed.
	CauseGraph Cause = 1 << iota
	// CauseCatalog - a master-ingredient record changed underneath the recipe.
	CauseCatalog
	// CauseSubRecipe - a sub-recipe's reconciled declaration changed.
	CauseSubRecipe
	// CauseOverrides - the manual override record changed.
	CauseOverrides
)

// Has reports whether c includes the given cause bit.
func (c Cause) Has(bit Cause) bool {
	return c&bit != 0
}

// String renders the cause set for logs.
func (c Cause) String() string {
	names := []struct {
		bit  Cause
		name string
	}{
		{CauseGraph, "graph"},
		{CauseCatalog, "catalog"},
		{CauseSubRecipe, "sub_recipe"},
		{CauseOverrides, "overrides"},
	}
	s := ""
	for _, n := range names {
		if c.Has(n.bit) {
			if s != "" {
				s += "+"
			}
			s += n.name
		}
	}
	if s == "" {
		return "none"
	}
	return s
}

// Invalidation tells the engine that one of a recipe's declared inputs
// changed and its declaration may be stale.
type Invalidation struct {
	RecipeID string
	Cause    Cause
}

// invalidationQueue is a thread-safe queue holding at most one pending entry
// per recipe.
//
// Coalescing is the point: rapid input changes for the same recipe merge
// their cause bits into the existing entry instead of queueing stale
// follow-ups. When the entry is finally dequeued, the recompute reads the
// then-current snapshot, so only the most recent complete inputs are ever
// used. An invalidation arriving while its recipe is being recomputed simply
// re-enters the queue - exactly one follow-up pass, never a backlog.
//
// The signal channel (buffered, size 1) lets the Run loop wait without
// spinning and coalesces wakeups the same way entries coalesce.
type invalidationQueue struct {
	mu      sync.Mutex
	order   []string         // recipe ids in arrival order
	pending map[string]Cause // recipe id -> merged causes
	closed  bool
	signal  chan struct{}
}

func newInvalidationQueue() *invalidationQueue {
	return &invalidationQueue{
		pending: make(map[string]Cause),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue adds or merges an invalidation.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *invalidationQueue) Enqueue(inv Invalidation) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	if existing, ok := q.pending[inv.RecipeID]; ok {
		q.pending[inv.RecipeID] = existing | inv.Cause
	} else {
		q.pending[inv.RecipeID] = inv.Cause
		q.order = append(q.order, inv.RecipeID)
	}

	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes and returns the oldest pending invalidation.
// Returns ok=false if the queue is empty.
func (q *invalidationQueue) TryDequeue() (Invalidation, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.order) == 0 {
		return Invalidation{}, false
	}

	id := q.order[0]
	q.order[0] = ""
	q.order = q.order[1:]
	if len(q.order) == 0 {
		q.order = nil
	}

	cause := q.pending[id]
	delete(q.pending, id)

	return Invalidation{RecipeID: id, Cause: cause}, true
}

// Wait returns the signal channel. The channel fires when an entry may be
// available and when the queue closes; a wakeup is a hint, not a guarantee,
// so waiters must re-check TryDequeue and Closed.
func (q *invalidationQueue) Wait() <-chan struct{} {
	return q.signal
}

// Closed reports whether Close has been called.
func (q *invalidationQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of distinct recipes pending.
func (q *invalidationQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

// Close marks the queue closed and wakes any waiter.
// Further Enqueue calls return false.
func (q *invalidationQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
