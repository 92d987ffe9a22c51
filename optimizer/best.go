package optimizer

import (
	"sync"
	"sync/atomic"
)

// BestTracker keeps the globally best trajectory. Writers serialize on mu;
// readers such as the progress monitor load the atomic snapshot and never block.
type BestTracker struct {
	mu       sync.Mutex
	snapshot atomic.Value // IterationResult
}

// Offer records r if it strictly beats the current best and reports whether it did.
func (b *BestTracker) Offer(r IterationResult) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.snapshot.Load().(IterationResult); ok && r.Score <= cur.Score {
		return false
	}
	b.snapshot.Store(r)
	return true
}

// Best returns the best trajectory seen so far.
func (b *BestTracker) Best() (IterationResult, bool) {
	r, ok := b.snapshot.Load().(IterationResult)
	return r, ok
}

// Score returns the best score, or 0 before the first result.
func (b *BestTracker) Score() float64 {
	if r, ok := b.Best(); ok {
		return r.Score
	}
	return 0
}
