package scan

import (
	"sync"
	"sync/atomic"
)

// tracker holds the shared progress counters and the open-port entries
// for one scan. Counter mutations are atomic; entry appends take a
// short mutex. Readers never block writers: snapshots load counters
// atomically and copy entries under the same short lock.
type tracker struct {
	total   atomic.Int64
	scanned atomic.Int64
	open    atomic.Int64

	mu      sync.Mutex
	entries []Entry
}

// reset prepares the tracker for a new scan of the given size.
func (t *tracker) reset(total int64) {
	t.total.Store(total)
	t.scanned.Store(0)
	t.open.Store(0)
	t.mu.Lock()
	t.entries = nil
	t.mu.Unlock()
}

// markScanned records one resolved work unit, regardless of outcome.
func (t *tracker) markScanned() {
	t.scanned.Add(1)
}

// recordOpen appends an open-port entry and bumps the open counter
// under the same lock, keeping open equal to the entry count.
func (t *tracker) recordOpen(entry Entry) {
	t.mu.Lock()
	t.entries = append(t.entries, entry)
	t.open.Add(1)
	t.mu.Unlock()
}

// counters returns a point-in-time view of the counters.
func (t *tracker) counters() (total, scanned, open int64) {
	return t.total.Load(), t.scanned.Load(), t.open.Load()
}

// snapshotEntries copies the current entries in completion order.
func (t *tracker) snapshotEntries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}
