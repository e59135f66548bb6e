package searcher

import (
	"container/heap"
	"sort"
	"sync"

	"github.com/Aman-CERP/recdex/internal/store"
)

// Entry is one scored candidate awaiting resolution.
type Entry struct {
	Fingerprint uint64
	Address     store.Address
	Score       float64
}

// ranksAbove reports whether a ranks strictly above b: higher score first,
// then lower fingerprint, then lower address.
func ranksAbove(a, b Entry) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Fingerprint != b.Fingerprint {
		return a.Fingerprint < b.Fingerprint
	}
	return a.Address.Compare(b.Address) < 0
}

// Compile time check to ensure worstFirst satisfies the heap interface.
var _ heap.Interface = (*worstFirst)(nil)

// worstFirst is a heap whose root is the lowest-ranked entry.
type worstFirst []Entry

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return ranksAbove(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) { *h = append(*h, x.(Entry)) }

func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Collector keeps the best limit entries offered to it.
//
// Offer is safe for concurrent use, and the retained set does not depend on
// the order entries arrive in: ties at the boundary are broken by the full
// (score, fingerprint, address) order.
type Collector struct {
	mu    sync.Mutex
	limit int
	items worstFirst
}

// preallocCap bounds the up-front heap allocation; the heap grows past it
// on demand.
const preallocCap = 64

// NewCollector creates a collector bounded to limit entries. limit must be
// at least 1.
func NewCollector(limit int) *Collector {
	return &Collector{limit: limit, items: make(worstFirst, 0, min(limit, preallocCap))}
}

// Offer inserts e if there is room, or replaces the weakest entry if e ranks
// strictly above it. Reports whether e was retained.
func (c *Collector) Offer(e Entry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) < c.limit {
		heap.Push(&c.items, e)
		return true
	}

	// Heap is full: root is the weakest candidate
	if ranksAbove(e, c.items[0]) {
		c.items[0] = e
		heap.Fix(&c.items, 0)
		return true
	}
	return false
}

// Len returns the number of retained entries.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Drain returns the retained entries best first and empties the collector.
func (c *Collector) Drain() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := []Entry(c.items)
	c.items = make(worstFirst, 0, min(c.limit, preallocCap))
	sort.Slice(out, func(i, j int) bool { return ranksAbove(out[i], out[j]) })
	return out
}
