package shadow

import (
	"fmt"

	"github.com/joshuapare/chunkalloc/arena/alloc"
)

// DefaultCapacity bounds the number of live allocations a Tracker follows.
const DefaultCapacity = 100000

// Ref associates a caller-visible handle with the engine pointer it shadows.
type Ref struct {
	Handle   Handle
	Internal alloc.Ptr
}

// RefTable is a bounded, unordered table of Refs. Lookups are linear scans;
// removal swaps the last entry into the hole.
type RefTable struct {
	refs []Ref
	cap  int
}

// NewRefTable creates a table holding at most capacity refs. A non-positive
// capacity selects DefaultCapacity.
func NewRefTable(capacity int) *RefTable {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RefTable{cap: capacity}
}

// Push records h -> p.
func (t *RefTable) Push(h Handle, p alloc.Ptr) error {
	if len(t.refs) >= t.cap {
		return fmt.Errorf("%w: %d entries", ErrTableFull, t.cap)
	}
	t.refs = append(t.refs, Ref{Handle: h, Internal: p})
	return nil
}

// Lookup returns the engine pointer recorded for h.
func (t *RefTable) Lookup(h Handle) (alloc.Ptr, bool) {
	if i := t.index(h); i >= 0 {
		return t.refs[i].Internal, true
	}
	return alloc.Nil, false
}

// Pop removes h and returns the engine pointer it mapped to.
func (t *RefTable) Pop(h Handle) (alloc.Ptr, bool) {
	i := t.index(h)
	if i < 0 {
		return alloc.Nil, false
	}
	p := t.refs[i].Internal
	last := len(t.refs) - 1
	t.refs[i] = t.refs[last]
	t.refs = t.refs[:last]
	return p, true
}

// Len returns the number of live refs.
func (t *RefTable) Len() int { return len(t.refs) }

// Cap returns the table capacity.
func (t *RefTable) Cap() int { return t.cap }

// Each calls fn for every ref until fn returns false. fn must not modify the
// table.
func (t *RefTable) Each(fn func(Ref) bool) {
	for _, r := range t.refs {
		if !fn(r) {
			return
		}
	}
}

func (t *RefTable) index(h Handle) int {
	for i := range t.refs {
		if t.refs[i].Handle == h {
			return i
		}
	}
	return -1
}
