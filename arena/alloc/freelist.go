package alloc

import (
	"github.com/joshuapare/chunkalloc/internal/buf"
	"github.com/joshuapare/chunkalloc/internal/format"
)

// freeList is an unordered, intrusive, doubly-linked list of free chunks.
// The links live in the chunk headers themselves; only the head and a count
// are kept out of band. Insertion is LIFO.
type freeList struct {
	head  int
	count int
}

func newFreeList() freeList {
	return freeList{head: format.NoChunk}
}

// push threads c onto the head of the list.
func (fa *FirstFitAllocator) push(c format.Chunk) {
	data := fa.arena.Bytes()
	c.SetNext(fa.free.head)
	c.SetPrev(format.NoChunk)
	if fa.free.head != format.NoChunk {
		format.ChunkAt(data, fa.free.head).SetPrev(c.Off)
	}
	fa.free.head = c.Off
	fa.free.count++
}

// unlink removes c from anywhere in the list and clears its links.
func (fa *FirstFitAllocator) unlink(c format.Chunk) {
	data := fa.arena.Bytes()
	prev, next := c.Prev(), c.Next()
	if prev != format.NoChunk {
		format.ChunkAt(data, prev).SetNext(next)
	} else {
		fa.free.head = next
	}
	if next != format.NoChunk {
		format.ChunkAt(data, next).SetPrev(prev)
	}
	c.SetNext(format.NoChunk)
	c.SetPrev(format.NoChunk)
	fa.free.count--
}

// firstFit scans from the head and returns the first chunk whose size is at
// least total. Ties go to the earliest chunk in list order, which with LIFO
// insertion is the most recently freed.
func (fa *FirstFitAllocator) firstFit(total int) (format.Chunk, bool) {
	if fa.arena == nil {
		return format.Chunk{}, false
	}
	data := fa.arena.Bytes()
	at := fa.arena.At()
	steps := 0
	for off := fa.free.head; off != format.NoChunk; steps++ {
		if steps > fa.free.count || !format.HeaderFits(at, off) {
			// A cycle or a link out of the carved region: stop rather than
			// walk garbage.
			fa.log.Error("free list corrupt", "off", off, "steps", steps, "count", fa.free.count)
			return format.Chunk{}, false
		}
		c := format.ChunkAt(data, off)
		if c.Size() >= total {
			return c, true
		}
		off = c.Next()
	}
	return format.Chunk{}, false
}

// linksInBounds reports whether both links of c are empty or point into the
// carved region.
func (fa *FirstFitAllocator) linksInBounds(c format.Chunk) bool {
	at := fa.arena.At()
	next, prev := c.Next(), c.Prev()
	return (next == format.NoChunk || buf.Within(next, 0, at)) &&
		(prev == format.NoChunk || buf.Within(prev, 0, at))
}

// onList reports whether c's links agree with its neighbors on the list. A
// chunk without a predecessor must be the head.
func (fa *FirstFitAllocator) onList(c format.Chunk) bool {
	data := fa.arena.Bytes()
	at := fa.arena.At()
	prev, next := c.Prev(), c.Next()
	if prev == format.NoChunk {
		if fa.free.head != c.Off {
			return false
		}
	} else if !format.HeaderFits(at, prev) || format.ChunkAt(data, prev).Next() != c.Off {
		return false
	}
	if next != format.NoChunk {
		if !format.HeaderFits(at, next) || format.ChunkAt(data, next).Prev() != c.Off {
			return false
		}
	}
	return true
}

// consolidate takes a neighbor that is a merge candidate off the free list.
// It reports false, changing nothing, when the neighbor is occupied or does
// not look like a member of the list.
func (fa *FirstFitAllocator) consolidate(c format.Chunk) bool {
	if c.Occupied() || !fa.onList(c) {
		return false
	}
	fa.unlink(c)
	return true
}
