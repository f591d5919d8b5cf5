// Package alloc provides a general-purpose first-fit allocator with
// boundary-tag coalescing on top of a single fixed arena.
//
// # Overview
//
// FirstFitAllocator carves the arena into variably sized chunks. Every chunk
// starts with a 24-byte header whose first word holds the chunk size with the
// occupied flag packed into bit 0. Free chunks additionally carry their size
// in their last word (the boundary tag) and are threaded onto an unordered
// doubly-linked free list through their headers.
//
// # Allocation
//
//   - The request is rounded up to a 16-byte aligned chunk (payload + header).
//   - The free list is scanned from its head; the first chunk large enough
//     wins. Insertion is LIFO, so the most recently freed chunk is tried first.
//   - A match with more than a header's worth of slack is split and the tail
//     goes back on the free list.
//   - On a miss the chunk is bump-allocated from virgin arena space. The
//     arena itself is only reserved the first time this happens.
//
// # Release
//
// Releasing a chunk merges it with its physical successor (found at
// chunk+size) and its physical predecessor (found through the boundary tag
// in the preceding word) when those are free. Because a header carries no
// validity marker, both checks re-validate every field they read and simply
// skip the merge when anything looks off. This is best-effort: payload bytes
// that happen to mimic a valid free header and tag can in principle fool it.
//
// # Usage Example
//
//	fa := alloc.NewFirstFit(alloc.Options{ArenaSize: 1 << 20})
//	defer fa.Close()
//
//	p, b, err := fa.Alloc(128)
//	if err != nil {
//	    return err
//	}
//	copy(b, payload)
//
//	p, b, err = fa.Realloc(p, 256)
//	...
//	err = fa.Free(p)
//
// # Contract
//
// Free and Realloc must only see pointers returned by this allocator that
// have not been released yet. Pointers outside the carved region, misaligned
// pointers and double releases are reported with ErrBadPtr/ErrNotOccupied;
// anything else is undefined behavior and can corrupt the heap.
//
// # Thread Safety
//
// FirstFitAllocator is not thread-safe. Wrap it with NewLocked to share one
// allocator between goroutines.
package alloc
