package alloc

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joshuapare/chunkalloc/arena"
	"github.com/joshuapare/chunkalloc/internal/buf"
	"github.com/joshuapare/chunkalloc/internal/format"
	"github.com/joshuapare/chunkalloc/internal/logger"
)

// Runtime debug flag for allocation logging - controlled by CHUNKALLOC_LOG_ALLOC env var.
var logAlloc = os.Getenv("CHUNKALLOC_LOG_ALLOC") != ""

// FirstFitAllocator is a general-purpose allocator over one fixed arena.
//   - First-fit scan of an unordered LIFO free list
//   - Oversized matches are split; the remainder goes back on the list
//   - Bump allocation from virgin arena space on a miss
//   - Boundary-tag coalescing with both physical neighbors on release
//
// The arena is created on the first allocation that needs fresh space.
// A FirstFitAllocator is not safe for concurrent use; see LockedAllocator.
type FirstFitAllocator struct {
	opts  Options
	log   *slog.Logger
	arena *arena.Arena // nil until first bump miss

	free  freeList
	stats allocatorStats
}

// allocatorStats holds internal allocator statistics.
type allocatorStats struct {
	AllocCalls       int   // Total Alloc() calls, including those from Calloc/Realloc
	CallocCalls      int   // Total Calloc() calls
	ReallocCalls     int   // Total Realloc() calls
	FreeCalls        int   // Total Free() calls
	FreeListHits     int   // Allocations satisfied from the free list
	BumpAllocs       int   // Allocations carved from virgin space
	SplitCount       int   // Number of chunk splits
	CoalesceForward  int   // Forward coalesce operations
	CoalesceBackward int   // Backward coalesce operations
	ArenaCreates     int   // Lazy arena creations (0 or 1)
	OutOfMemory      int   // Requests refused for lack of space
	BytesInUse       int64 // Chunk bytes (headers included) currently occupied
}

// Stats is a snapshot of allocator counters and arena occupancy.
type Stats struct {
	allocatorStats

	ArenaSize  int // Reservation size, 0 before the arena exists
	ArenaUsed  int // Bytes carved so far (the bump cursor)
	FreeChunks int // Chunks on the free list
}

// NewFirstFit creates an allocator. No memory is acquired until the first
// allocation needs it.
func NewFirstFit(opts Options) *FirstFitAllocator {
	if opts.ArenaSize == 0 {
		opts.ArenaSize = DefaultArenaSize
	}
	log := opts.Logger
	if log == nil {
		log = logger.L
	}
	return &FirstFitAllocator{
		opts: opts,
		log:  log,
		free: newFreeList(),
	}
}

// Alloc returns a chunk with at least n usable payload bytes.
func (fa *FirstFitAllocator) Alloc(n int) (Ptr, []byte, error) {
	fa.stats.AllocCalls++
	return fa.alloc(n)
}

func (fa *FirstFitAllocator) alloc(n int) (Ptr, []byte, error) {
	if n == 0 {
		return Nil, nil, nil
	}
	total, err := format.TotalSize(n)
	if err != nil {
		return Nil, nil, sizeError(n, err)
	}

	c, ok := fa.take(total)
	if !ok {
		c, err = fa.bump(total)
		if err != nil {
			return Nil, nil, err
		}
	}

	c.SetOccupied(true)
	fa.stats.BytesInUse += int64(c.Size())

	p := c.Payload()
	return Ptr(p), fa.arena.Bytes()[p : p+n : c.End()], nil
}

// take removes the first fitting chunk from the free list, splitting off
// any remainder large enough to host a chunk of its own.
func (fa *FirstFitAllocator) take(total int) (format.Chunk, bool) {
	c, ok := fa.firstFit(total)
	if !ok {
		return format.Chunk{}, false
	}
	fa.unlink(c)
	fa.stats.FreeListHits++

	rem := c.Size() - total
	if rem > format.ChunkHeaderSize {
		fa.stats.SplitCount++
		if logAlloc {
			fa.log.Debug("split", "off", c.Off, "size", c.Size(), "need", total, "remainder", rem)
		}

		data := fa.arena.Bytes()
		c.SetRaw(format.PackSize(total, true))

		// The remainder is handed to release as if it had been allocated.
		// Zeroing the word before it stops release from reading a stale
		// boundary tag inside the chunk being returned.
		tail := format.ChunkAt(data, c.Off+total)
		tail.Init(rem, true)
		format.ClearTagBefore(data, tail.Off)
		fa.release(tail)
	}
	return c, true
}

// bump carves a fresh chunk from virgin space. When no arena exists yet it
// creates one and tries exactly once more.
func (fa *FirstFitAllocator) bump(total int) (format.Chunk, error) {
	if c, ok := fa.tryBump(total); ok {
		return c, nil
	}
	if fa.arena == nil {
		if err := fa.createArena(); err != nil {
			return format.Chunk{}, err
		}
		if c, ok := fa.tryBump(total); ok {
			return c, nil
		}
	}

	fa.stats.OutOfMemory++
	fa.log.Error("out of memory",
		"need", total,
		"at", fa.arena.At(),
		"top", fa.arena.Top(),
		"free_chunks", fa.free.count,
	)
	return format.Chunk{}, fmt.Errorf("%w: need %d bytes, %d remaining", ErrOutOfMemory, total, fa.arena.Remaining())
}

func (fa *FirstFitAllocator) tryBump(total int) (format.Chunk, bool) {
	if fa.arena == nil {
		return format.Chunk{}, false
	}
	off, ok := fa.arena.Bump(total)
	if !ok {
		return format.Chunk{}, false
	}
	fa.stats.BumpAllocs++
	if logAlloc {
		fa.log.Debug("bump", "off", off, "size", total, "at", fa.arena.At())
	}
	c := format.ChunkAt(fa.arena.Bytes(), off)
	c.Init(total, false)
	return c, true
}

func (fa *FirstFitAllocator) createArena() error {
	var (
		a   *arena.Arena
		err error
	)
	switch {
	case fa.opts.Base != nil:
		a, err = arena.New(fa.opts.Base)
	case fa.opts.Acquire != nil:
		a, err = arena.ReserveWith(fa.opts.ArenaSize, fa.opts.Acquire)
	default:
		a, err = arena.Reserve(fa.opts.ArenaSize)
	}
	if err != nil {
		fa.log.Error("arena creation failed", "size", fa.opts.ArenaSize, "err", err)
		return fmt.Errorf("%w: %w", ErrArenaCreate, err)
	}
	fa.arena = a
	fa.stats.ArenaCreates++
	if logAlloc {
		fa.log.Debug("arena created", "size", a.Top())
	}
	return nil
}

// Calloc allocates count*n bytes and zeroes them. Requests whose product
// overflows are refused with ErrSizeOverflow.
func (fa *FirstFitAllocator) Calloc(count, n int) (Ptr, []byte, error) {
	fa.stats.CallocCalls++
	total, ok := buf.MulOverflowSafe(count, n)
	if !ok {
		if count < 0 || n < 0 {
			return Nil, nil, fmt.Errorf("%w: calloc(%d, %d)", ErrBadSize, count, n)
		}
		return Nil, nil, fmt.Errorf("%w: calloc(%d, %d)", ErrSizeOverflow, count, n)
	}
	p, b, err := fa.Alloc(total)
	if err != nil || p == Nil {
		return p, b, err
	}
	clear(b)
	return p, b, nil
}

// Realloc allocates a fresh chunk of n bytes, copies the smaller of the old
// and new payload sizes, and releases p. Realloc(Nil, n) is Alloc(n). When
// n is 0 no chunk is allocated and p stays live. On failure p stays live.
func (fa *FirstFitAllocator) Realloc(p Ptr, n int) (Ptr, []byte, error) {
	fa.stats.ReallocCalls++
	if p == Nil {
		return fa.Alloc(n)
	}
	old, err := fa.chunkOf(p)
	if err != nil {
		return Nil, nil, err
	}

	np, nb, err := fa.Alloc(n)
	if err != nil || np == Nil {
		return np, nb, err
	}

	// PayloadSize works on the flag-masked size, so the occupied bit never
	// inflates the copy by a byte.
	data := fa.arena.Bytes()
	copy(nb, data[old.Payload():old.End()])

	fa.stats.BytesInUse -= int64(old.Size())
	fa.release(old)
	return np, nb, nil
}

// Free releases p. Free(Nil) is a no-op. Pointers outside the carved region,
// misaligned pointers and already-free chunks are reported; other misuse is
// undetectable and corrupts the heap.
func (fa *FirstFitAllocator) Free(p Ptr) error {
	fa.stats.FreeCalls++
	if p == Nil {
		return nil
	}
	c, err := fa.chunkOf(p)
	if err != nil {
		return err
	}
	fa.stats.BytesInUse -= int64(c.Size())
	fa.release(c)
	return nil
}

// Bytes returns the full usable payload of the live chunk at p.
func (fa *FirstFitAllocator) Bytes(p Ptr) []byte {
	c, err := fa.chunkOf(p)
	if err != nil {
		return nil
	}
	return fa.arena.Bytes()[c.Payload():c.End():c.End()]
}

// UsableSize returns the payload capacity of the live chunk at p, or 0.
func (fa *FirstFitAllocator) UsableSize(p Ptr) int {
	c, err := fa.chunkOf(p)
	if err != nil {
		return 0
	}
	return c.PayloadSize()
}

// chunkOf resolves p to its occupied chunk, checking everything the header
// format allows us to check.
func (fa *FirstFitAllocator) chunkOf(p Ptr) (format.Chunk, error) {
	if fa.arena == nil || p == Nil {
		return format.Chunk{}, fmt.Errorf("%w: %d", ErrBadPtr, p)
	}
	off := format.HeaderOf(int(p))
	if !format.IsAligned(off) || !fa.arena.Contains(off) {
		return format.Chunk{}, fmt.Errorf("%w: %d", ErrBadPtr, p)
	}
	c, err := format.ParseChunk(fa.arena.Bytes(), off, fa.arena.At())
	if err != nil {
		return format.Chunk{}, fmt.Errorf("%w: %w", ErrBadPtr, err)
	}
	if !c.Occupied() {
		return format.Chunk{}, fmt.Errorf("%w: %d", ErrNotOccupied, p)
	}
	return c, nil
}

// release marks c free, merges it with free physical neighbors and pushes
// the result onto the free list.
//
// Headers carry no validity marker, so both directions speculatively read
// bytes that may not be a header and re-validate every field before trusting
// them. A direction that fails validation is skipped.
func (fa *FirstFitAllocator) release(c format.Chunk) {
	data := fa.arena.Bytes()
	at := fa.arena.At()

	c.SetOccupied(false)

	// Forward: the neighbor starts where c ends.
	if next := c.End(); next < at {
		n := format.ChunkAt(data, next)
		if format.HeaderFits(at, next) &&
			n.Size() > 0 &&
			n.End() <= at &&
			fa.linksInBounds(n) &&
			fa.consolidate(n) {
			c.SetSize(c.Size() + n.Size())
			fa.stats.CoalesceForward++
			if logAlloc {
				fa.log.Debug("coalesce forward", "off", c.Off, "merged", n.Off, "size", c.Size())
			}
		}
	}

	// Backward: the word before c is the previous chunk's boundary tag if
	// that chunk is free, and payload otherwise.
	if c.Off > 0 {
		tag := int(format.TagBefore(data, c.Off))
		prevOff := c.Off - tag
		if tag > 0 && tag&format.FlagMask == 0 && buf.Within(prevOff, 0, at) {
			prev := format.ChunkAt(data, prevOff)
			if format.HeaderFits(at, prevOff) &&
				prev.Raw() == uint32(tag) &&
				fa.linksInBounds(prev) &&
				fa.consolidate(prev) {
				prev.SetSize(prev.Size() + c.Size())
				c = prev
				fa.stats.CoalesceBackward++
				if logAlloc {
					fa.log.Debug("coalesce backward", "off", c.Off, "size", c.Size())
				}
			}
		}
	}

	c.WriteTag()
	fa.push(c)
}

// Close releases the arena's backing memory. The allocator must not be used
// afterwards.
func (fa *FirstFitAllocator) Close() error {
	if fa.arena == nil {
		return nil
	}
	err := fa.arena.Close()
	fa.arena = nil
	fa.free = newFreeList()
	return err
}

// GetStats returns a snapshot of the allocator counters.
func (fa *FirstFitAllocator) GetStats() Stats {
	s := Stats{
		allocatorStats: fa.stats,
		FreeChunks:     fa.free.count,
	}
	if fa.arena != nil {
		s.ArenaSize = fa.arena.Top()
		s.ArenaUsed = fa.arena.At()
	}
	return s
}

func sizeError(n int, err error) error {
	if errors.Is(err, format.ErrTooLarge) {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, n)
	}
	return fmt.Errorf("%w: %d", ErrBadSize, n)
}
