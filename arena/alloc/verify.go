package alloc

import (
	"fmt"

	"github.com/joshuapare/chunkalloc/internal/format"
)

// ChunkInfo describes one chunk found while walking the arena.
type ChunkInfo struct {
	Offset   int  // Chunk start (header) offset
	Size     int  // Total size including header
	Occupied bool // True when handed out
}

// Payload returns the pointer a caller would hold for this chunk.
func (ci ChunkInfo) Payload() Ptr {
	return Ptr(ci.Offset + format.ChunkHeaderSize)
}

// Walk visits every chunk in the carved region in address order. It stops
// early when fn returns false and returns an error if a header cannot be
// decoded.
func (fa *FirstFitAllocator) Walk(fn func(ChunkInfo) bool) error {
	if fa.arena == nil {
		return nil
	}
	data := fa.arena.Bytes()
	at := fa.arena.At()
	for off := 0; off < at; {
		c, err := format.ParseChunk(data, off, at)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if !fn(ChunkInfo{Offset: off, Size: c.Size(), Occupied: c.Occupied()}) {
			return nil
		}
		off = c.End()
	}
	return nil
}

// Verify checks the heap invariants:
//   - chunks partition [0, at) with aligned sizes and no gaps
//   - every free chunk carries a boundary tag equal to its size
//   - the free list holds exactly the free chunks, each once, with
//     consistent prev/next links and a head without predecessor
//   - the occupied byte count matches the counters
func (fa *FirstFitAllocator) Verify() error {
	if fa.arena == nil {
		if fa.free.head != format.NoChunk || fa.free.count != 0 {
			return fmt.Errorf("%w: free list without arena", ErrCorrupt)
		}
		return nil
	}
	data := fa.arena.Bytes()
	at := fa.arena.At()

	free := make(map[int]bool)
	var inUse int64
	var tagErr error
	err := fa.Walk(func(ci ChunkInfo) bool {
		if ci.Occupied {
			inUse += int64(ci.Size)
			return true
		}
		c := format.ChunkAt(data, ci.Offset)
		if int(c.Tag()) != ci.Size {
			tagErr = fmt.Errorf("%w: free chunk at %d has tag %d, size %d", ErrCorrupt, ci.Offset, c.Tag(), ci.Size)
			return false
		}
		free[ci.Offset] = false
		return true
	})
	if err != nil {
		return err
	}
	if tagErr != nil {
		return tagErr
	}
	if inUse != fa.stats.BytesInUse {
		return fmt.Errorf("%w: %d bytes occupied, counters say %d", ErrCorrupt, inUse, fa.stats.BytesInUse)
	}

	prev := format.NoChunk
	n := 0
	for off := fa.free.head; off != format.NoChunk; n++ {
		if n > len(free) {
			return fmt.Errorf("%w: free list longer than %d free chunks (cycle?)", ErrCorrupt, len(free))
		}
		seen, ok := free[off]
		if !ok {
			return fmt.Errorf("%w: free list entry %d is not a free chunk", ErrCorrupt, off)
		}
		if seen {
			return fmt.Errorf("%w: free chunk %d listed twice", ErrCorrupt, off)
		}
		free[off] = true
		c := format.ChunkAt(data, off)
		if c.Prev() != prev {
			return fmt.Errorf("%w: chunk %d prev=%d, want %d", ErrCorrupt, off, c.Prev(), prev)
		}
		prev = off
		off = c.Next()
		if off != format.NoChunk && !format.HeaderFits(at, off) {
			return fmt.Errorf("%w: chunk %d links outside carved region", ErrCorrupt, prev)
		}
	}
	if n != len(free) {
		return fmt.Errorf("%w: %d free chunks, %d on the list", ErrCorrupt, len(free), n)
	}
	if n != fa.free.count {
		return fmt.Errorf("%w: list holds %d chunks, count is %d", ErrCorrupt, n, fa.free.count)
	}
	return nil
}
