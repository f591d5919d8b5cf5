package alloc

import (
	"log/slog"

	"github.com/joshuapare/chunkalloc/arena"
)

// Ptr addresses the first payload byte of a chunk as an offset into the
// arena. No chunk payload starts at offset 0, so the zero value means "no
// allocation".
type Ptr uint64

// Nil is the "no allocation" pointer.
const Nil Ptr = 0

// DefaultArenaSize is the size of the lazily created reservation.
const DefaultArenaSize = arena.DefaultSize

// Allocator defines the four allocation primitives plus payload access.
//
// Implementations:
//   - FirstFitAllocator: the free-list engine
//   - LockedAllocator: mutex wrapper for shared use
type Allocator interface {
	// Alloc returns a chunk with at least n payload bytes. The slice has
	// length n and capacity equal to the chunk's usable payload. n == 0
	// returns Nil and no error.
	Alloc(n int) (Ptr, []byte, error)

	// Calloc allocates count*n bytes and zeroes them.
	Calloc(count, n int) (Ptr, []byte, error)

	// Realloc moves the payload at p into a fresh chunk of n bytes,
	// preserving the common prefix, and releases p.
	Realloc(p Ptr, n int) (Ptr, []byte, error)

	// Free releases p. Free(Nil) is a no-op.
	Free(p Ptr) error

	// Bytes returns the full usable payload of the live chunk at p, or nil.
	Bytes(p Ptr) []byte
}

// Options configures a FirstFitAllocator. The zero value lazily reserves
// DefaultArenaSize bytes from the operating system on first use.
type Options struct {
	// ArenaSize is the reservation size. Zero selects DefaultArenaSize.
	ArenaSize int

	// Base, when set, is used as the backing buffer instead of acquiring
	// memory. ArenaSize is ignored.
	Base []byte

	// Acquire overrides how backing memory is obtained. Nil uses anonymous
	// memory from the operating system.
	Acquire arena.AcquireFunc

	// Logger receives allocation diagnostics. Nil uses logger.L.
	Logger *slog.Logger
}
