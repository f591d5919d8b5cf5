package alloc

import "errors"

var (
	// ErrOutOfMemory indicates that no free chunk fits and the arena has no
	// virgin capacity left for the request.
	ErrOutOfMemory = errors.New("alloc: out of memory")

	// ErrTooLarge indicates a request whose chunk would exceed the 4 GiB size word.
	ErrTooLarge = errors.New("alloc: request exceeds maximum chunk size")

	// ErrBadSize indicates a negative size or count.
	ErrBadSize = errors.New("alloc: negative size")

	// ErrSizeOverflow indicates that count * size overflowed in Calloc.
	ErrSizeOverflow = errors.New("alloc: count * size overflows")

	// ErrArenaCreate indicates the lazily created arena could not be acquired.
	ErrArenaCreate = errors.New("alloc: arena creation failed")

	// ErrBadPtr indicates a pointer that does not address a chunk payload in
	// the carved region of this allocator.
	ErrBadPtr = errors.New("alloc: pointer not owned by this allocator")

	// ErrNotOccupied indicates a release of a chunk that is already free.
	ErrNotOccupied = errors.New("alloc: chunk is not occupied")

	// ErrCorrupt indicates that Verify found an inconsistent heap.
	ErrCorrupt = errors.New("alloc: heap corrupt")
)
