package arena

import (
	"fmt"

	"github.com/joshuapare/chunkalloc/internal/format"
	"github.com/joshuapare/chunkalloc/internal/vmem"
)

// DefaultSize is the reservation used when the caller does not pick one.
const DefaultSize = 64 << 20

// Arena is one contiguous reservation of backing memory. Bytes in [0, At())
// have been carved into chunks; bytes in [At(), Top()) are virgin capacity.
// The cursor only moves forward and the reservation never shrinks.
type Arena struct {
	data    []byte
	at      int
	release func() error
}

// AcquireFunc obtains size bytes of zeroed read/write memory and returns a
// function that gives it back.
type AcquireFunc func(size int) ([]byte, func() error, error)

// New wraps a caller-provided buffer. The usable length is truncated down to
// the chunk alignment. The buffer is expected to be zeroed; stale bytes are
// harmless to correctness but may be read by speculative coalescing checks.
func New(buf []byte) (*Arena, error) {
	top := len(buf) &^ format.AlignmentMask
	if top < format.MinChunkSize {
		return nil, fmt.Errorf("arena: %d bytes: %w", len(buf), ErrTooSmall)
	}
	return &Arena{
		data:    buf[:top:top],
		release: func() error { return nil },
	}, nil
}

// Reserve acquires size bytes from the operating system.
func Reserve(size int) (*Arena, error) {
	return ReserveWith(size, vmem.Reserve)
}

// ReserveWith acquires size bytes through acquire.
func ReserveWith(size int, acquire AcquireFunc) (*Arena, error) {
	if size < format.MinChunkSize {
		return nil, fmt.Errorf("arena: %d bytes: %w", size, ErrTooSmall)
	}
	data, release, err := acquire(size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAcquire, err)
	}
	a, err := New(data)
	if err != nil {
		_ = release()
		return nil, err
	}
	a.release = release
	return a, nil
}

// Bytes returns the whole reservation, carved and virgin.
func (a *Arena) Bytes() []byte { return a.data }

// Top returns the reservation length.
func (a *Arena) Top() int { return len(a.data) }

// At returns the bump cursor.
func (a *Arena) At() int { return a.at }

// Remaining returns the virgin capacity left behind the cursor.
func (a *Arena) Remaining() int { return len(a.data) - a.at }

// Contains reports whether off lies inside the carved region [0, At()).
func (a *Arena) Contains(off int) bool {
	return off >= 0 && off < a.at
}

// Bump carves total bytes at the cursor and advances it. It reports false,
// leaving the cursor untouched, when the reservation cannot hold them.
func (a *Arena) Bump(total int) (int, bool) {
	if a == nil || a.data == nil || total <= 0 || total > len(a.data)-a.at {
		return 0, false
	}
	off := a.at
	a.at += total
	return off, true
}

// Close hands the reservation back to its source. The arena must not be
// used afterwards. Allocators never call this on their own.
func (a *Arena) Close() error {
	if a == nil || a.data == nil {
		return nil
	}
	a.data = nil
	a.at = 0
	return a.release()
}
