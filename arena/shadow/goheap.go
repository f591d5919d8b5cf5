package shadow

import (
	"fmt"

	"github.com/joshuapare/chunkalloc/internal/buf"
)

// Handle names an allocation made through a Platform. Zero means "no
// allocation".
type Handle uint64

// Platform is the reference allocator the engine is shadowed against.
type Platform interface {
	Malloc(n int) (Handle, []byte, error)
	Calloc(count, n int) (Handle, []byte, error)
	Realloc(h Handle, n int) (Handle, []byte, error)
	Free(h Handle) error
	Bytes(h Handle) []byte
}

// GoHeap is a Platform backed by the Go runtime heap. Every allocation is a
// fresh slice of exactly the requested length.
type GoHeap struct {
	next   Handle
	blocks map[Handle][]byte
}

// NewGoHeap creates an empty GoHeap.
func NewGoHeap() *GoHeap {
	return &GoHeap{blocks: make(map[Handle][]byte)}
}

// Malloc returns a fresh n-byte block. Malloc(0) returns handle 0.
func (g *GoHeap) Malloc(n int) (Handle, []byte, error) {
	if n < 0 {
		return 0, nil, fmt.Errorf("goheap: malloc(%d): negative size", n)
	}
	if n == 0 {
		return 0, nil, nil
	}
	g.next++
	b := make([]byte, n)
	g.blocks[g.next] = b
	return g.next, b, nil
}

// Calloc returns a zeroed block of count*n bytes.
func (g *GoHeap) Calloc(count, n int) (Handle, []byte, error) {
	total, ok := buf.MulOverflowSafe(count, n)
	if !ok {
		return 0, nil, fmt.Errorf("goheap: calloc(%d, %d): size overflow", count, n)
	}
	// make already zeroes.
	return g.Malloc(total)
}

// Realloc moves h into a block of n bytes. Like the engine it keeps h live
// and returns 0 when n is 0.
func (g *GoHeap) Realloc(h Handle, n int) (Handle, []byte, error) {
	if h == 0 {
		return g.Malloc(n)
	}
	old, ok := g.blocks[h]
	if !ok {
		return 0, nil, fmt.Errorf("goheap: realloc: %w: %d", ErrUnknownHandle, h)
	}
	nh, nb, err := g.Malloc(n)
	if err != nil || nh == 0 {
		return nh, nb, err
	}
	copy(nb, old)
	delete(g.blocks, h)
	return nh, nb, nil
}

// Free drops h. Free(0) is a no-op.
func (g *GoHeap) Free(h Handle) error {
	if h == 0 {
		return nil
	}
	if _, ok := g.blocks[h]; !ok {
		return fmt.Errorf("goheap: free: %w: %d", ErrUnknownHandle, h)
	}
	delete(g.blocks, h)
	return nil
}

// Bytes returns the block behind h, or nil.
func (g *GoHeap) Bytes(h Handle) []byte {
	return g.blocks[h]
}

// Live returns the number of outstanding blocks.
func (g *GoHeap) Live() int { return len(g.blocks) }
