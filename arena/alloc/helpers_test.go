package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/chunkalloc/internal/format"
)

// newTestAllocator creates an allocator over a zeroed heap-backed buffer of
// size bytes so tests never touch the OS reservation path.
func newTestAllocator(t testing.TB, size int) *FirstFitAllocator {
	t.Helper()
	fa := NewFirstFit(Options{Base: make([]byte, size)})
	t.Cleanup(func() { _ = fa.Close() })
	return fa
}

// mustAlloc allocates n bytes or fails the test.
func mustAlloc(t testing.TB, fa *FirstFitAllocator, n int) (Ptr, []byte) {
	t.Helper()
	p, b, err := fa.Alloc(n)
	require.NoError(t, err, "Alloc(%d)", n)
	require.NotEqual(t, Nil, p, "Alloc(%d) returned Nil", n)
	return p, b
}

// chunkAt returns the header view for payload pointer p.
func chunkAt(fa *FirstFitAllocator, p Ptr) format.Chunk {
	return format.ChunkAt(fa.arena.Bytes(), format.HeaderOf(int(p)))
}

// assertInvariants runs Verify and fails the test on any violation.
func assertInvariants(t testing.TB, fa *FirstFitAllocator) {
	t.Helper()
	require.NoError(t, fa.Verify())
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}
