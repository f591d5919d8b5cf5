package alloc

import (
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/chunkalloc/internal/format"
)

type liveBlock struct {
	n   int
	pat byte
}

// Test_Fuzz_RandomWorkload_Invariants runs a seeded mix of all four
// primitives and checks the heap after every step.
func Test_Fuzz_RandomWorkload_Invariants(t *testing.T) {
	fa := newTestAllocator(t, 1<<16)
	rng := rand.New(rand.NewSource(42)) // Fixed seed for reproducibility

	live := make(map[Ptr]liveBlock)
	var order []Ptr
	pick := func() (Ptr, int) {
		i := rng.Intn(len(order))
		return order[i], i
	}
	drop := func(i int) {
		order[i] = order[len(order)-1]
		order = order[:len(order)-1]
	}
	check := func(p Ptr) {
		blk := live[p]
		b := fa.Bytes(p)
		require.GreaterOrEqual(t, len(b), blk.n)
		for j := range blk.n {
			require.Equal(t, blk.pat, b[j], "ptr %d byte %d", p, j)
		}
	}

	for i := range 2000 {
		op := rng.Intn(4)
		if len(order) == 0 {
			op = 0
		}

		switch op {
		case 0, 1: // Alloc or Calloc
			n := 1 + rng.Intn(700)
			var (
				p   Ptr
				b   []byte
				err error
			)
			if op == 0 {
				p, b, err = fa.Alloc(n)
			} else {
				p, b, err = fa.Calloc(n, 1)
				if err == nil {
					for j := range b {
						require.Zero(t, b[j], "step %d: calloc byte %d", i, j)
					}
				}
			}
			if errors.Is(err, ErrOutOfMemory) {
				continue
			}
			require.NoError(t, err, "step %d", i)
			pat := byte(rng.Intn(255) + 1)
			fill(b, pat)
			live[p] = liveBlock{n: n, pat: pat}
			order = append(order, p)

		case 2: // Free
			p, idx := pick()
			check(p)
			require.NoError(t, fa.Free(p), "step %d", i)
			delete(live, p)
			drop(idx)

		case 3: // Realloc
			p, idx := pick()
			check(p)
			n := 1 + rng.Intn(900)
			np, nb, err := fa.Realloc(p, n)
			if errors.Is(err, ErrOutOfMemory) {
				check(p)
				continue
			}
			require.NoError(t, err, "step %d", i)
			old := live[p]
			keep := min(old.n, n)
			for j := range keep {
				require.Equal(t, old.pat, nb[j], "step %d: realloc byte %d", i, j)
			}
			fill(nb, old.pat)
			delete(live, p)
			drop(idx)
			live[np] = liveBlock{n: n, pat: old.pat}
			order = append(order, np)
		}

		require.NoError(t, fa.Verify(), "step %d: invariant check failed", i)
	}

	for _, p := range order {
		check(p)
		require.NoError(t, fa.Free(p))
	}
	assertInvariants(t, fa)
	assertNoAdjacentFree(t, fa)

	stats := fa.GetStats()
	assert.Zero(t, stats.BytesInUse)
	assert.Equal(t, 1, stats.FreeChunks, "everything coalesces back into one chunk")
	t.Logf("stats: %+v", stats)
}

// Test_Verify_DetectsCorruption damages metadata and expects Verify to notice.
func Test_Verify_DetectsCorruption(t *testing.T) {
	cases := []struct {
		name    string
		corrupt func(fa *FirstFitAllocator, a, b Ptr)
	}{
		{
			name: "boundary tag",
			corrupt: func(fa *FirstFitAllocator, a, _ Ptr) {
				c := chunkAt(fa, a)
				format.PutU32(fa.arena.Bytes(), c.End()-format.TagSize, 0)
			},
		},
		{
			name: "free list count",
			corrupt: func(fa *FirstFitAllocator, _, _ Ptr) {
				fa.free.count++
			},
		},
		{
			name: "dangling head",
			corrupt: func(fa *FirstFitAllocator, _, b Ptr) {
				fa.free.head = format.HeaderOf(int(b))
			},
		},
		{
			name: "bytes in use",
			corrupt: func(fa *FirstFitAllocator, _, _ Ptr) {
				fa.stats.BytesInUse += 16
			},
		},
		{
			name: "prev link",
			corrupt: func(fa *FirstFitAllocator, a, _ Ptr) {
				chunkAt(fa, a).SetPrev(0)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fa := newTestAllocator(t, 4096)
			a, _ := mustAlloc(t, fa, 40)
			b, _ := mustAlloc(t, fa, 40)
			mustAlloc(t, fa, 40)
			require.NoError(t, fa.Free(a))
			assertInvariants(t, fa)

			tc.corrupt(fa, a, b)
			require.ErrorIs(t, fa.Verify(), ErrCorrupt)
		})
	}
}

// Test_Walk_AddressOrder visits chunks from low to high offsets.
func Test_Walk_AddressOrder(t *testing.T) {
	fa := newTestAllocator(t, 4096)

	require.NoError(t, fa.Walk(func(ChunkInfo) bool {
		t.Fatal("no chunks before the arena exists")
		return false
	}))

	a, _ := mustAlloc(t, fa, 40)
	b, _ := mustAlloc(t, fa, 100)
	c, _ := mustAlloc(t, fa, 8)
	require.NoError(t, fa.Free(b))

	var got []ChunkInfo
	require.NoError(t, fa.Walk(func(ci ChunkInfo) bool {
		got = append(got, ci)
		return true
	}))
	require.Len(t, got, 3)
	assert.Equal(t, a, got[0].Payload())
	assert.Equal(t, b, got[1].Payload())
	assert.Equal(t, c, got[2].Payload())
	assert.True(t, got[0].Occupied)
	assert.False(t, got[1].Occupied)
	assert.Equal(t, 128, got[1].Size)

	n := 0
	require.NoError(t, fa.Walk(func(ChunkInfo) bool {
		n++
		return false
	}))
	assert.Equal(t, 1, n, "walk stops when fn returns false")
}

// Test_Locked_Concurrent hammers a shared LockedAllocator from several goroutines.
func Test_Locked_Concurrent(t *testing.T) {
	fa := newTestAllocator(t, 4<<20)
	la := NewLocked(fa)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := range workers {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			var mine []Ptr
			for range 500 {
				if len(mine) > 0 && rng.Intn(2) == 0 {
					i := rng.Intn(len(mine))
					if err := la.Free(mine[i]); err != nil {
						errs <- err
						return
					}
					mine[i] = mine[len(mine)-1]
					mine = mine[:len(mine)-1]
					continue
				}
				p, _, err := la.Alloc(1 + rng.Intn(256))
				if err != nil {
					errs <- err
					return
				}
				mine = append(mine, p)
			}
			for _, p := range mine {
				if err := la.Free(p); err != nil {
					errs <- err
					return
				}
			}
		}(int64(w))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	la.With(func(Allocator) {
		assertInvariants(t, fa)
		assert.Zero(t, fa.GetStats().BytesInUse)
	})
}
