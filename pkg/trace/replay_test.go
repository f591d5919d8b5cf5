package trace

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/chunkalloc/arena/alloc"
	"github.com/joshuapare/chunkalloc/arena/shadow"
)

func newTestTarget(t *testing.T, size int) (*shadow.Tracker, *alloc.FirstFitAllocator) {
	t.Helper()
	fa := alloc.NewFirstFit(alloc.Options{Base: make([]byte, size)})
	t.Cleanup(func() { _ = fa.Close() })
	return shadow.New(shadow.Options{Engine: fa}), fa
}

func TestReplay_Basic(t *testing.T) {
	tr, fa := newTestTarget(t, 1<<16)
	in := `alloc a 40
alloc b 40
calloc c 4 16
realloc a 41
free b
realloc a 8
free c
`
	res, err := Replay(context.Background(), strings.NewReader(in), tr, ReplayOptions{
		Fill:    true,
		Compare: true,
		Check:   fa.Verify,
	})
	require.NoError(t, err)

	assert.Equal(t, 7, res.Ops)
	assert.Equal(t, 2, res.Allocs)
	assert.Equal(t, 1, res.Callocs)
	assert.Equal(t, 2, res.Reallocs)
	assert.Equal(t, 2, res.Frees)
	assert.Equal(t, 1, res.Live)
	assert.Equal(t, int64(8), res.Bytes)
	assert.Equal(t, 3, res.PeakLive)
	assert.Equal(t, 1, tr.Live())
}

func TestReplay_OutOfMemoryIsCounted(t *testing.T) {
	tr, fa := newTestTarget(t, 256)
	in := `alloc big 4096
realloc big 8
free big
alloc huge 4096
free huge
`
	res, err := Replay(context.Background(), strings.NewReader(in), tr, ReplayOptions{Check: fa.Verify})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Failed)
	assert.Zero(t, res.Live)
	assert.Zero(t, fa.GetStats().BytesInUse)
}

func TestReplay_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"free unknown", "free nope", ErrUnknownID},
		{"realloc unknown", "realloc nope 8", ErrUnknownID},
		{"double free", "alloc a 8\nfree a\nfree a", ErrUnknownID},
		{"duplicate", "alloc a 8\ncalloc a 1 8", ErrDuplicateID},
		{"syntax", "alloc a", ErrSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, _ := newTestTarget(t, 4096)
			_, err := Replay(context.Background(), strings.NewReader(tt.in), tr, ReplayOptions{})
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReplay_Cancelled(t *testing.T) {
	tr, _ := newTestTarget(t, 4096)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Replay(ctx, strings.NewReader("alloc a 8\n"), tr, ReplayOptions{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Ops)
}

// TestReplay_RandomTrace generates a seeded workload and replays it with
// every check enabled.
func TestReplay_RandomTrace(t *testing.T) {
	tr, fa := newTestTarget(t, 1<<18)
	rng := rand.New(rand.NewSource(7))

	var (
		b    strings.Builder
		live []string
		next int
	)
	for range 600 {
		switch op := rng.Intn(5); {
		case op <= 1 || len(live) == 0:
			id := fmt.Sprintf("p%d", next)
			next++
			fmt.Fprintf(&b, "alloc %s %d\n", id, 1+rng.Intn(600))
			live = append(live, id)
		case op == 2:
			id := fmt.Sprintf("p%d", next)
			next++
			fmt.Fprintf(&b, "calloc %s %d %d\n", id, 1+rng.Intn(16), 1+rng.Intn(32))
			live = append(live, id)
		case op == 3:
			fmt.Fprintf(&b, "realloc %s %d\n", live[rng.Intn(len(live))], 1+rng.Intn(800))
		default:
			i := rng.Intn(len(live))
			fmt.Fprintf(&b, "free %s\n", live[i])
			live[i] = live[len(live)-1]
			live = live[:len(live)-1]
		}
	}
	for _, id := range live {
		fmt.Fprintf(&b, "free %s\n", id)
	}

	res, err := Replay(context.Background(), strings.NewReader(b.String()), tr, ReplayOptions{
		Fill:    true,
		Compare: true,
		Check:   fa.Verify,
	})
	require.NoError(t, err)
	assert.Zero(t, res.Live)
	assert.Zero(t, fa.GetStats().BytesInUse)
	assert.Equal(t, 1, fa.GetStats().FreeChunks)
}
