package trace

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/joshuapare/chunkalloc/arena/alloc"
	"github.com/joshuapare/chunkalloc/arena/shadow"
)

// ReplayOptions controls a replay.
type ReplayOptions struct {
	// Fill writes a line-derived pattern into every byte an op newly
	// defines, so later copies and comparisons have something to check.
	Fill bool

	// Compare diffs engine and platform copies of every live allocation
	// after each op.
	Compare bool

	// Check, when set, runs after each op (typically heap verification).
	Check func() error
}

// Result summarizes a replay.
type Result struct {
	Ops      int // Records applied
	Allocs   int
	Callocs  int
	Reallocs int
	Frees    int
	Failed   int // Allocations refused with out-of-memory
	Live     int // Allocations still live at the end
	PeakLive int
	Bytes    int64 // Requested bytes still live at the end
}

type liveAlloc struct {
	h shadow.Handle
	n int
}

// Replayer applies records to a shadow tracker, mapping trace ids to
// handles. An allocation refused for lack of memory binds its id to the
// zero handle, so later ops on that id behave like ops on a nil pointer.
type Replayer struct {
	t    *shadow.Tracker
	opts ReplayOptions
	ids  map[string]liveAlloc
	res  Result
}

// NewReplayer creates a Replayer driving t.
func NewReplayer(t *shadow.Tracker, opts ReplayOptions) *Replayer {
	return &Replayer{t: t, opts: opts, ids: make(map[string]liveAlloc)}
}

// Apply runs one record.
func (rp *Replayer) Apply(rec Record) error {
	if err := rp.apply(rec); err != nil {
		if rec.Line > 0 {
			return fmt.Errorf("line %d: %s: %w", rec.Line, rec, err)
		}
		return fmt.Errorf("%s: %w", rec, err)
	}
	rp.res.Ops++
	if live := rp.t.Live(); live > rp.res.PeakLive {
		rp.res.PeakLive = live
	}
	if rp.opts.Compare {
		if err := rp.t.Compare(); err != nil {
			return fmt.Errorf("after line %d: %w", rec.Line, err)
		}
	}
	if rp.opts.Check != nil {
		if err := rp.opts.Check(); err != nil {
			return fmt.Errorf("after line %d: %w", rec.Line, err)
		}
	}
	return nil
}

func (rp *Replayer) apply(rec Record) error {
	switch rec.Op {
	case OpAlloc, OpCalloc:
		if _, ok := rp.ids[rec.ID]; ok {
			return ErrDuplicateID
		}
		var (
			h   shadow.Handle
			err error
		)
		if rec.Op == OpAlloc {
			rp.res.Allocs++
			h, _, err = rp.t.Malloc(rec.Size)
		} else {
			rp.res.Callocs++
			h, _, err = rp.t.Calloc(rec.Count, rec.Size)
		}
		if errors.Is(err, alloc.ErrOutOfMemory) {
			rp.res.Failed++
			rp.ids[rec.ID] = liveAlloc{}
			return nil
		}
		if err != nil {
			return err
		}
		n := rec.Bytes()
		if h == 0 {
			n = 0
		}
		rp.ids[rec.ID] = liveAlloc{h: h, n: n}
		if rec.Op == OpAlloc {
			return rp.fill(h, 0, n, rec.Line)
		}
		return nil

	case OpRealloc:
		cur, ok := rp.ids[rec.ID]
		if !ok {
			return ErrUnknownID
		}
		rp.res.Reallocs++
		nh, _, err := rp.t.Realloc(cur.h, rec.Size)
		if errors.Is(err, alloc.ErrOutOfMemory) {
			rp.res.Failed++
			return nil
		}
		if err != nil {
			return err
		}
		if nh == 0 {
			// Zero-size realloc keeps the old allocation.
			return nil
		}
		rp.ids[rec.ID] = liveAlloc{h: nh, n: rec.Size}
		if rec.Size > cur.n {
			return rp.fill(nh, cur.n, rec.Size, rec.Line)
		}
		return nil

	case OpFree:
		cur, ok := rp.ids[rec.ID]
		if !ok {
			return ErrUnknownID
		}
		rp.res.Frees++
		delete(rp.ids, rec.ID)
		return rp.t.Free(cur.h)

	default:
		return fmt.Errorf("%w: %s", ErrUnknownOp, rec.Op)
	}
}

func (rp *Replayer) fill(h shadow.Handle, from, to, seed int) error {
	if !rp.opts.Fill || h == 0 || to <= from {
		return nil
	}
	data := make([]byte, to-from)
	for i := range data {
		data[i] = byte(seed*31 + from + i)
	}
	return rp.t.Store(h, from, data)
}

// Result returns the summary so far.
func (rp *Replayer) Result() Result {
	res := rp.res
	res.Live = 0
	res.Bytes = 0
	for _, a := range rp.ids {
		if a.h != 0 {
			res.Live++
			res.Bytes += int64(a.n)
		}
	}
	return res
}

// Replay reads records from r and applies them to t until the input ends,
// an op fails or ctx is cancelled.
func Replay(ctx context.Context, r io.Reader, t *shadow.Tracker, opts ReplayOptions) (Result, error) {
	rp := NewReplayer(t, opts)
	tr := NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return rp.Result(), err
		}
		rec, err := tr.Next()
		if err == io.EOF {
			return rp.Result(), nil
		}
		if err != nil {
			return rp.Result(), err
		}
		if err := rp.Apply(rec); err != nil {
			return rp.Result(), err
		}
	}
}
