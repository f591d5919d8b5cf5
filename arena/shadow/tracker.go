package shadow

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/joshuapare/chunkalloc/arena/alloc"
	"github.com/joshuapare/chunkalloc/internal/buf"
	"github.com/joshuapare/chunkalloc/internal/logger"
)

// Options configures a Tracker.
type Options struct {
	// Engine receives every call. Required.
	Engine alloc.Allocator

	// Platform is the reference allocator. Nil uses a fresh GoHeap.
	Platform Platform

	// Capacity bounds the reference table. Zero selects DefaultCapacity.
	Capacity int

	// Logger receives one record per intercepted call. Nil uses logger.L.
	Logger *slog.Logger
}

// Tracker forwards every allocation primitive to the engine and to a
// platform allocator. Callers only ever see platform handles; the engine
// pointer behind each handle lives in a RefTable and is looked up on
// Realloc and Free.
//
// Tracker is not safe for concurrent use.
type Tracker struct {
	engine   alloc.Allocator
	platform Platform
	refs     *RefTable
	log      *slog.Logger
}

// New creates a Tracker.
func New(opts Options) *Tracker {
	p := opts.Platform
	if p == nil {
		p = NewGoHeap()
	}
	log := opts.Logger
	if log == nil {
		log = logger.L
	}
	return &Tracker{
		engine:   opts.Engine,
		platform: p,
		refs:     NewRefTable(opts.Capacity),
		log:      log,
	}
}

// Malloc allocates n bytes in both allocators and returns the platform view.
func (t *Tracker) Malloc(n int) (Handle, []byte, error) {
	caller := callerOf(2)
	return t.track("malloc", caller, n, true,
		func() (alloc.Ptr, []byte, error) { return t.engine.Alloc(n) },
		func() (Handle, []byte, error) { return t.platform.Malloc(n) })
}

// Calloc allocates count*n zeroed bytes in both allocators.
func (t *Tracker) Calloc(count, n int) (Handle, []byte, error) {
	caller := callerOf(2)
	size, _ := buf.MulOverflowSafe(count, n)
	return t.track("calloc", caller, size, false,
		func() (alloc.Ptr, []byte, error) { return t.engine.Calloc(count, n) },
		func() (Handle, []byte, error) { return t.platform.Calloc(count, n) })
}

// track runs one allocation against both sides and records the pair. A
// failure on either side leaves neither allocated. With mirror set the
// platform block is seeded with the engine's uninitialized bytes so that only
// bytes the engine defines (copies, zeroing) can ever differ.
func (t *Tracker) track(
	op, caller string,
	n int,
	mirror bool,
	engineFn func() (alloc.Ptr, []byte, error),
	platformFn func() (Handle, []byte, error),
) (Handle, []byte, error) {
	p, ib, err := engineFn()
	if err != nil {
		t.log.Warn(op+" failed", "caller", caller, "size", n, "side", "internal", "err", err)
		return 0, nil, err
	}
	t.log.Debug(op, "caller", caller, "size", n, "at", p, "side", "internal")

	h, b, err := platformFn()
	if err != nil {
		_ = t.engine.Free(p)
		t.log.Warn(op+" failed", "caller", caller, "size", n, "side", "system", "err", err)
		return 0, nil, err
	}
	t.log.Debug(op, "caller", caller, "size", n, "at", h, "side", "system")
	if mirror {
		copy(b, ib)
	}

	if h == 0 && p == alloc.Nil {
		return 0, nil, nil
	}
	if err := t.refs.Push(h, p); err != nil {
		_ = t.engine.Free(p)
		_ = t.platform.Free(h)
		return 0, nil, err
	}
	return h, b, nil
}

// Realloc resizes h in both allocators. Realloc(0, n) is Malloc(n); when n
// is 0 both sides keep h live and 0 is returned.
func (t *Tracker) Realloc(h Handle, n int) (Handle, []byte, error) {
	caller := callerOf(2)
	if h == 0 {
		return t.track("realloc", caller, n, true,
			func() (alloc.Ptr, []byte, error) { return t.engine.Alloc(n) },
			func() (Handle, []byte, error) { return t.platform.Malloc(n) })
	}
	p, ok := t.refs.Lookup(h)
	if !ok {
		return 0, nil, fmt.Errorf("realloc: %w: %d", ErrUnknownHandle, h)
	}

	oldN := len(t.platform.Bytes(h))
	np, ib, err := t.engine.Realloc(p, n)
	if err != nil {
		t.log.Warn("realloc failed", "caller", caller, "size", n, "side", "internal", "err", err)
		return 0, nil, err
	}
	t.log.Debug("realloc", "caller", caller, "size", n, "at", np, "side", "internal")
	if np == alloc.Nil {
		return 0, nil, nil
	}

	nh, nb, err := t.platform.Realloc(h, n)
	if err != nil {
		// The engine already released p, so the pair cannot be restored.
		// Drop both sides rather than leave h live behind a popped ref.
		t.refs.Pop(h)
		_ = t.engine.Free(np)
		_ = t.platform.Free(h)
		t.log.Warn("realloc failed", "caller", caller, "size", n, "side", "system", "err", err)
		return 0, nil, err
	}
	t.log.Debug("realloc", "caller", caller, "size", n, "at", nh, "side", "system")
	if n > oldN {
		copy(nb[oldN:], ib[oldN:])
	}

	t.refs.Pop(h)
	if err := t.refs.Push(nh, np); err != nil {
		return 0, nil, err
	}
	return nh, nb, nil
}

// Free releases h in both allocators. Free(0) is a no-op.
func (t *Tracker) Free(h Handle) error {
	caller := callerOf(2)
	if h == 0 {
		return nil
	}
	p, ok := t.refs.Pop(h)
	if !ok {
		return fmt.Errorf("free: %w: %d", ErrUnknownHandle, h)
	}

	t.log.Debug("free", "caller", caller, "at", p, "side", "internal")
	ierr := t.engine.Free(p)
	t.log.Debug("free", "caller", caller, "at", h, "side", "system")
	serr := t.platform.Free(h)
	return errors.Join(ierr, serr)
}

// Store writes data at off into both copies of h.
func (t *Tracker) Store(h Handle, off int, data []byte) error {
	p, ok := t.refs.Lookup(h)
	if !ok {
		return fmt.Errorf("store: %w: %d", ErrUnknownHandle, h)
	}
	sb := t.platform.Bytes(h)
	ib := t.engine.Bytes(p)
	end := off + len(data)
	if off < 0 || end > len(sb) || end > len(ib) {
		return fmt.Errorf("store: [%d, %d) outside %d-byte allocation", off, end, len(sb))
	}
	copy(sb[off:], data)
	copy(ib[off:], data)
	return nil
}

// Diff compares the platform copy of h with the engine copy over the
// platform length. It returns the first differing offset, or -1 when they
// match.
func (t *Tracker) Diff(h Handle) (int, error) {
	p, ok := t.refs.Lookup(h)
	if !ok {
		return 0, fmt.Errorf("diff: %w: %d", ErrUnknownHandle, h)
	}
	sb := t.platform.Bytes(h)
	ib := t.engine.Bytes(p)
	for i := range sb {
		if i >= len(ib) || sb[i] != ib[i] {
			return i, nil
		}
	}
	return -1, nil
}

// Compare runs Diff over every live handle and reports the first mismatch.
func (t *Tracker) Compare() error {
	var err error
	t.refs.Each(func(r Ref) bool {
		var at int
		at, err = t.Diff(r.Handle)
		if err == nil && at >= 0 {
			err = fmt.Errorf("%w: handle %d (internal %d) at offset %d", ErrMismatch, r.Handle, r.Internal, at)
		}
		return err == nil
	})
	return err
}

// Internal returns the engine pointer behind h.
func (t *Tracker) Internal(h Handle) (alloc.Ptr, bool) {
	return t.refs.Lookup(h)
}

// Live returns the number of tracked allocations.
func (t *Tracker) Live() int { return t.refs.Len() }

// callerOf formats the file:line skip frames up the stack.
func callerOf(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "?"
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}
