package malloc

import (
	"errors"
	"sync"

	"github.com/joshuapare/chunkalloc/arena/alloc"
	"github.com/joshuapare/chunkalloc/internal/logger"
)

// ErrInUse is returned by Configure once the default allocator exists.
var ErrInUse = errors.New("malloc: default allocator already in use")

var (
	mu     sync.Mutex
	cfg    alloc.Options
	engine *alloc.FirstFitAllocator
	std    *alloc.LockedAllocator
)

// Configure sets the options for the default allocator.
func Configure(opts alloc.Options) error {
	mu.Lock()
	defer mu.Unlock()
	if std != nil {
		return ErrInUse
	}
	cfg = opts
	return nil
}

func get() *alloc.LockedAllocator {
	l, _ := current()
	return l
}

func current() (*alloc.LockedAllocator, *alloc.FirstFitAllocator) {
	mu.Lock()
	defer mu.Unlock()
	if std == nil {
		engine = alloc.NewFirstFit(cfg)
		std = alloc.NewLocked(engine)
		logger.Debug("default allocator created", "arenaSize", cfg.ArenaSize, "ownBuffer", cfg.Base != nil)
	}
	return std, engine
}

// Malloc allocates n bytes from the default allocator.
func Malloc(n int) (alloc.Ptr, []byte, error) { return get().Alloc(n) }

// Calloc allocates count*n zeroed bytes from the default allocator.
func Calloc(count, n int) (alloc.Ptr, []byte, error) { return get().Calloc(count, n) }

// Realloc resizes p, preserving its common prefix.
func Realloc(p alloc.Ptr, n int) (alloc.Ptr, []byte, error) { return get().Realloc(p, n) }

// Free releases p.
func Free(p alloc.Ptr) error { return get().Free(p) }

// Bytes returns the usable payload of p.
func Bytes(p alloc.Ptr) []byte { return get().Bytes(p) }

// Stats returns a snapshot of the default allocator's counters.
func Stats() alloc.Stats {
	var s alloc.Stats
	l, fa := current()
	l.With(func(alloc.Allocator) { s = fa.GetStats() })
	return s
}

// Verify checks the default allocator's heap invariants.
func Verify() error {
	var err error
	l, fa := current()
	l.With(func(alloc.Allocator) { err = fa.Verify() })
	return err
}

// Reset closes the default allocator. The next call creates a fresh one with
// the configured options, and Configure may be called again.
func Reset() error {
	mu.Lock()
	defer mu.Unlock()
	if std == nil {
		return nil
	}
	var err error
	std.With(func(alloc.Allocator) { err = engine.Close() })
	engine, std = nil, nil
	logger.Debug("default allocator reset", "err", err)
	return err
}
