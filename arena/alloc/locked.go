package alloc

import "sync"

// LockedAllocator serializes every call to an underlying Allocator behind
// one mutex. Slices returned by Alloc/Calloc/Realloc/Bytes alias arena
// memory and are not protected once the call returns.
type LockedAllocator struct {
	mu sync.Mutex
	a  Allocator
}

// NewLocked wraps a.
func NewLocked(a Allocator) *LockedAllocator {
	return &LockedAllocator{a: a}
}

// Alloc allocates n bytes under the lock.
func (l *LockedAllocator) Alloc(n int) (Ptr, []byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Alloc(n)
}

// Calloc allocates count*n zeroed bytes under the lock.
func (l *LockedAllocator) Calloc(count, n int) (Ptr, []byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Calloc(count, n)
}

// Realloc resizes p under the lock.
func (l *LockedAllocator) Realloc(p Ptr, n int) (Ptr, []byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Realloc(p, n)
}

// Free releases p under the lock.
func (l *LockedAllocator) Free(p Ptr) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Free(p)
}

// Bytes returns the payload of p. The slice is not protected by the lock.
func (l *LockedAllocator) Bytes(p Ptr) []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Bytes(p)
}

// With runs fn while holding the lock, for callers that need several
// operations (or a stats snapshot) to be atomic.
func (l *LockedAllocator) With(fn func(a Allocator)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.a)
}
