//go:build linux || darwin || freebsd

// Package vmem acquires anonymous, zero-initialized, read/write backing memory
// from the operating system for arena reservations.
package vmem

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Reserve maps size bytes of private anonymous memory. The pages are
// zero-filled by the kernel and committed lazily on first touch, so a large
// reservation costs nothing until it is used.
func Reserve(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("vmem: invalid reservation size %d", size)
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, fmt.Errorf("vmem: mmap %d bytes: %w", size, err)
	}
	released := false
	release := func() error {
		if released {
			return nil
		}
		err := unix.Munmap(data)
		if errors.Is(err, unix.EINVAL) {
			// Treat double-unmap as no-op for callers.
			return nil
		}
		if err == nil {
			released = true
		}
		return err
	}
	return data, release, nil
}
