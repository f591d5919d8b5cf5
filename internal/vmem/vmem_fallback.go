//go:build !linux && !darwin && !freebsd && !windows

// Package vmem acquires anonymous, zero-initialized, read/write backing memory
// from the operating system for arena reservations.
package vmem

import "fmt"

// Reserve allocates the reservation on the Go heap when no mapping primitive
// is available. The slice is zeroed by the runtime.
func Reserve(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("vmem: invalid reservation size %d", size)
	}
	return make([]byte, size), func() error { return nil }, nil
}
