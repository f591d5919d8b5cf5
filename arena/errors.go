package arena

import "errors"

var (
	// ErrTooSmall indicates a reservation that cannot hold even one chunk.
	ErrTooSmall = errors.New("arena: reservation too small")

	// ErrAcquire indicates the backing memory could not be obtained.
	ErrAcquire = errors.New("arena: acquire backing memory")
)
