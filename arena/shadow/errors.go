package shadow

import "errors"

var (
	// ErrUnknownHandle is returned for a handle the tracker never issued or
	// has already released.
	ErrUnknownHandle = errors.New("shadow: unknown handle")

	// ErrTableFull is returned when the reference table has no room for
	// another live allocation.
	ErrTableFull = errors.New("shadow: reference table full")

	// ErrMismatch is returned by Compare when the engine and platform copies
	// of an allocation differ.
	ErrMismatch = errors.New("shadow: contents differ")
)
