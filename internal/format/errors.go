package format

import "errors"

var (
	// ErrTooLarge indicates a request whose chunk would not fit the 32-bit size word.
	ErrTooLarge = errors.New("format: chunk size exceeds 4 GiB limit")
	// ErrBadSize indicates a negative payload size.
	ErrBadSize = errors.New("format: negative size")
	// ErrTruncated indicates the buffer lacked the bytes required for a header.
	ErrTruncated = errors.New("format: truncated buffer")
)
