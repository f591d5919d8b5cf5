package format

// Align returns n aligned up to the next chunk alignment boundary.
//
// Example:
//
//	Align(1)  = 16
//	Align(16) = 16
//	Align(17) = 32
func Align(n int) int {
	return (n + AlignmentMask) & ^AlignmentMask
}

// IsAligned reports whether n sits on a chunk alignment boundary.
func IsAligned(n int) bool {
	return n&AlignmentMask == 0
}

// TotalSize returns the chunk size needed to carry a payload of n bytes:
// the payload plus the header, aligned. It returns ErrTooLarge when the
// result does not fit the 32-bit size word and ErrBadSize for negative n.
func TotalSize(n int) (int, error) {
	if n < 0 {
		return 0, ErrBadSize
	}
	if n > MaxChunkSize-ChunkHeaderSize {
		return 0, ErrTooLarge
	}
	return Align(n + ChunkHeaderSize), nil
}
