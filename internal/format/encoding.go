package format

import "encoding/binary"

// Binary encoding utilities for little-endian integers.
//
// Headers are always little-endian regardless of the host, so an arena
// image dumped on one machine decodes the same way on another.

// PutU32 writes a uint32 value to the buffer at the specified offset in little-endian format.
func PutU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}

// PutU64 writes a uint64 value to the buffer at the specified offset in little-endian format.
func PutU64(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+8], v)
}

// ReadU32 reads a uint32 value from the buffer at the specified offset in little-endian format.
func ReadU32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}

// ReadU64 reads a uint64 value from the buffer at the specified offset in little-endian format.
func ReadU64(b []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+8])
}

// putLink stores a chunk offset as offset+1 so that zeroed memory reads as NoChunk.
func putLink(b []byte, off int, link int) {
	if link < 0 {
		PutU64(b, off, 0)
		return
	}
	PutU64(b, off, uint64(link)+1)
}

func readLink(b []byte, off int) int {
	v := ReadU64(b, off)
	switch {
	case v == 0:
		return NoChunk
	case v > uint64(len(b)):
		// Garbage decodes past the buffer so that bounds checks reject it.
		return len(b)
	default:
		return int(v - 1)
	}
}
