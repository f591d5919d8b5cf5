// Package format houses the low-level encoding of allocator chunks: the
// header laid over the start of every chunk and the boundary tag written at
// the tail of free chunks. Higher-level packages never touch the raw bytes
// directly; they go through the accessors here so the bit-packing lives in
// one place.
package format

const (
	// SizeFieldOffset is the offset of the 32-bit size word within a chunk
	// header. The low three bits of the word are flags (see FlagMask).
	SizeFieldOffset = 0x00

	// NextFieldOffset is the offset of the free-list forward link.
	NextFieldOffset = 0x08

	// PrevFieldOffset is the offset of the free-list backward link.
	PrevFieldOffset = 0x10

	// ChunkHeaderSize is the number of bytes preceding every payload.
	//
	// Layout (little-endian):
	//
	//	Offset  Size  Description
	//	0x00    4     Size including header and padding, flags in bits 0-2.
	//	0x04    4     Reserved, always zero.
	//	0x08    8     Next free chunk (offset + 1, 0 = none).
	//	0x10    8     Previous free chunk (offset + 1, 0 = none).
	//	0x18    ...   Payload.
	ChunkHeaderSize = 0x18

	// TagSize is the width of the boundary tag stored in the last word of a
	// free chunk.
	TagSize = 4

	// Alignment is the alignment of every chunk offset and size. It matches
	// the largest scalar alignment on 64-bit targets.
	Alignment = 16

	// AlignmentMask masks the bits that must be zero in an aligned value.
	AlignmentMask = Alignment - 1

	// FlagMask covers the bits of the size word reserved for flags.
	FlagMask = 0x7

	// FlagOccupied marks a chunk as handed out to a caller.
	FlagOccupied = 0x1

	// MinChunkSize is the smallest chunk that can hold a header and a tag.
	MinChunkSize = (ChunkHeaderSize + TagSize + AlignmentMask) &^ AlignmentMask

	// MaxChunkSize is the largest size representable in the 32-bit size word.
	MaxChunkSize = 0xFFFFFFFF &^ AlignmentMask

	// NoChunk is the decoded value of an empty free-list link.
	NoChunk = -1
)
