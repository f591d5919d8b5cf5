package format

import "fmt"

// Chunk is a fixed-layout view of the header at Off within a backing buffer.
// It holds no state of its own; every accessor reads or writes the buffer.
type Chunk struct {
	b   []byte
	Off int
}

// ChunkAt returns a view of the chunk header at off. The caller must ensure
// the header fits within b (see HeaderFits).
func ChunkAt(b []byte, off int) Chunk {
	return Chunk{b: b, Off: off}
}

// ParseChunk returns a view of the chunk at off after checking that the
// header lies within the first limit bytes of b and that the declared size
// neither underflows a header nor runs past limit.
func ParseChunk(b []byte, off, limit int) (Chunk, error) {
	if limit > len(b) {
		limit = len(b)
	}
	if !HeaderFits(limit, off) {
		return Chunk{}, fmt.Errorf("chunk at %d: %w", off, ErrTruncated)
	}
	c := ChunkAt(b, off)
	size := c.Size()
	if size < MinChunkSize || !IsAligned(size) {
		return Chunk{}, fmt.Errorf("chunk at %d: bad size %d", off, size)
	}
	if off+size > limit {
		return Chunk{}, fmt.Errorf("chunk at %d: size %d runs past %d: %w", off, size, limit, ErrTruncated)
	}
	return c, nil
}

// HeaderFits reports whether a full header starting at off lies in [0, limit).
func HeaderFits(limit, off int) bool {
	return off >= 0 && off <= limit-ChunkHeaderSize
}

// PackSize combines a size and the occupied flag into a size word.
func PackSize(size int, occupied bool) uint32 {
	v := uint32(size) &^ FlagMask
	if occupied {
		v |= FlagOccupied
	}
	return v
}

// SizeOf strips the flag bits from a raw size word.
func SizeOf(raw uint32) int {
	return int(raw &^ FlagMask)
}

// IsOccupied reports whether a raw size word carries the occupied flag.
func IsOccupied(raw uint32) bool {
	return raw&FlagOccupied != 0
}

// Raw returns the size word including flag bits.
func (c Chunk) Raw() uint32 {
	return ReadU32(c.b, c.Off+SizeFieldOffset)
}

// SetRaw overwrites the size word including flag bits.
func (c Chunk) SetRaw(v uint32) {
	PutU32(c.b, c.Off+SizeFieldOffset, v)
}

// Size returns the chunk size with flags masked off.
func (c Chunk) Size() int {
	return SizeOf(c.Raw())
}

// SetSize replaces the size and keeps the current flags.
func (c Chunk) SetSize(size int) {
	c.SetRaw(uint32(size)&^FlagMask | c.Raw()&FlagMask)
}

// Occupied reports whether the chunk is currently handed out.
func (c Chunk) Occupied() bool {
	return IsOccupied(c.Raw())
}

// SetOccupied sets or clears the occupied flag.
func (c Chunk) SetOccupied(occupied bool) {
	c.SetRaw(PackSize(c.Size(), occupied) | c.Raw()&(FlagMask&^FlagOccupied))
}

// Next returns the forward free-list link, or NoChunk.
func (c Chunk) Next() int {
	return readLink(c.b, c.Off+NextFieldOffset)
}

// SetNext stores the forward free-list link. Pass NoChunk to clear it.
func (c Chunk) SetNext(off int) {
	putLink(c.b, c.Off+NextFieldOffset, off)
}

// Prev returns the backward free-list link, or NoChunk.
func (c Chunk) Prev() int {
	return readLink(c.b, c.Off+PrevFieldOffset)
}

// SetPrev stores the backward free-list link. Pass NoChunk to clear it.
func (c Chunk) SetPrev(off int) {
	putLink(c.b, c.Off+PrevFieldOffset, off)
}

// Init writes a fresh header: size, flag, zero reserved word and empty links.
func (c Chunk) Init(size int, occupied bool) {
	c.SetRaw(PackSize(size, occupied))
	PutU32(c.b, c.Off+SizeFieldOffset+4, 0)
	c.SetNext(NoChunk)
	c.SetPrev(NoChunk)
}

// End returns the offset one past the last byte of the chunk.
func (c Chunk) End() int {
	return c.Off + c.Size()
}

// Payload returns the offset of the first payload byte.
func (c Chunk) Payload() int {
	return c.Off + ChunkHeaderSize
}

// PayloadSize returns the number of payload bytes the chunk can carry.
func (c Chunk) PayloadSize() int {
	return c.Size() - ChunkHeaderSize
}

// WriteTag stores the flag-free size in the last word of the chunk.
func (c Chunk) WriteTag() {
	PutU32(c.b, c.End()-TagSize, uint32(c.Size()))
}

// Tag returns the word a boundary tag would occupy for this chunk.
func (c Chunk) Tag() uint32 {
	return ReadU32(c.b, c.End()-TagSize)
}

// TagBefore returns the word immediately preceding off. When the chunk
// physically before off is free this is its boundary tag; otherwise it is
// whatever payload bytes happen to sit there.
func TagBefore(b []byte, off int) uint32 {
	return ReadU32(b, off-TagSize)
}

// ClearTagBefore zeroes the word immediately preceding off.
func ClearTagBefore(b []byte, off int) {
	PutU32(b, off-TagSize, 0)
}

// HeaderOf returns the chunk offset owning the payload at p.
func HeaderOf(p int) int {
	return p - ChunkHeaderSize
}
