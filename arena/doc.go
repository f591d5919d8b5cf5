// Package arena owns the single fixed-size reservation an allocator carves
// chunks from.
//
// An Arena is addressed purely by offset: offset 0 is the base, Top() is one
// past the end, and At() is the bump cursor separating carved chunks from
// virgin space. Backing memory comes either from a caller-provided buffer
// (New) or from an anonymous mapping obtained from the operating system
// (Reserve).
//
// Arenas are not safe for concurrent use.
package arena
