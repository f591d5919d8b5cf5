/*
Package malloc exposes the first-fit engine as a process-wide drop-in for the
four allocation primitives.

# Quick Start

	p, b, err := malloc.Malloc(64)
	if err != nil {
	    log.Fatal(err)
	}
	copy(b, data)
	defer malloc.Free(p)

# Configuration

The default allocator is created on first use and reserves its arena only
when the first allocation needs fresh space. Configure must run before that:

	err := malloc.Configure(alloc.Options{ArenaSize: 16 << 20})

# Concurrency

Every call takes one package-level lock. Slices returned by Malloc, Calloc,
Realloc and Bytes alias arena memory and are not synchronized.
*/
package malloc
