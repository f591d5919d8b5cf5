package trace

// Trace file syntax.
const (
	CommentPrefix = "#"

	OpAllocName   = "alloc"
	OpCallocName  = "calloc"
	OpReallocName = "realloc"
	OpFreeName    = "free"

	// ScannerMaxLineSize bounds a single trace line.
	ScannerMaxLineSize = 64 * 1024
)
