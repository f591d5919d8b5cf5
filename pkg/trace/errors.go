package trace

import "errors"

var (
	// ErrSyntax is returned for a line that does not parse.
	ErrSyntax = errors.New("trace: syntax error")

	// ErrUnknownOp is returned for a line whose first field is not an op.
	ErrUnknownOp = errors.New("trace: unknown op")

	// ErrUnknownID is returned when realloc or free names an id that was
	// never allocated or is already freed.
	ErrUnknownID = errors.New("trace: unknown id")

	// ErrDuplicateID is returned when an allocation reuses a live id.
	ErrDuplicateID = errors.New("trace: id already live")
)
