package trace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Op is one allocation primitive.
type Op uint8

const (
	OpAlloc Op = iota + 1
	OpCalloc
	OpRealloc
	OpFree
)

func (o Op) String() string {
	switch o {
	case OpAlloc:
		return OpAllocName
	case OpCalloc:
		return OpCallocName
	case OpRealloc:
		return OpReallocName
	case OpFree:
		return OpFreeName
	default:
		return fmt.Sprintf("Op(%d)", uint8(o))
	}
}

// Record is one line of a trace.
//
//	alloc   <id> <size>
//	calloc  <id> <count> <size>
//	realloc <id> <size>
//	free    <id>
type Record struct {
	Op    Op
	ID    string
	Count int // calloc only
	Size  int // alloc, calloc and realloc
	Line  int // 1-based source line, 0 when built in code
}

// Bytes returns the payload size the record asks for.
func (r Record) Bytes() int {
	if r.Op == OpCalloc {
		return r.Count * r.Size
	}
	return r.Size
}

func (r Record) String() string {
	switch r.Op {
	case OpCalloc:
		return fmt.Sprintf("%s %s %d %d", r.Op, r.ID, r.Count, r.Size)
	case OpFree:
		return fmt.Sprintf("%s %s", r.Op, r.ID)
	default:
		return fmt.Sprintf("%s %s %d", r.Op, r.ID, r.Size)
	}
}

// Reader parses records from a text trace. Blank lines and lines starting
// with # are skipped; a trailing # comment on an op line is ignored.
type Reader struct {
	sc   *bufio.Scanner
	line int
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), ScannerMaxLineSize)
	return &Reader{sc: sc}
}

// Next returns the next record, or io.EOF at the end of input.
func (r *Reader) Next() (Record, error) {
	for r.sc.Scan() {
		r.line++
		text := r.sc.Text()
		if i := strings.Index(text, CommentPrefix); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		rec, err := parseFields(fields)
		if err != nil {
			return Record{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		rec.Line = r.line
		return rec, nil
	}
	if err := r.sc.Err(); err != nil {
		return Record{}, fmt.Errorf("reading trace: %w", err)
	}
	return Record{}, io.EOF
}

// ReadAll parses every record in r.
func ReadAll(r io.Reader) ([]Record, error) {
	tr := NewReader(r)
	var out []Record
	for {
		rec, err := tr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}

// Write formats records in the syntax Reader accepts.
func Write(w io.Writer, recs []Record) error {
	bw := bufio.NewWriter(w)
	for _, rec := range recs {
		if _, err := fmt.Fprintln(bw, rec.String()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func parseFields(f []string) (Record, error) {
	var (
		rec  Record
		want int
	)
	switch f[0] {
	case OpAllocName:
		rec.Op, want = OpAlloc, 3
	case OpCallocName:
		rec.Op, want = OpCalloc, 4
	case OpReallocName:
		rec.Op, want = OpRealloc, 3
	case OpFreeName:
		rec.Op, want = OpFree, 2
	default:
		return Record{}, fmt.Errorf("%w: %q", ErrUnknownOp, f[0])
	}
	if len(f) != want {
		return Record{}, fmt.Errorf("%w: %s takes %d fields, got %d", ErrSyntax, f[0], want-1, len(f)-1)
	}
	rec.ID = f[1]

	var err error
	switch rec.Op {
	case OpCalloc:
		if rec.Count, err = parseSize(f[2]); err != nil {
			return Record{}, err
		}
		if rec.Size, err = parseSize(f[3]); err != nil {
			return Record{}, err
		}
	case OpAlloc, OpRealloc:
		if rec.Size, err = parseSize(f[2]); err != nil {
			return Record{}, err
		}
	}
	return rec, nil
}

func parseSize(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: bad size %q", ErrSyntax, s)
	}
	return n, nil
}
