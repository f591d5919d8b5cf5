package trace

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadAll(t *testing.T) {
	in := `# warm-up
alloc a 100
calloc b 10 8   # zeroed

realloc a 300
free b
free a
`
	recs, err := ReadAll(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, recs, 5)

	assert.Equal(t, Record{Op: OpAlloc, ID: "a", Size: 100, Line: 2}, recs[0])
	assert.Equal(t, Record{Op: OpCalloc, ID: "b", Count: 10, Size: 8, Line: 3}, recs[1])
	assert.Equal(t, 80, recs[1].Bytes())
	assert.Equal(t, Record{Op: OpRealloc, ID: "a", Size: 300, Line: 5}, recs[2])
	assert.Equal(t, Record{Op: OpFree, ID: "b", Line: 6}, recs[3])
}

func TestReadAll_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"unknown op", "malloc a 10", ErrUnknownOp},
		{"missing size", "alloc a", ErrSyntax},
		{"extra field", "free a 10", ErrSyntax},
		{"negative size", "alloc a -4", ErrSyntax},
		{"not a number", "calloc a ten 8", ErrSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadAll(strings.NewReader("alloc ok 1\n" + tt.in))
			require.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "line 2")
		})
	}
}

func TestWrite_ReadsBack(t *testing.T) {
	recs := []Record{
		{Op: OpAlloc, ID: "x", Size: 7},
		{Op: OpCalloc, ID: "y", Count: 3, Size: 5},
		{Op: OpRealloc, ID: "x", Size: 70},
		{Op: OpFree, ID: "x"},
	}
	var out bytes.Buffer
	require.NoError(t, Write(&out, recs))
	assert.Equal(t, "alloc x 7\ncalloc y 3 5\nrealloc x 70\nfree x\n", out.String())

	got, err := ReadAll(&out)
	require.NoError(t, err)
	require.Len(t, got, len(recs))
	for i := range recs {
		recs[i].Line = i + 1
	}
	assert.Equal(t, recs, got)
}
