package arena

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTruncatesToAlignment(t *testing.T) {
	a, err := New(make([]byte, 1000))
	require.NoError(t, err)
	require.Equal(t, 992, a.Top())
	require.Equal(t, 0, a.At())
	require.Equal(t, 992, a.Remaining())
}

func TestNewTooSmall(t *testing.T) {
	_, err := New(make([]byte, 16))
	require.ErrorIs(t, err, ErrTooSmall)
}

func TestBump(t *testing.T) {
	a, err := New(make([]byte, 128))
	require.NoError(t, err)

	off, ok := a.Bump(64)
	require.True(t, ok)
	require.Equal(t, 0, off)
	require.Equal(t, 64, a.At())
	require.True(t, a.Contains(0))
	require.True(t, a.Contains(63))
	require.False(t, a.Contains(64))

	off, ok = a.Bump(64)
	require.True(t, ok)
	require.Equal(t, 64, off)

	_, ok = a.Bump(16)
	require.False(t, ok, "full arena must refuse")
	require.Equal(t, 128, a.At(), "failed bump must not move the cursor")
}

func TestBumpNilArena(t *testing.T) {
	var a *Arena
	_, ok := a.Bump(32)
	require.False(t, ok)
}

func TestReserveWithFailure(t *testing.T) {
	boom := errors.New("boom")
	_, err := ReserveWith(1024, func(int) ([]byte, func() error, error) {
		return nil, nil, boom
	})
	require.ErrorIs(t, err, ErrAcquire)
	require.ErrorIs(t, err, boom)
}

func TestReserveWithReleasesOnClose(t *testing.T) {
	released := 0
	a, err := ReserveWith(1024, func(size int) ([]byte, func() error, error) {
		return make([]byte, size), func() error { released++; return nil }, nil
	})
	require.NoError(t, err)
	require.Equal(t, 1024, a.Top())

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	require.Equal(t, 1, released)

	_, ok := a.Bump(32)
	require.False(t, ok)
}

func TestReserveFromOS(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping mapping test in short mode")
	}
	a, err := Reserve(1 << 20)
	require.NoError(t, err)
	defer a.Close()

	off, ok := a.Bump(4096)
	require.True(t, ok)
	b := a.Bytes()[off : off+4096]
	for _, v := range b {
		require.Zero(t, v)
	}
}
