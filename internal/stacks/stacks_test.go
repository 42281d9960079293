package stacks

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/coro/internal/platform"
)

func TestAllocateProtected(t *testing.T) {
	if !platform.SwitchSupported() {
		t.Skip()
	}
	s, err := AllocateProtected(64<<10, false)
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Free()) }()

	require.GreaterOrEqual(t, s.Size(), 64<<10)
	require.Zero(t, s.Bottom()&15)
	require.Zero(t, s.Bottom()&uintptr(platform.PageSize()-1))
}

func TestAllocateProtectedRoundsUp(t *testing.T) {
	if !platform.SwitchSupported() {
		t.Skip()
	}
	// One byte still costs a whole page, plus the guard page.
	s, err := AllocateProtected(1, false)
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Free()) }()
	require.Equal(t, platform.PageSize(), s.Size())
}

func TestAllocateProtectedClampedToRlimit(t *testing.T) {
	if !platform.SwitchSupported() {
		t.Skip()
	}
	max := platform.MaxStackSize()
	if max > 1<<30 {
		t.Skip("hard stack limit too large to exercise clamping")
	}
	s, err := AllocateProtected(max+platform.PageSize(), false)
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Free()) }()
	require.LessOrEqual(t, s.Size(), max)
}

func TestFixedStack(t *testing.T) {
	s := AllocateFixed(32 << 10)
	require.Zero(t, s.Bottom()&15)
	require.GreaterOrEqual(t, s.Size(), 32<<10-16)
	require.NoError(t, s.Free())
	require.Zero(t, s.Bottom())
}

func TestRoundUpToPageSize(t *testing.T) {
	for _, c := range []struct {
		size, pageSize, want int
	}{
		{size: 0, pageSize: 4096, want: 0},
		{size: 1, pageSize: 4096, want: 4096},
		{size: 4096, pageSize: 4096, want: 4096},
		{size: 4097, pageSize: 4096, want: 8192},
	} {
		require.Equal(t, c.want, roundUpToPageSize(c.size, c.pageSize))
	}
}
