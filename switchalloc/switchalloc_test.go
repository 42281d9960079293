package switchalloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReplaceCoroutineLocalAllocator(t *testing.T) {
	a := NewAllocator()
	arena := NewLocalAllocator(make([]byte, 1024), LifetimeShort, 64)

	require.Nil(t, a.ReplaceCoroutineLocalAllocator(arena))
	require.Same(t, Local(arena), a.ReplaceCoroutineLocalAllocator(nil))
	require.Nil(t, a.ReplaceCoroutineLocalAllocator(nil))
}

func TestReplaceCurrentAllocatorInUse(t *testing.T) {
	a := NewAllocator()
	require.Equal(t, Global, a.CurrentAllocatorInUse())
	require.Equal(t, Global, a.ReplaceCurrentAllocatorInUse(CoroutineLocal))
	require.Equal(t, CoroutineLocal, a.ReplaceCurrentAllocatorInUse(Global))
}

func TestCallbackWithThreadLocalAllocator(t *testing.T) {
	a := NewAllocator()
	a.ReplaceCurrentAllocatorInUse(CoroutineLocal)

	ran := false
	a.CallbackWithThreadLocalAllocator(func() {
		ran = true
		require.Equal(t, Global, a.CurrentAllocatorInUse())
	})
	require.True(t, ran)
	require.Equal(t, CoroutineLocal, a.CurrentAllocatorInUse())
}

func TestAllocateRouting(t *testing.T) {
	a := NewAllocator()
	region := make([]byte, 1024)
	arena := NewLocalAllocator(region, LifetimeShort, 64)

	t.Run("global path", func(t *testing.T) {
		buf, err := a.Allocate(100)
		require.NoError(t, err)
		require.Len(t, buf, 100)
		require.Zero(t, arena.Used())
	})

	t.Run("coroutine-local path", func(t *testing.T) {
		a.ReplaceCoroutineLocalAllocator(arena)
		a.ReplaceCurrentAllocatorInUse(CoroutineLocal)

		buf, err := a.Allocate(100)
		require.NoError(t, err)
		require.Len(t, buf, 100)
		require.Equal(t, 128, arena.Used())
		require.Same(t, &region[0], &buf[0])
	})

	t.Run("tag alone is not enough", func(t *testing.T) {
		a.ReplaceCoroutineLocalAllocator(nil)
		buf, err := a.Allocate(8)
		require.NoError(t, err)
		require.Len(t, buf, 8)
		require.Equal(t, 128, arena.Used())
	})
}

func TestTagString(t *testing.T) {
	require.Equal(t, "global", Global.String())
	require.Equal(t, "coroutine-local", CoroutineLocal.String())
	require.Equal(t, "tag(7)", Tag(7).String())
}
