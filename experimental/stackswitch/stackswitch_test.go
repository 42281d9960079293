package stackswitch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/coro/internal/platform"
)

func TestPingPong(t *testing.T) {
	if !platform.SwitchSupported() {
		t.Skip()
	}
	c, err := New(64<<10, func(peer *Context, payload uintptr) {
		for {
			payload = peer.Switch(payload + 1)
		}
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, c.Free()) }()

	require.Equal(t, uintptr(1), c.Switch(0))
	require.Equal(t, uintptr(11), c.Switch(10))
	require.Equal(t, uintptr(101), c.Switch(100))
}

func TestFirstPayloadReachesEntry(t *testing.T) {
	if !platform.SwitchSupported() {
		t.Skip()
	}
	var got uintptr
	c, err := New(64<<10, func(peer *Context, payload uintptr) {
		got = payload
		for {
			peer.Switch(0)
		}
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, c.Free()) }()

	c.Switch(42)
	require.Equal(t, uintptr(42), got)
}

func TestFreeTwice(t *testing.T) {
	if !platform.SwitchSupported() {
		t.Skip()
	}
	c, err := New(64<<10, func(peer *Context, _ uintptr) {
		for {
			peer.Switch(0)
		}
	})
	require.NoError(t, err)
	require.NoError(t, c.Free())
	require.NoError(t, c.Free())
}
