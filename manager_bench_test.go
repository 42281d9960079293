package coro_test

import (
	"testing"

	"github.com/tetratelabs/coro"
	"github.com/tetratelabs/coro/internal/platform"
	"github.com/tetratelabs/coro/switchalloc"
)

func BenchmarkStartComplete(b *testing.B) {
	if !platform.SwitchSupported() {
		b.Skip()
	}
	global := switchalloc.NewAllocator()
	body := func(_ coro.Handle, _ *coro.Yielder[struct{}, struct{}, uint64], s uint64) uint64 {
		return s + 1
	}
	m, err := coro.NewManager[uint64, struct{}, struct{}, uint64](global, body, coro.Config{Capacity: 1})
	if err != nil {
		b.Fatal(err)
	}
	defer m.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.StartCoroutine(nil, uint64(i)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkYieldResume(b *testing.B) {
	if !platform.SwitchSupported() {
		b.Skip()
	}
	global := switchalloc.NewAllocator()
	body := func(_ coro.Handle, y *coro.Yielder[uint64, uint64, uint64], s uint64) uint64 {
		for {
			n, err := y.Yields(s, errKilled)
			if err != nil {
				return 0
			}
			s = n
		}
	}
	m, err := coro.NewManager[uint64, uint64, uint64, uint64](global, body, coro.Config{Capacity: 1})
	if err != nil {
		b.Fatal(err)
	}
	defer m.Close()

	outcome, err := m.StartCoroutine(nil, 0)
	if err != nil {
		b.Fatal(err)
	}
	handle := outcome.Handle

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.ResumeCoroutine(handle, uint64(i)); err != nil {
			b.Fatal(err)
		}
	}
}
