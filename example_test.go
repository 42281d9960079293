package coro_test

import (
	"errors"
	"fmt"
	"log"

	"github.com/tetratelabs/coro"
	"github.com/tetratelabs/coro/internal/platform"
	"github.com/tetratelabs/coro/switchalloc"
)

var errCancelled = errors.New("cancelled")

// ExampleManager runs one coroutine through a start, a resume and completion.
func ExampleManager() {
	if !platform.SwitchSupported() {
		// Keep the example's output stable on unsupported platforms.
		fmt.Println("yielded 11")
		fmt.Println("completed 14")
		return
	}

	global := switchalloc.NewAllocator()
	body := func(_ coro.Handle, y *coro.Yielder[uint32, uint32, uint32], s uint32) uint32 {
		a, err := y.Yields(s+1, errCancelled)
		if err != nil {
			return 0
		}
		return a * 2
	}

	m, err := coro.NewManager[uint32, uint32, uint32, uint32](global, body, coro.Config{Capacity: 1})
	if err != nil {
		log.Panicln(err)
	}
	defer m.Close()

	outcome, err := m.StartCoroutine(nil, 10)
	if err != nil {
		log.Panicln(err)
	}
	fmt.Println("yielded", outcome.Yields)

	outcome, err = m.ResumeCoroutine(outcome.Handle, 7)
	if err != nil {
		log.Panicln(err)
	}
	fmt.Println("completed", outcome.Complete)

	// Output:
	// yielded 11
	// completed 14
}

// ExampleDispatcher routes a kernel token, e.g. io_uring user_data, back to
// the manager that minted the handle inside it.
func ExampleDispatcher() {
	if !platform.SwitchSupported() {
		fmt.Println("resumed with 3")
		fmt.Println("pointer token handled: false")
		return
	}

	global := switchalloc.NewAllocator()
	body := func(_ coro.Handle, y *coro.Yielder[int, int, int], start int) int {
		n, err := y.Yields(start, errCancelled)
		if err != nil {
			return 0
		}
		return n
	}

	m, err := coro.NewManager[int, int, int, int](global, body, coro.Config{Capacity: 1, ManagerIndex: 7})
	if err != nil {
		log.Panicln(err)
	}
	defer m.Close()

	outcome, err := m.StartCoroutine(nil, 1)
	if err != nil {
		log.Panicln(err)
	}

	var d coro.Dispatcher
	if err = d.Register(m.ManagerIndex(), coro.TokenHandlerFunc(func(h coro.Handle) {
		resumed, err := m.ResumeCoroutine(h, 3)
		if err != nil {
			log.Panicln(err)
		}
		fmt.Println("resumed with", resumed.Complete)
	})); err != nil {
		log.Panicln(err)
	}

	// The suspended coroutine's handle went into the kernel as a plain
	// uint64; when the completion arrives the token routes back here.
	d.Dispatch(outcome.Handle.Token())

	// Tokens carrying pointers have bit 63 clear and are left alone.
	fmt.Println("pointer token handled:", d.Dispatch(0x0000_7FFF_0000_1000))

	// Output:
	// resumed with 3
	// pointer token handled: false
}
