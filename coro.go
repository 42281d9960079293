// Package coro provides stackful coroutines for linux/amd64: cooperative
// execution on a dedicated stack, switched to and from the caller with a
// register-level context switch.
//
// A coroutine kind is described by four types — StartArguments,
// ResumeArguments, Yields and Complete — and a Body function. A Manager owns
// a fixed slab of instances of one kind; StartCoroutine transfers control to
// a fresh instance, which runs until it completes or calls Yielder.Yields.
// Suspended instances are identified by a Handle: a 64-bit token with a
// generation counter, safe to park in kernel user-data fields (epoll
// epoll_data.u64, io_uring sqe.user_data) and resolve later without risk of
// reaching a recycled slot.
//
// Each instance owns a heap arena that is swapped into the process-global
// switchable allocator while its body runs, so coroutine-internal allocations
// are quota-limited and isolated from every other coroutine.
//
// Scheduling is single-threaded and cooperative: a Manager and all of its
// instances belong to one OS thread, and control moves only at
// StartCoroutine, ResumeCoroutine, CancelCoroutine, Close and Yields.
package coro

// Body is a coroutine body. It runs on the instance's own stack, receives the
// instance's handle (with user bits zeroed) and its start arguments, and may
// suspend any number of times through the yielder before returning its final
// result.
//
// A body that has been told to die — Yields returned the kill error — must
// return without yielding again.
type Body[StartArguments, ResumeArguments, Yields, Complete any] func(
	handle Handle,
	yielder *Yielder[ResumeArguments, Yields, Complete],
	start StartArguments,
) Complete

// parentInstruction is what a suspended child observes when the parent acts:
// either resume arguments or an order to unwind.
type parentInstruction[ResumeArguments any] struct {
	kill   bool
	resume ResumeArguments
}

// childOutcome is what the parent observes after transferring control to the
// child: an intermediate yield, or completion (normal or panicked).
type childOutcome[Yields, Complete any] struct {
	completed bool
	yields    Yields
	complete  Complete
	panicked  bool
	panicVal  any
}

// Outcome reports what a start or resume switch came back with. When Yielded
// is true the instance is suspended: Yields carries the yielded value and
// Handle identifies the instance for later Resume or Cancel. Otherwise the
// instance completed and its slot has already been recycled; Complete carries
// the final value.
type Outcome[Yields, Complete any] struct {
	Yielded  bool
	Yields   Yields
	Complete Complete
	Handle   Handle
}
