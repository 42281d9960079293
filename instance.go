package coro

import (
	"github.com/tetratelabs/coro/internal/arch"
	"github.com/tetratelabs/coro/internal/platform"
	"github.com/tetratelabs/coro/internal/stacks"
	"github.com/tetratelabs/coro/switchalloc"
)

// coroutineMemory is the per-slot memory that outlives occupants: the stack
// the child executes on and the region its local arena hands out. Both are
// mapped once, when the manager is created, and recycled with the slot.
type coroutineMemory struct {
	stack *stacks.ProtectedStack
	heap  *platform.Region
}

func (m *coroutineMemory) free() {
	if m.stack != nil {
		_ = m.stack.Free()
		m.stack = nil
	}
	if m.heap != nil {
		_ = m.heap.Unmap()
		m.heap = nil
	}
}

// instance is the per-occupant state of one slot. It is zeroed when the slot
// is released; the slot's generation bump is what invalidates old handles.
type instance[StartArguments, ResumeArguments, Yields, Complete any] struct {
	transfer arch.Transfer

	// local is the inactive coroutine-local allocator. It is present exactly
	// while control is in the parent; each crossing swaps it with the
	// process-global allocator's slot.
	local switchalloc.Local

	// inUse is the routing tag to install on the next crossing. Starts as
	// CoroutineLocal so the child's first activation routes to its arena.
	inUse switchalloc.Tag

	// childActive is true while the child is suspended at a yield point.
	childActive bool

	// info is host data attached at StartCoroutine, alive as long as the
	// instance.
	info any

	// keep roots the run closure (and through it the body, handle and start
	// arguments) in GC-visible memory for the instance's whole lifetime.
	// While the parent executes, the child's suspended frames are outside the
	// goroutine's registered stack and are not scanned, so anything the child
	// must be able to reach again has to stay reachable from the slab.
	keep any
}

// preSwitch installs the instance's allocator state into the process-global
// slot. Both fields are swapped, never read-then-written, so the slot and the
// instance can never both be empty.
func (i *instance[S, R, Y, C]) preSwitch(global switchalloc.Switchable) {
	i.local = global.ReplaceCoroutineLocalAllocator(i.local)
	i.inUse = global.ReplaceCurrentAllocatorInUse(i.inUse)
}

// postSwitch is the inverse exchange, performed as soon as control returns to
// the parent.
func (i *instance[S, R, Y, C]) postSwitch(global switchalloc.Switchable) {
	i.inUse = global.ReplaceCurrentAllocatorInUse(i.inUse)
	i.local = global.ReplaceCoroutineLocalAllocator(i.local)
}

// run builds the closure executed on the coroutine's stack. It is the only
// value carried by the very first switch; the typed conversation starts with
// the child's first answer.
func run[S, R, Y, C any](body Body[S, R, Y, C], handle Handle, start S) func(*arch.Transfer) {
	return func(t *arch.Transfer) {
		yielder := &Yielder[R, Y, C]{
			transfer: arch.Typed[parentInstruction[R], childOutcome[Y, C]](t),
		}

		outcome := childOutcome[Y, C]{completed: true}
		func() {
			defer func() {
				if p := recover(); p != nil {
					outcome.panicked = true
					outcome.panicVal = p
				}
			}()
			outcome.complete = body(handle, yielder, start)
		}()

		// The parent frees the slot on seeing a completion, so this is the
		// last time the child's stack is ever observed.
		arch.ResumeMoving[struct{}, childOutcome[Y, C]](t, outcome)
	}
}
