//go:build amd64 && linux

package arch

import (
	"unsafe"
)

// rawstackswitch saves the current context in the 56 bytes below the stack
// pointer (the return address already on the stack doubles as the resume
// instruction pointer), parks the goroutine's registered stack bounds in
// bounds, restores peer — registers and stack bounds — then delivers (new
// snapshot, payload) through the out pointer held in peer's frame and returns
// on peer's stack.
//
// implemented in switch_amd64.s
//
//go:noescape
func rawstackswitch(peer unsafe.Pointer, payload uintptr, out *transferPair, bounds *stackBounds)

// rawstackswitchontop behaves like rawstackswitch but runs fn on the resumed
// side's stack before that side observes the transfer. fn receives the pair
// and returns the payload to deliver; it must return normally. fn follows
// bounds so that a context suspended here keeps the bounds pointer at the
// same frame offset as one suspended in rawstackswitch.
//
// implemented in switch_amd64.s
//
//go:noescape
func rawstackswitchontop(peer unsafe.Pointer, payload uintptr, out *transferPair, bounds *stackBounds, fn unsafe.Pointer)

// implemented in switch_amd64.s
func trampolinepc() uintptr

// implemented in switch_amd64.s
func terminatepc() uintptr

// implemented in switch_amd64.s
func enterpc() uintptr

// EntryPC returns the address of the shared coroutine entry point, suitable
// for passing to Initialize.
func EntryPC() uintptr { return enterpc() }

// Initialize writes the initial SavedRegisters record, its linkage area and
// its stackBounds record below stackBottom (the highest address of the stack;
// stacks grow downward) and returns the snapshot. stackLimit is the lowest
// usable address, just above any guard page; the first switch in registers
// [stackLimit, stackBottom) as the goroutine's stack. The context does not
// run until the first switch into it: the resume instruction pointer is the
// trampoline, which enters entryPC exactly as a CALL would, with the
// terminate routine as the return address should the entry function ever
// return.
//
// The caller must keep the stack alive for as long as the snapshot, or any
// snapshot descended from it, can still be switched to.
func Initialize(stackBottom, stackLimit uintptr, entryPC uintptr) *SavedRegisters {
	s := (*SavedRegisters)(unsafe.Pointer(stackBottom - savedRegistersSize - linkageSize))
	s.mxcsr = mxcsrDefault
	s.x87cw = x87cwDefault
	s.rbx = entryPC
	s.rbp = terminatepc()
	s.resumeIP = trampolinepc()

	record := (*stackBounds)(unsafe.Pointer(stackBottom - initialReserve))
	record.lo = stackLimit
	record.hi = stackBottom
	record.stackguard0 = stackLimit + stackGuard
	record.stackguard1 = stackLimit + stackGuard

	link := (*linkageArea)(unsafe.Pointer(stackBottom - linkageSize))
	link.out = (*transferPair)(unsafe.Pointer(&link.context))
	link.bounds = record
	return s
}

// enter is the shared entry point of every coroutine, reached through the
// trampoline on the first switch into a fresh stack. The first transferred
// value is always the run function; everything else, including the start
// arguments, crosses on later switches. If run returns, so does enter, and
// the trampoline's fake return address stops the thread with an undefined
// instruction.
//
//go:nosplit
func enter(context unsafe.Pointer, payload uintptr) {
	t := Transfer{context: context, payload: payload}
	run := Take[func(*Transfer)](&t)
	run(&t)
}
