// Package arch implements the architecture-specific context switch between an
// executor and a coroutine running on its own stack, together with the transfer
// envelope that carries a pointer-sized payload across each switch.
//
// Only linux/amd64 with the System V ABI is implemented; other platforms
// compile but panic at use.
package arch

import "unsafe"

// transferPair is written by rawstackswitch through the suspended side's out
// pointer when that side is switched back in.
type transferPair struct {
	context unsafe.Pointer
	payload uintptr
}

// stackBounds mirrors the first four words of the runtime's g: stack.lo,
// stack.hi, stackguard0 and stackguard1. Those offsets are fixed by the
// compiler's stack-split prologue, which reads stackguard0 at g+16 on every
// non-nosplit call, so they are as stable as the switch itself.
//
// The switch saves the suspending side's words here and installs the resumed
// side's, so the prologue, the garbage collector's stack scanner and the
// preemption path always see bounds describing the stack the goroutine is
// physically executing on. See "Running Go code on a foreign stack" in
// DESIGN.md for what this does and does not buy.
type stackBounds struct {
	lo          uintptr
	hi          uintptr
	stackguard0 uintptr
	stackguard1 uintptr
}

// linkageArea mimics the argument frame of a suspended rawstackswitch call.
// Initialize places one directly above the initial snapshot so the first
// switch into a fresh context needs no special casing.
type linkageArea struct {
	context unsafe.Pointer
	payload uintptr
	out     *transferPair
	bounds  *stackBounds
}

// NOTE: The offsets of the struct fields defined here are referenced from
// assembly using the constants below. If changing this struct, update the
// constants and associated tests as needed.

// SavedRegisters is the snapshot of callee-saved machine state stored at the
// top of the used stack of an inactive context. It occupies 64 bytes and the
// initial snapshot written by Initialize is 16-byte aligned.
//
// The resume instruction pointer must be the last field: it overlaps the
// stack's natural return-address slot, which is why rawstackswitch reserves
// only 56 bytes below the stack pointer rather than the full 64.
type SavedRegisters struct {
	// mxcsr is restored into the SSE control and status register. The reset
	// default 0x1F80 is the only immediate guaranteed not to fault on load.
	mxcsr uint32
	// x87cw is restored into the x87 FPU control word; 0x037F is the value
	// established by FINIT.
	x87cw uint16
	_     uint16
	// rbx holds the entry function address until the first switch.
	rbx uintptr
	// rbp holds the terminate routine address until the first switch.
	rbp uintptr
	r12 uintptr
	r13 uintptr
	r14 uintptr
	r15 uintptr
	// resumeIP holds the trampoline address until the first switch, and the
	// suspended caller's return address afterwards.
	resumeIP uintptr
}

const (
	offMXCSR    = 0
	offX87CW    = 4
	offRBX      = 8
	offRBP      = 16
	offR12      = 24
	offR13      = 32
	offR14      = 40
	offR15      = 48
	offResumeIP = 56

	savedRegistersSize = 64

	mxcsrDefault = 0x00001F80
	x87cwDefault = 0x037F

	// linkageSize is the area reserved above the initial snapshot so that the
	// very first switch into a context finds the same frame shape as a context
	// suspended inside rawstackswitch: two scratch words for the incoming
	// transfer pair, the out pointer aimed at them, and the pointer to the
	// context's stackBounds record.
	linkageSize = 32

	// offLinkageOut is the offset, from the snapshot, of the out pointer slot.
	// rawstackswitch reads it as 80(DI); it coincides with the third argument
	// of a suspended rawstackswitch call.
	offLinkageOut = savedRegistersSize + 16

	// offLinkageBounds is the offset, from the snapshot, of the stackBounds
	// pointer slot. rawstackswitch reads it as 88(DI); it coincides with the
	// fourth argument of a suspended rawstackswitch call.
	offLinkageBounds = savedRegistersSize + 24

	// boundsRecordSize is the stackBounds record Initialize places below the
	// initial snapshot, holding the fresh stack's own bounds until the first
	// suspension overwrites the Transfer-side record instead.
	boundsRecordSize = 32

	// stackGuard matches the runtime's nosplit reserve: stackguard0 sits this
	// far above the lowest usable address, so the split prologue faults into
	// runtime.morestack just before the guard page would be hit.
	stackGuard = 928

	initialReserve = boundsRecordSize + savedRegistersSize + linkageSize
)
