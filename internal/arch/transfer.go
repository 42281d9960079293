package arch

import (
	"runtime"
	"unsafe"
)

// Transfer is the one-shot envelope carrying a pointer-sized payload across a
// context switch. Resuming overwrites the envelope in place with the pair that
// arrives when this side is next switched back in.
//
// The payload convention of the typed layer is that the payload is always the
// address of a one-shot slot on the sender's stack frame; prefer TypedTransfer
// and the moving helpers over raw payloads.
//
// A Transfer must not be copied or moved while its side is suspended: the
// suspended frame holds the address of the bounds record below.
type Transfer struct {
	// context is the peer's SavedRegisters snapshot. It is only valid to
	// resume while the peer remains suspended.
	context unsafe.Pointer
	payload uintptr

	// bounds parks the goroutine's registered stack bounds while this side is
	// suspended; the switch back in reinstalls them.
	bounds stackBounds
}

// OnTopFunc runs on the resumed side's stack before that side observes the
// transfer. It receives the freshly saved snapshot of the suspending side and
// the payload, and returns the payload to deliver. It must return normally.
type OnTopFunc func(context unsafe.Pointer, payload uintptr) uintptr

// NewTransfer prepares a context that will execute the function at entryPC on
// the stack spanning [stackLimit, stackBottom), stackBottom being the highest
// address. Execution does not begin until the first Resume.
func NewTransfer(stackBottom, stackLimit uintptr, entryPC uintptr) Transfer {
	return Transfer{context: unsafe.Pointer(Initialize(stackBottom, stackLimit, entryPC))}
}

// Resume transfers control and payload to the peer. It returns when something
// resumes this side in turn, with the envelope holding the new peer snapshot
// and the incoming payload.
func (t *Transfer) Resume(payload uintptr) {
	var out transferPair
	rawstackswitch(t.context, payload, &out, &t.bounds)
	t.context = out.context
	t.payload = out.payload
}

// ResumeOnTop is Resume with fn executed on the peer's stack before the peer
// observes the transfer. Advanced clients only; see OnTopFunc.
func (t *Transfer) ResumeOnTop(payload uintptr, fn OnTopFunc) {
	var out transferPair
	rawstackswitchontop(t.context, payload, &out, &t.bounds, *(*unsafe.Pointer)(unsafe.Pointer(&fn)))
	t.context = out.context
	t.payload = out.payload
	runtime.KeepAlive(fn)
}

// Data returns the payload delivered by the switch that last resumed this
// side.
func (t *Transfer) Data() uintptr {
	return t.payload
}

// slot is the one-shot container a moved value crosses stacks in. It lives on
// the sender's frame, which stays valid exactly until the sender is next
// resumed, by which point the receiver has taken the value.
type slot[T any] struct {
	value T
	full  bool
}

// ResumeMoving writes v into a one-shot slot on this frame, resumes the peer
// with the slot's address, and takes the value the peer eventually sends
// back. The value is observed by exactly one stack: the receiver's.
func ResumeMoving[Receive, Sent any](t *Transfer, v Sent) Receive {
	s := slot[Sent]{value: v, full: true}
	t.Resume(uintptr(unsafe.Pointer(&s)))
	r := Take[Receive](t)
	runtime.KeepAlive(&s)
	return r
}

// ResumeMovingOnTop is ResumeMoving with fn run on the peer's stack first.
func ResumeMovingOnTop[Receive, Sent any](t *Transfer, v Sent, fn OnTopFunc) Receive {
	s := slot[Sent]{value: v, full: true}
	t.ResumeOnTop(uintptr(unsafe.Pointer(&s)), fn)
	r := Take[Receive](t)
	runtime.KeepAlive(&s)
	return r
}

// Take moves the transferred value out of the sender's slot. The sender's
// stack is still suspended, so the slot is still valid. Taking twice in one
// resumption panics.
func Take[T any](t *Transfer) T {
	p := (*slot[T])(unsafe.Pointer(t.payload))
	if !p.full {
		panic("transferred value can only be taken once per resumption")
	}
	p.full = false
	v := p.value
	var zero T
	p.value = zero
	return v
}

// TypedTransfer wraps a Transfer so that each direction of the conversation
// has a fixed type: values of type Sent leave this side, values of type
// Receive arrive.
type TypedTransfer[Receive, Sent any] struct {
	raw *Transfer
}

// Typed wraps t. Both sides of a switch may hold independent typed views of
// their own Transfer with the type parameters swapped.
func Typed[Receive, Sent any](t *Transfer) TypedTransfer[Receive, Sent] {
	return TypedTransfer[Receive, Sent]{raw: t}
}

// Resume sends v to the peer and returns the value the peer answers with.
func (t TypedTransfer[Receive, Sent]) Resume(v Sent) Receive {
	return ResumeMoving[Receive, Sent](t.raw, v)
}

// ResumeOnTop is Resume with fn run on the peer's stack first.
func (t TypedTransfer[Receive, Sent]) ResumeOnTop(v Sent, fn OnTopFunc) Receive {
	return ResumeMovingOnTop[Receive, Sent](t.raw, v, fn)
}
