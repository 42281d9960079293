package coro

import "github.com/tetratelabs/coro/internal/arch"

// Yielder is the child-side handle a coroutine body suspends through. It is
// only valid on the coroutine's own stack, for the lifetime of the body call.
type Yielder[ResumeArguments, Yields, Complete any] struct {
	transfer arch.TypedTransfer[parentInstruction[ResumeArguments], childOutcome[Yields, Complete]]
}

// Yields suspends the coroutine and surfaces v to the parent as
// WouldLikeToResume. It returns when the parent next acts on the instance:
// (arguments, nil) if the parent resumed, (zero, killErr) if the parent
// cancelled or dropped it.
//
// After observing killErr the body must unwind and return without yielding
// again; a further yield is a fatal protocol violation.
func (y *Yielder[ResumeArguments, Yields, Complete]) Yields(v Yields, killErr error) (ResumeArguments, error) {
	instruction := y.transfer.Resume(childOutcome[Yields, Complete]{yields: v})
	if instruction.kill {
		var zero ResumeArguments
		return zero, killErr
	}
	return instruction.resume, nil
}
