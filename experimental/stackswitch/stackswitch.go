// Package stackswitch exposes the raw context-switch building block for
// clients that want something other than coroutines, for example fibres.
//
// Note: this API is experimental: it may change or move under the root
// package in a future release. Most users want the coro package, whose typed
// protocol and lifecycle management sit on top of the same primitive.
package stackswitch

import (
	"github.com/tetratelabs/coro/internal/arch"
	"github.com/tetratelabs/coro/internal/stacks"
)

// Entry runs on the context's own stack, receiving the payload of the switch
// that started it. It must never return: it ends by switching away for the
// last time, after which the context must not be switched to again. An entry
// that returns stops the thread with an undefined instruction.
type Entry func(c *Context, payload uintptr)

// Context is one side of a symmetric pair of execution contexts. The side
// created by New owns a dedicated stack; the creating side is represented by
// the Context handed to Entry.
type Context struct {
	transfer *arch.Transfer
	own      arch.Transfer
	stack    *stacks.ProtectedStack
	entry    Entry
	started  bool
}

// New prepares a context that will run entry on a fresh protected stack of at
// least stackSize bytes. entry does not run until the first Switch.
func New(stackSize int, entry Entry) (*Context, error) {
	stack, err := stacks.AllocateProtected(stackSize, false)
	if err != nil {
		return nil, err
	}
	c := &Context{stack: stack, entry: entry}
	c.own = arch.NewTransfer(stack.Bottom(), stack.Limit(), arch.EntryPC())
	c.transfer = &c.own
	return c, nil
}

// Switch transfers control and payload to the peer, returning the payload of
// the switch that eventually transfers control back. The first Switch on a
// fresh context starts its entry function.
func (c *Context) Switch(payload uintptr) uintptr {
	if !c.started {
		c.started = true
		entry := c.entry
		return arch.ResumeMoving[uintptr, func(*arch.Transfer)](c.transfer, func(t *arch.Transfer) {
			entry(&Context{transfer: t, started: true}, payload)
		})
	}
	return arch.ResumeMoving[uintptr, uintptr](c.transfer, payload)
}

// Free releases the context's stack. Only the creating side may call it, and
// only once the context will never be switched to again.
func (c *Context) Free() error {
	if c.stack == nil {
		return nil
	}
	stack := c.stack
	c.stack = nil
	return stack.Free()
}
