// Package switchalloc binds each coroutine to its own heap arena. The
// switchable allocator holds the local allocator currently in force and a tag
// saying where allocations route; entering a coroutine swaps
// its arena in, leaving swaps it back out. A coroutine can therefore never
// allocate from another coroutine's arena: only the active slot's allocator is
// ever installed.
package switchalloc

import (
	"errors"
	"fmt"
)

// Tag says which pool allocations route to.
type Tag uint8

const (
	// Global routes allocations to the process-wide path.
	Global Tag = iota
	// CoroutineLocal routes allocations to the installed local arena.
	CoroutineLocal
)

func (t Tag) String() string {
	switch t {
	case Global:
		return "global"
	case CoroutineLocal:
		return "coroutine-local"
	default:
		return fmt.Sprintf("tag(%d)", uint8(t))
	}
}

// ErrArenaExhausted is returned when a local arena has no free block left.
// The arena is quota-limited on purpose: a coroutine's allocations must never
// spill into memory it does not own.
var ErrArenaExhausted = errors.New("coroutine-local arena exhausted")

// LifetimeHint describes how long allocations from a local allocator are
// expected to live; implementations may use it to pick a rounding strategy.
type LifetimeHint uint8

const (
	LifetimeShort LifetimeHint = iota
	LifetimeMedium
	LifetimeLong
)

// Local is a coroutine-local heap arena. It is only ever used from the one
// thread its coroutine runs on.
type Local interface {
	// Allocate returns size bytes from the arena, or ErrArenaExhausted.
	Allocate(size int) ([]byte, error)

	// Used returns the bytes consumed so far, including rounding.
	Used() int

	// Reset forgets all allocations, returning the arena to empty.
	Reset()
}

// Switchable is the narrow contract the coroutine runtime needs from the
// process-global allocator. All three operations act on the calling thread's
// slot only.
type Switchable interface {
	// ReplaceCoroutineLocalAllocator swaps the slot holding the local
	// allocator currently in force and returns the previous occupant (which
	// may be nil). Crossings always swap, never read-then-write, so the slot
	// and the instance can never both be empty.
	ReplaceCoroutineLocalAllocator(next Local) Local

	// ReplaceCurrentAllocatorInUse swaps the routing tag, returning the
	// previous one.
	ReplaceCurrentAllocatorInUse(next Tag) Tag

	// CallbackWithThreadLocalAllocator runs f with the tag pinned to Global,
	// restoring the previous tag afterwards. Used while setting up slabs and
	// warehouses from within coroutine-adjacent code.
	CallbackWithThreadLocalAllocator(f func())
}

// Allocator is the process-global switchable allocator. The zero value routes
// everything to the global path. It holds a single local-allocator slot and a
// single tag, with no per-thread state, and is not safe for concurrent use.
type Allocator struct {
	local Local
	inUse Tag
}

// NewAllocator returns an allocator with no local arena installed.
func NewAllocator() *Allocator { return &Allocator{} }

// ReplaceCoroutineLocalAllocator implements Switchable.
func (a *Allocator) ReplaceCoroutineLocalAllocator(next Local) Local {
	prev := a.local
	a.local = next
	return prev
}

// ReplaceCurrentAllocatorInUse implements Switchable.
func (a *Allocator) ReplaceCurrentAllocatorInUse(next Tag) Tag {
	prev := a.inUse
	a.inUse = next
	return prev
}

// CallbackWithThreadLocalAllocator implements Switchable.
func (a *Allocator) CallbackWithThreadLocalAllocator(f func()) {
	prev := a.ReplaceCurrentAllocatorInUse(Global)
	defer a.ReplaceCurrentAllocatorInUse(prev)
	f()
}

// CurrentAllocatorInUse returns the routing tag currently in force.
func (a *Allocator) CurrentAllocatorInUse() Tag { return a.inUse }

// Allocate routes to the installed local arena when the tag says so, and to
// the global path (the Go heap) otherwise.
func (a *Allocator) Allocate(size int) ([]byte, error) {
	if a.inUse == CoroutineLocal && a.local != nil {
		return a.local.Allocate(size)
	}
	return make([]byte, size), nil
}
