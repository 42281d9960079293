// Package stacks provides the memory a coroutine executes on.
//
// Stack organisation on x86-64 (and nearly all modern CPUs):
//
//   - the bottom (origin) of the stack is the *highest* address;
//   - the stack grows downward, toward lower addresses;
//   - pushing subtracts from the stack pointer, popping adds to it.
//
// A guard page, when present, sits below the lowest usable address and is
// protected PROT_NONE so that overflow faults instead of corrupting adjacent
// memory.
package stacks

// Stack is an owned region of memory a context executes on.
type Stack interface {
	// Bottom returns the highest address of the usable region. It must be
	// 16-byte aligned.
	Bottom() uintptr

	// Limit returns the lowest usable address, just above any guard page.
	// The switch registers [Limit, Bottom) as the goroutine's stack while a
	// context executes here.
	Limit() uintptr

	// Size returns the usable size in bytes, excluding any guard page.
	Size() int

	// Free releases the region. No snapshot pointing into the stack may be
	// resumed afterwards.
	Free() error
}
