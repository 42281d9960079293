package coro

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tetratelabs/coro/internal/arch"
	"github.com/tetratelabs/coro/internal/platform"
	"github.com/tetratelabs/coro/internal/slab"
	"github.com/tetratelabs/coro/internal/stacks"
	"github.com/tetratelabs/coro/switchalloc"
)

// liveManagers roots every open manager. While a coroutine runs, the
// goroutine's registered stack is the coroutine's, so the parent frames that
// reference the manager are invisible to the garbage collector; this registry
// keeps the manager — and through it the slab, slot memory and every rooted
// launch closure — reachable regardless. Managers are single-threaded but
// different managers may live on different threads, hence the lock.
var (
	liveManagersMu sync.Mutex
	liveManagers   = map[any]struct{}{}
)

func rootManager(m any) {
	liveManagersMu.Lock()
	defer liveManagersMu.Unlock()
	liveManagers[m] = struct{}{}
}

func unrootManager(m any) {
	liveManagersMu.Lock()
	defer liveManagersMu.Unlock()
	delete(liveManagers, m)
}

// Config sizes a Manager. The zero value is usable: DefaultCapacity slots of
// DefaultStackSize stack and DefaultHeapSize heap each, manager index zero,
// no logging.
type Config struct {
	// Capacity is the fixed number of instance slots, at most 1<<24.
	Capacity int

	// StackSize is the usable stack size per instance, excluding the guard
	// page.
	StackSize int

	// HeapSize is the size of each instance's local arena.
	HeapSize int

	// BlockSizeHint is the local arena's allocation granularity.
	BlockSizeHint int

	// Lifetime hints how long arena allocations live.
	Lifetime switchalloc.LifetimeHint

	// ManagerIndex is this manager's 8-bit index, embedded in every handle it
	// mints. The host assigns one per coroutine kind.
	ManagerIndex uint8

	// HugePages asks the kernel to back stacks and arenas with transparent
	// huge pages. Advisory.
	HugePages bool

	// Logger, when non-nil, receives debug-level instance lifecycle events.
	// Never consulted on the switch path itself.
	Logger logrus.FieldLogger
}

const (
	DefaultCapacity  = 64
	DefaultStackSize = 64 << 10
	DefaultHeapSize  = 64 << 10
)

func (c Config) withDefaults() Config {
	if c.Capacity == 0 {
		c.Capacity = DefaultCapacity
	}
	if c.StackSize == 0 {
		c.StackSize = DefaultStackSize
	}
	if c.HeapSize == 0 {
		c.HeapSize = DefaultHeapSize
	}
	return c
}

// Manager owns a slab of instances of one coroutine kind and the memory they
// run on. A Manager and everything it owns belong to a single OS thread.
type Manager[StartArguments, ResumeArguments, Yields, Complete any] struct {
	global switchalloc.Switchable
	body   Body[StartArguments, ResumeArguments, Yields, Complete]
	config Config

	slots    *slab.Slab[instance[StartArguments, ResumeArguments, Yields, Complete]]
	memories []coroutineMemory

	log    logrus.FieldLogger
	closed bool
}

// NewManager creates a manager for one coroutine kind, mapping every slot's
// stack and arena up front so that StartCoroutine maps no memory of its own.
func NewManager[S, R, Y, C any](
	global switchalloc.Switchable,
	body Body[S, R, Y, C],
	config Config,
) (*Manager[S, R, Y, C], error) {
	if body == nil {
		return nil, fmt.Errorf("body must not be nil")
	}
	config = config.withDefaults()

	slots, err := slab.New[instance[S, R, Y, C]](config.Capacity)
	if err != nil {
		return nil, err
	}

	m := &Manager[S, R, Y, C]{
		global: global,
		body:   body,
		config: config,
		slots:  slots,
		log:    config.Logger,
	}

	// Slot memory is mapped with the routing tag pinned to the global path:
	// setup must not bill a coroutine arena that happens to be installed.
	var memErr error
	global.CallbackWithThreadLocalAllocator(func() {
		m.memories, memErr = mapSlotMemory(config)
	})
	if memErr != nil {
		return nil, memErr
	}
	rootManager(m)
	return m, nil
}

func mapSlotMemory(config Config) ([]coroutineMemory, error) {
	memories := make([]coroutineMemory, config.Capacity)
	for i := range memories {
		stack, err := stacks.AllocateProtected(config.StackSize, config.HugePages)
		if err != nil {
			freeSlotMemory(memories)
			return nil, fmt.Errorf("slot %d stack: %w", i, err)
		}
		memories[i].stack = stack

		heap, err := platform.MmapRegion(config.HeapSize, false, config.HugePages)
		if err != nil {
			freeSlotMemory(memories)
			return nil, fmt.Errorf("slot %d heap: %w", i, err)
		}
		memories[i].heap = heap
	}
	return memories, nil
}

func freeSlotMemory(memories []coroutineMemory) {
	for i := range memories {
		memories[i].free()
	}
}

// ManagerIndex returns the 8-bit index embedded in this manager's handles.
func (m *Manager[S, R, Y, C]) ManagerIndex() uint8 { return m.config.ManagerIndex }

// StartCoroutine allocates a slot, transfers control to a new instance of the
// body and runs it until it first yields or completes. info is arbitrary host
// data retrievable through Info while the instance lives.
//
// ErrAllocationFailed is returned, with no side effects, when the slab is
// full. If the body panics, the slot is freed and the panic is re-raised
// here.
func (m *Manager[S, R, Y, C]) StartCoroutine(info any, start S) (Outcome[Y, C], error) {
	if m.closed {
		return Outcome[Y, C]{}, ErrManagerClosed
	}
	inst, index, generation, ok := m.slots.Acquire()
	if !ok {
		return Outcome[Y, C]{}, ErrAllocationFailed
	}

	memory := &m.memories[index]
	inst.transfer = arch.NewTransfer(memory.stack.Bottom(), memory.stack.Limit(), arch.EntryPC())
	inst.local = switchalloc.NewLocalAllocator(memory.heap.Bytes(), m.config.Lifetime, m.config.BlockSizeHint)
	inst.inUse = switchalloc.CoroutineLocal
	inst.info = info

	// Handles are delivered into the child with user bits zero.
	handle := newHandle(m.config.ManagerIndex, generation, index)

	m.debug(handle, "starting coroutine")

	// The slot roots the launch closure: the child's stack is not scanned
	// while it is suspended, so the closure (and everything it captures) must
	// stay reachable from here until the slot is recycled.
	launch := run(m.body, handle, start)
	inst.keep = launch

	inst.preSwitch(m.global)
	outcome := arch.ResumeMoving[childOutcome[Y, C], func(*arch.Transfer)](
		&inst.transfer, launch)
	inst.postSwitch(m.global)

	return m.processOutcome(handle, inst, outcome)
}

// ResumeCoroutine transfers control back to the suspended instance handle
// refers to, delivering args as the result of its pending Yields. Stale
// handles return ErrStaleHandle and do nothing; this is the expected path for
// kernel tokens that outlived their coroutine.
func (m *Manager[S, R, Y, C]) ResumeCoroutine(handle Handle, args R) (Outcome[Y, C], error) {
	inst, err := m.resolve(handle)
	if err != nil {
		return Outcome[Y, C]{}, err
	}

	inst.preSwitch(m.global)
	outcome := arch.Typed[childOutcome[Y, C], parentInstruction[R]](&inst.transfer).
		Resume(parentInstruction[R]{resume: args})
	inst.postSwitch(m.global)

	return m.processOutcome(handle, inst, outcome)
}

// CancelCoroutine kills the suspended instance handle refers to: its pending
// Yields returns the kill error, its cleanup runs on its own stack with its
// own arena installed, and the slot is then recycled. Stale handles return
// ErrStaleHandle and do nothing.
//
// A child that has been told to die and yields again anyway violates the
// protocol; that panic is unrecoverable by design.
func (m *Manager[S, R, Y, C]) CancelCoroutine(handle Handle) error {
	inst, err := m.resolve(handle)
	if err != nil {
		return err
	}
	m.debug(handle, "cancelling coroutine")
	m.kill(handle, inst)
	return nil
}

// Info returns the host data attached to a live instance.
func (m *Manager[S, R, Y, C]) Info(handle Handle) (any, error) {
	inst, err := m.resolve(handle)
	if err != nil {
		return nil, err
	}
	return inst.info, nil
}

// Close kills every suspended instance, in slot order, then releases all slot
// memory. The manager is unusable afterwards. If a child panics while being
// killed, the panic is re-raised after the remaining instances have been
// killed and the memory released.
func (m *Manager[S, R, Y, C]) Close() {
	if m.closed {
		return
	}
	m.closed = true

	var indexes []uint32
	m.slots.Range(func(index uint32, _ *instance[S, R, Y, C]) bool {
		indexes = append(indexes, index)
		return true
	})

	var firstPanic any
	for _, index := range indexes {
		inst, ok := m.slots.Resolve(index, m.slots.Generation(index))
		if !ok {
			continue
		}
		handle := newHandle(m.config.ManagerIndex, m.slots.Generation(index), index)
		func() {
			defer func() {
				if p := recover(); p != nil && firstPanic == nil {
					firstPanic = p
				}
			}()
			m.kill(handle, inst)
		}()
	}

	freeSlotMemory(m.memories)
	m.memories = nil
	unrootManager(m)

	if firstPanic != nil {
		panic(firstPanic)
	}
}

func (m *Manager[S, R, Y, C]) resolve(handle Handle) (*instance[S, R, Y, C], error) {
	if m.closed {
		return nil, ErrManagerClosed
	}
	if !handle.IsForACoroutine() || handle.ManagerIndex() != m.config.ManagerIndex {
		return nil, ErrWrongManager
	}
	inst, ok := m.slots.Resolve(handle.Index(), handle.Generation())
	if !ok {
		return nil, ErrStaleHandle
	}
	if !inst.childActive {
		panic("resumed a coroutine that has not yielded")
	}
	return inst, nil
}

// kill sends Kill and expects completion; the child must not yield again.
func (m *Manager[S, R, Y, C]) kill(handle Handle, inst *instance[S, R, Y, C]) {
	inst.preSwitch(m.global)
	outcome := arch.Typed[childOutcome[Y, C], parentInstruction[R]](&inst.transfer).
		Resume(parentInstruction[R]{kill: true})
	inst.postSwitch(m.global)

	if !outcome.completed {
		panic("a killed coroutine must not yield again")
	}
	m.free(handle)
	if outcome.panicked {
		panic(outcome.panicVal)
	}
}

// processOutcome turns the child's answer into the parent-visible outcome.
// Completion frees the slot first, so a panicking body leaves its slot
// immediately reusable.
func (m *Manager[S, R, Y, C]) processOutcome(
	handle Handle,
	inst *instance[S, R, Y, C],
	outcome childOutcome[Y, C],
) (Outcome[Y, C], error) {
	if !outcome.completed {
		inst.childActive = true
		return Outcome[Y, C]{Yielded: true, Yields: outcome.yields, Handle: handle}, nil
	}

	m.free(handle)
	if outcome.panicked {
		panic(outcome.panicVal)
	}
	m.debug(handle, "coroutine completed")
	return Outcome[Y, C]{Complete: outcome.complete}, nil
}

// free recycles the slot and bumps its generation, so every handle minted for
// this occupant stops resolving.
func (m *Manager[S, R, Y, C]) free(handle Handle) {
	m.slots.Release(handle.Index())
}

func (m *Manager[S, R, Y, C]) debug(handle Handle, msg string) {
	if m.log == nil {
		return
	}
	m.log.WithFields(logrus.Fields{
		"manager":    handle.ManagerIndex(),
		"slot":       handle.Index(),
		"generation": handle.Generation(),
	}).Debug(msg)
}
