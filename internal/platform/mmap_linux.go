//go:build linux

package platform

import (
	"fmt"
	"math"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Region is an anonymous private mapping. Base is the lowest address.
type Region struct {
	Base uintptr
	Size int

	mapped []byte
}

// MmapRegion maps size bytes of anonymous read-write memory. When stack is
// true the mapping carries MAP_STACK and MAP_NORESERVE, matching what thread
// libraries request for stacks. hugePageHint asks the kernel to back the
// region with transparent huge pages; it is advisory and failure is ignored.
func MmapRegion(size int, stack, hugePageHint bool) (*Region, error) {
	if size == 0 {
		panic("BUG: MmapRegion with zero length")
	}
	flags := unix.MAP_PRIVATE | unix.MAP_ANON
	if stack {
		flags |= unix.MAP_STACK | unix.MAP_NORESERVE
	}
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, flags)
	if err != nil {
		return nil, fmt.Errorf("mmap of %d bytes failed: %w", size, err)
	}
	r := &Region{Base: uintptr(unsafe.Pointer(&b[0])), Size: size, mapped: b}
	if hugePageHint {
		// Advisory; kernels without THP return EINVAL.
		_ = unix.Madvise(b, unix.MADV_HUGEPAGE)
	}
	return r, nil
}

// ProtectNone makes length bytes at offset within the region inaccessible,
// typically to install a guard page at the low end of a stack.
func (r *Region) ProtectNone(offset, length int) error {
	if offset+length > r.Size {
		panic("BUG: protect range outside mapping")
	}
	if err := unix.Mprotect(r.mapped[offset:offset+length], unix.PROT_NONE); err != nil {
		return fmt.Errorf("mprotect failed: %w", err)
	}
	return nil
}

// Bytes exposes the mapping. Accessing a protected range faults.
func (r *Region) Bytes() []byte { return r.mapped }

// Unmap releases the mapping. The region must not be used afterwards.
func (r *Region) Unmap() error {
	b := r.mapped
	r.mapped = nil
	r.Base = 0
	return unix.Munmap(b)
}

// PageSize returns the system page size.
func PageSize() int {
	return os.Getpagesize()
}

var maxStackSize uint64

// MaxStackSize returns the hard RLIMIT_STACK limit, probed once and cached.
// Monotonic Relaxed-style publication is sufficient: the probe is idempotent.
func MaxStackSize() int {
	if v := atomic.LoadUint64(&maxStackSize); v != 0 {
		return int(v)
	}
	var limit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_STACK, &limit); err != nil {
		panic(fmt.Errorf("getrlimit(RLIMIT_STACK) failed: %w", err))
	}
	v := limit.Max
	if v == unix.RLIM_INFINITY || v > math.MaxInt64 {
		v = math.MaxInt64
	}
	atomic.StoreUint64(&maxStackSize, v)
	return int(v)
}
