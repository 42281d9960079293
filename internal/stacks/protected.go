package stacks

import (
	"github.com/tetratelabs/coro/internal/platform"
)

// ProtectedStack is an anonymously mapped stack with a single guard page at
// its low end. This is the production stack implementation.
type ProtectedStack struct {
	region *Region
}

// Region is an alias kept small so tests can reach the mapping.
type Region = platform.Region

// AllocateProtected maps a stack of at least size usable bytes plus one guard
// page. The total is rounded up to the page size and clamped to the hard
// RLIMIT_STACK maximum.
func AllocateProtected(size int, hugePageHint bool) (*ProtectedStack, error) {
	pageSize := platform.PageSize()
	total := roundUpToPageSize(size, pageSize) + pageSize
	if max := platform.MaxStackSize(); total > max {
		total = max
	}

	region, err := platform.MmapRegion(total, true, hugePageHint)
	if err != nil {
		return nil, err
	}
	// Guard page at the low end: the stack grows down toward it.
	if err = region.ProtectNone(0, pageSize); err != nil {
		_ = region.Unmap()
		return nil, err
	}
	return &ProtectedStack{region: region}, nil
}

// Bottom returns the highest address of the mapping; page alignment of the
// mapping makes it 16-byte aligned.
func (s *ProtectedStack) Bottom() uintptr {
	return s.region.Base + uintptr(s.region.Size)
}

// Limit returns the lowest usable address, just above the guard page.
func (s *ProtectedStack) Limit() uintptr {
	return s.region.Base + uintptr(platform.PageSize())
}

// Size returns the usable size, excluding the guard page.
func (s *ProtectedStack) Size() int {
	return s.region.Size - platform.PageSize()
}

// Free unmaps the stack, including its guard page.
func (s *ProtectedStack) Free() error {
	return s.region.Unmap()
}

func roundUpToPageSize(size, pageSize int) int {
	return (size + pageSize - 1) &^ (pageSize - 1)
}
