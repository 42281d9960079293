package switchalloc

// Bump is a bump-pointer arena over a fixed region, typically a slot's mmap'd
// heap. Individual frees are not supported; the whole arena resets when its
// coroutine completes and the slot is recycled.
type Bump struct {
	region    []byte
	next      int
	blockSize int
}

// NewLocalAllocator builds a bump allocator over region. blockSizeHint is the
// rounding granularity for allocations; lifetime selects a coarser granule
// for long-lived arenas, which fragment less when allocations are uneven.
func NewLocalAllocator(region []byte, lifetime LifetimeHint, blockSizeHint int) *Bump {
	if blockSizeHint <= 0 {
		blockSizeHint = 64
	}
	if lifetime == LifetimeLong && blockSizeHint < 256 {
		blockSizeHint = 256
	}
	return &Bump{region: region, blockSize: blockSizeHint}
}

// Allocate implements Local.
func (b *Bump) Allocate(size int) ([]byte, error) {
	if size <= 0 {
		panic("BUG: Allocate with non-positive size")
	}
	rounded := (size + b.blockSize - 1) / b.blockSize * b.blockSize
	if b.next+rounded > len(b.region) {
		return nil, ErrArenaExhausted
	}
	out := b.region[b.next : b.next+size : b.next+rounded]
	b.next += rounded
	return out, nil
}

// Used implements Local.
func (b *Bump) Used() int { return b.next }

// Reset implements Local.
func (b *Bump) Reset() { b.next = 0 }
