package arena

import "unsafe"

const (
	pageSizeLog = 12
	pageSize    = 1 << pageSizeLog
)

// bigBlockMarker flags a chunk header as belonging to the big-block tier
// rather than the regular block tier. It is chosen so it can never collide
// with a realistic mmap page count (marker holds the page count for the
// mmap tier).
const bigBlockMarker uint32 = 0xFFFFFFFC

func bytesToPages(n int) int {
	return (n + pageSize - 1) >> pageSizeLog
}

// chunkOf recovers the self-aligned chunk base address that owns p, using
// the bitmask trick that is this allocator's central invariant: every
// chunk is allocated at an address aligned to its own size, so masking off
// the low chunkSizeLog bits of any pointer inside it yields the chunk
// base in O(1), with no header lookup and no lock.
func chunkOf(p unsafe.Pointer, chunkSizeLog int) unsafe.Pointer {
	mask := ^(uintptr(1)<<uint(chunkSizeLog) - 1)
	return unsafe.Pointer(uintptr(p) & mask)
}

// chunk2ptr computes the address of unit `offset` inside block `block` of
// chunk c.
func chunk2ptr(c unsafe.Pointer, block, offset int, l layout) unsafe.Pointer {
	return unsafe.Pointer(uintptr(c) + l.headerSize +
		uintptr(block)*uintptr(l.blockSize) +
		(uintptr(offset) << uint(l.alignLog)))
}

// ptr2index recovers the block index owning p within chunk c.
func ptr2index(c, p unsafe.Pointer, l layout) int {
	off := uintptr(p) - uintptr(c) - l.headerSize
	return int(off / uintptr(l.blockSize))
}

// big2ptr computes the address of unit `offset` inside a big block.
func big2ptr(b unsafe.Pointer, offset int, l layout) unsafe.Pointer {
	return unsafe.Pointer(uintptr(b) + l.bigBlockHeaderSize + (uintptr(offset) << uint(l.alignLog)))
}
