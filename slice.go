package arena

import (
	"sync/atomic"
	"unsafe"
)

// sliceNew carves bytes-worth of units out of the calling goroutine's
// current arena block, replacing the block once it's full. When
// isRealloc is the pointer being grown and it happens to be the very
// last thing bump-allocated out of the current block, and the block
// still has room for the new size, the bump cursor is simply extended
// in place instead of copying — the "lucky realloc" path. Losing that luck (e.g. because the goroutine migrated to a
// different arena since its last allocation) only costs a copy, never
// correctness.
func (p *Pool) sliceNew(bytes int, isRealloc unsafe.Pointer) (unsafe.Pointer, error) {
	units := int32((bytes + p.layout.alignSize - 1) >> uint(p.layout.alignLog))

	a, idx := p.arenaAcquire()
	lastPos := int32(-1)
	if a.block == nil {
		blk, err := p.blockAlloc()
		if err != nil {
			p.arenaRelease(idx)
			return nil, err
		}
		a.block = blk
	} else if isRealloc != nil {
		lastPos = a.lastPos
	}

	for {
		block := a.block
		c := chunkOf(block, p.layout.chunkSizeLog)
		h := (*chunkHeader)(c)
		b := ptr2index(c, block, p.layout)

		if atomic.AddInt32(&h.blocks[b].ref, 1) == 2 && atomic.LoadInt32(&h.blocks[b].pos) != 0 {
			p.resetBlockMemory(c, b)
		}

		if lastPos >= 0 && int(lastPos)+int(units) < p.layout.unitsPerBlock &&
			isRealloc == chunk2ptr(c, b, int(lastPos), p.layout) {
			atomic.StoreInt32(&h.blocks[b].pos, units+lastPos)
			atomic.AddInt32(&h.blocks[b].ref, -1)
			p.arenaRelease(idx)
			return isRealloc, nil
		}

		pos := atomic.LoadInt32(&h.blocks[b].pos)
		if int(pos)+int(units) < p.layout.unitsPerBlock {
			ptr := chunk2ptr(c, b, int(pos), p.layout)
			a.lastPos = pos
			atomic.StoreInt32(&h.blocks[b].pos, pos+units)
			p.arenaRelease(idx)
			return ptr, nil
		}

		if isRealloc != nil {
			atomic.AddInt32(&h.blocks[b].ref, -1)
		} else {
			p.blockRelease(a.block)
		}

		newBlock, err := p.blockAlloc()
		lastPos = -1
		a.block = newBlock
		p.blockRelease(block)
		if err != nil {
			p.arenaRelease(idx)
			return nil, ErrOutOfMemory
		}
	}
}

// sliceFree releases the block-tier slice owning ptr.
func (p *Pool) sliceFree(ptr unsafe.Pointer) {
	p.blockRelease(ptr)
}
