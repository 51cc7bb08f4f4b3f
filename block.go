package arena

import (
	"sync/atomic"
	"unsafe"
)

// blockAlloc pops a block off the free list, carving a fresh chunk (and
// threading its remaining blocks onto the list) when the list is empty.
func (p *Pool) blockAlloc() (unsafe.Pointer, error) {
	p.masterMu.Lock()
	if n := listPop(&p.freeHead); n != nil {
		ptr := unsafe.Pointer(n)
		c := chunkOf(ptr, p.layout.chunkSizeLog)
		h := (*chunkHeader)(c)
		atomic.AddInt32(&h.ref, 1)
		p.masterMu.Unlock()
		b := ptr2index(c, ptr, p.layout)
		atomic.StoreInt32(&h.blocks[b].ref, 1)
		atomic.StoreInt32(&h.blocks[b].pos, 0)
		return ptr, nil
	}
	p.masterMu.Unlock()

	c, err := p.chunkNew(true)
	if err != nil {
		return nil, err
	}
	h := (*chunkHeader)(c)
	ptr := chunk2ptr(c, 0, 0, p.layout)

	p.masterMu.Lock()
	for b := p.layout.blocksPerChunk - 1; b >= 1; b-- {
		n := nodeAt(chunk2ptr(c, b, 0, p.layout))
		listPush(&p.freeHead, n)
	}
	p.masterMu.Unlock()

	atomic.StoreInt32(&h.blocks[0].ref, 1)
	atomic.StoreInt32(&h.blocks[0].pos, 0)
	return ptr, nil
}

// resetBlockMemory clears a retiring block's payload before it can be
// reused by a new tenant. Under InitZero it wipes exactly the bytes that
// were handed out (or the whole block, past a threshold where a full
// wipe is cheaper than computing the used span); otherwise it only
// clears enough to hold a fresh free-list node header, since any
// allocator that didn't ask for zeroed memory has no business reading
// past what it requested anyway.
func (p *Pool) resetBlockMemory(c unsafe.Pointer, b int) {
	h := (*chunkHeader)(c)
	base := chunk2ptr(c, b, 0, p.layout)
	if p.cfg.InitZero {
		pos := atomic.LoadInt32(&h.blocks[b].pos)
		if int(pos) >= p.layout.unitsPerBlock-4 {
			zeroAligned(base, uintptr(p.layout.blockSize))
		} else {
			zeroAligned(base, uintptr(pos)<<uint(p.layout.alignLog))
		}
	} else {
		zeroAligned(base, p.layout.listNodeSize)
	}
	atomic.StoreInt32(&h.blocks[b].pos, 0)
}

// blockRelease drops one reference from the block owning ptr. On the
// last reference it resets the block's memory, pushes it back onto the
// free list, and releases the owning chunk's reference in the same
// locked section (mirroring the upstream allocator, which frees the
// chunk reference while still holding the list lock it just used to
// push the block).
func (p *Pool) blockRelease(ptr unsafe.Pointer) {
	c := chunkOf(ptr, p.layout.chunkSizeLog)
	h := (*chunkHeader)(c)
	b := ptr2index(c, ptr, p.layout)
	ref := atomic.AddInt32(&h.blocks[b].ref, -1)
	if p.cfg.DebugAssertions && ref < 0 {
		p.log.Error(ErrInvalidPointer, "double free detected", "chunk", c, "block", b)
		atomic.StoreInt32(&h.blocks[b].ref, 0)
		return
	}
	if ref != 0 {
		return
	}
	p.resetBlockMemory(c, b)
	p.masterMu.Lock()
	n := nodeAt(chunk2ptr(c, b, 0, p.layout))
	listPush(&p.freeHead, n)
	p.chunkReleaseLocked(c)
}
