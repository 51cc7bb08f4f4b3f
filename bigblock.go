package arena

import (
	"sync/atomic"
	"unsafe"
)

// bigBlockHeader overlays the same memory as chunkHeader when a chunk is
// dedicated to the big-block tier — one shared bump region per pool for
// requests too large for the per-arena blocks but not worth a dedicated
// mmap.
type bigBlockHeader struct {
	marker uint32
	ref    int32
	pos    int32
}

func (p *Pool) bigBlockNew() (unsafe.Pointer, error) {
	c, err := p.chunkNew(true)
	if err != nil {
		return nil, err
	}
	h := (*bigBlockHeader)(c)
	h.marker = bigBlockMarker
	h.ref = 1
	h.pos = 0
	return c, nil
}

// bigBlockReset clears a retiring big block. Outside InitZero mode it
// wipes the chunk header region and every block-tier free-list node
// header within it, so the chunk comes back out of the cache usable as
// either tier.
func (p *Pool) bigBlockReset(b unsafe.Pointer) {
	h := (*bigBlockHeader)(b)
	if p.cfg.InitZero {
		if int(h.pos) >= p.layout.unitsPerBigBlock-10 {
			zeroAligned(b, uintptr(p.layout.chunkSize))
		} else {
			zeroAligned(b, (uintptr(h.pos)<<uint(p.layout.alignLog))+p.layout.bigBlockHeaderSize)
		}
	} else {
		zeroAligned(b, p.layout.headerSize)
		for i := 0; i < p.layout.blocksPerChunk; i++ {
			zeroAligned(chunk2ptr(b, i, 0, p.layout), p.layout.listNodeSize)
		}
	}
	h.ref = 1
	h.pos = 0
}

// bigSliceNew bump-allocates bytes out of the pool's single big block,
// replacing it once full. Mirrors sliceNew's lucky-realloc path, guarded
// by bigMu instead of a per-arena lock since there is exactly one big
// block per pool.
func (p *Pool) bigSliceNew(bytes int, isRealloc unsafe.Pointer) (unsafe.Pointer, error) {
	units := int32((bytes + p.layout.alignSize - 1) >> uint(p.layout.alignLog))

	p.bigMu.Lock()
	for {
		lastPos := int32(-1)
		if p.bigBlock == nil {
			blk, err := p.bigBlockNew()
			if err != nil {
				p.bigMu.Unlock()
				return nil, err
			}
			p.bigBlock = blk
		} else if isRealloc != nil {
			lastPos = p.bigLastPos
		}

		b := p.bigBlock
		h := (*bigBlockHeader)(b)

		if h.ref == 1 && h.pos != 0 {
			p.bigBlockReset(b)
			h.marker = bigBlockMarker
		}

		if lastPos >= 0 && int(lastPos)+int(units) < p.layout.unitsPerBigBlock &&
			isRealloc == big2ptr(b, int(lastPos), p.layout) {
			p.bigLastPos = units + lastPos
			h.pos = units + lastPos
			p.bigMu.Unlock()
			return isRealloc, nil
		}

		if int(h.pos)+int(units) < p.layout.unitsPerBigBlock {
			ptr := big2ptr(b, int(h.pos), p.layout)
			atomic.AddInt32(&h.ref, 1)
			p.bigLastPos = h.pos
			h.pos += units
			p.bigMu.Unlock()
			return ptr, nil
		}

		p.bigBlock = nil
		p.bigLastPos = 0
		p.bigMu.Unlock()
		p.bigBlockFree(b)
		p.bigMu.Lock()
	}
}

func (p *Pool) bigSliceFree(ptr unsafe.Pointer) {
	p.bigBlockFree(chunkOf(ptr, p.layout.chunkSizeLog))
}

func (p *Pool) bigBlockFree(b unsafe.Pointer) {
	if b == nil {
		return
	}
	h := (*bigBlockHeader)(b)
	if atomic.AddInt32(&h.ref, -1) != 0 {
		return
	}
	p.bigBlockReset(b)
	p.masterMu.Lock()
	p.chunkCacheOrDeallocLocked(b)
}
