package arena

import (
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
)

// blockMeta tracks one block's live-slice count (ref) and bump cursor
// (pos), both in allocation units. ref is mutated with atomics from any
// goroutine holding a slice carved out of the block, without that
// goroutine ever taking the arena or master lock; pos is only ever
// touched by whichever arena currently owns the block, by blockAlloc
// when handing the block out, or by the goroutine that dropped the
// block's last reference while it resets the block.
type blockMeta struct {
	ref int32
	pos int32
}

// chunkHeader sits at the front of every OS-backed chunk. marker
// distinguishes what the rest of the chunk holds: 0 for the regular
// block tier, bigBlockMarker for the big-block tier (where the chunk's
// bytes are reinterpreted as a bigBlockHeader instead), or a page count
// for the mmap tier (where the chunk holds one oversized slice and no
// blocks array is used at all).
type chunkHeader struct {
	marker uint32
	ref    int32
	blocks [maxBlocksPerChunk]blockMeta
}

// chunkNew returns a chunk ready for use, pulling from the LIFO cache
// before falling back to the operating system. needLock tells it
// whether to take masterMu itself around the cache lookup; a caller
// that already holds masterMu passes false. blockAlloc and bigBlockNew
// call it without holding masterMu and pass true.
func (p *Pool) chunkNew(needLock bool) (unsafe.Pointer, error) {
	var c unsafe.Pointer
	if needLock {
		p.masterMu.Lock()
	}
	if p.cacheCount > 0 {
		p.cacheCount--
		c = p.cache[p.cacheCount]
		p.cache[p.cacheCount] = nil
	}
	if needLock {
		p.masterMu.Unlock()
	}

	if c != nil {
		// Cached chunks keep whatever residual state they retired with;
		// wipe the whole header, not just marker and ref.
		h := (*chunkHeader)(c)
		*h = chunkHeader{ref: 1}
		atomic.AddInt64(&p.stats.chunksLive, 1)
		atomic.AddInt64(&p.stats.chunksCached, -1)
		return c, nil
	}

	c, err := sysAlloc(p.layout.chunkSize, p.layout.chunkSizeLog)
	if err != nil {
		return nil, errors.Wrap(ErrOutOfMemory, err.Error())
	}
	h := (*chunkHeader)(c)
	h.marker = 0
	h.ref = 1
	atomic.AddInt64(&p.stats.chunksLive, 1)
	atomic.AddInt64(&p.stats.chunksMapped, 1)
	return c, nil
}

// chunkCacheOrDeallocLocked must be called with masterMu held and unlocks
// it before returning, mirroring the locking discipline of the allocator
// this is modeled on: the caller hands off ownership of the lock along
// with the chunk.
func (p *Pool) chunkCacheOrDeallocLocked(c unsafe.Pointer) {
	if p.cacheCount < len(p.cache) {
		p.cache[p.cacheCount] = c
		p.cacheCount++
		c = nil
	}
	p.masterMu.Unlock()
	atomic.AddInt64(&p.stats.chunksLive, -1)
	if c == nil {
		atomic.AddInt64(&p.stats.chunksCached, 1)
		return
	}
	sysFree(c, p.layout.chunkSize)
	atomic.AddInt64(&p.stats.chunksMapped, -1)
}

// chunkReleaseLocked drops one reference from c. Must be called with
// masterMu held; always unlocks it. If the reference reaches zero, every
// block belonging to c is first unlinked from the free list (a block
// only ever sits in the free list while its owning chunk is still live),
// then the chunk itself is cached or released to the OS.
func (p *Pool) chunkReleaseLocked(c unsafe.Pointer) {
	if c == nil {
		p.masterMu.Unlock()
		return
	}
	h := (*chunkHeader)(c)
	if atomic.AddInt32(&h.ref, -1) != 0 {
		p.masterMu.Unlock()
		return
	}
	for b := 0; b < p.layout.blocksPerChunk; b++ {
		n := nodeAt(chunk2ptr(c, b, 0, p.layout))
		if n.prev != nil && n.next != nil {
			listRemove(n)
		}
	}
	p.chunkCacheOrDeallocLocked(c)
}
