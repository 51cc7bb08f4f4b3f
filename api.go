package arena

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
)

// allocate is the internal dispatcher every public entry point funnels
// through: it picks the mmap, big-block, or per-arena block tier based
// on size, mirroring the threshold logic of the allocator this package
// is modeled on. isRealloc, when non-nil, is the pointer being grown —
// passing it through lets sliceNew/bigSliceNew attempt the lucky
// in-place extension before falling back to a fresh allocation.
func (p *Pool) allocate(size int, isRealloc unsafe.Pointer) (unsafe.Pointer, error) {
	if size == 0 {
		return p.zeroSentinel, nil
	}

	overMmapLimit := false
	if p.cfg.BigAlloc {
		if isRealloc != nil {
			overMmapLimit = size > p.layout.bigBlockSize-int(p.layout.bigBlockHeaderSize)*2
		} else {
			overMmapLimit = size > p.layout.allocLimit
		}
	} else {
		overMmapLimit = size > p.layout.allocLimit
	}
	if overMmapLimit {
		ptr, err := p.mmapAlloc(size)
		if err == nil && ptr != nil {
			atomic.AddInt64(&p.stats.allocCount, 1)
		}
		return ptr, err
	}

	atomic.AddInt64(&p.stats.allocCount, 1)

	if p.cfg.BigAlloc {
		overBlockLimit := false
		if isRealloc != nil {
			overBlockLimit = size > p.layout.blockSize-2<<uint(p.layout.alignLog)
		} else {
			overBlockLimit = size > p.layout.blockAllocLimit
		}
		if overBlockLimit {
			ptr, err := p.bigSliceNew(size, isRealloc)
			if err != nil || ptr == nil {
				atomic.AddInt64(&p.stats.allocCount, -1)
			}
			return ptr, err
		}
	}

	ptr, err := p.sliceNew(size, isRealloc)
	if err != nil || ptr == nil {
		atomic.AddInt64(&p.stats.allocCount, -1)
	}
	return ptr, err
}

// Allocate returns size bytes of memory, zeroed only if the pool was
// constructed with WithInitZero(true). Requesting zero bytes returns the
// pool's zero-sentinel pointer, a fixed address safe to pass to Free but
// never safe to dereference or write through.
func (p *Pool) Allocate(size int) (unsafe.Pointer, error) {
	if size < 0 {
		return nil, errors.New("arena: negative allocation size")
	}
	return p.allocate(size, nil)
}

// ZeroAllocate returns memory for count elements of unitSize bytes each,
// guaranteed zeroed regardless of the pool's InitZero setting.
func (p *Pool) ZeroAllocate(unitSize, count int) (unsafe.Pointer, error) {
	if unitSize < 0 || count < 0 {
		return nil, errors.New("arena: negative allocation size")
	}
	total := unitSize * count
	if p.cfg.InitZero {
		return p.Allocate(total)
	}
	length := alignUp(total, p.layout.alignSize)
	ptr, err := p.Allocate(length)
	if err != nil || ptr == nil || ptr == p.zeroSentinel {
		return ptr, err
	}
	zeroAligned(ptr, uintptr(length))
	return ptr, nil
}

// Free releases memory previously returned by Allocate, ZeroAllocate,
// Reallocate, or Map. Free(nil) and freeing the zero-sentinel are no-ops.
// A pointer whose chunk base masks down to nil is logged and otherwise
// ignored; any other pointer is trusted to be one this pool handed out,
// and one that was not is not detected.
func (p *Pool) Free(ptr unsafe.Pointer) {
	if ptr == nil || ptr == p.zeroSentinel {
		return
	}
	c := chunkOf(ptr, p.layout.chunkSizeLog)
	if c == nil {
		p.log.Error(ErrInvalidPointer, "free ignored", "ptr", ptr)
		return
	}
	h := (*chunkHeader)(c)
	atomic.AddInt64(&p.stats.freeCount, 1)

	switch {
	case p.cfg.BigAlloc && h.marker == bigBlockMarker:
		p.bigSliceFree(ptr)
	case uintptr(ptr)-uintptr(c) == uintptr(p.layout.alignSize) && h.marker != 0:
		pages := int(h.marker)
		p.mmapFree(c, pages)
	default:
		p.sliceFree(ptr)
	}
}

// Reallocate resizes the allocation at ptr to newSize bytes, preserving
// up to preserveLen bytes of its previous contents (capped to whatever
// was actually addressable). ptr == nil behaves like Allocate; newSize
// == 0 behaves like Free and returns the zero-sentinel.
func (p *Pool) Reallocate(ptr unsafe.Pointer, newSize, preserveLen int) (unsafe.Pointer, error) {
	if newSize < 0 || preserveLen < 0 {
		return nil, errors.New("arena: negative reallocation size")
	}
	if newSize == 0 {
		p.Free(ptr)
		return p.zeroSentinel, nil
	}
	if ptr == nil || ptr == p.zeroSentinel {
		return p.Allocate(newSize)
	}

	c := chunkOf(ptr, p.layout.chunkSizeLog)
	if c == nil {
		p.log.Error(ErrInvalidPointer, "reallocate refused", "ptr", ptr)
		return nil, ErrInvalidPointer
	}
	h := (*chunkHeader)(c)

	var maxLen uintptr
	switch {
	case p.cfg.BigAlloc && h.marker == bigBlockMarker:
		maxLen = uintptr(p.layout.chunkSize) - (uintptr(ptr) - uintptr(c))
	case uintptr(ptr)-uintptr(c) == uintptr(p.layout.alignSize) && h.marker != 0:
		if newSize > p.layout.allocLimit {
			return p.mmapRealloc(c, int(h.marker), newSize)
		}
		maxLen = uintptr(newSize)
	default:
		b := ptr2index(c, ptr, p.layout)
		blockBase := chunk2ptr(c, b, 0, p.layout)
		maxLen = uintptr(p.layout.blockSize) - (uintptr(ptr) - uintptr(blockBase))
	}

	copyLen := preserveLen
	if uintptr(copyLen) > maxLen {
		copyLen = int(maxLen)
	}
	if copyLen > newSize {
		copyLen = newSize
	}

	mem, err := p.allocate(newSize, ptr)
	if err != nil || mem == nil {
		return mem, err
	}
	if mem == ptr {
		// Grown in place: the same allocation, not a new one.
		atomic.AddInt64(&p.stats.allocCount, -1)
		return mem, nil
	}

	if uintptr(mem) > uintptr(ptr) && uintptr(ptr)+uintptr(copyLen) >= uintptr(mem) {
		copyLen = int(uintptr(mem) - uintptr(ptr))
	}

	aligned := alignUp(copyLen, p.layout.alignSize)
	copyAligned(mem, ptr, uintptr(aligned))
	if aligned > copyLen {
		zeroAligned(unsafe.Add(mem, copyLen), uintptr(aligned-copyLen))
	}

	p.Free(ptr)
	return mem, nil
}

// Map bypasses every internal tier and maps size bytes directly from the
// operating system, for callers that want mmap's page-granular behavior
// (e.g. as a backing store they'll later mprotect themselves) rather
// than the allocator's tiered pooling.
func (p *Pool) Map(size int) (unsafe.Pointer, error) {
	if size < 0 {
		return nil, errors.New("arena: negative map size")
	}
	ptr, err := p.mmapAlloc(size)
	if err == nil && ptr != nil && ptr != p.zeroSentinel {
		atomic.AddInt64(&p.stats.allocCount, 1)
	}
	return ptr, err
}

// AllocLimit returns the largest request size this pool will still
// service out of its own tiers, rather than handing straight to mmap.
func (p *Pool) AllocLimit() int {
	return p.layout.allocLimit
}

// BlockSize returns the configured per-arena block size in bytes.
func (p *Pool) BlockSize() int {
	return p.layout.blockSize
}

// Arenas returns the number of arenas in the pool's table.
func (p *Pool) Arenas() int {
	return len(p.arenas)
}

// ReallocIsSafe reports whether the bytes Reallocate adds when growing an
// allocation are guaranteed zero. Only pools built WithInitZero(true) make
// that promise; otherwise growth bytes may hold stale data from earlier
// allocations in the same block (never another live allocation's data,
// since blocks are reset before reuse).
func (p *Pool) ReallocIsSafe() bool {
	return p.cfg.InitZero
}

var (
	defaultPool *Pool
	defaultOnce sync.Once
)

func defaultPoolInstance() *Pool {
	defaultOnce.Do(func() {
		pool, err := New()
		if err != nil {
			panic(errors.Wrap(err, "arena: failed to initialize default pool"))
		}
		defaultPool = pool
	})
	return defaultPool
}

// Default returns the process-wide Pool used by the package-level
// Allocate/Free/etc. functions, initialized lazily on first use so that
// importing this package never pays for a chunk acquisition a program
// doesn't need.
func Default() *Pool { return defaultPoolInstance() }

func Allocate(size int) (unsafe.Pointer, error) { return defaultPoolInstance().Allocate(size) }

func ZeroAllocate(unitSize, count int) (unsafe.Pointer, error) {
	return defaultPoolInstance().ZeroAllocate(unitSize, count)
}

func Reallocate(ptr unsafe.Pointer, newSize, preserveLen int) (unsafe.Pointer, error) {
	return defaultPoolInstance().Reallocate(ptr, newSize, preserveLen)
}

func Free(ptr unsafe.Pointer) { defaultPoolInstance().Free(ptr) }

func Map(size int) (unsafe.Pointer, error) { return defaultPoolInstance().Map(size) }

func AfterFork() { defaultPoolInstance().AfterFork() }
