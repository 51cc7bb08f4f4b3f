package arena

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/go-logr/logr"
)

// poolStats holds the atomic counters behind Stats and the leak report
// produced by Close.
type poolStats struct {
	allocCount   int64
	freeCount    int64
	chunksLive   int64
	chunksCached int64
	chunksMapped int64
}

// Pool is a complete, independent instance of the allocator: its own
// arena table, chunk cache, optional big-block tier, and configuration.
// A Pool is safe for concurrent use by any number of goroutines — unlike
// the single-threaded arena this package grew from, a Pool IS the
// concurrency boundary, not something wrapped around one.
type Pool struct {
	cfg    Config
	layout layout
	log    logr.Logger

	masterMu   sync.Mutex
	cache      []unsafe.Pointer
	cacheCount int
	freeHead   listNode

	arenas []arenaSlot

	bigMu      sync.Mutex
	bigBlock   unsafe.Pointer
	bigLastPos int32

	// Sized for the largest configurable alignment, so the sentinel can
	// be aligned like any other returned pointer.
	zeroSentinelStorage [2 << 10]byte
	zeroSentinel        unsafe.Pointer

	stats poolStats

	closed atomic.Bool
}

// New constructs a Pool. With no options it matches the allocator's
// historical defaults: 16-byte alignment, 2MiB chunks, 4 blocks per
// chunk, a 4-slot chunk cache, the big-block tier enabled, one arena per
// GOMAXPROCS core (capped at 32), and lazily-acquired chunks.
func New(opts ...Option) (*Pool, error) {
	cfg := resolveConfig(opts)
	l := newLayout(cfg)

	p := &Pool{
		cfg:    cfg,
		layout: l,
		log:    cfg.Logger,
		cache:  make([]unsafe.Pointer, cfg.CacheSlots),
	}
	listInit(&p.freeHead)
	base := uintptr(unsafe.Pointer(&p.zeroSentinelStorage[0]))
	off := alignUpUintptr(base, uintptr(l.alignSize)) - base
	p.zeroSentinel = unsafe.Pointer(&p.zeroSentinelStorage[off])

	n := cfg.arenaCount()
	p.arenas = make([]arenaSlot, n)
	for i := range p.arenas {
		p.arenas[i].lock = newArenaLock(cfg.ThreadMutex)
	}

	if cfg.Warmup {
		for i := range p.arenas {
			blk, err := p.blockAlloc()
			if err != nil {
				return nil, err
			}
			p.arenas[i].block = blk
		}
	}

	return p, nil
}

// LeakReport summarizes chunks a Pool still holds from the OS at Close
// time: live chunks it could not account for as fully freed, and the
// allocation/free counters that diverged from one another.
type LeakReport struct {
	OutstandingAllocations int64
	ChunksLive             int64
	ChunksCached           int64
}

// Leaked reports whether the pool was closed with outstanding
// allocations still unfreed.
func (r LeakReport) Leaked() bool {
	return r.OutstandingAllocations > 0
}

// Close releases every chunk this pool still holds — each arena's active
// block, the big block, and the retired-chunk cache — back to the
// operating system, and reports what it could not account for. A Pool
// must not be used after Close.
func (p *Pool) Close() LeakReport {
	if p.closed.Swap(true) {
		return LeakReport{}
	}

	report := LeakReport{
		OutstandingAllocations: atomic.LoadInt64(&p.stats.allocCount) - atomic.LoadInt64(&p.stats.freeCount),
	}

	for i := range p.arenas {
		a := &p.arenas[i]
		if !a.lock.TryLock() {
			p.log.Info("arena still locked at close", "arena", i)
			a.lock.Lock()
		}
		if a.block != nil {
			p.blockRelease(a.block)
			a.block = nil
		}
		a.lock.Unlock()
	}

	p.bigMu.Lock()
	big := p.bigBlock
	p.bigBlock = nil
	p.bigMu.Unlock()
	p.bigBlockFree(big)

	report.ChunksCached = atomic.LoadInt64(&p.stats.chunksCached)

	p.masterMu.Lock()
	for i := 0; i < p.cacheCount; i++ {
		sysFree(p.cache[i], p.layout.chunkSize)
		p.cache[i] = nil
	}
	p.cacheCount = 0
	atomic.AddInt64(&p.stats.chunksMapped, -int64(report.ChunksCached))
	atomic.StoreInt64(&p.stats.chunksCached, 0)

	// Anything still on the free list belongs to a chunk pinned by an
	// unfreed allocation; name each owning chunk once.
	var lastChunk unsafe.Pointer
	for n := p.freeHead.next; n != nil && n != &p.freeHead; n = n.next {
		c := chunkOf(unsafe.Pointer(n), p.layout.chunkSizeLog)
		if c == lastChunk {
			continue
		}
		lastChunk = c
		p.log.Info("chunk still referenced at close", "chunk", c)
	}
	p.masterMu.Unlock()

	report.ChunksLive = atomic.LoadInt64(&p.stats.chunksLive)

	if report.Leaked() {
		p.log.Info("arena pool closed with outstanding allocations",
			"outstanding", report.OutstandingAllocations,
			"chunksLive", report.ChunksLive)
	}

	return report
}

// AfterFork reinitializes every lock in the pool. Call it in the child
// immediately after a fork-like operation, before any other goroutine in
// the child touches the pool: at that point the child is guaranteed to
// be single-threaded, so no lock can legitimately be held, but a lock
// that was mid-acquisition in the parent at fork time would otherwise
// appear permanently held in the child.
func (p *Pool) AfterFork() {
	for i := range p.arenas {
		p.arenas[i].lock = newArenaLock(p.cfg.ThreadMutex)
	}
	p.masterMu = sync.Mutex{}
	p.bigMu = sync.Mutex{}
}
