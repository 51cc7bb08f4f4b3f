// Package arena implements a thread-scalable general-purpose allocator
// backed directly by the operating system's virtual memory, rather than
// Go's own heap.
//
// # Overview
//
// A Pool hands out memory through three tiers chosen by request size:
//
//   - small and mid-size requests are bump-allocated out of per-arena
//     blocks carved from OS-backed chunks, recycled through a free list
//     once every live reference to a block is gone;
//   - requests too large for a block but not worth their own OS mapping
//     go through a single shared big-block tier;
//   - requests past that go straight to mmap (VirtualAlloc on Windows),
//     each with its own dedicated mapping.
//
// Every chunk is allocated self-aligned to its own size, which lets any
// pointer a Pool ever hands out be mapped back to the chunk that owns it
// with a single bitmask-and — no header lookup, no lock — the same trick
// the allocator this package is modeled on uses to make Free O(1).
//
// # Basic usage
//
//	pool, err := arena.New()
//	if err != nil {
//		// ...
//	}
//	defer pool.Close()
//
//	buf, err := pool.Allocate(1024)
//	// ...
//	pool.Free(buf)
//
//	ptr, err := arena.Alloc[MyStruct](pool)
//	slice, err := arena.AllocSlice[int](pool, 100)
//
// # Thread safety
//
// A Pool is safe for concurrent use by any number of goroutines without
// any wrapping on the caller's part: each goroutine is hashed to a
// default arena in the pool's table, with contending goroutines rotating
// through the rest of the table before finally blocking, so allocation
// traffic spreads across arenas instead of serializing on one lock.
//
// # Configuration
//
// New accepts functional options (WithAlignLog, WithChunkSizeLog,
// WithBlocksPerChunkLog, WithCacheSlots, WithBigAlloc, WithArenaCount,
// WithInitZero, WithWarmup, WithThreadMutex, WithDebugAssertions,
// WithLogger) in place of the compile-time macros the allocator this
// package is modeled on exposes; see Config for their defaults and
// valid ranges.
//
// # Package-level convenience API
//
// Allocate, ZeroAllocate, Reallocate, Free, Map, and AfterFork mirror
// the Pool methods of the same name against a lazily-initialized,
// process-wide default Pool, for callers who don't need an isolated
// instance.
package arena
