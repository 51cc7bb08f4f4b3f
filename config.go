package arena

import (
	"runtime"

	"github.com/go-logr/logr"
)

// Config holds the tunables that used to be compile-time macros in the
// allocator this package is modeled on. A Config is resolved once, at
// New: the sizes derived from it go into an immutable layout, and the
// Pool keeps its own copy for the flags it reads on later calls.
type Config struct {
	// AlignLog sets the allocation granularity to 1<<AlignLog bytes.
	// Clamped to [3,10] (8B..1KiB).
	AlignLog int
	// ChunkSizeLog sets each OS-backed chunk to 1<<ChunkSizeLog bytes,
	// which must stay a power of two for the self-alignment trick in
	// chunkOf to work. Clamped to [17,24] (128KiB..16MiB).
	ChunkSizeLog int
	// BlocksPerChunkLog sets the number of blocks carved out of every
	// chunk to 1<<BlocksPerChunkLog. Clamped to [0,5] (1..32).
	BlocksPerChunkLog int
	// CacheSlots bounds the LIFO cache of retired chunks kept around to
	// dodge repeated mmap/VirtualAlloc round trips.
	CacheSlots int
	// BigAlloc enables the mid-size big-block tier. Disabling it routes
	// mid-size requests straight to the per-arena block allocator or,
	// past its limit, to mmap.
	BigAlloc bool
	// ArenaCount fixes the number of arenas in the table. Zero means
	// "derive from runtime.GOMAXPROCS", capped by ArenaCountMax and
	// falling back to ArenaCountFallback if GOMAXPROCS can't be read.
	ArenaCount         int
	ArenaCountMax      int
	ArenaCountFallback int
	// InitZero makes every allocation return zeroed memory, matching the
	// allocator's "initialize_allocations" compile flag. When false,
	// only the free-list node header is ever guaranteed clean; payload
	// bytes may carry a previous tenant's data.
	InitZero bool
	// Warmup hands every arena its first block at New time instead of on
	// first use, trading a slower startup for no first-allocation mmap
	// latency.
	Warmup bool
	// ThreadMutex selects a sync.Mutex for the arena locks instead of
	// the default spinlock; the master and big-block locks are always
	// sync.Mutex. Worth enabling when arenas are
	// expected to block for a while (e.g. heavy contention with few
	// cores) rather than spin.
	ThreadMutex bool
	// DebugAssertions enables extra bookkeeping (double-free detection)
	// at a throughput cost. Intended for tests, not production.
	DebugAssertions bool
	// Logger receives structured diagnostics (pointers Free or
	// Reallocate cannot resolve, double frees under DebugAssertions,
	// and Close's leak reports). Defaults to a discarding logr.Logger.
	Logger logr.Logger
}

// Option mutates a Config under construction. See the With* functions.
type Option func(*Config)

func WithAlignLog(log int) Option {
	return func(c *Config) { c.AlignLog = log }
}

func WithChunkSizeLog(log int) Option {
	return func(c *Config) { c.ChunkSizeLog = log }
}

func WithBlocksPerChunkLog(log int) Option {
	return func(c *Config) { c.BlocksPerChunkLog = log }
}

func WithCacheSlots(n int) Option {
	return func(c *Config) { c.CacheSlots = n }
}

func WithBigAlloc(enabled bool) Option {
	return func(c *Config) { c.BigAlloc = enabled }
}

func WithArenaCount(n int) Option {
	return func(c *Config) { c.ArenaCount = n }
}

func WithInitZero(enabled bool) Option {
	return func(c *Config) { c.InitZero = enabled }
}

func WithWarmup(enabled bool) Option {
	return func(c *Config) { c.Warmup = enabled }
}

func WithThreadMutex(enabled bool) Option {
	return func(c *Config) { c.ThreadMutex = enabled }
}

func WithDebugAssertions(enabled bool) Option {
	return func(c *Config) { c.DebugAssertions = enabled }
}

func WithLogger(l logr.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

func defaultConfig() Config {
	return Config{
		AlignLog:           4,
		ChunkSizeLog:       21,
		BlocksPerChunkLog:  2,
		CacheSlots:         4,
		BigAlloc:           true,
		ArenaCount:         0,
		ArenaCountMax:      32,
		ArenaCountFallback: 8,
		InitZero:           false,
		Warmup:             false,
		ThreadMutex:        false,
		DebugAssertions:    false,
		Logger:             logr.Discard(),
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func resolveConfig(opts []Option) Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.AlignLog = clampInt(cfg.AlignLog, 3, 10)
	cfg.ChunkSizeLog = clampInt(cfg.ChunkSizeLog, 17, 24)
	cfg.BlocksPerChunkLog = clampInt(cfg.BlocksPerChunkLog, 0, 5)
	if cfg.CacheSlots < 0 {
		cfg.CacheSlots = 0
	}
	if cfg.ArenaCountMax < 1 {
		cfg.ArenaCountMax = 1
	}
	if cfg.ArenaCountFallback < 1 {
		cfg.ArenaCountFallback = 1
	}
	if cfg.ArenaCount < 0 {
		cfg.ArenaCount = 0
	}
	return cfg
}

// arenaCount resolves Config.ArenaCount against the live runtime, mirroring
// the fallback-to-a-constant behavior the original takes when it can't read
// the number of cores.
func (c Config) arenaCount() int {
	if c.ArenaCount > 0 {
		return clampInt(c.ArenaCount, 1, c.ArenaCountMax)
	}
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		n = c.ArenaCountFallback
	}
	return clampInt(n, 1, c.ArenaCountMax)
}
