package arena

import (
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/dolthub/maphash"
	"github.com/timandy/routine"
)

// arenaLock is whichever of spinLock or sync.Mutex the pool was
// configured with; both support Lock/TryLock/Unlock.
type arenaLock interface {
	Lock()
	TryLock() bool
	Unlock()
}

// spinLock is a cooperative spinlock used by default for the arena
// locks, on the theory that most critical sections here are a
// handful of pointer writes — short enough that spinning beats a park/
// wake round trip through the scheduler. Config.ThreadMutex switches to
// a sync.Mutex instead for workloads where arenas block for longer.
type spinLock struct {
	held atomic.Bool
}

func (s *spinLock) Lock() {
	for !s.held.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

func (s *spinLock) TryLock() bool {
	return s.held.CompareAndSwap(false, true)
}

func (s *spinLock) Unlock() {
	s.held.Store(false)
}

// arenaSlot pairs a lock with the block currently being bump-allocated
// from by whichever goroutine holds that lock. lastPos records the unit
// offset of the most recent allocation out of block, enabling the
// lucky-realloc fast path in sliceNew.
type arenaSlot struct {
	lock    arenaLock
	block   unsafe.Pointer
	lastPos int32
}

func newArenaLock(threadMutex bool) arenaLock {
	if threadMutex {
		return &sync.Mutex{}
	}
	return &spinLock{}
}

var goidHasher = maphash.NewHasher[uint64]()

// defaultArenaIndex hashes the calling goroutine's identity to a stable
// arena index, so that a given goroutine tends to keep hitting the same
// arena (and therefore the lucky-realloc path) across calls, while
// spreading unrelated goroutines across the table.
func defaultArenaIndex(n int) int {
	if n <= 1 {
		return 0
	}
	id := routine.Goid()
	h := goidHasher.Hash(id)
	return int(h % uint64(n))
}

// arenaAcquire locks and returns the calling goroutine's default arena if
// it's free; otherwise it rotates through the table looking for any free
// arena before finally blocking on the default one. This keeps
// contention low without ever starving a goroutine indefinitely.
func (p *Pool) arenaAcquire() (*arenaSlot, int) {
	n := len(p.arenas)
	start := defaultArenaIndex(n)
	if n == 1 {
		p.arenas[0].lock.Lock()
		return &p.arenas[0], 0
	}
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if p.arenas[idx].lock.TryLock() {
			return &p.arenas[idx], idx
		}
	}
	p.arenas[start].lock.Lock()
	return &p.arenas[start], start
}

func (p *Pool) arenaRelease(idx int) {
	p.arenas[idx].lock.Unlock()
}
