package arena

import "github.com/pkg/errors"

// ErrOutOfMemory is returned by any allocating entry point when the
// operating system refuses to hand over more virtual memory.
var ErrOutOfMemory = errors.New("arena: out of memory")

// ErrTooLarge is returned when a requested size exceeds what a single
// mmap-tier allocation can address (1<<31 pages or more).
var ErrTooLarge = errors.New("arena: requested size exceeds addressable page count")

// ErrInvalidPointer is logged by Free, and returned by Reallocate, when a
// pointer cannot be resolved to an owned chunk. Free has no error return,
// so the bad pointer is logged and otherwise ignored; there is no way to
// recover from a corrupted heap anyway.
var ErrInvalidPointer = errors.New("arena: pointer not owned by this pool")
