//go:build !windows

package arena

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// sysAlloc reserves size bytes of anonymous, zero-filled virtual memory
// from the OS, with its base aligned to 1<<chunkSizeLog so chunkOf's
// bitmask recovery holds. mmap only guarantees page alignment, so when
// the first mapping's base is not aligned, an oversized mapping is
// carved down to an aligned sub-range and the slack is released.
func sysAlloc(size, chunkSizeLog int) (unsafe.Pointer, error) {
	raw, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, errors.Wrap(err, "mmap")
	}
	base := unsafe.Pointer(&raw[0])
	mask := uintptr(1)<<uint(chunkSizeLog) - 1
	if uintptr(base)&mask == 0 {
		return base, nil
	}
	// Unaligned: remap self-aligned. Release this mapping and retry with
	// one alignment's worth of slack added, then trim the unaligned
	// head/tail.
	_ = unix.Munmap(raw)
	return sysAllocAligned(size, chunkSizeLog)
}

func sysAllocAligned(size, chunkSizeLog int) (unsafe.Pointer, error) {
	align := uintptr(1) << uint(chunkSizeLog)
	raw, err := unix.Mmap(-1, 0, size+int(align), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, errors.Wrap(err, "mmap")
	}
	base := uintptr(unsafe.Pointer(&raw[0]))
	aligned := (base + align - 1) &^ (align - 1)
	headSlack := aligned - base
	tailSlack := uintptr(len(raw)) - headSlack - uintptr(size)
	if headSlack > 0 {
		_ = unix.Munmap(raw[:headSlack])
	}
	if tailSlack > 0 {
		_ = unix.Munmap(raw[headSlack+uintptr(size) : headSlack+uintptr(size)+tailSlack])
	}
	return unsafe.Pointer(aligned), nil
}

func sysFree(p unsafe.Pointer, size int) {
	b := unsafe.Slice((*byte)(p), size)
	_ = unix.Munmap(b)
}

// sysRealloc resizes an existing OS mapping. On Linux it takes the
// mremap fast path (platformRemap); elsewhere it falls back to a fresh
// self-aligned mapping plus a copy, since POSIX mremap isn't portable.
func sysRealloc(old unsafe.Pointer, oldSize, newSize, chunkSizeLog int) (unsafe.Pointer, error) {
	if newC, ok := platformRemap(old, oldSize, newSize); ok {
		return newC, nil
	}
	newC, err := sysAlloc(newSize, chunkSizeLog)
	if err != nil {
		return nil, err
	}
	n := oldSize
	if newSize < n {
		n = newSize
	}
	copyAligned(newC, old, uintptr(n))
	sysFree(old, oldSize)
	return newC, nil
}
