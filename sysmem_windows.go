//go:build windows

package arena

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// sysAlloc reserves and commits size bytes via VirtualAlloc. Windows has
// no mmap-style alignment hint, so an oversized region is reserved first
// and then committed only over its self-aligned sub-range; the
// surrounding reservation is released.
func sysAlloc(size, chunkSizeLog int) (unsafe.Pointer, error) {
	align := uintptr(1) << uint(chunkSizeLog)
	reserveSize := uintptr(size) + align
	addr, err := windows.VirtualAlloc(0, reserveSize, windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, errors.Wrap(err, "VirtualAlloc reserve")
	}
	aligned := (addr + align - 1) &^ (align - 1)

	_ = windows.VirtualFree(addr, 0, windows.MEM_RELEASE)

	committed, err := windows.VirtualAlloc(aligned, uintptr(size), windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		// Another thread may have raced into the freed gap; retry the
		// whole dance once before giving up.
		return sysAllocRetry(size, chunkSizeLog)
	}
	return unsafe.Pointer(committed), nil
}

func sysAllocRetry(size, chunkSizeLog int) (unsafe.Pointer, error) {
	align := uintptr(1) << uint(chunkSizeLog)
	reserveSize := uintptr(size) + align*2
	addr, err := windows.VirtualAlloc(0, reserveSize, windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, errors.Wrap(err, "VirtualAlloc reserve retry")
	}
	aligned := (addr + align - 1) &^ (align - 1)
	_ = windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
	committed, err := windows.VirtualAlloc(aligned, uintptr(size), windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return nil, errors.Wrap(err, "VirtualAlloc commit retry")
	}
	return unsafe.Pointer(committed), nil
}

func sysFree(p unsafe.Pointer, size int) {
	_ = windows.VirtualFree(uintptr(p), 0, windows.MEM_RELEASE)
}

// platformRemap has no VirtualAlloc equivalent that can resize a mapping
// in place while holding its address fixed and self-aligned, so
// sysRealloc always falls back to allocate-copy-free on Windows.
func platformRemap(old unsafe.Pointer, oldSize, newSize int) (unsafe.Pointer, bool) {
	return nil, false
}

func sysRealloc(old unsafe.Pointer, oldSize, newSize, chunkSizeLog int) (unsafe.Pointer, error) {
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
