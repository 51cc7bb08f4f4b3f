//go:build linux

package arena

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// platformRemap uses Linux's mremap(2), without MREMAP_MAYMOVE, to grow
// or shrink a mapping without moving it, avoiding a copy entirely. A
// fixed-address mremap either succeeds at the same base address
// (preserving the self-alignment chunkOf depends on) or fails outright
// and leaves the original mapping untouched — never moves it — so
// reporting failure here is always safe for sysRealloc to retry via a
// fresh aligned mapping plus a copy.
func platformRemap(old unsafe.Pointer, oldSize, newSize int) (unsafe.Pointer, bool) {
	b := unsafe.Slice((*byte)(old), oldSize)
	newB, err := unix.Mremap(b, newSize, 0)
	if err != nil {
		return nil, false
	}
	return unsafe.Pointer(&newB[0]), true
}
