package arena

import "unsafe"

// zeroAligned clears n bytes starting at p. Most call sites pass a
// multiple of the pool's alignment; Reallocate's tail clear need not,
// and the function itself doesn't require it.
func zeroAligned(p unsafe.Pointer, n uintptr) {
	if n == 0 {
		return
	}
	b := unsafe.Slice((*byte)(p), n)
	clear(b)
}

// copyAligned copies n bytes from src to dst. Caller guarantees the two
// ranges don't overlap in a way that matters (Reallocate only calls this
// before the old pointer is freed, and grow-in-place never reaches here).
func copyAligned(dst, src unsafe.Pointer, n uintptr) {
	if n == 0 {
		return
	}
	d := unsafe.Slice((*byte)(dst), n)
	s := unsafe.Slice((*byte)(src), n)
	copy(d, s)
}
