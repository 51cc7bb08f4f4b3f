package arena

import (
	"runtime"
	"unsafe"
)

// Alloc returns a pointer to a T carved out of p, zeroed regardless of
// the pool's InitZero setting. The returned pointer stays valid until
// Release[T] is called on it or the pool is closed.
func Alloc[T any](p *Pool) (*T, error) {
	var zero T
	size := int(unsafe.Sizeof(zero))
	ptr, err := p.ZeroAllocate(1, size)
	if err != nil {
		return nil, err
	}
	return (*T)(ptr), nil
}

// AllocZeroed is identical to Alloc — provided for API consistency with
// AllocSliceZeroed.
func AllocZeroed[T any](p *Pool) (*T, error) {
	return Alloc[T](p)
}

// AllocUninitialized returns a *T carved out of p without forcing a
// zero-fill; its contents are whatever the pool's InitZero setting and
// this memory's allocation history leave behind. Faster than Alloc, but
// the caller must fully initialize the value before reading from it.
func AllocUninitialized[T any](p *Pool) (*T, error) {
	var zero T
	size := int(unsafe.Sizeof(zero))
	ptr, err := p.Allocate(size)
	if err != nil {
		return nil, err
	}
	return (*T)(ptr), nil
}

// AllocSlice allocates room for n elements of type T without forcing a
// zero-fill. Returns nil, nil if n <= 0.
func AllocSlice[T any](p *Pool, n int) ([]T, error) {
	if n <= 0 {
		return nil, nil
	}
	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	ptr, err := p.Allocate(elemSize * n)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*T)(ptr), n), nil
}

// AllocSliceZeroed allocates room for n elements of type T, zeroed
// regardless of the pool's InitZero setting. Returns nil, nil if n <= 0.
func AllocSliceZeroed[T any](p *Pool, n int) ([]T, error) {
	if n <= 0 {
		return nil, nil
	}
	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	ptr, err := p.ZeroAllocate(elemSize, n)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*T)(ptr), n), nil
}

// Release returns a *T obtained from Alloc, AllocZeroed, or
// AllocUninitialized back to its pool. Calling it on a pointer not
// carved out of p, or calling it twice, is a use-after-free bug the pool
// cannot detect unless it was built WithDebugAssertions(true).
func Release[T any](p *Pool, t *T) {
	p.Free(unsafe.Pointer(t))
}

// ReleaseSlice returns a []T obtained from AllocSlice or
// AllocSliceZeroed back to its pool.
func ReleaseSlice[T any](p *Pool, s []T) {
	if len(s) == 0 {
		return
	}
	p.Free(unsafe.Pointer(&s[0]))
}

// PtrAndKeepAlive returns t and calls runtime.KeepAlive on the pool,
// useful to prevent a pool with no other live Go references from being
// collected while a pointer it handed out is still in use.
func PtrAndKeepAlive[T any](p *Pool, t *T) *T {
	runtime.KeepAlive(p)
	return t
}
