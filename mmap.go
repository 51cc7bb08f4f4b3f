package arena

import (
	"unsafe"

	"github.com/pkg/errors"
)

// maxMmapPages bounds the page count a single mmap-tier chunk can carry,
// so that the page count always fits the uint32 marker field.
const maxMmapPages = (1 << 31) - 1

// mmapAlloc services requests too large for either block tier directly
// through the operating system. The returned pointer sits exactly
// alignSize bytes past the chunk's base. Free and Reallocate recognise
// an mmap-tier allocation by that offset together with a non-zero
// marker that is not bigBlockMarker; the offset alone is not enough,
// since the first big-block slice sits there too whenever
// bigBlockHeaderSize rounds to alignSize (AlignLog 4 and above), and so
// does the first block-tier slice when headerSize does (AlignLog 9
// and 10).
func (p *Pool) mmapAlloc(size int) (unsafe.Pointer, error) {
	if size == 0 {
		return p.zeroSentinel, nil
	}
	pages := bytesToPages(size + p.layout.alignSize)
	if pages > maxMmapPages {
		return nil, ErrTooLarge
	}
	c, err := sysAlloc(pages<<pageSizeLog, p.layout.chunkSizeLog)
	if err != nil {
		return nil, errors.Wrap(ErrOutOfMemory, err.Error())
	}
	h := (*chunkHeader)(c)
	h.marker = uint32(pages)
	return unsafe.Add(c, p.layout.alignSize), nil
}

// mmapFree releases an mmap-tier chunk back to the OS directly; there is
// no caching for this tier since sizes vary too widely to usefully pool.
func (p *Pool) mmapFree(c unsafe.Pointer, pages int) {
	sysFree(c, pages<<pageSizeLog)
}

// mmapRealloc grows or shrinks an mmap-tier allocation via sysRealloc
// (which takes the mremap fast path on Linux), re-stamping the new
// chunk's page count.
func (p *Pool) mmapRealloc(c unsafe.Pointer, oldPages, newSize int) (unsafe.Pointer, error) {
	newPages := bytesToPages(newSize + p.layout.alignSize)
	if newPages > maxMmapPages {
		return nil, ErrTooLarge
	}
	newC, err := sysRealloc(c, oldPages<<pageSizeLog, newPages<<pageSizeLog, p.layout.chunkSizeLog)
	if err != nil {
		return nil, errors.Wrap(ErrOutOfMemory, err.Error())
	}
	h := (*chunkHeader)(newC)
	h.marker = uint32(newPages)
	return unsafe.Add(newC, p.layout.alignSize), nil
}
