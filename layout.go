package arena

import "unsafe"

// layout is the set of sizes derived once from a Config at New time. Every
// other file treats it as read-only.
type layout struct {
	alignLog  int
	alignSize int

	chunkSizeLog int
	chunkSize    int

	blocksPerChunkLog int
	blocksPerChunk    int

	headerSize    uintptr
	blockSize     int
	unitsPerBlock int

	blockAllocLimit int

	bigBlockHeaderSize uintptr
	bigBlockSize       int
	unitsPerBigBlock   int
	bigAllocLimit      int

	allocLimit int

	listNodeSize uintptr
}

// maxBlocksPerChunk bounds the fixed-size blocks array embedded in
// chunkHeader; Config.BlocksPerChunkLog can select any power of two up to
// this without changing the header's in-memory shape.
const maxBlocksPerChunk = 32

func alignUpUintptr(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

func alignDown(n, align int) int {
	return n &^ (align - 1)
}

func newLayout(cfg Config) layout {
	l := layout{
		alignLog:          cfg.AlignLog,
		alignSize:         1 << cfg.AlignLog,
		chunkSizeLog:      cfg.ChunkSizeLog,
		chunkSize:         1 << cfg.ChunkSizeLog,
		blocksPerChunkLog: cfg.BlocksPerChunkLog,
		blocksPerChunk:    1 << cfg.BlocksPerChunkLog,
	}

	l.headerSize = alignUpUintptr(unsafe.Sizeof(chunkHeader{}), uintptr(l.alignSize))
	l.blockSize = alignDown((l.chunkSize-int(l.headerSize))/l.blocksPerChunk, l.alignSize)
	l.unitsPerBlock = l.blockSize / l.alignSize
	l.blockAllocLimit = l.chunkSize >> (uint(l.blocksPerChunkLog) + 2)

	l.bigBlockHeaderSize = alignUpUintptr(unsafe.Sizeof(bigBlockHeader{}), uintptr(l.alignSize))
	l.bigBlockSize = l.chunkSize - int(l.bigBlockHeaderSize)
	l.unitsPerBigBlock = l.bigBlockSize / l.alignSize

	bigShift := l.blocksPerChunkLog
	if bigShift > 3 {
		bigShift = 3
	}
	l.bigAllocLimit = l.chunkSize >> uint(bigShift)

	if cfg.BigAlloc {
		l.allocLimit = l.bigAllocLimit
	} else {
		l.allocLimit = l.blockAllocLimit
	}

	l.listNodeSize = alignUpUintptr(unsafe.Sizeof(listNode{}), uintptr(l.alignSize))

	return l
}
