package arena_test

import (
	"fmt"
	"testing"
	"unsafe"

	arena "github.com/arenapool/malloc"
)

// BenchmarkRequestResponseCycle models a typical server request: a
// handful of small header allocations plus one larger body buffer, all
// freed together once the request completes.
func BenchmarkRequestResponseCycle(b *testing.B) {
	b.Run("Pool", func(b *testing.B) {
		p, err := arena.New()
		if err != nil {
			b.Fatal(err)
		}
		defer p.Close()

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			ptrs := make([]unsafe.Pointer, 0, 9)
			for h := 0; h < 8; h++ {
				hp, err := p.Allocate(48)
				if err != nil {
					b.Fatal(err)
				}
				ptrs = append(ptrs, hp)
			}
			body, err := p.Allocate(4096)
			if err != nil {
				b.Fatal(err)
			}
			ptrs = append(ptrs, body)
			for _, ptr := range ptrs {
				p.Free(ptr)
			}
		}
	})

	b.Run("Builtin", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			headers := make([][]byte, 8)
			for h := range headers {
				headers[h] = make([]byte, 48)
			}
			_ = make([]byte, 4096)
		}
	})
}

// BenchmarkDocumentBuilding simulates assembling a nested document out of
// many small allocations of varying size, the pattern a serializer or
// template renderer produces.
func BenchmarkDocumentBuilding(b *testing.B) {
	p, err := arena.New()
	if err != nil {
		b.Fatal(err)
	}
	defer p.Close()

	fields := 24
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ptrs := make([]unsafe.Pointer, 0, fields)
		for f := 0; f < fields; f++ {
			ptr, err := p.Allocate(16 + f%48)
			if err != nil {
				b.Fatal(err)
			}
			ptrs = append(ptrs, ptr)
		}
		for _, ptr := range ptrs {
			p.Free(ptr)
		}
	}
}

// BenchmarkBatchProcessing models a worker pulling fixed-size records out
// of a queue, processing them, and releasing them in FIFO order, the
// free-list reuse pattern the block tier is built for.
func BenchmarkBatchProcessing(b *testing.B) {
	type record struct {
		ID      int64
		Payload [120]byte
	}

	p, err := arena.New()
	if err != nil {
		b.Fatal(err)
	}
	defer p.Close()

	batchSize := 64
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		batch := make([]*record, 0, batchSize)
		for j := 0; j < batchSize; j++ {
			rec, err := arena.Alloc[record](p)
			if err != nil {
				b.Fatal(err)
			}
			rec.ID = int64(j)
			batch = append(batch, rec)
		}
		for _, rec := range batch {
			arena.Release(p, rec)
		}
	}
}

// BenchmarkGrowingBuffer models a writer that starts small and grows via
// Reallocate as more data arrives, exercising the lucky-realloc path
// whenever nothing else interleaves on the same arena.
func BenchmarkGrowingBuffer(b *testing.B) {
	starts := []int{64, 512, 4096}
	for _, start := range starts {
		b.Run(fmt.Sprintf("start-%d", start), func(b *testing.B) {
			p, err := arena.New()
			if err != nil {
				b.Fatal(err)
			}
			defer p.Close()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				ptr, err := p.Allocate(start)
				if err != nil {
					b.Fatal(err)
				}
				for n := start * 2; n <= start*8; n *= 2 {
					ptr, err = p.Reallocate(ptr, n, n/2)
					if err != nil {
						b.Fatal(err)
					}
				}
				p.Free(ptr)
			}
		})
	}
}

// BenchmarkObjectPoolReuse models a long-lived pool serving a steady
// stream of same-shaped objects, the idiomatic way to use this allocator
// for connection or buffer pooling.
func BenchmarkObjectPoolReuse(b *testing.B) {
	type conn struct {
		ID      int64
		ReadBuf [256]byte
	}

	p, err := arena.New(arena.WithWarmup(true))
	if err != nil {
		b.Fatal(err)
	}
	defer p.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c, err := arena.Alloc[conn](p)
		if err != nil {
			b.Fatal(err)
		}
		c.ID = int64(i)
		arena.Release(p, c)
	}
}
