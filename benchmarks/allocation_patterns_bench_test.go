package arena_test

import (
	"fmt"
	"testing"

	arena "github.com/arenapool/malloc"
)

// BenchmarkSmallAllocations covers the block tier's low end: pointers,
// small structs, short strings.
func BenchmarkSmallAllocations(b *testing.B) {
	sizes := []int{8, 16, 32, 64}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("Pool_%dB", size), func(b *testing.B) {
			p, err := arena.New()
			if err != nil {
				b.Fatal(err)
			}
			defer p.Close()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				ptr, err := p.Allocate(size)
				if err != nil {
					b.Fatal(err)
				}
				p.Free(ptr)
			}
		})

		b.Run(fmt.Sprintf("Builtin_%dB", size), func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = make([]byte, size)
			}
		})
	}
}

// BenchmarkMediumAllocations covers larger requests that still stay well
// inside the block tier.
func BenchmarkMediumAllocations(b *testing.B) {
	sizes := []int{128, 256, 512, 1024}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("Pool_%dB", size), func(b *testing.B) {
			p, err := arena.New()
			if err != nil {
				b.Fatal(err)
			}
			defer p.Close()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				ptr, err := p.Allocate(size)
				if err != nil {
					b.Fatal(err)
				}
				p.Free(ptr)
			}
		})

		b.Run(fmt.Sprintf("Builtin_%dB", size), func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = make([]byte, size)
			}
		})
	}
}

// BenchmarkBigBlockAllocations exercises the mid-size tier, between the
// block allocation limit and the mmap threshold.
func BenchmarkBigBlockAllocations(b *testing.B) {
	p, err := arena.New()
	if err != nil {
		b.Fatal(err)
	}
	defer p.Close()

	sizes := []int{p.BlockSize() / 2, p.BlockSize(), p.BlockSize() * 2}
	for _, size := range sizes {
		if size > p.AllocLimit() {
			continue
		}
		b.Run(fmt.Sprintf("Pool_%dB", size), func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				ptr, err := p.Allocate(size)
				if err != nil {
					b.Fatal(err)
				}
				p.Free(ptr)
			}
		})
	}
}

// BenchmarkMmapAllocations exercises requests past AllocLimit, which go
// straight to the operating system.
func BenchmarkMmapAllocations(b *testing.B) {
	p, err := arena.New()
	if err != nil {
		b.Fatal(err)
	}
	defer p.Close()

	size := p.AllocLimit() * 2
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ptr, err := p.Allocate(size)
		if err != nil {
			b.Fatal(err)
		}
		p.Free(ptr)
	}
}

// BenchmarkReallocGrowth measures the lucky-realloc fast path: repeatedly
// growing the single most recent allocation out of an arena.
func BenchmarkReallocGrowth(b *testing.B) {
	p, err := arena.New()
	if err != nil {
		b.Fatal(err)
	}
	defer p.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ptr, err := p.Allocate(16)
		if err != nil {
			b.Fatal(err)
		}
		for n := 32; n <= 512; n *= 2 {
			ptr, err = p.Reallocate(ptr, n, n/2)
			if err != nil {
				b.Fatal(err)
			}
		}
		p.Free(ptr)
	}
}
