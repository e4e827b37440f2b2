// Package miniapi holds small primitives shared across the mini back
// end.
package miniapi

const poolChunkSize = 128

// Pool is an arena of T values handed out one at a time and recycled
// in bulk. Pointers stay valid until Reset; freeing individual items
// is deliberately unsupported, matching the per-compilation lifetime
// of everything allocated from it.
type Pool[T any] struct {
	chunks [][]T
	n      int
}

// NewPool returns an empty Pool.
func NewPool[T any]() Pool[T] {
	return Pool[T]{}
}

// Allocated returns the number of items handed out since the last
// Reset.
func (p *Pool[T]) Allocated() int {
	return p.n
}

// Allocate hands out a pointer to a zeroed T.
func (p *Pool[T]) Allocate() *T {
	chunk, index := p.n/poolChunkSize, p.n%poolChunkSize
	if chunk == len(p.chunks) {
		p.chunks = append(p.chunks, make([]T, poolChunkSize))
	}
	p.n++
	return &p.chunks[chunk][index]
}

// View returns the pointer to the i-th allocated item.
func (p *Pool[T]) View(i int) *T {
	return &p.chunks[i/poolChunkSize][i%poolChunkSize]
}

// Reset recycles the arena. Existing chunks are zeroed and reused by
// subsequent allocations.
func (p *Pool[T]) Reset() {
	for _, c := range p.chunks {
		for i := range c {
			var zero T
			c[i] = zero
		}
	}
	p.n = 0
}
