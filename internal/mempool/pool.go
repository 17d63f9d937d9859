// Package mempool keeps size-classed buffers for hot image loops.
package mempool

import "sync"

const classStep = 1024

// sizeClass rounds n up to a multiple of classStep.
func sizeClass(n int) int {
	if n <= classStep {
		return classStep
	}
	return (n + classStep - 1) / classStep * classStep
}

// Pool hands out slices of T bucketed by capacity.
type Pool[T any] struct {
	pools sync.Map // size class -> *sync.Pool
}

func (p *Pool[T]) bucket(cls int) *sync.Pool {
	v, _ := p.pools.LoadOrStore(cls, &sync.Pool{New: func() any {
		s := make([]T, cls)
		return &s
	}})
	return v.(*sync.Pool)
}

// Get returns a zeroed slice of length n. Return it with Put.
func (p *Pool[T]) Get(n int) []T {
	cls := sizeClass(n)
	sp := p.bucket(cls).Get().(*[]T)
	buf := *sp
	if cap(buf) < cls {
		buf = make([]T, cls)
	}
	buf = buf[:n]
	clear(buf)
	return buf
}

// Put returns buf to the pool. Nil and foreign-sized slices are dropped.
func (p *Pool[T]) Put(buf []T) {
	if buf == nil || cap(buf)%classStep != 0 {
		return
	}
	buf = buf[:cap(buf)]
	p.bucket(cap(buf)).Put(&buf)
}

var (
	// Bools backs visited masks.
	Bools Pool[bool]
	// Float32s backs tensor data.
	Float32s Pool[float32]
)
