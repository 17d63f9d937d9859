package mempool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizeClass(t *testing.T) {
	tests := []struct{ n, want int }{
		{0, 1024},
		{1, 1024},
		{1024, 1024},
		{1025, 2048},
		{5000, 5120},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sizeClass(tt.n), "n=%d", tt.n)
	}
}

func TestPool_GetIsZeroed(t *testing.T) {
	var p Pool[bool]
	buf := p.Get(100)
	assert.Len(t, buf, 100)
	assert.Equal(t, 1024, cap(buf))
	for i := range buf {
		buf[i] = true
	}
	p.Put(buf)

	again := p.Get(50)
	for i, v := range again {
		assert.False(t, v, "index %d", i)
	}
}

func TestPool_PutIgnoresForeign(t *testing.T) {
	var p Pool[float32]
	p.Put(nil)
	p.Put(make([]float32, 10))
	assert.Len(t, p.Get(10), 10)
}

func TestPool_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			buf := Float32s.Get(n * 300)
			assert.Len(t, buf, n*300)
			Float32s.Put(buf)
		}(i + 1)
	}
	wg.Wait()
}
