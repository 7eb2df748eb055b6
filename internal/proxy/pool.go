package proxy

import (
	"sync"
)

// bufferSize is the capacity of the single request read and of each
// response chunk.
const bufferSize = 4096

type bufferPool struct {
	pool sync.Pool
}

func newBufferPool(size int) *bufferPool {
	bp := &bufferPool{}
	bp.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return bp
}

func (p *bufferPool) Get() []byte {
	return *p.pool.Get().(*[]byte)
}

func (p *bufferPool) Put(b []byte) {
	// This &b forces a small heap allocation; a slice can't go into an interface without one.
	p.pool.Put(&b)
}
