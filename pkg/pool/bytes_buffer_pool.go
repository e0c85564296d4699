package pool

import (
	"bytes"
	"sync"
)

// DefaultMaxRetained is the largest buffer capacity returned to the pool by default.
const DefaultMaxRetained = 1 << 20

// BytesBuffer is a strongly typed wrapper around a sync.Pool for *bytes.Buffer.  Buffers that
// grew beyond maxRetained are left to the garbage collector.
type BytesBuffer struct {
	p           sync.Pool
	maxRetained int
}

func NewBytesBuffer(maxRetained int) *BytesBuffer {
	if maxRetained <= 0 {
		maxRetained = DefaultMaxRetained
	}
	return &BytesBuffer{
		p: sync.Pool{
			New: func() interface{} {
				return &bytes.Buffer{}
			},
		},
		maxRetained: maxRetained,
	}
}

// Get returns an empty buffer.
func (p *BytesBuffer) Get() *bytes.Buffer {
	buffer := p.p.Get().(*bytes.Buffer)
	buffer.Reset()
	return buffer
}

// Put returns b to the pool.  b must not be used afterwards.
func (p *BytesBuffer) Put(b *bytes.Buffer) {
	if b.Cap() > p.maxRetained {
		return
	}
	p.p.Put(b)
}
