package frame

import (
	"errors"
	"sync"
)

// ErrAcquire is returned by Buffer implementations that cannot hand out
// their bytes.
var ErrAcquire = errors.New("frame: buffer cannot be acquired")

// ReleaseMode says what happens to bytes handed out by Acquire.
type ReleaseMode int

const (
	// ReleaseCommit keeps any writes made through the acquired slice.
	ReleaseCommit ReleaseMode = iota
	// ReleaseAbort discards writes. Readers always release with this.
	ReleaseAbort
)

func (m ReleaseMode) String() string {
	if m == ReleaseAbort {
		return "abort"
	}
	return "commit"
}

// Buffer is an externally owned byte sequence borrowed for a single call.
// The borrower must not keep the acquired slice after Release.
type Buffer interface {
	Acquire() ([]byte, error)
	Release(mode ReleaseMode)
}

// Bytes is a Buffer over a plain slice. A nil slice cannot be acquired.
type Bytes []byte

// Acquire returns the slice itself.
func (b Bytes) Acquire() ([]byte, error) {
	if b == nil {
		return nil, ErrAcquire
	}
	return b, nil
}

// Release is a no-op: the slice was never copied.
func (b Bytes) Release(ReleaseMode) {}

// Pool recycles NV21 storage between a source and the processor, so a
// steady stream of same-sized frames does not allocate.
type Pool struct {
	width  int
	height int
	size   int
	pool   sync.Pool
}

// slab is one pooled frame: the bytes producers fill and a scratch copy
// handed to the borrower.
type slab struct {
	data   []byte
	shadow []byte
}

// NewPool returns a pool of buffers for w x h NV21 frames.
func NewPool(w, h int) *Pool {
	p := &Pool{width: w, height: h, size: NV21Size(w, h)}
	p.pool.New = func() any {
		return &slab{data: make([]byte, p.size), shadow: make([]byte, p.size)}
	}
	return p
}

// Size is the byte length of every pooled buffer.
func (p *Pool) Size() int { return p.size }

// Get returns a pooled buffer wrapped for borrowing. The producer fills
// Data() and hands the buffer to the consumer, which acquires and
// releases it once.
func (p *Pool) Get() *Pooled {
	return &Pooled{pool: p, slab: p.pool.Get().(*slab)}
}

// NewFrame returns a frame backed by pooled storage. Its Data is valid
// until the frame's buffer is released or the frame is recycled.
func (p *Pool) NewFrame() Frame {
	b := p.Get()
	return Frame{Data: b.Data(), Width: p.width, Height: p.height, pooled: b}
}

// Pooled is a Buffer that returns its storage to the pool on release.
// Acquiring it a second time before release fails.
type Pooled struct {
	pool     *Pool
	mu       sync.Mutex
	slab     *slab
	acquired bool
	released bool
}

// Data exposes the backing storage for the producer to fill. It is nil
// once the storage went back to the pool.
func (b *Pooled) Data() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.slab == nil {
		return nil
	}
	return b.slab.data
}

// Acquire hands out a private copy so an abort release can drop writes.
func (b *Pooled) Acquire() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.acquired || b.released {
		return nil, ErrAcquire
	}
	b.acquired = true
	copy(b.slab.shadow, b.slab.data)
	return b.slab.shadow, nil
}

// Release commits or drops writes, then returns the storage to the pool.
func (b *Pooled) Release(mode ReleaseMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.acquired || b.released {
		return
	}
	if mode == ReleaseCommit {
		copy(b.slab.data, b.slab.shadow)
	}
	b.putLocked()
}

// Recycle returns the storage of a buffer that was never acquired, such
// as a frame dropped before processing. It does nothing otherwise.
func (b *Pooled) Recycle() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.acquired || b.released {
		return
	}
	b.putLocked()
}

// Released reports whether the storage went back to the pool.
func (b *Pooled) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}

func (b *Pooled) putLocked() {
	b.released = true
	b.pool.pool.Put(b.slab)
	b.slab = nil
}
