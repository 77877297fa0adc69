// Package bufpool provides size-bucketed reuse of payload buffers for the
// viewer core. Video frames, audio packets, and scratch drain buffers all
// flow through here so that a sustained stream does not churn the GC.
package bufpool

import (
	"sync"
	"sync/atomic"
)

// Size classes are powers of two from 1 B up to 2 MiB. Requests larger than
// the largest class bypass the pool entirely; the caller still gets a
// correctly sized slice, it is simply not recycled.
const (
	minClassShift = 0  // 1 B
	maxClassShift = 21 // 2 MiB
)

// DefaultGlobalByteCap bounds the total bytes the pool will hold in its free
// lists across all size classes. It is a soft cap: Put silently drops
// buffers once exceeded rather than blocking or erroring.
const DefaultGlobalByteCap = 8 * 1024 * 1024

// DefaultPerBucketCap bounds how many buffers a single size class will
// retain for reuse.
const DefaultPerBucketCap = 50

type bucket struct {
	size   int
	pool   sync.Pool
	cached int64 // atomic: number of buffers currently resident in pool
}

// Pool is a lock-free, size-classed byte buffer pool with a soft global byte
// cap and a per-bucket count cap. It is safe for concurrent use.
type Pool struct {
	buckets      []*bucket
	globalCap    int64
	perBucketCap int64
	globalBytes  int64 // atomic: approximate bytes currently cached
	overflowGets int64 // atomic: Get calls that bypassed the pool entirely
}

var defaultPool = New()

// Get acquires a buffer from the package-level default pool.
func Get(size int) []byte { return defaultPool.Get(size) }

// Put releases a buffer back to the package-level default pool.
func Put(buf []byte) { defaultPool.Put(buf) }

// New creates a Pool using DefaultGlobalByteCap and DefaultPerBucketCap.
func New() *Pool {
	return NewWithLimits(DefaultGlobalByteCap, DefaultPerBucketCap)
}

// NewWithLimits creates a Pool with explicit caps, primarily for tests that
// want to exercise the soft-cap fallback path deterministically.
func NewWithLimits(globalByteCap, perBucketCap int64) *Pool {
	p := &Pool{
		buckets:      make([]*bucket, maxClassShift-minClassShift+1),
		globalCap:    globalByteCap,
		perBucketCap: perBucketCap,
	}
	for i := range p.buckets {
		size := 1 << uint(minClassShift+i)
		b := &bucket{size: size}
		b.pool.New = func() any { return make([]byte, size) }
		p.buckets[i] = b
	}
	return p
}

// classFor returns the index of the smallest size class able to hold size,
// or -1 if size exceeds the largest class.
func (p *Pool) classFor(size int) int {
	for i, b := range p.buckets {
		if size <= b.size {
			return i
		}
	}
	return -1
}

// Get returns a byte slice whose length is exactly size. Capacity is the
// nearest size class. Requests beyond the largest class allocate directly
// and are counted in OverflowGets.
func (p *Pool) Get(size int) []byte {
	if p == nil || size <= 0 {
		return nil
	}
	idx := p.classFor(size)
	if idx < 0 {
		atomic.AddInt64(&p.overflowGets, 1)
		return make([]byte, size)
	}
	b := p.buckets[idx]
	buf := b.pool.Get().([]byte)
	if atomic.AddInt64(&b.cached, -1) >= 0 {
		atomic.AddInt64(&p.globalBytes, -int64(b.size))
	} else {
		// Bucket was already at zero (this Get triggered sync.Pool's New);
		// restore the counter instead of letting it go negative.
		atomic.AddInt64(&b.cached, 1)
	}
	return buf[:size]
}

// Put returns buf to the pool if it matches a size class and the class/global
// caps have not been reached. Buffers that don't fit anywhere, or that would
// overflow a cap, are simply dropped for the GC to reclaim. The buffer is
// zeroed before reuse so no payload data leaks across callers or sessions.
func (p *Pool) Put(buf []byte) {
	if p == nil || buf == nil {
		return
	}
	capBuf := cap(buf)
	for _, b := range p.buckets {
		if capBuf != b.size {
			continue
		}
		if atomic.LoadInt64(&b.cached) >= p.perBucketCap {
			return
		}
		if atomic.LoadInt64(&p.globalBytes)+int64(b.size) > p.globalCap {
			return
		}
		full := buf[:b.size]
		clear(full)
		b.pool.Put(full)
		atomic.AddInt64(&b.cached, 1)
		atomic.AddInt64(&p.globalBytes, int64(b.size))
		return
	}
	// Capacity doesn't match any class exactly (e.g. a sub-sliced buffer) —
	// nothing useful to recycle.
}

// GlobalBytes returns the approximate number of bytes currently cached
// across all buckets. Exposed for metrics and tests.
func (p *Pool) GlobalBytes() int64 { return atomic.LoadInt64(&p.globalBytes) }

// OverflowGets returns how many Get calls bypassed the pool because the
// request exceeded the largest size class.
func (p *Pool) OverflowGets() int64 { return atomic.LoadInt64(&p.overflowGets) }
