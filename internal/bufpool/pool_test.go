package bufpool

import (
	"sync"
	"testing"
)

func TestPoolGetReturnsSizedBuffer(t *testing.T) {
	t.Parallel()

	p := New()

	tests := []struct {
		name        string
		requestSize int
		expectCap   int
	}{
		{name: "exact power of two", requestSize: 64, expectCap: 64},
		{name: "rounds up", requestSize: 100, expectCap: 128},
		{name: "medium", requestSize: 1024, expectCap: 1024},
		{name: "large rounds up", requestSize: 5000, expectCap: 8192},
		{name: "oversized bypasses pool", requestSize: 3 * 1024 * 1024, expectCap: 3 * 1024 * 1024},
		{name: "zero", requestSize: 0, expectCap: 0},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			buf := p.Get(tc.requestSize)
			if tc.requestSize == 0 {
				if len(buf) != 0 || cap(buf) != 0 {
					t.Fatalf("expected zero-length buffer, got len=%d cap=%d", len(buf), cap(buf))
				}
				return
			}

			if len(buf) != tc.requestSize {
				t.Fatalf("expected len=%d, got %d", tc.requestSize, len(buf))
			}

			if cap(buf) != tc.expectCap {
				t.Fatalf("expected cap=%d, got %d", tc.expectCap, cap(buf))
			}
		})
	}
}

func TestPoolOversizedGetIsNotPooled(t *testing.T) {
	t.Parallel()

	p := New()
	before := p.OverflowGets()
	_ = p.Get(4 * 1024 * 1024)
	if p.OverflowGets() != before+1 {
		t.Fatalf("expected overflow counter to increment")
	}
}

func TestPoolPutReusesBuffer(t *testing.T) {
	t.Parallel()

	p := New()

	buf := p.Get(200)
	if len(buf) != 200 {
		t.Fatalf("expected len=200, got %d", len(buf))
	}
	buf[0] = 42

	ptr := &buf[:1][0]
	p.Put(buf)

	reused := p.Get(200)
	if len(reused) != 200 {
		t.Fatalf("expected len=200, got %d", len(reused))
	}

	if cap(reused) != 256 {
		t.Fatalf("expected cap=256, got %d", cap(reused))
	}

	if &reused[:1][0] != ptr {
		t.Fatalf("expected to get the same buffer pointer back from pool")
	}

	for i, v := range reused {
		if v != 0 {
			t.Fatalf("expected buffer to be zeroed, found value %d at index %d", v, i)
		}
	}
}

func TestPoolPerBucketCapDropsExcessBuffers(t *testing.T) {
	t.Parallel()

	p := NewWithLimits(DefaultGlobalByteCap, 2)
	bufs := make([][]byte, 5)
	for i := range bufs {
		bufs[i] = p.Get(64)
	}
	for _, b := range bufs {
		p.Put(b)
	}

	if got := p.GlobalBytes(); got > 2*64 {
		t.Fatalf("expected per-bucket cap to bound cached bytes, got %d", got)
	}
}

func TestPoolGlobalCapDropsExcessBuffers(t *testing.T) {
	t.Parallel()

	p := NewWithLimits(128, DefaultPerBucketCap)
	bufs := make([][]byte, 10)
	for i := range bufs {
		bufs[i] = p.Get(64)
	}
	for _, b := range bufs {
		p.Put(b)
	}

	if got := p.GlobalBytes(); got > 128 {
		t.Fatalf("expected global cap to bound cached bytes, got %d", got)
	}
}

func TestPoolConcurrentAccess(t *testing.T) {
	t.Parallel()

	p := New()
	var wg sync.WaitGroup

	worker := func(size int) {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			buf := p.Get(size)
			if len(buf) != size {
				t.Errorf("expected len=%d, got %d", size, len(buf))
				return
			}
			if cap(buf) < size {
				t.Errorf("expected cap >= %d, got %d", size, cap(buf))
				return
			}
			for j := range buf {
				buf[j] = byte(i)
			}
			p.Put(buf)
		}
	}

	sizes := []int{64, 512, 2048, 8192, 40000}
	for _, size := range sizes {
		size := size
		wg.Add(1)
		go worker(size)
	}

	wg.Wait()

	if got := p.GlobalBytes(); got < 0 || got > DefaultGlobalByteCap {
		t.Fatalf("global bytes counter out of bounds: %d", got)
	}
}
