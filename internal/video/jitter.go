package video

import (
	"math"
	"sync"

	"github.com/nordlyslabs/camviewer/internal/bufpool"
)

// Capacity is the jitter buffer's fixed bound (spec §4.5: "Bounded queue
// capacity 30").
const Capacity = 30

const (
	ewmaAlpha = 0.10

	moderateEwmaMs  = 12.0
	moderateDeltaMs = 60.0
	heavyEwmaMs     = 25.0
	heavyDeltaMs    = 90.0

	targetCalm     = 2
	targetModerate = 3
	targetHeavy    = 4
)

// JitterBuffer is a bounded, drop-oldest-on-full queue of received video
// frames with an EWMA-adaptive target backlog (spec §4.5). Safe for
// concurrent use: the reader task pushes, the decoder feeder task drains.
type JitterBuffer struct {
	mu    sync.Mutex
	queue []Frame
	pool  *bufpool.Pool

	ewmaMs float64
	target int
}

// NewJitterBuffer creates an empty buffer with the calm-state target (2).
// pool is used to recycle dropped frames' payload buffers; nil selects
// the package-level default pool.
func NewJitterBuffer(pool *bufpool.Pool) *JitterBuffer {
	return &JitterBuffer{target: targetCalm, pool: pool}
}

func (b *JitterBuffer) putBack(f Frame) {
	if f.Payload == nil {
		return
	}
	if b.pool != nil {
		b.pool.Put(f.Payload)
	} else {
		bufpool.Put(f.Payload)
	}
}

// UpdateJitter folds one inter-arrival sample into the EWMA and
// recomputes the target backlog (spec §4.5 step 3). expectedMs is
// 1000/fps; deltaMs is the observed inter-arrival gap for this frame.
func (b *JitterBuffer) UpdateJitter(deltaMs, expectedMs float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	dev := math.Abs(deltaMs - expectedMs)
	b.ewmaMs = ewmaAlpha*dev + (1-ewmaAlpha)*b.ewmaMs

	switch {
	case b.ewmaMs >= heavyEwmaMs || deltaMs >= heavyDeltaMs:
		b.target = targetHeavy
	case b.ewmaMs >= moderateEwmaMs || deltaMs >= moderateDeltaMs:
		b.target = targetModerate
	default:
		b.target = targetCalm
	}
}

// Target returns the current adaptive target backlog.
func (b *JitterBuffer) Target() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.target
}

// Push enqueues a frame, dropping the oldest entry first if the buffer is
// at capacity (spec §4.5 step 4). Returns the dropped frame (nil if nothing
// was dropped); its payload is not returned to the pool here.
func (b *JitterBuffer) Push(f Frame) (dropped *Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) >= Capacity {
		old := b.queue[0]
		b.queue = b.queue[1:]
		dropped = &old
	}
	b.queue = append(b.queue, f)
	return dropped
}

// Len returns the current queue length.
func (b *JitterBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// DrainToLatestKeyOrNewest empties the queue and returns the single best
// candidate: the newest keyframe if any drained frame was one, else the
// newest frame overall (spec §4.5: used while waitingForKeyframe or when
// jitter buffering is disabled). All other drained frames' payloads are
// returned to the pool. Returns nil if the queue was empty.
func (b *JitterBuffer) DrainToLatestKeyOrNewest() *Frame {
	b.mu.Lock()
	q := b.queue
	b.queue = nil
	b.mu.Unlock()

	if len(q) == 0 {
		return nil
	}

	bestIdx := len(q) - 1 // newest frame overall, fallback when no key present
	for i := range q {
		if q[i].IsKey {
			bestIdx = i // last (newest) key wins since we scan forward
		}
	}
	for i := range q {
		if i != bestIdx {
			b.putBack(q[i])
		}
	}
	best := q[bestIdx]
	return &best
}

// PopFIFO dequeues the oldest frame, or nil if empty (steady-state path).
func (b *JitterBuffer) PopFIFO() *Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return nil
	}
	f := b.queue[0]
	b.queue = b.queue[1:]
	return &f
}

// DropOldestExtras trims the queue down to maxBacklog entries (the feeder
// passes target+10) by dropping from the front, returning their payloads
// to the pool (spec §4.5: "if
// backlog > target + 10, drop oldest extras to bound latency").
func (b *JitterBuffer) DropOldestExtras(maxBacklog int) (dropped int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.queue) > maxBacklog {
		b.putBack(b.queue[0])
		b.queue = b.queue[1:]
		dropped++
	}
	return dropped
}
