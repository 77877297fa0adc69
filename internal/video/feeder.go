package video

import (
	"sync"

	"github.com/nordlyslabs/camviewer/internal/bufpool"
	"github.com/nordlyslabs/camviewer/internal/protocol"
)

// DecoderSink is the abstract decoder collaborator the feeder drives
// (spec §6); the concrete hardware/software decoder lives outside this
// core.
type DecoderSink interface {
	Feed(payload []byte, ptsUs int64, isKey bool) error
	Flush() error
	Reset() error
}

// Feeder applies the keyframe/epoch gating invariants of spec §4.5 while
// draining a JitterBuffer into a DecoderSink. Not safe for concurrent
// calls to Tick; intended to run on a single dedicated task (the
// "video-decoder-feeder" task of spec §5).
type Feeder struct {
	mu sync.Mutex

	pool *bufpool.Pool

	waitingForKeyframe       bool
	queuedKeyframeSinceReset bool
	jitterEnabled            bool

	skipCount int // frames skipped while waiting, for the skip-count downgrade trigger (spec §4.6)
}

// NewFeeder creates a Feeder that starts gated (waiting for a keyframe)
// with jitter buffering enabled.
func NewFeeder(pool *bufpool.Pool) *Feeder {
	return &Feeder{pool: pool, waitingForKeyframe: true, jitterEnabled: true}
}

// Reset re-arms keyframe gating; called on epoch bump or decoder failure
// recovery (spec §4.4/§4.5).
func (fe *Feeder) Reset() {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	fe.waitingForKeyframe = true
	fe.queuedKeyframeSinceReset = false
	fe.skipCount = 0
}

// SetJitterEnabled toggles steady-state FIFO processing vs. always
// draining to the latest candidate.
func (fe *Feeder) SetJitterEnabled(enabled bool) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	fe.jitterEnabled = enabled
}

// WaitingForKeyframe reports the current gate state.
func (fe *Feeder) WaitingForKeyframe() bool {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.waitingForKeyframe
}

// ShouldRenderOutput implements invariant 3: decoder output must not be
// rendered until a keyframe has been queued since the last reset.
func (fe *Feeder) ShouldRenderOutput() bool {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.queuedKeyframeSinceReset
}

// SkipCount returns how many frames have been skipped while gated since
// the last reset (spec §4.6's skip-count downgrade trigger).
func (fe *Feeder) SkipCount() int {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.skipCount
}

func (fe *Feeder) putBack(f *Frame) {
	if f == nil || f.Payload == nil {
		return
	}
	if fe.pool != nil {
		fe.pool.Put(f.Payload)
	} else {
		bufpool.Put(f.Payload)
	}
}

// Tick drains one scheduling step from buf into sink, applying the gating
// rules. currentEpoch is the session's current epoch; frames from a
// stale/future epoch are dropped before gating is even considered.
func (fe *Feeder) Tick(buf *JitterBuffer, currentEpoch uint64, sink DecoderSink) error {
	fe.mu.Lock()
	waiting := fe.waitingForKeyframe
	jitterOff := !fe.jitterEnabled
	fe.mu.Unlock()

	var frame *Frame
	if waiting || jitterOff {
		frame = buf.DrainToLatestKeyOrNewest()
	} else {
		target := buf.Target()
		if dropped := buf.DropOldestExtras(target + 10); dropped > 0 {
			_ = dropped // already recycled by DropOldestExtras
		}
		frame = buf.PopFIFO()
	}
	if frame == nil {
		return nil
	}
	return fe.feedGated(frame, currentEpoch, sink)
}

func (fe *Feeder) feedGated(frame *Frame, currentEpoch uint64, sink DecoderSink) error {
	if protocol.ShouldDropFrameByEpoch(currentEpoch, frame.Epoch) {
		fe.putBack(frame)
		return nil
	}

	fe.mu.Lock()
	waiting := fe.waitingForKeyframe
	if waiting && !frame.IsKey {
		fe.skipCount++
		fe.mu.Unlock()
		fe.putBack(frame)
		return nil
	}
	fe.mu.Unlock()

	if err := sink.Feed(frame.Payload, frame.SendTsUs, frame.IsKey); err != nil {
		return err
	}

	if frame.IsKey {
		fe.mu.Lock()
		fe.waitingForKeyframe = false
		fe.queuedKeyframeSinceReset = true
		fe.skipCount = 0
		fe.mu.Unlock()
	}
	return nil
}

// HandleDecoderFailure implements spec §4.5's IllegalDecoderState
// recovery: flush first, and only tear down/recreate if the flush itself
// fails. Either path re-arms keyframe gating; the caller is responsible
// for issuing the REQ_KEYFRAME this implies.
func (fe *Feeder) HandleDecoderFailure(sink DecoderSink) error {
	defer fe.Reset()
	if err := sink.Flush(); err == nil {
		return nil
	}
	return sink.Reset()
}
