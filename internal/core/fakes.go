package core

import (
	"sync"
	"time"
)

// fakeDecoderHandle is a trivial DecoderHandle whose Valid() tracks the
// generation it was minted in; FakeDecoderSink bumps the generation on
// every Configure/Reset so stale handles correctly report invalid.
type fakeDecoderHandle struct {
	sink *FakeDecoderSink
	gen  uint64
}

func (h *fakeDecoderHandle) Valid() bool {
	return h.sink.gen.Load() == h.gen
}

// FakeDecoderSink is an in-memory DecoderSink for tests: Feed appends to
// a log instead of driving real hardware, and PollOutput replays one
// synthetic output buffer per fed keyframe-gated frame.
type FakeDecoderSink struct {
	mu       sync.Mutex
	gen      counter
	fed      []FedCall
	pending  []DecoderResult
	FlushErr error
	ResetErr error
}

type FedCall struct {
	PtsUs int64
	IsKey bool
	Size  int
}

type counter struct {
	mu sync.Mutex
	v  uint64
}

func (c *counter) Load() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}
func (c *counter) next() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v++
	return c.v
}

func NewFakeDecoderSink() *FakeDecoderSink { return &FakeDecoderSink{} }

func (f *FakeDecoderSink) Configure(sps, pps []byte, width, height int) (DecoderHandle, error) {
	gen := f.gen.next()
	return &fakeDecoderHandle{sink: f, gen: gen}, nil
}

func (f *FakeDecoderSink) Feed(handle DecoderHandle, payload []byte, ptsUs int64, isKey bool) (FedStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fed = append(f.fed, FedCall{PtsUs: ptsUs, IsKey: isKey, Size: len(payload)})
	f.pending = append(f.pending, DecoderResult{Kind: OutputBuffer, Buffer: OutputBufferInfo{Index: len(f.fed) - 1, PtsUs: ptsUs}})
	return Fed, nil
}

func (f *FakeDecoderSink) PollOutput(handle DecoderHandle, timeout time.Duration) (DecoderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return DecoderResult{Kind: OutputNone}, nil
	}
	r := f.pending[0]
	f.pending = f.pending[1:]
	return r, nil
}

func (f *FakeDecoderSink) Release(handle DecoderHandle, index int, render bool) error { return nil }

func (f *FakeDecoderSink) Flush(handle DecoderHandle) error { return f.FlushErr }

func (f *FakeDecoderSink) Reset(handle DecoderHandle) error {
	f.gen.next()
	return f.ResetErr
}

// FedCalls returns a copy of the feed history, for test assertions.
func (f *FakeDecoderSink) FedCalls() []FedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FedCall, len(f.fed))
	copy(out, f.fed)
	return out
}

// FakeAudioSink is an in-memory AudioSink for tests.
type FakeAudioSink struct {
	mu      sync.Mutex
	Rate    int
	Ch      int
	Written [][]byte
}

func NewFakeAudioSink() *FakeAudioSink { return &FakeAudioSink{} }

func (f *FakeAudioSink) Ensure(rate, channels int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Rate, f.Ch = rate, channels
	return nil
}

func (f *FakeAudioSink) Write(pcm []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(pcm))
	copy(cp, pcm)
	f.Written = append(f.Written, cp)
	return nil
}

func (f *FakeAudioSink) FlushAndRelease() error { return nil }

// NoopObservers implements Observers with no-op methods, for callers that
// don't need UI callbacks (headless CLI, tests).
type NoopObservers struct{}

func (NoopObservers) OnStateChanged(string)                 {}
func (NoopObservers) OnError(string)                        {}
func (NoopObservers) OnRotationChanged(int64)                {}
func (NoopObservers) OnRecordingChanged(bool)                {}
func (NoopObservers) OnVideoSizeChanged(int, int)            {}
func (NoopObservers) OnVideoCropChanged(VideoCropRect)       {}
func (NoopObservers) OnFirstFrameRendered()                  {}
func (NoopObservers) OnCameraFacingChanged(string)           {}
func (NoopObservers) OnCommunicationEnabledChanged(bool)     {}

// SystemClock is the real wall/monotonic clock.
type SystemClock struct{}

func (SystemClock) NowMs() int64  { return time.Now().UnixMilli() }
func (SystemClock) WallMs() int64 { return time.Now().UnixMilli() }
