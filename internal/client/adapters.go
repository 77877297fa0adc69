package client

// Adapters bridge the narrow, package-local collaborator interfaces that
// internal/video and internal/audio were written against to the fuller
// internal/core interfaces an embedding application actually implements.
// Grounded on the teacher's conn.Session pattern of holding a single
// mutable "current decoder instance" behind a lock and re-validating it
// on every call (internal/rtmp/conn/conn.go's stream bookkeeping).

import (
	"sync"
	"time"

	"github.com/nordlyslabs/camviewer/internal/core"
	"github.com/nordlyslabs/camviewer/internal/errors"
)

// decoderAdapter owns the current core.DecoderHandle and exposes both the
// narrow video.DecoderSink surface (for the Feeder) and the full
// Configure/PollOutput/Release surface (for the orchestrator's output
// pump), so a single Configure call updates the handle both sides see.
type decoderAdapter struct {
	mu     sync.Mutex
	sink   core.DecoderSink
	handle core.DecoderHandle
}

func newDecoderAdapter(sink core.DecoderSink) *decoderAdapter {
	return &decoderAdapter{sink: sink}
}

// Configure tears down and recreates the decoder, per spec §4.4's rule
// that CSD is never applied to an already-configured instance.
func (d *decoderAdapter) Configure(sps, pps []byte, width, height int) error {
	h, err := d.sink.Configure(sps, pps, width, height)
	if err != nil {
		return errors.NewDecoderFailureError("decoder configure", err)
	}
	d.mu.Lock()
	d.handle = h
	d.mu.Unlock()
	return nil
}

func (d *decoderAdapter) currentHandle() core.DecoderHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handle
}

// Feed implements video.DecoderSink.
func (d *decoderAdapter) Feed(payload []byte, ptsUs int64, isKey bool) error {
	h := d.currentHandle()
	if h == nil {
		return errors.NewDecoderFailureError("decoder feed: not configured", nil)
	}
	status, err := d.sink.Feed(h, payload, ptsUs, isKey)
	if err != nil {
		return errors.NewDecoderFailureError("decoder feed", err)
	}
	if status == core.BufferFull {
		return errors.NewResourceExhaustedError("decoder feed: buffer full", nil)
	}
	return nil
}

// Flush implements video.DecoderSink.
func (d *decoderAdapter) Flush() error {
	h := d.currentHandle()
	if h == nil {
		return nil
	}
	return d.sink.Flush(h)
}

// Reset implements video.DecoderSink.
func (d *decoderAdapter) Reset() error {
	h := d.currentHandle()
	if h == nil {
		return nil
	}
	return d.sink.Reset(h)
}

// PollOutput drains one pending output buffer or format-change event,
// re-checking the handle identity first so a racing Configure/Reset fails
// safe (spec §5: "re-check the instance identity before each call").
func (d *decoderAdapter) PollOutput(timeout time.Duration) (core.DecoderResult, error) {
	h := d.currentHandle()
	if h == nil || !h.Valid() {
		return core.DecoderResult{Kind: core.OutputNone}, nil
	}
	return d.sink.PollOutput(h, timeout)
}

// Release returns a decoded output buffer to the decoder, optionally
// rendering it first.
func (d *decoderAdapter) Release(index int, render bool) error {
	h := d.currentHandle()
	if h == nil || !h.Valid() {
		return nil
	}
	return d.sink.Release(h, index, render)
}

// aacAdapter bridges internal/core.AacDecoder (timestamp-aware Feed,
// batch DrainPcm) to internal/audio.AacDecoder (no timestamp on Feed,
// single-chunk Drain). internal/audio.Downstream re-stamps every
// dequeued PCM chunk with the TsUs of the ADTS frame that produced it
// (see Downstream.EnqueueAAC), so the per-chunk timestamp DrainPcm
// reports is not load-bearing here; Feed passes 0 through.
type aacAdapter struct {
	dec   core.AacDecoder
	mu    sync.Mutex
	queue []core.PcmChunk
}

func newAacAdapter(dec core.AacDecoder) *aacAdapter {
	return &aacAdapter{dec: dec}
}

func (a *aacAdapter) Configure(sampleRate, channels int, asc []byte) error {
	return a.dec.ConfigureAdts(sampleRate, channels, asc)
}

func (a *aacAdapter) Feed(adtsFrame []byte) error {
	if err := a.dec.Feed(adtsFrame, 0); err != nil {
		return err
	}
	chunks, err := a.dec.DrainPcm()
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.queue = append(a.queue, chunks...)
	a.mu.Unlock()
	return nil
}

func (a *aacAdapter) Drain() (pcm []byte, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.queue) == 0 {
		return nil, false
	}
	c := a.queue[0]
	a.queue = a.queue[1:]
	return c.Pcm, true
}
