// Package core defines the collaborator interfaces the viewer streaming
// core consumes but does not implement (spec §6): the hardware/software
// decoder, the audio output sink, the optional AAC decoder, the render
// surface, UI observers, the wall/monotonic clock, and start-profile
// config persistence. Concrete implementations (platform decoder,
// camera capture, UI surface management) live outside this module per
// the stated OUT OF SCOPE boundary; this package only types the seam.
package core

import "time"

// DecoderOutputKind distinguishes the three things PollOutput may return.
type DecoderOutputKind int

const (
	OutputNone DecoderOutputKind = iota
	OutputFormatChanged
	OutputBuffer
)

// VideoFormat describes the decoder's negotiated/coded output format.
// CodedWidth/Height are preferred over any earlier negotiated size when
// both are known (spec §6: "coded size preferred over negotiated").
type VideoFormat struct {
	CodedWidth, CodedHeight int
}

// OutputBufferInfo describes one decoded output buffer pending release.
type OutputBufferInfo struct {
	Index       int
	PtsUs       int64
	IsEndOfData bool
}

// DecoderResult is the tagged union PollOutput returns.
type DecoderResult struct {
	Kind   DecoderOutputKind
	Format VideoFormat
	Buffer OutputBufferInfo
}

// FedStatus is returned by DecoderSink.Feed.
type FedStatus int

const (
	Fed FedStatus = iota
	BufferFull
)

// DecoderHandle identifies one configured decoder instance. Every
// DecoderSink method re-checks the handle's identity before acting, so a
// caller that raced a Reset/reconfigure fails safe instead of operating
// on a torn-down decoder (spec §5: "re-check the instance identity
// before each call to survive decoder replacement between calls").
type DecoderHandle interface {
	// Valid reports whether this handle still refers to the live decoder
	// instance (false after the owning DecoderSink has been reconfigured
	// or reset out from under it).
	Valid() bool
}

// DecoderSink is the abstract hardware/software H.264 decoder (spec §6).
type DecoderSink interface {
	// Configure tears down any existing decoder and creates a fresh one
	// bound to sps/pps and the given negotiated dimensions. Per spec
	// §4.4, updating CSD on an already-configured decoder is never
	// valid — callers must Configure again (which implies teardown).
	Configure(sps, pps []byte, width, height int) (DecoderHandle, error)
	Feed(handle DecoderHandle, payload []byte, ptsUs int64, isKey bool) (FedStatus, error)
	PollOutput(handle DecoderHandle, timeout time.Duration) (DecoderResult, error)
	Release(handle DecoderHandle, index int, render bool) error
	Flush(handle DecoderHandle) error
	Reset(handle DecoderHandle) error
}

// AudioSink is the out-of-scope audio output device.
type AudioSink interface {
	Ensure(rate, channels int) error
	// Write performs a blocking write; callers run it on the dedicated
	// audio-playback task (spec §5).
	Write(pcm []byte) error
	FlushAndRelease() error
}

// AacDecoder is the optional ADTS-AAC software decoder (spec §4.8).
type AacDecoder interface {
	ConfigureAdts(rate, channels int, asc []byte) error
	Feed(adtsFrame []byte, tsUs int64) error
	// DrainPcm returns every decoded PCM chunk currently available,
	// paired with its presentation timestamp.
	DrainPcm() ([]PcmChunk, error)
}

// PcmChunk is one decoded PCM buffer with its timestamp.
type PcmChunk struct {
	Pcm  []byte
	TsUs int64
}

// RenderSurface is an opaque handle to the platform's video output
// surface (e.g. a SurfaceView/SurfaceTexture). Attach/Detach are
// synchronous and idempotent (spec §8 property 6).
type RenderSurface interface {
	Attach() error
	Detach() error
	IsValid() bool
}

// VideoCropRect is the visible region of a coded frame, independent of
// rotation metadata.
type VideoCropRect struct {
	Left, Top, Right, Bottom int
}

// Observers is the sink for every user-facing event the core produces.
// All methods are expected to be dispatched on a single serial queue by
// the caller (spec §5: "external callbacks are dispatched on a single
// serial queue to avoid observer races"); this interface itself imposes
// no locking.
type Observers interface {
	OnStateChanged(state string)
	OnError(userMessage string)
	OnRotationChanged(deg int64)
	OnRecordingChanged(active bool)
	OnVideoSizeChanged(width, height int)
	OnVideoCropChanged(rect VideoCropRect)
	OnFirstFrameRendered()
	OnCameraFacingChanged(facing string)
	OnCommunicationEnabledChanged(enabled bool)
}

// Clock is the time source the core reads through, so tests can control
// time deterministically (spec §6).
type Clock interface {
	NowMs() int64
	WallMs() int64
}

// ConfigStore persists the start-profile override (spec §6, §4.3).
type ConfigStore interface {
	LoadStartProfileOverride() (width, height, bitrate, fps int64, ok bool, err error)
	SaveStartProfileOverride(width, height, bitrate, fps int64) error
}
