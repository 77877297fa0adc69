package audio

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/nordlyslabs/camviewer/internal/errors"
	"github.com/nordlyslabs/camviewer/internal/protocol"
)

// PlaybackSink is the out-of-scope audio output device (speaker/HAL). The
// viewer core only ever blocks writing PCM into it.
type PlaybackSink interface {
	// Ensure configures the device for rate/channels if not already so.
	Ensure(rate, channels int) error
	// Write performs a blocking write of one PCM chunk.
	Write(pcm []byte) error
}

// AacDecoder is the out-of-scope AAC-LC decoder. ADTS frames (header
// included) are fed whole; decoded PCM is retrieved with Drain.
type AacDecoder interface {
	Configure(sampleRate, channels int, asc []byte) error
	Feed(adtsFrame []byte) error
	// Drain returns the next decoded PCM chunk, if one is ready.
	Drain() (pcm []byte, ok bool)
}

// Downstream owns the bounded playback queue, the lazily-initialized AAC
// decoder, the adaptive noise gate, and the latest-played-audio-timestamp
// publication used for A/V sync (spec §4.5/§4.8).
type Downstream struct {
	mu            sync.Mutex
	queue         *Queue
	sink          PlaybackSink
	aac           AacDecoder
	aacConfigured bool
	gate          *NoiseGate
	muted         bool

	latestPlayedUs atomic.Int64
}

// NewDownstream wires a playback queue against sink, with aac (may be nil
// if the link never negotiates AAC downstream audio) as the lazy decoder.
func NewDownstream(sink PlaybackSink, aac AacDecoder) *Downstream {
	return &Downstream{
		queue: NewQueue(nil),
		sink:  sink,
		aac:   aac,
		gate:  NewNoiseGate(),
	}
}

// SetMuted toggles talkback/local mute state for the downstream path's
// noise gate; a false→true→false bounce re-triggers calibration (spec
// §4.8: "after a mute→unmute transition").
func (d *Downstream) SetMuted(muted bool, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	wasMuted := d.muted
	d.muted = muted
	if wasMuted && !muted {
		d.gate.StartCalibration(now)
	}
}

// EnqueuePCM queues a ready-to-play PCM packet directly (no decode step).
func (d *Downstream) EnqueuePCM(f protocol.AudioFrame) {
	d.queue.Push(PacketFromFrame(f))
}

// EnqueueAAC validates the frame as ADTS, lazily configures the decoder,
// feeds the whole frame (header included, per spec §4.8), and queues any
// PCM the decoder has ready to drain.
func (d *Downstream) EnqueueAAC(f protocol.AudioFrame) error {
	if d.aac == nil {
		return errors.NewDecoderFailureError("audio.EnqueueAAC", nil)
	}
	hdr, err := ParseADTSHeader(f.Payload)
	if err != nil {
		return err
	}
	d.mu.Lock()
	if !d.aacConfigured {
		asc := SynthesizeAudioSpecificConfig(hdr.SamplingFreqIndex, hdr.ChannelConfig)
		rate := sampleRateTable[hdr.SamplingFreqIndex]
		channels := int(hdr.ChannelConfig)
		if channels == 0 {
			channels = 1
		}
		if err := d.aac.Configure(rate, channels, asc); err != nil {
			d.mu.Unlock()
			return errors.NewDecoderFailureError("aac configure", err)
		}
		d.aacConfigured = true
	}
	d.mu.Unlock()

	if err := d.aac.Feed(f.Payload); err != nil {
		return errors.NewDecoderFailureError("aac feed", err)
	}
	for {
		pcm, ok := d.aac.Drain()
		if !ok {
			break
		}
		d.queue.Push(Packet{Payload: pcm, Rate: f.Rate, Ch: f.Ch, TsUs: f.TsUs})
	}
	return nil
}

// DeliverNext pops the oldest queued packet, applies the noise gate, writes
// it (or silence, if gated) to the sink, and publishes
// latestPlayedAudioTsUs on success. Returns false if the queue was empty.
func (d *Downstream) DeliverNext(now time.Time) (bool, error) {
	pkt, ok := d.queue.Pop()
	if !ok {
		return false, nil
	}
	if err := d.sink.Ensure(int(pkt.Rate), int(pkt.Ch)); err != nil {
		return true, errors.NewTransientIOError("audio sink ensure", err)
	}

	d.mu.Lock()
	rms := RMS(pkt.Payload)
	passes := d.gate.Process(rms, now)
	d.mu.Unlock()

	out := pkt.Payload
	if !passes {
		out = make([]byte, len(pkt.Payload))
	}
	if err := d.sink.Write(out); err != nil {
		return true, errors.NewTransientIOError("audio sink write", err)
	}
	d.latestPlayedUs.Store(pkt.TsUs)
	return true, nil
}

// LatestPlayedAudioTsUs returns the PTS of the most recently written
// downstream audio sample, used by the video path to compute A/V sync
// delay (spec §4.5).
func (d *Downstream) LatestPlayedAudioTsUs() int64 {
	return d.latestPlayedUs.Load()
}

// Len returns the current downstream queue depth.
func (d *Downstream) Len() int { return d.queue.Len() }
