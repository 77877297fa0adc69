package audio

import (
	"encoding/binary"
	"math"

	"github.com/nordlyslabs/camviewer/internal/protocol"
)

// UplinkFrameSamples is the fixed talkback capture frame size: 20ms of
// PCM16LE mono audio at 48kHz (spec §4.9).
const UplinkFrameSamples = 48000 / 50

// uplinkDesiredRMS and the gain clamp implement the talkback soft-gain
// normalization: g = clamp(desired/rms, 1.0, 2.8).
const (
	uplinkDesiredRMS = 1800.0
	uplinkGainMin    = 1.0
	uplinkGainMax    = 2.8
)

// CaptureSource is the out-of-scope microphone capture device; it hands
// back one 20ms PCM16LE mono 48kHz chunk per call.
type CaptureSource interface {
	ReadFrame() ([]byte, error)
}

// ComputeUplinkGain derives the soft gain to apply to a captured talkback
// frame given its measured RMS, clamped to [1.0, 2.8] so quiet input is
// boosted toward a target loudness without amplifying noise unreasonably
// or ever attenuating.
func ComputeUplinkGain(rms float64) float64 {
	if rms <= 0 {
		return uplinkGainMax
	}
	g := uplinkDesiredRMS / rms
	if g < uplinkGainMin {
		return uplinkGainMin
	}
	if g > uplinkGainMax {
		return uplinkGainMax
	}
	return g
}

// ApplyGain multiplies every signed 16-bit LE sample in pcm by gain,
// saturating to the int16 range rather than wrapping on overflow.
func ApplyGain(pcm []byte, gain float64) []byte {
	out := make([]byte, len(pcm))
	n := len(pcm) / 2
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		scaled := math.Round(float64(s) * gain)
		if scaled > math.MaxInt16 {
			scaled = math.MaxInt16
		} else if scaled < math.MinInt16 {
			scaled = math.MinInt16
		}
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(int16(scaled)))
	}
	return out
}

// BuildUplinkFrame applies adaptive gain to a captured PCM chunk and
// packages it as an AUDIO_FRAME|dir=up wire message (spec §4.9).
func BuildUplinkFrame(pcm []byte, tsUs int64) protocol.AudioFrame {
	rms := RMS(pcm)
	gain := ComputeUplinkGain(rms)
	gained := ApplyGain(pcm, gain)
	return protocol.AudioFrame{
		Dir:     protocol.AudioUp,
		Rate:    48000,
		Ch:      1,
		Format:  protocol.AudioFormatPCM,
		TsUs:    tsUs,
		Payload: gained,
	}
}
