package audio

import (
	"github.com/nordlyslabs/camviewer/internal/errors"
)

// adtsHeaderLen is the fixed ADTS header size; this pack never expects the
// optional CRC (protection_absent is always 1 in practice for this link).
const adtsHeaderLen = 7

// aacLC is the MPEG-4 audio object type for AAC Low Complexity, the only
// profile this pack negotiates (spec §4.8).
const aacLC = 2

// sampleRateTable maps the MPEG-4 sampling_frequency_index to its rate in
// Hz, the same table used to derive an ADTS header's rate and to pick the
// index when synthesizing an AudioSpecificConfig.
var sampleRateTable = [16]int{
	96000, 88200, 64000, 48000, 44100, 32000, 24000,
	22050, 16000, 12000, 11025, 8000, 7350, 0, 0, 0,
}

// SampleRateIndex returns the ADTS sampling_frequency_index for rate, or
// false if rate isn't one of the standard MPEG-4 rates.
func SampleRateIndex(rate int) (uint8, bool) {
	for i, r := range sampleRateTable {
		if r == rate {
			return uint8(i), true
		}
	}
	return 0, false
}

// ADTSHeader holds the fields of one ADTS fixed+variable header, parsed the
// same way regardless of whether the frame is destined for validation only
// or for AudioSpecificConfig synthesis.
type ADTSHeader struct {
	ProfileObjectType uint8 // ADTS profile field + 1 == MPEG-4 audio object type
	SamplingFreqIndex uint8
	ChannelConfig     uint8
	FrameLength       int // full ADTS frame length, header included
	ProtectionAbsent  bool
}

// ParseADTSHeader validates the 7-byte ADTS fixed header of frame and
// returns its parsed fields plus the total declared frame length. Unlike a
// demuxer peeling payload-only AAC out of a stream, this pack feeds entire
// ADTS frames (header included) to the decoder, so parsing here exists only
// to validate framing and to drive AudioSpecificConfig synthesis, not to
// strip the header.
func ParseADTSHeader(frame []byte) (ADTSHeader, error) {
	if len(frame) < adtsHeaderLen {
		return ADTSHeader{}, errors.NewProtocolMalformedError("parse ADTS header", nil)
	}
	if frame[0] != 0xFF || frame[1]&0xF0 != 0xF0 {
		return ADTSHeader{}, errors.NewProtocolMalformedError("ADTS syncword mismatch", nil)
	}
	protectionAbsent := frame[1]&0x01 != 0
	profile := (frame[2] >> 6) & 0x03
	sampleFreqIdx := (frame[2] >> 2) & 0x0F
	channelConfig := ((frame[2] & 0x01) << 2) | ((frame[3] >> 6) & 0x03)
	frameLen := (int(frame[3]&0x03) << 11) | (int(frame[4]) << 3) | (int(frame[5]) >> 5)
	if frameLen < adtsHeaderLen || frameLen > len(frame) {
		return ADTSHeader{}, errors.NewProtocolMalformedError("ADTS frame_length inconsistent with payload", nil)
	}
	return ADTSHeader{
		ProfileObjectType: profile + 1,
		SamplingFreqIndex: sampleFreqIdx,
		ChannelConfig:     channelConfig,
		FrameLength:       frameLen,
		ProtectionAbsent:  protectionAbsent,
	}, nil
}

// SynthesizeAudioSpecificConfig builds the 2-byte AAC-LC AudioSpecificConfig
// expected by decoders that want raw (non-ADTS) configuration: 5 bits audio
// object type, 4 bits sampling frequency index, 4 bits channel
// configuration, 3 bits reserved/frameLengthFlag etc (all zero for this
// pack's usage).
func SynthesizeAudioSpecificConfig(sampleRateIdx, channelConfig uint8) []byte {
	b0 := (aacLC << 3) | (sampleRateIdx >> 1)
	b1 := (sampleRateIdx << 7) | (channelConfig << 3)
	return []byte{b0, b1}
}
