package audio

import "testing"

// validADTSFrame returns a 12-byte ADTS frame (7-byte header + 5-byte
// payload) describing AAC-LC, 48kHz, mono.
func validADTSFrame() []byte {
	return []byte{0xFF, 0xF1, 0x4C, 0x40, 0x01, 0x80, 0x00, 1, 2, 3, 4, 5}
}

func TestParseADTSHeaderValid(t *testing.T) {
	hdr, err := ParseADTSHeader(validADTSFrame())
	if err != nil {
		t.Fatalf("ParseADTSHeader: %v", err)
	}
	if hdr.ProfileObjectType != aacLC {
		t.Fatalf("expected AAC-LC object type %d, got %d", aacLC, hdr.ProfileObjectType)
	}
	if hdr.SamplingFreqIndex != 3 {
		t.Fatalf("expected sample rate index 3 (48kHz), got %d", hdr.SamplingFreqIndex)
	}
	if hdr.ChannelConfig != 1 {
		t.Fatalf("expected mono channel config 1, got %d", hdr.ChannelConfig)
	}
	if hdr.FrameLength != 12 {
		t.Fatalf("expected frame length 12, got %d", hdr.FrameLength)
	}
}

func TestParseADTSHeaderTooShort(t *testing.T) {
	if _, err := ParseADTSHeader([]byte{0xFF, 0xF1}); err == nil {
		t.Fatalf("expected error for short frame")
	}
}

func TestParseADTSHeaderBadSyncword(t *testing.T) {
	f := validADTSFrame()
	f[0] = 0x00
	if _, err := ParseADTSHeader(f); err == nil {
		t.Fatalf("expected error for bad syncword")
	}
}

func TestParseADTSHeaderInconsistentFrameLength(t *testing.T) {
	f := validADTSFrame()
	f[4] = 0xFF // blow out frame_length beyond len(f)
	if _, err := ParseADTSHeader(f); err == nil {
		t.Fatalf("expected error for inconsistent frame_length")
	}
}

func TestSampleRateIndexRoundTrip(t *testing.T) {
	idx, ok := SampleRateIndex(48000)
	if !ok || idx != 3 {
		t.Fatalf("expected index 3 for 48000Hz, got %d ok=%v", idx, ok)
	}
	if _, ok := SampleRateIndex(12345); ok {
		t.Fatalf("expected false for non-standard rate")
	}
}

func TestSynthesizeAudioSpecificConfig(t *testing.T) {
	asc := SynthesizeAudioSpecificConfig(3, 1)
	if len(asc) != 2 {
		t.Fatalf("expected 2-byte ASC, got %d bytes", len(asc))
	}
	objType := asc[0] >> 3
	if objType != aacLC {
		t.Fatalf("expected object type %d encoded, got %d", aacLC, objType)
	}
	freqIdx := ((asc[0] & 0x07) << 1) | (asc[1] >> 7)
	if freqIdx != 3 {
		t.Fatalf("expected freq index 3 encoded, got %d", freqIdx)
	}
	chanCfg := (asc[1] >> 3) & 0x0F
	if chanCfg != 1 {
		t.Fatalf("expected channel config 1 encoded, got %d", chanCfg)
	}
}
