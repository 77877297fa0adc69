package audio

import (
	"encoding/binary"
	"testing"
	"time"
)

func pcmOf(sample int16, n int) []byte {
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:i*2+2], uint16(sample))
	}
	return buf
}

func TestRMSConstantSignal(t *testing.T) {
	buf := pcmOf(1000, 10)
	if got := RMS(buf); got != 1000 {
		t.Fatalf("expected RMS 1000 for constant signal, got %f", got)
	}
}

func TestRMSEmpty(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Fatalf("expected 0 RMS for empty buffer, got %f", got)
	}
}

func TestNoiseGatePassesDuringCalibration(t *testing.T) {
	g := NewNoiseGate()
	now := time.Unix(1000, 0)
	g.StartCalibration(now)
	if !g.Process(5000, now.Add(100*time.Millisecond)) {
		t.Fatalf("expected pass-through during calibration regardless of level")
	}
	if !g.Calibrating() {
		t.Fatalf("expected still calibrating before window elapses")
	}
}

func TestNoiseGateGatesBelowThresholdAfterCalibration(t *testing.T) {
	g := NewNoiseGate()
	now := time.Unix(1000, 0)
	g.StartCalibration(now)
	// Feed several quiet chunks through calibration so the floor settles low.
	for i := 0; i < 5; i++ {
		g.Process(50, now.Add(time.Duration(i)*100*time.Millisecond))
	}
	after := now.Add(calibrationWindow + time.Millisecond)
	if g.Process(60, after) {
		t.Fatalf("expected quiet chunk below threshold to be gated after calibration")
	}
	if !g.Process(10000, after) {
		t.Fatalf("expected loud chunk above threshold to pass after calibration")
	}
}

func TestNoiseGateThresholdFloor(t *testing.T) {
	g := NewNoiseGate()
	if got := g.Threshold(); got != minGateThreshold {
		t.Fatalf("expected threshold floor %v for zero noise floor, got %v", minGateThreshold, got)
	}
}
