package backpressure

import (
	"testing"
	"time"
)

func TestTrackerEmitsBackpressureAfterFiveConsecutiveLateFrames(t *testing.T) {
	tr := NewTracker()
	now := time.Now()

	var last Signal
	for i := 0; i < 5; i++ {
		last = tr.Observe(100*time.Millisecond, now)
		now = now.Add(10 * time.Millisecond)
	}
	if last != SignalBackpressure {
		t.Fatalf("expected SignalBackpressure on the 5th consecutive late frame, got %v", last)
	}

	// Further late frames within the cooldown window must not re-signal.
	if sig := tr.Observe(100*time.Millisecond, now); sig != NoSignal {
		t.Fatalf("expected no repeat signal within cooldown, got %v", sig)
	}
}

func TestTrackerEmitsPressureClearOnceLateCountReturnsToZero(t *testing.T) {
	tr := NewTracker()
	now := time.Now()
	for i := 0; i < 5; i++ {
		tr.Observe(100*time.Millisecond, now)
	}

	now = now.Add(signalCooldown + time.Millisecond)
	sig := tr.Observe(10*time.Millisecond, now) // on-time frame resets consecutive to 0
	if sig != SignalPressureClear {
		t.Fatalf("expected SignalPressureClear, got %v", sig)
	}
}

func TestTrackerStaysQuietBelowThreshold(t *testing.T) {
	tr := NewTracker()
	now := time.Now()
	for i := 0; i < 4; i++ {
		if sig := tr.Observe(100*time.Millisecond, now); sig != NoSignal {
			t.Fatalf("unexpected signal before reaching 5 consecutive late frames: %v", sig)
		}
	}
}
