// Package backpressure implements the BACKPRESSURE/PRESSURE_CLEAR
// signaling and the performance-downgrade controller (spec §4.6),
// grounded on the teacher's relay.Destination status/metrics tracking
// (a small mutex-guarded struct with explicit state fields, no channels)
// adapted here to track lateness and render FPS instead of relay health.
// Signal cooldown windows use golang.org/x/time/rate rather than raw
// timestamp bookkeeping, the same library snapetech-plexTuner uses to
// shape its tuner output rate.
package backpressure

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	lateThreshold        = 80 * time.Millisecond
	consecutiveLateLimit = 5
	signalCooldown       = 1 * time.Second
)

// Signal is what Tracker asks the caller to emit on the wire.
type Signal int

const (
	NoSignal Signal = iota
	SignalBackpressure
	SignalPressureClear
)

// Tracker implements the late-frame accounting in spec §4.6: "if >= 5
// consecutive frames arrive more than 80ms late ... and no signal has
// been sent in the last 1s, emit BACKPRESSURE. When late count returns
// to 0 and cooldown elapsed, emit PRESSURE_CLEAR."
type Tracker struct {
	mu             sync.Mutex
	consecutive    int
	signaled       bool // true once BACKPRESSURE has been sent and not yet cleared
	backpressureRl *rate.Limiter
	clearRl        *rate.Limiter
}

// NewTracker creates a Tracker with the spec's 1s signal cooldown. Both
// signals draw from one limiter, so neither is emitted within 1s of the
// other.
func NewTracker() *Tracker {
	signalRl := rate.NewLimiter(rate.Every(signalCooldown), 1)
	return &Tracker{
		backpressureRl: signalRl,
		clearRl:        signalRl,
	}
}

// Observe records one frame's lateness (how long after its expected
// arrival it showed up) and returns the signal, if any, to emit now.
func (t *Tracker) Observe(lateness time.Duration, now time.Time) Signal {
	t.mu.Lock()
	defer t.mu.Unlock()

	if lateness > lateThreshold {
		t.consecutive++
	} else {
		t.consecutive = 0
	}

	if t.consecutive >= consecutiveLateLimit && !t.signaled {
		if t.backpressureRl.AllowN(now, 1) {
			t.signaled = true
			return SignalBackpressure
		}
		return NoSignal
	}

	if t.consecutive == 0 && t.signaled {
		if t.clearRl.AllowN(now, 1) {
			t.signaled = false
			return SignalPressureClear
		}
		return NoSignal
	}

	return NoSignal
}
