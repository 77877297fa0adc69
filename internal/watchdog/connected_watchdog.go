package watchdog

import "time"

const (
	pongTimeoutDefault   = 7 * time.Second
	pongTimeoutAudio     = 15 * time.Second
	pongTimeoutGrace     = 25 * time.Second
	audioActiveWindow    = 5 * time.Second

	keyframeProbeInterval = 5 * time.Second
	renegotiateAfter      = 15 * time.Second

	reconnectAfterStuck        = 45 * time.Second
	reconnectAfterStalledVideo = 10 * time.Second
)

// ConnectedAction is what the connected ("No Video") watchdog asks the
// orchestrator to do this tick. Multiple facets can fire on the same
// tick (a keyframe probe and a renegotiate, for instance), so Result
// below carries independent booleans rather than a single enum.
type ConnectedAction int

const (
	ConnectedNone ConnectedAction = iota
	ConnectedReconnect
	ConnectedExtendGraceAndProbe
)

// ConnectedResult bundles every facet of one evaluation tick.
type ConnectedResult struct {
	Action            ConnectedAction
	KeyframeProbeDue  bool
	RenegotiateDue     bool // renegotiate CAPS+SET_STREAM and post RECOVERING
}

// ConnectedWatchdog implements spec §4.7's "No Video" recovery
// supervision for the CONNECTED state.
type ConnectedWatchdog struct {
	lastProbeMs  int64
	renegotiated bool
}

// neverProbedSentinel guarantees the first Evaluate call always finds a
// probe due, however small nowMs is on that first tick.
const neverProbedSentinel = int64(-1) << 40

// NewConnectedWatchdog returns a watchdog with no prior probe/renegotiate
// recorded; call Reset when (re-)entering CONNECTED.
func NewConnectedWatchdog() *ConnectedWatchdog {
	return &ConnectedWatchdog{lastProbeMs: neverProbedSentinel}
}

// Reset clears one-shot state; call whenever the session (re-)enters the
// CONNECTED state so the 15s/45s timers restart relative to the new
// entry point.
func (w *ConnectedWatchdog) Reset() {
	w.lastProbeMs = neverProbedSentinel
	w.renegotiated = false
}

// PongTimeout returns the PONG deadline that currently applies, widened
// while audio is flowing or a reconfigure grace is active (spec §4.7).
func PongTimeout(audioActiveRecently, inGrace bool) time.Duration {
	switch {
	case inGrace:
		return pongTimeoutGrace
	case audioActiveRecently:
		return pongTimeoutAudio
	default:
		return pongTimeoutDefault
	}
}

// AudioActiveRecently reports whether the last downstream audio packet
// arrived within the last 5s (spec §4.7's "audio active within last 5s").
func AudioActiveRecently(nowMs, lastAudioDownRxMs int64) bool {
	return lastAudioDownRxMs > 0 && time.Duration(nowMs-lastAudioDownRxMs)*time.Millisecond <= audioActiveWindow
}

// Evaluate runs one tick of the connected watchdog. enteredConnectedMs is
// when the session most recently transitioned into CONNECTED;
// lastPongMs is the session's HealthCounters.LastPong(); hadVideoBefore
// reports whether frames were flowing before the stall that produced
// this CONNECTED state (as opposed to never having received video at all
// this session).
func (w *ConnectedWatchdog) Evaluate(nowMs, enteredConnectedMs, lastPongMs int64, hadVideoBefore, audioActiveRecently, inGrace bool) ConnectedResult {
	var res ConnectedResult

	if nowMs-w.lastProbeMs >= keyframeProbeInterval.Milliseconds() {
		w.lastProbeMs = nowMs
		res.KeyframeProbeDue = true
	}

	sinceEntered := time.Duration(nowMs-enteredConnectedMs) * time.Millisecond
	if !w.renegotiated && sinceEntered >= renegotiateAfter {
		w.renegotiated = true
		res.RenegotiateDue = true
	}

	reconnectThreshold := reconnectAfterStuck
	if hadVideoBefore {
		reconnectThreshold = reconnectAfterStalledVideo
	}
	if sinceEntered >= reconnectThreshold {
		if audioActiveRecently || inGrace {
			res.Action = ConnectedExtendGraceAndProbe
		} else {
			res.Action = ConnectedReconnect
		}
	}

	// PONG timeout is its own liveness signal, independent of the
	// stuck/stalled-video thresholds above: widened while audio is
	// flowing or a reconfigure grace is active, but once even the
	// widened deadline passes with no PONG the connection is dead and
	// the audio/grace tolerance no longer applies (spec §4.7).
	pongBaseline := lastPongMs
	if pongBaseline < enteredConnectedMs {
		pongBaseline = enteredConnectedMs
	}
	if time.Duration(nowMs-pongBaseline)*time.Millisecond >= PongTimeout(audioActiveRecently, inGrace) {
		res.Action = ConnectedReconnect
	}

	return res
}
