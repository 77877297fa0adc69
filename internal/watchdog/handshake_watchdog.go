package watchdog

import "github.com/nordlyslabs/camviewer/internal/session"

const (
	connectingAuthOkTimeoutMs = 10_000

	authKickAfterMs      = 3_000
	authKickCooldownMs   = 2_500
	authNoFrameDowngrade = 12_000
	authNoFrameReconnect = 25_000
)

// HandshakeAction is what the handshake watchdog asks the orchestrator
// to do after one evaluation tick.
type HandshakeAction int

const (
	HandshakeNone HandshakeAction = iota
	HandshakeReconnect
	HandshakeResendCapsAndKeyframe
	HandshakeDowngradeToConnected
)

// HandshakeWatchdog implements spec §4.7's handshake supervision,
// evaluated once per heartbeat tick.
type HandshakeWatchdog struct {
	lastKickMs int64
}

// NewHandshakeWatchdog returns a watchdog with no prior kick recorded.
func NewHandshakeWatchdog() *HandshakeWatchdog { return &HandshakeWatchdog{} }

// Evaluate inspects the session's current state and health counters and
// returns the single highest-priority action, if any. connectStartedMs is
// when the current connect() attempt began (used for the CONNECTING
// timeout); inGrace reports whether a reconfigure grace window is active
// (suppresses the 25s no-frame reconnect).
func (w *HandshakeWatchdog) Evaluate(nowMs int64, state session.State, connectStartedMs int64, health *session.HealthCounters, inGrace bool) HandshakeAction {
	switch state {
	case session.Connecting:
		if connectStartedMs > 0 && nowMs-connectStartedMs >= connectingAuthOkTimeoutMs {
			return HandshakeReconnect
		}
		return HandshakeNone
	case session.Authenticated:
		return w.evaluateAuthenticated(nowMs, health, inGrace)
	default:
		return HandshakeNone
	}
}

// evaluateAuthenticated checks the escalating no-progress thresholds from
// most to least severe: a condition that has crossed the 12s/25s marks
// always takes priority over the earlier 3s resend, since by then the
// resend has already had its chance to work (spec §4.7).
func (w *HandshakeWatchdog) evaluateAuthenticated(nowMs int64, health *session.HealthCounters, inGrace bool) HandshakeAction {
	lastFrame := health.LastFrameRx()
	authOk := health.LastAuthOk()
	noFrames := lastFrame == 0
	if !noFrames {
		return HandshakeNone
	}
	sinceAuthOk := nowMs - authOk

	if sinceAuthOk >= authNoFrameReconnect {
		if inGrace {
			return HandshakeNone
		}
		return HandshakeReconnect
	}
	if sinceAuthOk >= authNoFrameDowngrade {
		return HandshakeDowngradeToConnected
	}
	if health.LastStreamAccepted() == 0 && health.LastCsd() == 0 &&
		sinceAuthOk >= authKickAfterMs && nowMs-w.lastKickMs >= authKickCooldownMs {
		w.lastKickMs = nowMs
		return HandshakeResendCapsAndKeyframe
	}
	return HandshakeNone
}
