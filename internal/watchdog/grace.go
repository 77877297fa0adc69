// Package watchdog implements the heartbeat, handshake, connected, and
// stream-health watchdogs of spec §4.7, plus the reconfigure-grace
// deadline and the reconnect backoff scheduler (spec §4.2). Grounded on
// the teacher's relay.Destination reconnect context plumbing
// (reconnectCtx/reconnectCancel fields the teacher left with no
// scheduler behind them) — this package is that scheduler, generalized
// from a relay destination's reconnect to this spec's socket-level
// reconnect, using retry-go/v4 for the backoff sequence.
package watchdog

import "sync/atomic"

// quiescenceAllowedMs is how long a reconfigure grace window tolerates
// total silence before a watchdog would otherwise act (spec §4.7: "allow
// up to 120s quiescence" while in grace).
const quiescenceAllowedMs = 120_000

// Grace tracks the reconfigure-grace deadline (spec §3's ReconfigureGrace
// entity): a deadline that can only be extended, never shortened. The
// client extends it on a Reconfiguring STREAM_STATE and when the connected
// watchdog chooses to extend grace; recording start, CSD and
// STREAM_ACCEPTED do not extend it.
type Grace struct {
	deadlineMs atomic.Int64
}

// NewGrace returns a Grace with no active deadline (InGrace is false
// until Extend is called).
func NewGrace() *Grace { return &Grace{} }

// Extend moves the grace deadline to nowMs+durationMs unless the current
// deadline is already later (never shortens, per spec §3/§4.7).
func (g *Grace) Extend(nowMs, durationMs int64) {
	next := nowMs + durationMs
	for {
		cur := g.deadlineMs.Load()
		if cur >= next {
			return
		}
		if g.deadlineMs.CompareAndSwap(cur, next) {
			return
		}
	}
}

// InGrace reports whether nowMs is still within the active grace window.
func (g *Grace) InGrace(nowMs int64) bool {
	return nowMs < g.deadlineMs.Load()
}

// Deadline returns the current grace deadline in epoch milliseconds (0 if
// never extended).
func (g *Grace) Deadline() int64 { return g.deadlineMs.Load() }

// QuiescenceAllowedMs is the maximum silence duration a grace window
// tolerates before watchdogs resume normal escalation.
const QuiescenceAllowedMs = quiescenceAllowedMs
