package watchdog

import "time"

// HeartbeatInterval is the PING cadence (spec §4.7: "every 2s send PING").
const HeartbeatInterval = 2 * time.Second

// EstimateClockOffset implements spec §4.7's offset formula:
// srvMs + rtt/2 - nowMs, given the echoed PING send time, the server's
// reported wall clock, and the local time the PONG was received.
func EstimateClockOffset(sentAtMs, srvMs, receivedAtMs int64) int64 {
	rtt := receivedAtMs - sentAtMs
	return srvMs + rtt/2 - receivedAtMs
}
