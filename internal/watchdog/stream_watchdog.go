package watchdog

import "time"

// StreamStallThreshold is how long without RX before the stream-health
// watchdog downgrades STREAMING/RECOVERING to CONNECTED (spec §4.7).
const StreamStallThreshold = 2 * time.Second

// StreamHealthStalled reports whether nowMs-lastFrameRxMs has crossed
// the 2s no-RX threshold that downgrades STREAMING/RECOVERING to
// CONNECTED and requests a keyframe. Resetting the decoder is
// deliberately not part of this path, to avoid a visible flicker (spec
// §4.7).
func StreamHealthStalled(nowMs, lastFrameRxMs int64) bool {
	if lastFrameRxMs == 0 {
		return false
	}
	return time.Duration(nowMs-lastFrameRxMs)*time.Millisecond >= StreamStallThreshold
}
