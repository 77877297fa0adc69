package video

import "time"

// maxSyncSleep caps how long the renderer ever waits for audio to catch
// up, so a large clock skew can't stall video indefinitely (spec §4.5).
const maxSyncSleep = 40 * time.Millisecond

// SyncDelay compares a video buffer's presentation timestamp to the most
// recently played audio timestamp and returns how long the renderer
// should sleep before releasing the video buffer: min(40ms, Δ/1000) when
// video is ahead, zero when it is at or behind audio.
func SyncDelay(videoPtsUs, latestPlayedAudioTsUs int64) time.Duration {
	delta := videoPtsUs - latestPlayedAudioTsUs
	if delta <= 0 {
		return 0
	}
	d := time.Duration(delta) * time.Microsecond
	if d > maxSyncSleep {
		return maxSyncSleep
	}
	return d
}
