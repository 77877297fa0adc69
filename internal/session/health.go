package session

import "sync/atomic"

// HealthCounters tracks the last-seen wall-clock millisecond timestamp for
// each event the watchdogs key off of (spec §3's HealthCounters entity).
// Monotonic within a session: every Touch* call may only move its field
// forward, matching the "monotonic within a session" invariant.
type HealthCounters struct {
	lastPong            atomic.Int64
	lastFrameRx         atomic.Int64
	lastFrameRender     atomic.Int64
	lastAudioDownRx     atomic.Int64
	lastAuthOk          atomic.Int64
	lastStreamAccepted  atomic.Int64
	lastCsd             atomic.Int64
}

// NewHealthCounters returns a zero-valued HealthCounters; a zero
// timestamp is treated by watchdogs as "never happened".
func NewHealthCounters() *HealthCounters { return &HealthCounters{} }

func touch(field *atomic.Int64, nowMs int64) {
	for {
		cur := field.Load()
		if nowMs <= cur {
			return
		}
		if field.CompareAndSwap(cur, nowMs) {
			return
		}
	}
}

func (h *HealthCounters) TouchPong(nowMs int64)           { touch(&h.lastPong, nowMs) }
func (h *HealthCounters) TouchFrameRx(nowMs int64)        { touch(&h.lastFrameRx, nowMs) }
func (h *HealthCounters) TouchFrameRender(nowMs int64)    { touch(&h.lastFrameRender, nowMs) }
func (h *HealthCounters) TouchAudioDownRx(nowMs int64)    { touch(&h.lastAudioDownRx, nowMs) }
func (h *HealthCounters) TouchAuthOk(nowMs int64)         { touch(&h.lastAuthOk, nowMs) }
func (h *HealthCounters) TouchStreamAccepted(nowMs int64) { touch(&h.lastStreamAccepted, nowMs) }
func (h *HealthCounters) TouchCsd(nowMs int64)            { touch(&h.lastCsd, nowMs) }

func (h *HealthCounters) LastPong() int64           { return h.lastPong.Load() }
func (h *HealthCounters) LastFrameRx() int64        { return h.lastFrameRx.Load() }
func (h *HealthCounters) LastFrameRender() int64    { return h.lastFrameRender.Load() }
func (h *HealthCounters) LastAudioDownRx() int64    { return h.lastAudioDownRx.Load() }
func (h *HealthCounters) LastAuthOk() int64         { return h.lastAuthOk.Load() }
func (h *HealthCounters) LastStreamAccepted() int64 { return h.lastStreamAccepted.Load() }
func (h *HealthCounters) LastCsd() int64            { return h.lastCsd.Load() }
