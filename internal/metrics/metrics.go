// Package metrics exposes the viewer core's operational counters and
// gauges as Prometheus collectors (SPEC_FULL §2.2's domain-stack entry
// for github.com/prometheus/client_golang), grounded on
// snapetech-plexTuner's package-level, promauto-registered collector
// style. Every call here is a cheap atomic increment/set; nothing in
// this package blocks or allocates on the hot path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camviewer_frames_received_total",
		Help: "Video frames received from the primary, before any gating.",
	})
	FramesDroppedEpoch = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camviewer_frames_dropped_epoch_total",
		Help: "Video frames dropped because their epoch did not match the current one.",
	})
	FramesDroppedGated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camviewer_frames_dropped_gated_total",
		Help: "Non-key frames dropped while waiting for a keyframe.",
	})
	FramesDroppedJitterFull = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camviewer_frames_dropped_jitter_full_total",
		Help: "Frames dropped because the jitter buffer was at capacity.",
	})

	JitterBufferDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "camviewer_jitter_buffer_depth",
		Help: "Current number of frames held in the jitter buffer.",
	})
	JitterTarget = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "camviewer_jitter_target",
		Help: "Current adaptive jitter target backlog.",
	})

	EpochBumps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camviewer_epoch_bumps_total",
		Help: "Number of times the stream epoch advanced.",
	})

	AudioPacketsDroppedFull = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camviewer_audio_packets_dropped_full_total",
		Help: "Downstream audio packets dropped because the playback queue was full.",
	})

	BackpressureEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camviewer_backpressure_events_total",
		Help: "BACKPRESSURE and PRESSURE_CLEAR signals emitted, by kind.",
	}, []string{"kind"})

	PerfDowngrades = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camviewer_perf_downgrades_total",
		Help: "Performance downgrade actions taken, by kind.",
	}, []string{"kind"})

	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camviewer_reconnects_total",
		Help: "Number of reconnect attempts scheduled.",
	})

	WatchdogEscalations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camviewer_watchdog_escalations_total",
		Help: "Watchdog-triggered state escalations, by watchdog and action.",
	}, []string{"watchdog", "action"})

	ConnectionState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "camviewer_connection_state",
		Help: "Current session state as its session.State ordinal (0=DISCONNECTED), not its rank.",
	})

	PongRTTMs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "camviewer_pong_rtt_ms",
		Help: "Most recently observed PING/PONG round-trip time in milliseconds.",
	})
)
