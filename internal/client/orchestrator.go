// Package client implements the session orchestrator (spec §4.10/§5): the
// single owner of the socket, the writer task, and the six other
// per-connection tasks, wiring together every other package in this
// module. Grounded on internal/rtmp/conn/conn.go's
// startReadLoop/startWriteLoop/outboundQueue task-group shape and
// internal/rtmp/client/client.go's connect/command sequencing, both
// generalized from RTMP's binary chunk protocol and AMF commands to this
// module's line-oriented verbs.
package client

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/nordlyslabs/camviewer/internal/audio"
	"github.com/nordlyslabs/camviewer/internal/backpressure"
	"github.com/nordlyslabs/camviewer/internal/bufpool"
	"github.com/nordlyslabs/camviewer/internal/core"
	protoerr "github.com/nordlyslabs/camviewer/internal/errors"
	"github.com/nordlyslabs/camviewer/internal/logger"
	"github.com/nordlyslabs/camviewer/internal/metrics"
	"github.com/nordlyslabs/camviewer/internal/protocol"
	"github.com/nordlyslabs/camviewer/internal/session"
	"github.com/nordlyslabs/camviewer/internal/video"
	"github.com/nordlyslabs/camviewer/internal/watchdog"
	"github.com/nordlyslabs/camviewer/internal/wire"
)

const (
	dialTimeout = 6 * time.Second
	readTimeout = 15 * time.Second
	sendBufSize = 256 * 1024
	recvBufSize = 256 * 1024

	// writeQueueDepth bounds the writer task's outbound queue. Control
	// verbs are infrequent and video/audio payloads already pass through
	// the jitter buffer and playback queue before reaching Send, so this
	// only needs to absorb a burst, not sustain one.
	writeQueueDepth = 64
)

// Config bundles everything the orchestrator needs from the embedding
// application: connection parameters and the out-of-scope collaborators
// of spec §6/internal/core.
type Config struct {
	Host     string
	Port     int
	Password string
	Tier     session.DeviceTier

	Decoder    core.DecoderSink
	AudioSink  core.AudioSink
	AacDecoder core.AacDecoder // optional; nil disables AAC downstream audio
	Capture    audio.CaptureSource // optional; nil disables talkback
	Observers  core.Observers
	Clock      core.Clock
	Config     core.ConfigStore

	Pool *bufpool.Pool
}

func (c *Config) addr() string {
	return net.JoinHostPort(c.Host, portString(c.Port))
}

// Orchestrator owns one viewer connection's full lifecycle, including
// reconnects, per spec §4.10. Create one per logical camera connection.
type Orchestrator struct {
	cfg  Config
	pool *bufpool.Pool
	log  *slog.Logger

	sess *session.Session

	jitter   *video.JitterBuffer
	feeder   *video.Feeder
	decoder  *decoderAdapter
	downstream *audio.Downstream

	bpTracker    *backpressure.Tracker
	bpController *backpressure.Controller
	grace        *watchdog.Grace
	reconnectSch *watchdog.ReconnectScheduler

	// Per-connection state, rebuilt on every connect attempt under connMu.
	connMu   sync.Mutex
	conn     net.Conn
	writer   *wire.Writer
	writeCh  chan *wire.Message
	hs       *session.Handshake
	hsWd     *watchdog.HandshakeWatchdog
	connWd   *watchdog.ConnectedWatchdog
	connCtx    context.Context
	connCancel context.CancelFunc

	connectStartedMs   int64
	enteredConnectedMs int64
	hadVideoBefore     bool
	negotiatedW        int64
	negotiatedH        int64
	lastArrivalMs      int64
	lastCsd            protocol.Csd
	haveCsd            bool
	connectedAt        time.Time

	talkbackMu     sync.Mutex
	talkbackCancel context.CancelFunc

	frameSignal chan struct{}
	audioSignal chan struct{}

	renderCount int
	attempted   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	shutdownOnce sync.Once
}

// New creates an Orchestrator. Call Run to start connecting.
func New(cfg Config) *Orchestrator {
	pool := cfg.Pool
	if pool == nil {
		pool = bufpool.New()
	}
	o := &Orchestrator{
		cfg:          cfg,
		pool:         pool,
		log:          logger.Logger(),
		sess:         session.New(cfg.Host, cfg.Port, cfg.Password),
		jitter:       video.NewJitterBuffer(pool),
		feeder:       video.NewFeeder(pool),
		decoder:      newDecoderAdapter(cfg.Decoder),
		bpTracker:    backpressure.NewTracker(),
		bpController: backpressure.NewController(),
		grace:        watchdog.NewGrace(),
		reconnectSch: watchdog.NewReconnectScheduler(),
		frameSignal:  make(chan struct{}, 1),
		audioSignal:  make(chan struct{}, 1),
	}
	var aac audio.AacDecoder
	if cfg.AacDecoder != nil {
		aac = newAacAdapter(cfg.AacDecoder)
	}
	o.downstream = audio.NewDownstream(cfg.AudioSink, aac)
	return o
}

// Session exposes the underlying session for read-only inspection (state,
// epoch, health counters) by an embedding application's UI layer.
func (o *Orchestrator) Session() *session.Session { return o.sess }

// Run starts the connect/reconnect loop and blocks until ctx is canceled
// or Shutdown is called. It is the top-level entry point; callers
// typically run it in its own goroutine.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.ctx, o.cancel = context.WithCancel(ctx)
	err := o.reconnectSch.Run(o.ctx, o.runOneConnection)
	o.wg.Wait()
	return err
}

// Disconnect tears down the current connection and disables further
// auto-reconnect attempts, draining queues without reconnecting (spec
// §4.10: "On explicit user disconnect: disable auto-reconnect and drain
// queues without reconnect").
func (o *Orchestrator) Disconnect() {
	o.sess.DisableAutoReconnect()
	o.connMu.Lock()
	cancel := o.connCancel
	o.connMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Shutdown idempotently tears down every task and closes the socket.
func (o *Orchestrator) Shutdown() {
	o.shutdownOnce.Do(func() {
		o.Disconnect()
		if o.cancel != nil {
			o.cancel()
		}
	})
}

// EnableTalkback starts the audio-capture task and announces it via COMM.
func (o *Orchestrator) EnableTalkback() error {
	if o.cfg.Capture == nil {
		return protoerr.NewResourceExhaustedError("talkback: no capture source configured", nil)
	}
	o.talkbackMu.Lock()
	if o.talkbackCancel != nil {
		o.talkbackMu.Unlock()
		return nil
	}
	connCtx := o.currentConnCtx()
	if connCtx == nil {
		o.talkbackMu.Unlock()
		return protoerr.NewTransientIOError("talkback: not connected", nil)
	}
	tctx, cancel := context.WithCancel(connCtx)
	o.talkbackCancel = cancel
	o.talkbackMu.Unlock()

	o.wg.Add(1)
	go o.audioCaptureTask(tctx)

	return o.sendMessage(protocol.Comm{Enabled: true})
}

// DisableTalkback stops the audio-capture task and announces it via COMM.
func (o *Orchestrator) DisableTalkback() error {
	o.talkbackMu.Lock()
	if o.talkbackCancel != nil {
		o.talkbackCancel()
		o.talkbackCancel = nil
	}
	o.talkbackMu.Unlock()
	return o.sendMessage(protocol.Comm{Enabled: false})
}

func (o *Orchestrator) currentConnCtx() context.Context {
	o.connMu.Lock()
	defer o.connMu.Unlock()
	return o.connCtx
}

// SetMuted toggles local playback mute (spec §4.8).
func (o *Orchestrator) SetMuted(muted bool) {
	o.downstream.SetMuted(muted, time.Now())
}

// SetPreviewVisible and SetFirstFrameRendered feed the performance
// controller's gating state (spec §4.6); an embedding UI calls these as
// its render surface attaches/detaches and as frames start flowing.
func (o *Orchestrator) SetPreviewVisible(visible bool) { o.bpController.SetPreviewVisible(visible) }
